package appointments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/healthsched/opd-platform/internal/tenancy"
)

func newTestHandler(store *fakeStore) *Handler {
	svc := newTestService(store, &fakeIssuer{}, nil)
	h := NewHandler(svc, nil, nil)
	h.nowFn = func() time.Time { return dayAt(9, 5) }
	return h
}

func testRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Group(h.Routes)
	r.Group(func(admin chi.Router) {
		// Tests inject the site scope directly instead of going through
		// the JWT middleware.
		admin.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				site := req.Header.Get("X-Test-Site")
				if site != "" {
					req = req.WithContext(tenancy.WithSiteID(req.Context(), site))
				}
				next.ServeHTTP(w, req)
			})
		})
		admin.Put("/appointments/delay", h.Delay)
		admin.Delete("/appointments/{id}", h.Delete)
	})
	return r
}

func TestBookHandlerCreated(t *testing.T) {
	h := newTestHandler(newFakeStore())
	router := testRouter(h)

	body := `{"fullName":"Asha Rao","contactNumber":"9876543210","preferredWindow":"9:00 AM - 12:00 PM","reason":"fever"}`
	req := httptest.NewRequest(http.MethodPost, "/sites/clinic-1/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp bookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AppointmentTime != "9:25 AM" {
		t.Fatalf("unexpected time %q", resp.AppointmentTime)
	}
	if resp.Token != 1 {
		t.Fatalf("unexpected token %d", resp.Token)
	}
	if resp.Window != "9:00 AM - 12:00 PM" {
		t.Fatalf("unexpected window %q", resp.Window)
	}
}

func TestBookHandlerBadWindow(t *testing.T) {
	h := newTestHandler(newFakeStore())
	router := testRouter(h)

	body := `{"fullName":"Asha Rao","contactNumber":"9876543210","preferredWindow":"whenever"}`
	req := httptest.NewRequest(http.MethodPost, "/sites/clinic-1/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBookHandlerBadSiteID(t *testing.T) {
	h := newTestHandler(newFakeStore())
	router := testRouter(h)

	body := `{"fullName":"Asha Rao","contactNumber":"9876543210","preferredWindow":"9:00 AM - 12:00 PM"}`
	req := httptest.NewRequest(http.MethodPost, "/sites/bad%20site!/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBookHandlerDuplicateConflict(t *testing.T) {
	store := newFakeStore()
	store.add(&Appointment{SiteID: "clinic-1", FullName: "Asha Rao", Date: "2026-08-29",
		Window: "9:00 AM - 12:00 PM", TimeMinutes: 565, TimeLabel: "9:25 AM"})
	router := testRouter(newTestHandler(store))

	body := `{"fullName":"Asha Rao","contactNumber":"9876543210","preferredWindow":"9:00 AM - 12:00 PM"}`
	req := httptest.NewRequest(http.MethodPost, "/sites/clinic-1/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["existingTime"] != "9:25 AM" {
		t.Fatalf("expected existingTime in conflict body, got %v", resp)
	}
}

func TestDuplicateCheckHandler(t *testing.T) {
	store := newFakeStore()
	store.add(&Appointment{SiteID: "clinic-1", FullName: "Asha Rao", Date: "2026-08-29",
		Window: "9:00 AM - 12:00 PM", TimeMinutes: 565, TimeLabel: "9:25 AM"})
	router := testRouter(newTestHandler(store))

	req := httptest.NewRequest(http.MethodPost, "/duplicate-check",
		strings.NewReader(`{"fullName":"asha rao","siteId":"clinic-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp duplicateCheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Exists || resp.ExistingTime != "9:25 AM" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRescheduleHandlerNotFound(t *testing.T) {
	router := testRouter(newTestHandler(newFakeStore()))

	req := httptest.NewRequest(http.MethodPut, "/appointments/missing/reschedule",
		strings.NewReader(`{"newWindow":"12:00 PM - 3:00 PM"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDelayHandlerRequiresSiteScope(t *testing.T) {
	router := testRouter(newTestHandler(newFakeStore()))

	req := httptest.NewRequest(http.MethodPut, "/appointments/delay",
		strings.NewReader(`{"delayMinutes":10}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without site scope, got %d", rec.Code)
	}
}

func TestDelayHandlerPropagates(t *testing.T) {
	store := newFakeStore()
	store.add(&Appointment{SiteID: "clinic-1", FullName: "A", Date: "2026-08-29",
		Window: "9:00 AM - 12:00 PM", TimeMinutes: 600, TimeLabel: "10:00 AM",
		Practitioner: Assigned("dr-5")})
	router := testRouter(newTestHandler(store))

	req := httptest.NewRequest(http.MethodPut, "/appointments/delay",
		strings.NewReader(`{"delayMinutes":10}`))
	req.Header.Set("X-Test-Site", "clinic-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp DelayResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UpdatedCount != 1 {
		t.Fatalf("expected 1 update, got %d", resp.UpdatedCount)
	}
}

func TestDelayHandlerRejectsBadIncrement(t *testing.T) {
	router := testRouter(newTestHandler(newFakeStore()))

	req := httptest.NewRequest(http.MethodPut, "/appointments/delay",
		strings.NewReader(`{"delayMinutes":15}`))
	req.Header.Set("X-Test-Site", "clinic-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteHandlerNotFound(t *testing.T) {
	router := testRouter(newTestHandler(newFakeStore()))

	req := httptest.NewRequest(http.MethodDelete, "/appointments/missing", nil)
	req.Header.Set("X-Test-Site", "clinic-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// recordingClock captures which site each time lookup was scoped to.
type recordingClock struct {
	siteIDs []string
	now     time.Time
}

func (c *recordingClock) LocalNow(ctx context.Context, siteID string) time.Time {
	c.siteIDs = append(c.siteIDs, siteID)
	return c.now
}

func TestRescheduleHandlerUsesAppointmentSiteClock(t *testing.T) {
	store := newFakeStore()
	appt := store.add(&Appointment{SiteID: "clinic-9", FullName: "Asha Rao", Date: "2026-08-29",
		Window: "9:00 AM - 12:00 PM", TimeMinutes: 565, TimeLabel: "9:25 AM"})

	h := newTestHandler(store)
	clock := &recordingClock{now: dayAt(9, 30)}
	h.clock = clock
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodPut, "/appointments/"+appt.ID+"/reschedule",
		strings.NewReader(`{"newWindow":"12:00 PM - 3:00 PM"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(clock.siteIDs) == 0 {
		t.Fatal("expected the site clock to be consulted")
	}
	for _, siteID := range clock.siteIDs {
		if siteID != "clinic-9" {
			t.Fatalf("clock scoped to %q, want the appointment's site clinic-9", siteID)
		}
	}
}

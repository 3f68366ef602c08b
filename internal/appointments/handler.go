package appointments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/healthsched/opd-platform/internal/slotwindow"
	"github.com/healthsched/opd-platform/internal/tenancy"
	"github.com/healthsched/opd-platform/pkg/logging"
)

// SiteClock resolves the current wall-clock time in a site's timezone.
// sites.Store implements it.
type SiteClock interface {
	LocalNow(ctx context.Context, siteID string) time.Time
}

// Handler exposes the appointments service over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
	clock   SiteClock
	nowFn   func() time.Time
}

// NewHandler creates the HTTP handler for appointment operations. A nil
// clock falls back to server time.
func NewHandler(service *Service, logger *logging.Logger, clock SiteClock) *Handler {
	if service == nil {
		panic("appointments: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger, clock: clock, nowFn: time.Now}
}

// now resolves the request's reference time. All scheduling arithmetic runs
// on the site's local clock.
func (h *Handler) now(ctx context.Context, siteID string) time.Time {
	if h.clock != nil {
		return h.clock.LocalNow(ctx, siteID)
	}
	return h.nowFn()
}

// Routes mounts the public booking surface.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sites/{siteID}/appointments", h.Book)
	r.Post("/duplicate-check", h.DuplicateCheck)
	r.Put("/appointments/{id}/reschedule", h.Reschedule)
	r.Get("/appointments/{id}", h.Get)
}

// AdminRoutes mounts the operations that require an admin token.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Put("/appointments/delay", h.Delay)
	r.Put("/appointments/{id}/prescription", h.SavePrescription)
	r.Delete("/appointments/{id}", h.Delete)
	r.Get("/sites/{siteID}/appointments", h.ListBySite)
	r.Get("/practitioners/{id}/appointments", h.ListByPractitioner)
}

// bookResponse is the 201 body for a successful booking.
type bookResponse struct {
	ID              string `json:"id"`
	AppointmentTime string `json:"appointmentTime"`
	Token           int64  `json:"token"`
	Window          string `json:"window"`
}

// Book handles POST /sites/{siteID}/appointments.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req.SiteID = strings.TrimSpace(chi.URLParam(r, "siteID"))

	appt, err := h.service.Book(r.Context(), req, h.now(r.Context(), req.SiteID))
	if err != nil {
		h.respondBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookResponse{
		ID:              appt.ID,
		AppointmentTime: appt.TimeLabel,
		Token:           appt.Number,
		Window:          appt.Window,
	})
}

type duplicateCheckRequest struct {
	FullName string `json:"fullName"`
	SiteID   string `json:"siteId"`
}

type duplicateCheckResponse struct {
	Exists       bool   `json:"exists"`
	ExistingTime string `json:"existingTime,omitempty"`
}

// DuplicateCheck handles POST /duplicate-check.
func (h *Handler) DuplicateCheck(w http.ResponseWriter, r *http.Request) {
	var req duplicateCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		jsonError(w, "fullName is required", http.StatusBadRequest)
		return
	}
	if !siteIDRe.MatchString(req.SiteID) {
		jsonError(w, "invalid site id", http.StatusBadRequest)
		return
	}

	exists, existingTime, err := h.service.CheckDuplicate(r.Context(), req.FullName, req.SiteID, h.now(r.Context(), req.SiteID))
	if err != nil {
		h.logger.Error("duplicate check failed", "site_id", req.SiteID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, duplicateCheckResponse{Exists: exists, ExistingTime: existingTime})
}

type rescheduleRequest struct {
	NewWindow string `json:"newWindow"`
}

// Reschedule handles PUT /appointments/{id}/reschedule.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.NewWindow) == "" {
		jsonError(w, "newWindow is required", http.StatusBadRequest)
		return
	}

	// The move runs on the clock of the site that owns the appointment.
	existing, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondBookingError(w, err)
		return
	}

	appt, err := h.service.Reschedule(r.Context(), id, req.NewWindow, h.now(r.Context(), existing.SiteID))
	if err != nil {
		h.respondBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type delayRequest struct {
	DelayMinutes int `json:"delayMinutes"`
}

// Delay handles PUT /appointments/delay. The site scope comes from the
// admin token, not the body.
func (h *Handler) Delay(w http.ResponseWriter, r *http.Request) {
	siteID, ok := tenancy.SiteIDFromContext(r.Context())
	if !ok {
		jsonError(w, "missing site scope", http.StatusUnauthorized)
		return
	}
	var req delayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Delay(r.Context(), siteID, req.DelayMinutes, h.now(r.Context(), siteID))
	if err != nil {
		if errors.Is(err, ErrDelayNotAllowed) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("delay propagation failed", "site_id", siteID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get handles GET /appointments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	appt, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			jsonError(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("appointment lookup failed", "appointment_id", id, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type prescriptionRequest struct {
	Data        string `json:"data"` // base64
	ContentType string `json:"contentType"`
	Diagnosis   string `json:"diagnosis"`
}

// SavePrescription handles PUT /appointments/{id}/prescription.
func (h *Handler) SavePrescription(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var req prescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	var data []byte
	if req.Data != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			jsonError(w, "data must be base64", http.StatusBadRequest)
			return
		}
		data = decoded
	}

	err := h.service.SavePrescription(r.Context(), id, &Prescription{
		Data:        data,
		ContentType: req.ContentType,
		Diagnosis:   req.Diagnosis,
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			jsonError(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("prescription save failed", "appointment_id", id, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// Delete handles DELETE /appointments/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			jsonError(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("appointment delete failed", "appointment_id", id, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBySite handles GET /sites/{siteID}/appointments.
func (h *Handler) ListBySite(w http.ResponseWriter, r *http.Request) {
	siteID := strings.TrimSpace(chi.URLParam(r, "siteID"))
	appts, err := h.service.ListBySite(r.Context(), siteID)
	if err != nil {
		if errors.Is(err, ErrInvalidSiteID) {
			jsonError(w, "invalid site id", http.StatusBadRequest)
			return
		}
		h.logger.Error("site listing failed", "site_id", siteID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts, "count": len(appts)})
}

// ListByPractitioner handles GET /practitioners/{id}/appointments.
func (h *Handler) ListByPractitioner(w http.ResponseWriter, r *http.Request) {
	practitionerID := strings.TrimSpace(chi.URLParam(r, "id"))
	if practitionerID == "" {
		jsonError(w, "missing practitioner id", http.StatusBadRequest)
		return
	}
	appts, err := h.service.ListByPractitioner(r.Context(), practitionerID)
	if err != nil {
		h.logger.Error("practitioner listing failed", "practitioner_id", practitionerID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts, "count": len(appts)})
}

// respondBookingError maps the scheduling error taxonomy onto HTTP statuses.
func (h *Handler) respondBookingError(w http.ResponseWriter, err error) {
	var dup *DuplicateBookingError
	var full *SlotFullError
	switch {
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":        "duplicate booking",
			"existingTime": dup.ExistingTime,
		})
	case errors.As(err, &full):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "slot full",
			"closeTime": full.CloseTime,
		})
	case errors.Is(err, ErrAppointmentNotFound):
		jsonError(w, "appointment not found", http.StatusNotFound)
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrInvalidSiteID),
		errors.Is(err, ErrWindowRequired),
		errors.Is(err, ErrWindowElapsed),
		errors.Is(err, slotwindow.ErrBadFormat),
		errors.Is(err, slotwindow.ErrEmptyWindow):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("booking failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

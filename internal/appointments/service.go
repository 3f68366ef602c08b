package appointments

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/healthsched/opd-platform/internal/observability/metrics"
	"github.com/healthsched/opd-platform/internal/scheduling"
	"github.com/healthsched/opd-platform/internal/slotwindow"
	"github.com/healthsched/opd-platform/pkg/logging"
)

var appointmentsTracer = otel.Tracer("opd.internal.appointments")

// Event kinds passed to the notifier.
const (
	EventBooked      = "booked"
	EventRescheduled = "rescheduled"
	EventDelayed     = "delayed"
)

// Store is the persistence surface the service drives. *Repository
// implements it; tests substitute an in-memory fake.
type Store interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	FindDuplicate(ctx context.Context, fullName, siteID, date string) (*Appointment, error)
	ListQueue(ctx context.Context, siteID, date, window string, p Practitioner) ([]*Appointment, error)
	ListWindowOccupants(ctx context.Context, siteID, date, window, excludeID string) ([]*Appointment, error)
	ListAssignedForDate(ctx context.Context, siteID, date string) ([]*Appointment, error)
	ListBySite(ctx context.Context, siteID string) ([]*Appointment, error)
	ListByPractitioner(ctx context.Context, practitionerID string) ([]*Appointment, error)
	UpdateSchedule(ctx context.Context, id, window, timeLabel string, timeMinutes int) error
	SavePrescription(ctx context.Context, id string, p *Prescription) error
	Delete(ctx context.Context, id string) error
}

// TokenIssuer hands out the next appointment number.
type TokenIssuer interface {
	Next(ctx context.Context) (int64, error)
}

// Notifier is the outward collaborator that tells the patient what happened.
// Delivery and retries are its concern; the service never waits on it.
type Notifier interface {
	NotifyAppointment(ctx context.Context, a *Appointment, event string) error
}

// DelayResult summarizes one delay propagation run.
type DelayResult struct {
	UpdatedCount  int `json:"updatedCount"`
	NotifiedCount int `json:"notifiedCount"`
}

// Service coordinates booking, rescheduling and delay propagation over the
// per-queue locks.
type Service struct {
	store    Store
	tokens   TokenIssuer
	notifier Notifier
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger

	params        scheduling.Params
	allowedDelays []int
	locks         queueLocks
}

// NewService constructs an appointments service.
func NewService(store Store, tokens TokenIssuer, notifier Notifier, m *metrics.SchedulingMetrics, logger *logging.Logger, params scheduling.Params, allowedDelays []int) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if tokens == nil {
		panic("appointments: token issuer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if params.ArrivalBuffer <= 0 || params.MinSpacing <= 0 {
		params = scheduling.DefaultParams()
	}
	if len(allowedDelays) == 0 {
		allowedDelays = []int{5, 10}
	}
	return &Service{
		store:         store,
		tokens:        tokens,
		notifier:      notifier,
		metrics:       m,
		logger:        logger,
		params:        params,
		allowedDelays: allowedDelays,
	}
}

// Book validates the request, finds the earliest feasible time in the chosen
// window and persists the appointment with a fresh token number.
//
// The queue lock is held from the duplicate check through the insert so two
// concurrent bookings for the same queue cannot compute the same time. The
// counter is only touched after both the duplicate and capacity checks pass.
func (s *Service) Book(ctx context.Context, req BookingRequest, now time.Time) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(attribute.String("opd.site_id", req.SiteID))

	if err := req.Validate(); err != nil {
		s.metrics.ObserveBooking("book", "invalid")
		return nil, err
	}
	w, err := slotwindow.ParseWindow(req.PreferredWindow)
	if err != nil {
		s.metrics.ObserveBooking("book", "invalid")
		return nil, err
	}
	nowMin := minutesOfDay(now)
	if nowMin >= w.End {
		s.metrics.ObserveBooking("book", "elapsed")
		return nil, ErrWindowElapsed
	}

	date := now.Format("2006-01-02")
	practitioner := ParsePractitioner(req.PractitionerID)

	start := time.Now()
	mu := s.locks.lockFor(queueKey(req.SiteID, date, w.Label(), practitioner))
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.store.FindDuplicate(ctx, req.FullName, req.SiteID, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if existing != nil {
		s.metrics.ObserveBooking("book", "duplicate")
		return nil, &DuplicateBookingError{FullName: req.FullName, ExistingTime: existing.TimeLabel}
	}

	queue, err := s.store.ListQueue(ctx, req.SiteID, date, w.Label(), practitioner)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	assigned, err := scheduling.GapFill(w, occupiedMinutes(queue), nowMin, s.params)
	if err != nil {
		s.metrics.ObserveBooking("book", "slot_full")
		return nil, &SlotFullError{Window: w.Label(), CloseTime: w.EndLabel}
	}

	number, err := s.tokens.Next(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	appt := &Appointment{
		SiteID:        req.SiteID,
		FullName:      req.FullName,
		ContactNumber: req.ContactNumber,
		Email:         req.Email,
		Date:          date,
		Window:        w.Label(),
		TimeLabel:     slotwindow.FormatClock(assigned),
		TimeMinutes:   assigned,
		Number:        number,
		Practitioner:  practitioner,
		Reason:        req.Reason,
	}
	if err := s.store.Create(ctx, appt); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveBooking("book", "placed")
	s.metrics.ObservePlacementLatency("book", time.Since(start).Seconds())
	s.logger.Info("appointment booked",
		"site_id", appt.SiteID,
		"appointment_id", appt.ID,
		"number", appt.Number,
		"time", appt.TimeLabel,
		"queue", practitioner.QueueKey(),
	)
	s.dispatchNotification(appt, EventBooked)
	return appt, nil
}

// CheckDuplicate reports whether the patient already holds an appointment at
// the site today, and at what time.
func (s *Service) CheckDuplicate(ctx context.Context, fullName, siteID string, now time.Time) (bool, string, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.duplicate_check")
	defer span.End()

	existing, err := s.store.FindDuplicate(ctx, fullName, siteID, now.Format("2006-01-02"))
	if err != nil {
		span.RecordError(err)
		return false, "", err
	}
	if existing == nil {
		return false, "", nil
	}
	return true, existing.TimeLabel, nil
}

// Reschedule moves an appointment into a new window, appending it after the
// window's last occupant. Unlike Book this never scans for interior gaps;
// the moved appointment always lands at the tail.
func (s *Service) Reschedule(ctx context.Context, id, newWindow string, now time.Time) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("opd.appointment_id", id))

	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	w, err := slotwindow.ParseWindow(newWindow)
	if err != nil {
		s.metrics.ObserveBooking("reschedule", "invalid")
		return nil, err
	}

	date := appt.Date
	start := time.Now()
	// The tail scan reads the whole window regardless of practitioner, so
	// the lock must cover the window, not one practitioner's queue.
	mu := s.locks.lockFor(windowKey(appt.SiteID, date, w.Label()))
	mu.Lock()
	defer mu.Unlock()

	occupants, err := s.store.ListWindowOccupants(ctx, appt.SiteID, date, w.Label(), appt.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	assigned, err := scheduling.TailAppend(w, occupiedMinutes(occupants), minutesOfDay(now), s.params)
	if err != nil {
		s.metrics.ObserveBooking("reschedule", "slot_full")
		return nil, &SlotFullError{Window: w.Label(), CloseTime: w.EndLabel}
	}

	label := slotwindow.FormatClock(assigned)
	if err := s.store.UpdateSchedule(ctx, appt.ID, w.Label(), label, assigned); err != nil {
		span.RecordError(err)
		return nil, err
	}
	appt.Window = w.Label()
	appt.TimeLabel = label
	appt.TimeMinutes = assigned

	s.metrics.ObserveBooking("reschedule", "placed")
	s.metrics.ObservePlacementLatency("reschedule", time.Since(start).Seconds())
	s.logger.Info("appointment rescheduled",
		"appointment_id", appt.ID,
		"window", appt.Window,
		"time", appt.TimeLabel,
	)
	s.dispatchNotification(appt, EventRescheduled)
	return appt, nil
}

// Delay shifts every not-yet-started assigned appointment at the site
// forward by delayMinutes. Entries whose current time is at or before now
// are left alone, and entries that a shift would push past their window's
// close are skipped rather than clipped.
func (s *Service) Delay(ctx context.Context, siteID string, delayMinutes int, now time.Time) (*DelayResult, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.delay")
	defer span.End()
	span.SetAttributes(
		attribute.String("opd.site_id", siteID),
		attribute.Int("opd.delay_minutes", delayMinutes),
	)

	if !scheduling.AllowedDelay(delayMinutes, s.allowedDelays) {
		return nil, ErrDelayNotAllowed
	}

	date := now.Format("2006-01-02")
	appts, err := s.store.ListAssignedForDate(ctx, siteID, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	nowMin := minutesOfDay(now)
	result := &DelayResult{}
	for _, group := range groupByQueue(appts) {
		w, err := slotwindow.ParseWindow(group[0].Window)
		if err != nil {
			s.logger.Warn("skipping queue with unparseable window",
				"appointment_id", group[0].ID, "window", group[0].Window)
			continue
		}
		mu := s.locks.lockFor(queueKey(siteID, date, w.Label(), group[0].Practitioner))
		mu.Lock()
		for _, appt := range group {
			shifted, ok := scheduling.Delayed(appt.TimeMinutes, nowMin, delayMinutes, w.End)
			if !ok {
				s.metrics.ObserveDelayShift("skipped")
				continue
			}
			label := slotwindow.FormatClock(shifted)
			if err := s.store.UpdateSchedule(ctx, appt.ID, appt.Window, label, shifted); err != nil {
				span.RecordError(err)
				s.logger.Error("delay update failed", "appointment_id", appt.ID, "error", err)
				continue
			}
			appt.TimeLabel = label
			appt.TimeMinutes = shifted
			result.UpdatedCount++
			result.NotifiedCount++
			s.metrics.ObserveDelayShift("shifted")
			s.dispatchNotification(appt, EventDelayed)
		}
		mu.Unlock()
	}

	s.logger.Info("delay propagated",
		"site_id", siteID,
		"delay_minutes", delayMinutes,
		"updated", result.UpdatedCount,
	)
	return result, nil
}

// Get returns one appointment by id.
func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	return s.store.GetByID(ctx, id)
}

// ListBySite returns every appointment booked at a site, newest first.
func (s *Service) ListBySite(ctx context.Context, siteID string) ([]*Appointment, error) {
	if !siteIDRe.MatchString(siteID) {
		return nil, ErrInvalidSiteID
	}
	return s.store.ListBySite(ctx, siteID)
}

// ListByPractitioner returns a practitioner's queue across sites.
func (s *Service) ListByPractitioner(ctx context.Context, practitionerID string) ([]*Appointment, error) {
	return s.store.ListByPractitioner(ctx, practitionerID)
}

// SavePrescription attaches a prescription payload and diagnosis to an
// existing appointment.
func (s *Service) SavePrescription(ctx context.Context, id string, p *Prescription) error {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.save_prescription")
	defer span.End()
	if err := s.store.SavePrescription(ctx, id, p); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("prescription saved", "appointment_id", id)
	return nil
}

// Delete removes an appointment. Administrative use only; the scheduling
// core itself never deletes.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.delete")
	defer span.End()
	if err := s.store.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("appointment deleted", "appointment_id", id)
	return nil
}

// dispatchNotification hands the event to the notifier on a goroutine. A
// failed send is logged and counted but never affects the caller.
func (s *Service) dispatchNotification(appt *Appointment, event string) {
	if s.notifier == nil {
		return
	}
	a := *appt
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.NotifyAppointment(ctx, &a, event); err != nil {
			s.metrics.ObserveNotifyFailure()
			s.logger.Error("notification failed",
				"appointment_id", a.ID, "event", event, "error", err)
		}
	}()
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func occupiedMinutes(appts []*Appointment) []int {
	out := make([]int, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.TimeMinutes)
	}
	return out
}

// groupByQueue partitions same-day appointments by (practitioner, window),
// preserving the store's time ordering inside each group.
func groupByQueue(appts []*Appointment) [][]*Appointment {
	index := make(map[string]int)
	var groups [][]*Appointment
	for _, a := range appts {
		key := a.Practitioner.QueueKey() + "|" + a.Window
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], a)
	}
	return groups
}

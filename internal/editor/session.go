// Package editor orchestrates the appointment editing session: it opens the
// persistent modal, binds its form to the in-memory appointment model,
// resolves patient/provider lookups inline or by diverting to a full search
// view, and handles save/update/delete. The modal outlives navigation; the
// session snapshots itself into the state store whenever it is backgrounded
// and rehydrates when control returns.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openclinic/ehr-shell/internal/appointment"
	"github.com/openclinic/ehr-shell/internal/ehrapi"
	"github.com/openclinic/ehr-shell/internal/fragment"
	"github.com/openclinic/ehr-shell/internal/modal"
	"github.com/openclinic/ehr-shell/internal/observability/metrics"
	"github.com/openclinic/ehr-shell/internal/session"
	"github.com/openclinic/ehr-shell/internal/view"
	"github.com/openclinic/ehr-shell/pkg/logging"
)

// State tracks where the editing session is in its lifecycle.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateBound
	StateSaving
	StateDeleting
)

// Sentinel errors surfaced before any network call.
var (
	ErrNoPatient       = errors.New("editor: no patient selected")
	ErrNoProvider      = errors.New("editor: no provider selected")
	ErrNoAppointmentID = errors.New("editor: appointment has no id")
	ErrNotOpen         = errors.New("editor: no editing session open")
	ErrBusy            = errors.New("editor: operation already in flight")
	ErrSaveFailed      = errors.New("editor: save rejected by backend")
	ErrDeleteFailed    = errors.New("editor: delete rejected by backend")
)

// CalendarRefresher lets the session trigger a calendar refetch after a
// successful mutation.
type CalendarRefresher interface {
	RefetchEvents()
}

// ProviderSwitcher lets the session retarget the calendar when a provider
// is locked into the appointment.
type ProviderSwitcher interface {
	SwitchProvider(ctx context.Context, p ehrapi.Provider) error
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer func(prompt string) bool

// Notifier surfaces a user-facing failure message.
type Notifier func(msg string)

// Session is the appointment editing session. One instance serves the whole
// page session; at most one edit is in flight at a time.
type Session struct {
	api    *ehrapi.Client
	frags  *fragment.Client
	store  *session.Store
	views  *view.Manager
	modal  modal.Manager
	logger *logging.Logger
	mx     *metrics.NavigationMetrics

	calendar CalendarRefresher
	switcher ProviderSwitcher
	confirm  Confirmer
	notify   Notifier

	patientMax  int
	providerMax int
	debounce    time.Duration
	schedule    func(d time.Duration, fn func()) func()

	mu         sync.Mutex
	state      State
	diverted   bool
	model      *appointment.Model
	startISO   string
	candidates map[Kind][]Candidate
	pendingGen map[Kind]*atomic.Uint64
	cancelPrev map[Kind]func()

	saving   atomic.Bool
	deleting atomic.Bool
}

// SessionOption configures the Session.
type SessionOption func(*Session)

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithMetrics attaches navigation metrics.
func WithMetrics(m *metrics.NavigationMetrics) SessionOption {
	return func(s *Session) { s.mx = m }
}

// WithConfirmer sets the confirmation prompt used before deletes.
func WithConfirmer(fn Confirmer) SessionOption {
	return func(s *Session) { s.confirm = fn }
}

// WithNotifier sets the user-facing failure reporter.
func WithNotifier(fn Notifier) SessionOption {
	return func(s *Session) { s.notify = fn }
}

// WithSuggestLimits overrides the per-kind suggest result sizes.
func WithSuggestLimits(patient, provider int) SessionOption {
	return func(s *Session) {
		if patient > 0 {
			s.patientMax = patient
		}
		if provider > 0 {
			s.providerMax = provider
		}
	}
}

// WithDebounce overrides the suggest debounce interval.
func WithDebounce(d time.Duration) SessionOption {
	return func(s *Session) { s.debounce = d }
}

// WithScheduler overrides the timer used for debouncing (tests inject an
// immediate scheduler).
func WithScheduler(fn func(d time.Duration, fn func()) func()) SessionOption {
	return func(s *Session) { s.schedule = fn }
}

// NewSession creates the editing session.
func NewSession(api *ehrapi.Client, frags *fragment.Client, store *session.Store, views *view.Manager, md modal.Manager, opts ...SessionOption) *Session {
	s := &Session{
		api:         api,
		frags:       frags,
		store:       store,
		views:       views,
		modal:       md,
		logger:      logging.Default(),
		patientMax:  6,
		providerMax: 12,
		debounce:    200 * time.Millisecond,
		model:       appointment.NewModel(),
		candidates:  make(map[Kind][]Candidate),
		pendingGen: map[Kind]*atomic.Uint64{
			KindPatient:  {},
			KindProvider: {},
		},
		cancelPrev: make(map[Kind]func()),
	}
	s.schedule = func(d time.Duration, fn func()) func() {
		t := time.AfterFunc(d, fn)
		return func() { t.Stop() }
	}
	s.confirm = func(prompt string) bool {
		s.logger.Warn("no confirmer wired, refusing destructive action", "prompt", prompt)
		return false
	}
	s.notify = func(msg string) {
		s.logger.Warn("user notification", "message", msg)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCalendar wires the calendar collaborator after construction (the
// calendar itself depends on the session).
func (s *Session) SetCalendar(c CalendarRefresher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendar = c
}

// SetProviderSwitcher wires the provider-switch collaborator.
func (s *Session) SetProviderSwitcher(p ProviderSwitcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switcher = p
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Diverted reports whether the session is backgrounded behind a sub-search.
func (s *Session) Diverted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diverted
}

// Model returns the model under edit. Exclusively owned by the session;
// callers outside its collaborators must treat it as read-only.
func (s *Session) Model() *appointment.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Open starts an editing session for a clicked slot or an existing
// appointment. The model is reset, seeded, snapshotted into the state
// store, and bound to freshly-fetched modal markup.
func (s *Session) Open(ctx context.Context, providerID int64, startISO string, existing *ehrapi.AppointmentDTO) error {
	s.mu.Lock()
	s.state = StateOpening
	s.diverted = false
	s.model.Reset()
	s.model.ProviderID = providerID
	if existing != nil {
		s.model.ApplyDTO(*existing)
	}

	slotDate, slotTime := appointment.SplitISO(startISO)
	if s.model.Date == "" {
		s.model.Date = slotDate
	}
	if s.model.TimeStart == "" && slotTime != "" {
		s.model.SetStart(slotTime)
	}
	if s.model.TimeEnd == "" {
		if end, ok := appointment.AddMinutes(s.model.TimeStart, s.model.Duration); ok {
			s.model.TimeEnd = end
		}
	}
	s.startISO = startISO
	s.mu.Unlock()

	return s.mount(ctx)
}

// mount snapshots the model, fetches the modal markup, shows the modal,
// and binds the form.
func (s *Session) mount(ctx context.Context) error {
	if err := s.snapshot(ctx); err != nil {
		s.logger.Warn("appointment snapshot failed", "error", err)
	}

	markup, err := s.frags.Fetch(ctx, fragment.ModalFragment)
	if err != nil {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		s.logger.Error("appointment modal fragment load failed", "error", err)
		return fmt.Errorf("editor: open: %w", err)
	}

	s.modal.Show(markup)
	s.bind(ctx)

	s.mu.Lock()
	s.state = StateBound
	s.mu.Unlock()
	return nil
}

// bind populates the modal form from the model once the markup is attached.
func (s *Session) bind(ctx context.Context) {
	form := s.modal.Form()
	if form == nil {
		s.logger.Warn("appointment form not found")
		return
	}

	s.mu.Lock()
	m := s.model.Clone()
	s.mu.Unlock()

	form.Set("date", m.Date)
	form.Set("timeStart", m.TimeStart)
	form.Set("timeEnd", m.TimeEnd)
	form.Set("duration", strconv.Itoa(m.Duration))
	form.Set("reason", m.Reason)
	form.Set("appointmentType", m.AppointmentType)
	form.Set("status", m.Status)

	if m.Patient != nil {
		form.Set("patientName", m.Patient.DisplayName())
		form.SetData("patientId", strconv.FormatInt(m.Patient.ID, 10))
	} else if m.PatientID != 0 {
		form.SetData("patientId", strconv.FormatInt(m.PatientID, 10))
	}

	s.bindProviderField(ctx, form, m)
}

// bindProviderField fills the provider lookup field, preferring the cached
// calendar provider over a fetch.
func (s *Session) bindProviderField(ctx context.Context, form *modal.Form, m appointment.Model) {
	if m.Provider != nil {
		form.Set("providerName", m.Provider.DisplayName())
		form.SetData("providerId", strconv.FormatInt(m.Provider.ID, 10))
		return
	}
	if m.ProviderID == 0 {
		return
	}

	provider, err := s.store.SelectedProvider(ctx)
	if err == nil && provider != nil && provider.ID == m.ProviderID {
		form.Set("providerName", provider.DisplayName())
		form.SetData("providerId", strconv.FormatInt(provider.ID, 10))
		return
	}

	fetched, err := s.api.GetProvider(ctx, m.ProviderID)
	if err != nil {
		s.logger.Warn("could not auto-fill provider", "providerId", m.ProviderID, "error", err)
		form.SetData("providerId", strconv.FormatInt(m.ProviderID, 10))
		return
	}
	form.Set("providerName", fetched.DisplayName())
	form.SetData("providerId", strconv.FormatInt(fetched.ID, 10))
}

// FieldChanged applies an edited form field to the model, running the
// start/end/duration sync. Start is the anchor: editing it (or the
// duration) recomputes the end; editing the end recomputes the duration.
func (s *Session) FieldChanged(field, value string) {
	form := s.modal.Form()
	if form == nil {
		return
	}

	s.mu.Lock()
	switch field {
	case "timeStart":
		s.model.SetStart(value)
	case "timeEnd":
		s.model.SetEnd(value)
	case "duration":
		if d, err := strconv.Atoi(value); err == nil {
			s.model.SetDuration(d)
		}
	case "date":
		s.model.Date = value
	case "reason":
		s.model.Reason = value
	case "appointmentType":
		s.model.AppointmentType = value
	case "status":
		s.model.Status = value
	}
	m := s.model.Clone()
	s.mu.Unlock()

	form.Set("date", m.Date)
	form.Set("timeStart", m.TimeStart)
	form.Set("timeEnd", m.TimeEnd)
	form.Set("duration", strconv.Itoa(m.Duration))
	form.Set("reason", m.Reason)
	form.Set("appointmentType", m.AppointmentType)
	form.Set("status", m.Status)
}

// snapshot writes the model into the session store's activeAppointment.
func (s *Session) snapshot(ctx context.Context) error {
	s.mu.Lock()
	snap := session.ActiveAppointment{
		ProviderID:  s.model.ProviderID,
		StartISO:    s.startISO,
		Appointment: s.model.Clone(),
	}
	s.mu.Unlock()
	return s.store.SaveActiveAppointment(ctx, snap)
}

// ResumeFromReturn is invoked by the scheduler's shown hook when a search
// view has deposited a selection. It rebuilds the model from the
// activeAppointment snapshot, applies the returned entity, and soft-shows
// the modal (or remounts it if it was hard-closed).
func (s *Session) ResumeFromReturn(ctx context.Context, pr session.PendingReturn) error {
	active, err := s.store.ActiveAppointment(ctx)
	if err != nil {
		return err
	}
	if active == nil {
		// the edit ended while we were away; nothing to resume
		return nil
	}

	s.mu.Lock()
	restored := active.Appointment.Clone()
	s.model = &restored
	s.startISO = active.StartISO
	s.diverted = false
	s.mu.Unlock()

	switch pr.Field {
	case session.ReturnFieldPatient:
		if pr.Patient != nil {
			s.mu.Lock()
			s.model.SetPatient(*pr.Patient)
			s.mu.Unlock()
		}
	case session.ReturnFieldProvider:
		if pr.Provider != nil {
			s.mu.Lock()
			s.model.SetProvider(*pr.Provider)
			switcher := s.switcher
			s.mu.Unlock()
			if err := s.store.SetSelectedProvider(ctx, *pr.Provider); err != nil {
				s.logger.Warn("could not persist selected provider", "error", err)
			}
			if switcher != nil {
				if err := switcher.SwitchProvider(ctx, *pr.Provider); err != nil {
					s.logger.Warn("calendar provider switch failed", "error", err)
				}
			}
		}
	}

	if s.modal.IsOpen() {
		s.modal.SoftShow()
		s.bind(ctx)
		s.mu.Lock()
		s.state = StateBound
		s.mu.Unlock()
		return s.snapshot(ctx)
	}
	return s.mount(ctx)
}

// Cancel discards any in-progress edits unconditionally.
func (s *Session) Cancel(ctx context.Context) {
	s.modal.Hide()

	s.mu.Lock()
	s.model.Reset()
	s.state = StateClosed
	s.diverted = false
	s.mu.Unlock()

	if err := s.store.ClearActiveAppointment(ctx); err != nil {
		s.logger.Warn("could not clear appointment snapshot", "error", err)
	}
}

// closeAfterMutation is the shared success path for save and delete.
func (s *Session) closeAfterMutation(ctx context.Context) {
	s.modal.Hide()

	s.mu.Lock()
	calendar := s.calendar
	s.model.Reset()
	s.state = StateClosed
	s.diverted = false
	s.mu.Unlock()

	if calendar != nil {
		calendar.RefetchEvents()
	}
	if err := s.store.ClearActiveAppointment(ctx); err != nil {
		s.logger.Warn("could not clear appointment snapshot", "error", err)
	}
}

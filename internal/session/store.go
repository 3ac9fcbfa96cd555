// Package session implements the cross-navigation state store: the only
// channel independently-loaded views share. Payloads survive view swaps for
// the lifetime of the browser session and are scoped by session id, so two
// tabs never see each other's state. Consume operations are atomic
// read-and-clear (GETDEL) to keep the once-only delivery contract.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/openclinic/ehr-shell/internal/appointment"
	"github.com/openclinic/ehr-shell/internal/ehrapi"
	"github.com/openclinic/ehr-shell/pkg/logging"
)

// Well-known store fields.
const (
	fieldActiveAppointment   = "activeAppointment"
	fieldPrefillPatient      = "prefillPatient"
	fieldPrefillProvider     = "prefillProvider"
	fieldPendingReturn       = "pendingReturn"
	fieldLastSection         = "lastSection"
	fieldDemographicsContext = "demographicsContext"
	fieldSelectedProvider    = "selectedProvider"
	fieldReturnFromScheduler = "returnFromScheduler"
)

// DefaultSection is the section restored when no lastSection was recorded.
const DefaultSection = "scheduler"

// Return-payload field discriminators.
const (
	ReturnFieldPatient  = "patient"
	ReturnFieldProvider = "provider"
)

// ActiveAppointment is the snapshot written whenever the appointment modal
// is about to be backgrounded. Non-nil only while an edit is in flight.
type ActiveAppointment struct {
	ProviderID  int64             `json:"providerId"`
	StartISO    string            `json:"startISO"`
	Appointment appointment.Model `json:"appointmentData"`
}

// Prefill carries name fragments used to pre-run a search view's query.
type Prefill struct {
	First          string `json:"first"`
	Last           string `json:"last"`
	InPracticeOnly bool   `json:"inPracticeOnly,omitempty"`
}

// PendingReturn hands a selected entity back to the flow that requested it.
// Exactly one of Patient/Provider is set, matching Field.
type PendingReturn struct {
	Field    string           `json:"field"`
	Patient  *ehrapi.Patient  `json:"patient,omitempty"`
	Provider *ehrapi.Provider `json:"provider,omitempty"`
}

// Demographics form modes.
const (
	DemographicsModeNew  = "new"
	DemographicsModeEdit = "edit"
)

// DemographicsContext directs the demographics form which entity to load.
type DemographicsContext struct {
	Mode      string `json:"mode"` // "new" or "edit"
	PatientID *int64 `json:"patientId"`
}

// Store is the per-session keyed state area.
type Store struct {
	rdb       *redis.Client
	sessionID string
	ttl       time.Duration
	logger    *logging.Logger
	tracer    trace.Tracer
}

// Option configures the store.
type Option func(*Store)

// WithTTL overrides the session lifetime applied to every write.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithTracer sets a custom tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		s.tracer = tracer
	}
}

// New creates a store bound to one browser session.
func New(rdb *redis.Client, sessionID string, opts ...Option) *Store {
	if rdb == nil {
		panic("session: redis client cannot be nil")
	}
	s := &Store{
		rdb:       rdb,
		sessionID: sessionID,
		ttl:       24 * time.Hour,
		logger:    logging.Default(),
		tracer:    otel.Tracer("ehrshell.internal.session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(field string) string {
	return fmt.Sprintf("ehr:session:%s:%s", s.sessionID, field)
}

func (s *Store) set(ctx context.Context, field string, v any) error {
	ctx, span := s.tracer.Start(ctx, "session.set")
	defer span.End()

	data, err := json.Marshal(v)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: marshal %s: %w", field, err)
	}
	if err := s.rdb.Set(ctx, s.key(field), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: persist %s: %w", field, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, field string, out any) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.get")
	defer span.End()

	data, err := s.rdb.Get(ctx, s.key(field)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("session: load %s: %w", field, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("session: decode %s: %w", field, err)
	}
	return true, nil
}

// consume performs the atomic read-and-clear so a value is delivered to
// exactly one consumer.
func (s *Store) consume(ctx context.Context, field string, out any) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.consume")
	defer span.End()

	data, err := s.rdb.GetDel(ctx, s.key(field)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("session: consume %s: %w", field, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("session: decode %s: %w", field, err)
	}
	return true, nil
}

func (s *Store) clear(ctx context.Context, fields ...string) error {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = s.key(f)
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// SaveActiveAppointment snapshots the in-flight edit.
func (s *Store) SaveActiveAppointment(ctx context.Context, snap ActiveAppointment) error {
	return s.set(ctx, fieldActiveAppointment, snap)
}

// ActiveAppointment returns the in-flight edit snapshot, or nil.
func (s *Store) ActiveAppointment(ctx context.Context) (*ActiveAppointment, error) {
	var snap ActiveAppointment
	ok, err := s.get(ctx, fieldActiveAppointment, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

// ClearActiveAppointment drops the snapshot after save/delete/cancel.
func (s *Store) ClearActiveAppointment(ctx context.Context) error {
	return s.clear(ctx, fieldActiveAppointment)
}

// SetPrefillPatient stages search criteria for the patient view's next reveal.
func (s *Store) SetPrefillPatient(ctx context.Context, p Prefill) error {
	return s.set(ctx, fieldPrefillPatient, p)
}

// ConsumePrefillPatient reads and clears the staged patient criteria.
func (s *Store) ConsumePrefillPatient(ctx context.Context) (*Prefill, error) {
	var p Prefill
	ok, err := s.consume(ctx, fieldPrefillPatient, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// SetPrefillProvider stages search criteria for the provider view's next reveal.
func (s *Store) SetPrefillProvider(ctx context.Context, p Prefill) error {
	return s.set(ctx, fieldPrefillProvider, p)
}

// ConsumePrefillProvider reads and clears the staged provider criteria.
func (s *Store) ConsumePrefillProvider(ctx context.Context) (*Prefill, error) {
	var p Prefill
	ok, err := s.consume(ctx, fieldPrefillProvider, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// SetPendingReturn deposits a selected entity for the requesting flow.
func (s *Store) SetPendingReturn(ctx context.Context, pr PendingReturn) error {
	return s.set(ctx, fieldPendingReturn, pr)
}

// ConsumePendingReturn reads and clears the deposited entity.
func (s *Store) ConsumePendingReturn(ctx context.Context) (*PendingReturn, error) {
	var pr PendingReturn
	ok, err := s.consume(ctx, fieldPendingReturn, &pr)
	if err != nil || !ok {
		return nil, err
	}
	return &pr, nil
}

// SetLastSection records the current top-level view for boot restore.
func (s *Store) SetLastSection(ctx context.Context, name string) error {
	if name == "" {
		name = DefaultSection
	}
	return s.set(ctx, fieldLastSection, name)
}

// LastSection returns the section to restore at boot.
func (s *Store) LastSection(ctx context.Context) (string, error) {
	var name string
	ok, err := s.get(ctx, fieldLastSection, &name)
	if err != nil {
		return "", err
	}
	if !ok || name == "" {
		return DefaultSection, nil
	}
	return name, nil
}

// SetDemographicsContext stages the demographics form's target.
func (s *Store) SetDemographicsContext(ctx context.Context, dc DemographicsContext) error {
	return s.set(ctx, fieldDemographicsContext, dc)
}

// ConsumeDemographicsContext reads and clears the demographics target.
func (s *Store) ConsumeDemographicsContext(ctx context.Context) (*DemographicsContext, error) {
	var dc DemographicsContext
	ok, err := s.consume(ctx, fieldDemographicsContext, &dc)
	if err != nil || !ok {
		return nil, err
	}
	return &dc, nil
}

// SetSelectedProvider caches the provider driving the calendar.
func (s *Store) SetSelectedProvider(ctx context.Context, p ehrapi.Provider) error {
	return s.set(ctx, fieldSelectedProvider, p)
}

// SelectedProvider returns the cached calendar provider, or nil.
func (s *Store) SelectedProvider(ctx context.Context) (*ehrapi.Provider, error) {
	var p ehrapi.Provider
	ok, err := s.get(ctx, fieldSelectedProvider, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// MarkReturnFromScheduler flags that the provider view was entered from the
// scheduler's filter box rather than from an appointment edit.
func (s *Store) MarkReturnFromScheduler(ctx context.Context) error {
	return s.set(ctx, fieldReturnFromScheduler, true)
}

// ConsumeReturnFromScheduler reads and clears the scheduler-filter flag.
func (s *Store) ConsumeReturnFromScheduler(ctx context.Context) (bool, error) {
	var flag bool
	ok, err := s.consume(ctx, fieldReturnFromScheduler, &flag)
	if err != nil || !ok {
		return false, err
	}
	return flag, nil
}

// ClearAll wipes every field of this session.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.clear(ctx,
		fieldActiveAppointment,
		fieldPrefillPatient,
		fieldPrefillProvider,
		fieldPendingReturn,
		fieldLastSection,
		fieldDemographicsContext,
		fieldSelectedProvider,
		fieldReturnFromScheduler,
	)
}

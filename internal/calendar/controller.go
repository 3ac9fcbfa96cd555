// Package calendar drives the provider schedule grid: it interprets slot
// and event activations, feeds the widget its event source, applies
// drag/resize timing updates, and retargets the grid when the active
// provider changes.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/openclinic/ehr-shell/internal/ehrapi"
	"github.com/openclinic/ehr-shell/internal/observability/metrics"
	"github.com/openclinic/ehr-shell/internal/session"
	"github.com/openclinic/ehr-shell/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// doubleActivateWindow is how long after a first activation a second one
// on the same target still counts as a double.
const doubleActivateWindow = 350 * time.Millisecond

// nowFunc is swapped in tests.
var nowFunc = time.Now

// Widget is the rendering surface for the schedule grid. The controller
// owns when to reload and when to roll back a rejected drag.
type Widget interface {
	// Refetch tells the widget to reload events from its source.
	Refetch()
	// RevertMove restores an event to its pre-drag position after the
	// backend rejected the timing update.
	RevertMove(eventID int64)
}

// NopWidget ignores all grid operations, for headless use.
type NopWidget struct{}

func (NopWidget) Refetch()         {}
func (NopWidget) RevertMove(int64) {}

// AppointmentOpener starts an editing session for a slot or an existing
// appointment.
type AppointmentOpener interface {
	Open(ctx context.Context, providerID int64, startISO string, existing *ehrapi.AppointmentDTO) error
}

// armedTarget remembers the first activation of a slot or event.
type armedTarget struct {
	key      string
	deadline time.Time
}

// Controller mediates between the schedule widget and the rest of the app.
type Controller struct {
	api    *ehrapi.Client
	store  *session.Store
	opener AppointmentOpener
	widget Widget
	logger *logging.Logger
	mx     *metrics.NavigationMetrics
	tracer trace.Tracer
	notify func(msg string)

	providerID int64
	armed      *armedTarget
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithMetrics attaches navigation metrics.
func WithMetrics(m *metrics.NavigationMetrics) Option {
	return func(c *Controller) { c.mx = m }
}

// WithTracer sets the tracer for calendar operations.
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) { c.tracer = t }
}

// WithNotifier sets the user-facing failure reporter.
func WithNotifier(fn func(msg string)) Option {
	return func(c *Controller) { c.notify = fn }
}

// WithWidget attaches the rendering widget.
func WithWidget(w Widget) Option {
	return func(c *Controller) { c.widget = w }
}

// New creates the calendar controller for the given initial provider.
func New(api *ehrapi.Client, store *session.Store, opener AppointmentOpener, providerID int64, opts ...Option) *Controller {
	c := &Controller{
		api:        api,
		store:      store,
		opener:     opener,
		widget:     NopWidget{},
		logger:     logging.Default(),
		tracer:     otel.Tracer("ehrshell.internal.calendar"),
		providerID: providerID,
	}
	c.notify = func(msg string) {
		c.logger.Warn("user notification", "message", msg)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProviderID returns the provider whose schedule is displayed.
func (c *Controller) ProviderID() int64 { return c.providerID }

// Events is the widget's event source for the visible date range.
func (c *Controller) Events(ctx context.Context, start, end string) ([]ehrapi.ScheduleEvent, error) {
	ctx, span := c.tracer.Start(ctx, "calendar.Events")
	defer span.End()
	return c.api.ScheduleEvents(ctx, c.providerID, start, end)
}

// RefetchEvents reloads the grid after an external mutation.
func (c *Controller) RefetchEvents() {
	c.widget.Refetch()
}

// SlotClicked handles a click on an empty slot. The widget delivers plain
// clicks; two on the same slot within the activation window open a new
// appointment there. A second click elsewhere re-arms on the new slot.
func (c *Controller) SlotClicked(ctx context.Context, startISO string) error {
	if !c.arm("slot:" + startISO) {
		return nil
	}
	c.logger.Info("opening new appointment", "providerId", c.providerID, "start", startISO)
	return c.opener.Open(ctx, c.providerID, startISO, nil)
}

// EventClicked handles a click on an existing event. A double activation
// loads the full appointment and opens it for editing.
func (c *Controller) EventClicked(ctx context.Context, eventID int64) error {
	if !c.arm(fmt.Sprintf("event:%d", eventID)) {
		return nil
	}

	dto, err := c.api.GetAppointment(ctx, eventID)
	if err != nil {
		c.logger.Error("could not load appointment", "appointmentId", eventID, "error", err)
		c.notify("Could not load the appointment.")
		return fmt.Errorf("calendar: event %d: %w", eventID, err)
	}

	startISO := dto.Date + "T" + dto.TimeStart
	return c.opener.Open(ctx, c.providerID, startISO, dto)
}

// arm reports whether this activation completes a double. A first
// activation (or one past the deadline, or on a different target) arms and
// returns false.
func (c *Controller) arm(key string) bool {
	now := nowFunc()
	if c.armed != nil && c.armed.key == key && !now.After(c.armed.deadline) {
		c.armed = nil
		return true
	}
	c.armed = &armedTarget{key: key, deadline: now.Add(doubleActivateWindow)}
	return false
}

// EventMoved applies a drag or resize. The widget has already rendered the
// event at its new position; a backend rejection rolls it back.
func (c *Controller) EventMoved(ctx context.Context, eventID int64, date, timeStart, timeEnd string) error {
	ctx, span := c.tracer.Start(ctx, "calendar.EventMoved")
	defer span.End()

	res, err := c.api.UpdateAppointmentTiming(ctx, eventID, ehrapi.TimingUpdate{
		Date:      date,
		TimeStart: timeStart,
		TimeEnd:   timeEnd,
	})
	if err != nil || !res.Success {
		c.widget.RevertMove(eventID)
		c.mx.ObserveSave("move", "failure")
		c.logger.Error("timing update rejected", "appointmentId", eventID, "error", err)
		c.notify("Could not move the appointment.")
		if err != nil {
			return fmt.Errorf("calendar: move %d: %w", eventID, err)
		}
		return fmt.Errorf("calendar: move %d: %s", eventID, res.Error)
	}

	c.mx.ObserveSave("move", "success")
	return nil
}

// SwitchProvider retargets the grid at another provider's schedule and
// persists the choice for later lookup auto-fill.
func (c *Controller) SwitchProvider(ctx context.Context, p ehrapi.Provider) error {
	c.providerID = p.ID
	if err := c.store.SetSelectedProvider(ctx, p); err != nil {
		c.logger.Warn("could not persist selected provider", "error", err)
	}
	c.widget.Refetch()
	c.logger.Info("calendar provider switched", "providerId", p.ID, "provider", p.DisplayName())
	return nil
}

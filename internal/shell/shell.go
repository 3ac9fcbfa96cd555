// Package shell is the composition root of the client runtime. It builds
// the view manager, modal controller, calendar, editing session, and
// search views, wires the lifecycle signals between them, and restores the
// last visited section at boot.
package shell

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/openclinic/ehr-shell/internal/bus"
	"github.com/openclinic/ehr-shell/internal/calendar"
	"github.com/openclinic/ehr-shell/internal/config"
	"github.com/openclinic/ehr-shell/internal/editor"
	"github.com/openclinic/ehr-shell/internal/ehrapi"
	"github.com/openclinic/ehr-shell/internal/fragment"
	"github.com/openclinic/ehr-shell/internal/modal"
	"github.com/openclinic/ehr-shell/internal/observability/metrics"
	"github.com/openclinic/ehr-shell/internal/search"
	"github.com/openclinic/ehr-shell/internal/session"
	"github.com/openclinic/ehr-shell/internal/view"
	"github.com/openclinic/ehr-shell/pkg/logging"
)

// Top-level section names.
const (
	SectionScheduler    = "scheduler"
	SectionPatient      = "patient"
	SectionProvider     = "provider"
	SectionDemographics = "demographics"
)

// Hosts are the rendering surfaces the shell mounts into. Nil fields
// degrade to headless no-ops.
type Hosts struct {
	View   view.Host
	Modal  modal.Host
	Widget calendar.Widget
}

// Shell owns the application object graph for one page session.
type Shell struct {
	cfg    *config.Config
	logger *logging.Logger
	bus    *bus.Bus
	store  *session.Store
	frags  *fragment.Client
	api    *ehrapi.Client
	views  *view.Manager
	modal  modal.Manager

	editor       *editor.Session
	calendar     *calendar.Controller
	patients     *search.PatientView
	providers    *search.ProviderView
	demographics *Demographics
}

// Option configures the Shell.
type Option func(*options)

type options struct {
	logger   *logging.Logger
	metrics  *metrics.NavigationMetrics
	confirm  editor.Confirmer
	notify   editor.Notifier
	provider int64
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics attaches navigation metrics.
func WithMetrics(m *metrics.NavigationMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithConfirmer sets the destructive-action prompt.
func WithConfirmer(fn editor.Confirmer) Option {
	return func(o *options) { o.confirm = fn }
}

// WithNotifier sets the user-facing failure reporter.
func WithNotifier(fn editor.Notifier) Option {
	return func(o *options) { o.notify = fn }
}

// WithInitialProvider sets the provider whose schedule opens first.
func WithInitialProvider(id int64) Option {
	return func(o *options) { o.provider = id }
}

// New assembles the shell against the given backend and session store.
func New(cfg *config.Config, rdb *redis.Client, sessionID string, hosts Hosts, opts ...Option) *Shell {
	o := &options{logger: logging.New(cfg.LogLevel)}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger

	b := bus.New()
	store := session.New(rdb, sessionID,
		session.WithTTL(cfg.SessionTTL),
		session.WithLogger(logger),
	)
	httpc := &http.Client{Timeout: cfg.HTTPTimeout}
	frags := fragment.NewClient(cfg.EHRBaseURL,
		fragment.WithLogger(logger),
		fragment.WithHTTPClient(httpc),
	)
	api := ehrapi.NewClient(cfg.EHRBaseURL,
		ehrapi.WithLogger(logger),
		ehrapi.WithCSRF(cfg.CSRFHeader, cfg.CSRFToken),
		ehrapi.WithHTTPClient(httpc),
	)

	views := view.NewManager(hosts.View, frags, b,
		view.WithLogger(logger),
		view.WithMetrics(o.metrics),
	)
	md := modal.New(hosts.Modal, b, logger)

	edOpts := []editor.SessionOption{
		editor.WithLogger(logger),
		editor.WithMetrics(o.metrics),
		editor.WithSuggestLimits(cfg.PatientSuggestMax, cfg.ProviderSuggestMax),
		editor.WithDebounce(cfg.SuggestDebounce),
	}
	if o.confirm != nil {
		edOpts = append(edOpts, editor.WithConfirmer(o.confirm))
	}
	if o.notify != nil {
		edOpts = append(edOpts, editor.WithNotifier(o.notify))
	}
	ed := editor.NewSession(api, frags, store, views, md, edOpts...)

	calOpts := []calendar.Option{
		calendar.WithLogger(logger),
		calendar.WithMetrics(o.metrics),
	}
	if hosts.Widget != nil {
		calOpts = append(calOpts, calendar.WithWidget(hosts.Widget))
	}
	cal := calendar.New(api, store, ed, o.provider, calOpts...)
	ed.SetCalendar(cal)
	ed.SetProviderSwitcher(cal)

	patients := search.NewPatientView(api, store, views, 20, logger)
	providers := search.NewProviderView(api, store, views, 20, logger)
	providers.SetSelector(cal)
	demographics := NewDemographics(api, store, logger)

	s := &Shell{
		cfg:          cfg,
		logger:       logger,
		bus:          b,
		store:        store,
		frags:        frags,
		api:          api,
		views:        views,
		modal:        md,
		editor:       ed,
		calendar:     cal,
		patients:     patients,
		providers:    providers,
		demographics: demographics,
	}
	s.wire()
	return s
}

// wire connects the section lifecycle signals to their controllers. Each
// controller exists once for the whole page session; the shown hook runs
// on every reveal.
func (s *Shell) wire() {
	s.bus.Subscribe(bus.ViewLoaded, func(e bus.Event) {
		s.logger.Info("section loaded", "section", e.View)
	})

	s.bus.Subscribe(bus.ViewShown, func(e bus.Event) {
		ctx := context.Background()
		var err error
		switch e.View {
		case SectionScheduler:
			err = s.schedulerShown(ctx)
		case SectionPatient:
			err = s.patients.OnShown(ctx)
		case SectionProvider:
			err = s.providers.OnShown(ctx)
		case SectionDemographics:
			err = s.demographics.OnShown(ctx)
		}
		if err != nil {
			s.logger.Error("section shown hook failed", "section", e.View, "error", err)
		}
	})
}

// schedulerShown completes a divert-and-return round trip: a selection
// deposited by a search view is consumed exactly once and handed to the
// editing session.
func (s *Shell) schedulerShown(ctx context.Context) error {
	pr, err := s.store.ConsumePendingReturn(ctx)
	if err != nil {
		return fmt.Errorf("shell: pending return: %w", err)
	}
	if pr == nil {
		return nil
	}
	return s.editor.ResumeFromReturn(ctx, *pr)
}

// Boot restores the last visited section, defaulting to the scheduler.
func (s *Shell) Boot(ctx context.Context) error {
	section, err := s.store.LastSection(ctx)
	if err != nil {
		s.logger.Warn("could not restore last section", "error", err)
		section = session.DefaultSection
	}
	s.logger.Info("booting shell", "section", section, "env", s.cfg.Env)
	return s.Navigate(ctx, section)
}

// Navigate switches to a top-level section and records it for boot restore.
func (s *Shell) Navigate(ctx context.Context, section string) error {
	if err := s.store.SetLastSection(ctx, section); err != nil {
		s.logger.Warn("could not persist section", "section", section, "error", err)
	}
	return s.views.LoadView(ctx, section, "/fragments/"+section, false)
}

// Reload forces a fresh fetch of a section, replacing its cache entry.
func (s *Shell) Reload(ctx context.Context, section string) error {
	return s.views.LoadView(ctx, section, "/fragments/"+section, true)
}

// FindProviderForCalendar opens the provider search on behalf of the
// scheduler's provider filter box. The selected row switches the calendar
// instead of feeding an appointment.
func (s *Shell) FindProviderForCalendar(ctx context.Context) error {
	if err := s.store.MarkReturnFromScheduler(ctx); err != nil {
		return fmt.Errorf("shell: mark return: %w", err)
	}
	return s.Navigate(ctx, SectionProvider)
}

// Editor returns the appointment editing session.
func (s *Shell) Editor() *editor.Session { return s.editor }

// Calendar returns the schedule grid controller.
func (s *Shell) Calendar() *calendar.Controller { return s.calendar }

// Patients returns the patient search view.
func (s *Shell) Patients() *search.PatientView { return s.patients }

// Providers returns the provider search view.
func (s *Shell) Providers() *search.ProviderView { return s.providers }

// Demographics returns the demographics form controller.
func (s *Shell) Demographics() *Demographics { return s.demographics }

// Views returns the view manager.
func (s *Shell) Views() *view.Manager { return s.views }

// Modal returns the modal controller.
func (s *Shell) Modal() modal.Manager { return s.modal }

// Bus returns the lifecycle signal bus.
func (s *Shell) Bus() *bus.Bus { return s.bus }

// Store returns the per-session state store.
func (s *Shell) Store() *session.Store { return s.store }

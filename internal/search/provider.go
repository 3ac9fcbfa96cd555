package search

import (
	"context"
	"fmt"

	"github.com/openclinic/ehr-shell/internal/ehrapi"
	"github.com/openclinic/ehr-shell/internal/session"
	"github.com/openclinic/ehr-shell/internal/view"
	"github.com/openclinic/ehr-shell/pkg/logging"
)

// ProviderFilters are the provider search form fields.
type ProviderFilters struct {
	FirstName      string
	LastName       string
	Specialty      string
	InPracticeOnly bool
	ActiveOnly     bool
}

// ProviderSelector retargets the calendar at a chosen provider.
type ProviderSelector interface {
	SwitchProvider(ctx context.Context, p ehrapi.Provider) error
}

// ProviderView drives the full provider search section.
type ProviderView struct {
	api      *ehrapi.Client
	store    *session.Store
	views    *view.Manager
	selector ProviderSelector
	logger   *logging.Logger

	pageSize int
	filters  ProviderFilters
	table    *Table[ehrapi.Provider]
}

// NewProviderView creates the provider search view controller.
func NewProviderView(api *ehrapi.Client, store *session.Store, views *view.Manager, pageSize int, logger *logging.Logger) *ProviderView {
	if logger == nil {
		logger = logging.Default()
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	v := &ProviderView{
		api:      api,
		store:    store,
		views:    views,
		logger:   logger,
		pageSize: pageSize,
	}
	v.table = NewTable(v.fetchPage, logger)
	return v
}

// SetSelector wires the calendar collaborator after construction.
func (v *ProviderView) SetSelector(s ProviderSelector) { v.selector = s }

// Table exposes the result table for rendering and page navigation.
func (v *ProviderView) Table() *Table[ehrapi.Provider] { return v.table }

// Filters returns the current filter values.
func (v *ProviderView) Filters() ProviderFilters { return v.filters }

// SetFilters replaces the filter values without searching.
func (v *ProviderView) SetFilters(f ProviderFilters) { v.filters = f }

// OnShown consumes a lookup prefill, if one is waiting, and searches.
func (v *ProviderView) OnShown(ctx context.Context) error {
	pf, err := v.store.ConsumePrefillProvider(ctx)
	if err != nil {
		return fmt.Errorf("search: provider prefill: %w", err)
	}
	if pf == nil {
		return nil
	}
	v.filters.FirstName = pf.First
	v.filters.LastName = pf.Last
	v.filters.InPracticeOnly = pf.InPracticeOnly
	v.logger.Info("provider search prefilled", "first", pf.First, "last", pf.Last)
	return v.Search(ctx)
}

// Search runs the filters from page zero.
func (v *ProviderView) Search(ctx context.Context) error {
	return v.table.Load(ctx, 0)
}

func (v *ProviderView) fetchPage(ctx context.Context, page int) ([]ehrapi.Provider, int, error) {
	res, err := v.api.SearchProviders(ctx, ehrapi.ProviderSearchQuery{
		FirstName:      v.filters.FirstName,
		LastName:       v.filters.LastName,
		Specialty:      v.filters.Specialty,
		InPracticeOnly: v.filters.InPracticeOnly,
		ActiveOnly:     v.filters.ActiveOnly,
		Page:           page,
		Size:           v.pageSize,
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Providers, res.TotalPages, nil
}

// RowActivated handles a double-activated result row. Three flows arrive
// here: an appointment edit waiting on a provider, a calendar
// provider-switch request marked by the scheduler, or a plain browse.
func (v *ProviderView) RowActivated(ctx context.Context, p ehrapi.Provider) error {
	snap, err := v.store.ActiveAppointment(ctx)
	if err != nil {
		return fmt.Errorf("search: active appointment: %w", err)
	}
	if snap != nil {
		if err := v.store.SetPendingReturn(ctx, session.PendingReturn{
			Field:    session.ReturnFieldProvider,
			Provider: &p,
		}); err != nil {
			return fmt.Errorf("search: pending return: %w", err)
		}
		v.logger.Info("provider selected for appointment", "providerId", p.ID)
		return v.views.LoadView(ctx, SchedulerView, "/fragments/"+SchedulerView, false)
	}

	fromScheduler, err := v.store.ConsumeReturnFromScheduler(ctx)
	if err != nil {
		return fmt.Errorf("search: return flag: %w", err)
	}
	if fromScheduler {
		if v.selector != nil {
			if err := v.selector.SwitchProvider(ctx, p); err != nil {
				return fmt.Errorf("search: switch provider: %w", err)
			}
		}
		// the scheduler is already cached; reveal it without a refetch
		return v.views.ShowView(SchedulerView)
	}

	v.logger.Info("provider viewed", "providerId", p.ID, "provider", p.DisplayName())
	return nil
}

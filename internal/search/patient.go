package search

import (
	"context"
	"fmt"

	"github.com/openclinic/ehr-shell/internal/ehrapi"
	"github.com/openclinic/ehr-shell/internal/session"
	"github.com/openclinic/ehr-shell/internal/view"
	"github.com/openclinic/ehr-shell/pkg/logging"
)

// SchedulerView is the section name the search views return to when an
// appointment edit is waiting.
const SchedulerView = "scheduler"

// DemographicsView is the section name of the patient demographics form.
const DemographicsView = "demographics"

// PatientFilters are the patient search form fields.
type PatientFilters struct {
	FirstName string
	LastName  string
	DOB       string
	Phone     string
	Email     string
	City      string
	State     string
	Zip       string
	SortBy    string
	SortDir   string
}

// PatientView drives the full patient search section.
type PatientView struct {
	api    *ehrapi.Client
	store  *session.Store
	views  *view.Manager
	logger *logging.Logger

	pageSize int
	filters  PatientFilters
	table    *Table[ehrapi.Patient]
}

// NewPatientView creates the patient search view controller.
func NewPatientView(api *ehrapi.Client, store *session.Store, views *view.Manager, pageSize int, logger *logging.Logger) *PatientView {
	if logger == nil {
		logger = logging.Default()
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	v := &PatientView{
		api:      api,
		store:    store,
		views:    views,
		logger:   logger,
		pageSize: pageSize,
	}
	v.table = NewTable(v.fetchPage, logger)
	return v
}

// Table exposes the result table for rendering and page navigation.
func (v *PatientView) Table() *Table[ehrapi.Patient] { return v.table }

// Filters returns the current filter values.
func (v *PatientView) Filters() PatientFilters { return v.filters }

// SetFilters replaces the filter values without searching.
func (v *PatientView) SetFilters(f PatientFilters) { v.filters = f }

// OnShown runs every time the section becomes visible. A prefill deposited
// by a diverted lookup fills the name filters and fires an immediate
// page-zero search; without one the view keeps whatever it showed before.
func (v *PatientView) OnShown(ctx context.Context) error {
	pf, err := v.store.ConsumePrefillPatient(ctx)
	if err != nil {
		return fmt.Errorf("search: patient prefill: %w", err)
	}
	if pf == nil {
		return nil
	}
	v.filters.FirstName = pf.First
	v.filters.LastName = pf.Last
	v.logger.Info("patient search prefilled", "first", pf.First, "last", pf.Last)
	return v.Search(ctx)
}

// Search runs the filters from page zero.
func (v *PatientView) Search(ctx context.Context) error {
	return v.table.Load(ctx, 0)
}

func (v *PatientView) fetchPage(ctx context.Context, page int) ([]ehrapi.Patient, int, error) {
	res, err := v.api.SearchPatients(ctx, ehrapi.PatientSearchQuery{
		FirstName: v.filters.FirstName,
		LastName:  v.filters.LastName,
		DOB:       v.filters.DOB,
		Phone:     v.filters.Phone,
		Email:     v.filters.Email,
		City:      v.filters.City,
		State:     v.filters.State,
		Zip:       v.filters.Zip,
		SortBy:    v.filters.SortBy,
		SortDir:   v.filters.SortDir,
		Page:      page,
		Size:      v.pageSize,
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Patients, res.TotalPages, nil
}

// RowActivated handles a double-activated result row. With an appointment
// edit backgrounded, the patient is deposited for the scheduler to pick
// up; otherwise the row opens the patient's demographics for editing.
func (v *PatientView) RowActivated(ctx context.Context, p ehrapi.Patient) error {
	snap, err := v.store.ActiveAppointment(ctx)
	if err != nil {
		return fmt.Errorf("search: active appointment: %w", err)
	}

	if snap != nil {
		if err := v.store.SetPendingReturn(ctx, session.PendingReturn{
			Field:   session.ReturnFieldPatient,
			Patient: &p,
		}); err != nil {
			return fmt.Errorf("search: pending return: %w", err)
		}
		v.logger.Info("patient selected for appointment", "patientId", p.ID)
		return v.views.LoadView(ctx, SchedulerView, "/fragments/"+SchedulerView, false)
	}

	if err := v.store.SetDemographicsContext(ctx, session.DemographicsContext{
		Mode:      session.DemographicsModeEdit,
		PatientID: &p.ID,
	}); err != nil {
		return fmt.Errorf("search: demographics context: %w", err)
	}
	return v.views.LoadView(ctx, DemographicsView, "/fragments/"+DemographicsView, false)
}

// NewPatient opens a blank demographics form.
func (v *PatientView) NewPatient(ctx context.Context) error {
	if err := v.store.SetDemographicsContext(ctx, session.DemographicsContext{
		Mode: session.DemographicsModeNew,
	}); err != nil {
		return fmt.Errorf("search: demographics context: %w", err)
	}
	return v.views.LoadView(ctx, DemographicsView, "/fragments/"+DemographicsView, false)
}

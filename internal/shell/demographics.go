package shell

import (
	"context"
	"fmt"
	"sync"

	"github.com/openclinic/ehr-shell/internal/ehrapi"
	"github.com/openclinic/ehr-shell/internal/session"
	"github.com/openclinic/ehr-shell/pkg/logging"
)

// Demographics drives the patient demographics section. The patient search
// stages a one-shot context naming the record to edit; without one the
// form opens blank for a new patient.
type Demographics struct {
	api    *ehrapi.Client
	store  *session.Store
	logger *logging.Logger

	mu      sync.Mutex
	mode    string
	patient *ehrapi.Patient
}

// NewDemographics creates the demographics controller.
func NewDemographics(api *ehrapi.Client, store *session.Store, logger *logging.Logger) *Demographics {
	if logger == nil {
		logger = logging.Default()
	}
	return &Demographics{
		api:    api,
		store:  store,
		logger: logger,
		mode:   session.DemographicsModeNew,
	}
}

// OnShown consumes the staged context and, in edit mode, loads the record.
func (d *Demographics) OnShown(ctx context.Context) error {
	dc, err := d.store.ConsumeDemographicsContext(ctx)
	if err != nil {
		return fmt.Errorf("shell: demographics context: %w", err)
	}
	if dc == nil {
		return nil
	}

	if dc.Mode != session.DemographicsModeEdit || dc.PatientID == nil {
		d.mu.Lock()
		d.mode = session.DemographicsModeNew
		d.patient = nil
		d.mu.Unlock()
		return nil
	}

	p, err := d.api.GetPatient(ctx, *dc.PatientID)
	if err != nil {
		d.logger.Error("could not load patient record", "patientId", *dc.PatientID, "error", err)
		return fmt.Errorf("shell: load patient: %w", err)
	}

	d.mu.Lock()
	d.mode = session.DemographicsModeEdit
	d.patient = p
	d.mu.Unlock()
	d.logger.Info("demographics editing", "patientId", p.ID)
	return nil
}

// Mode returns "new" or "edit".
func (d *Demographics) Mode() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Patient returns the record under edit, or nil in new mode.
func (d *Demographics) Patient() *ehrapi.Patient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.patient
}

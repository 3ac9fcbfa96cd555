package editor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/openclinic/ehr-shell/internal/ehrapi"
)

// Save persists the appointment. The form is the authoritative source for
// field values at save time; the model fills gaps for fields the form never
// touched. Validation failures return before any network request is made.
// A second Save while one is in flight returns ErrBusy without issuing a
// request.
func (s *Session) Save(ctx context.Context) error {
	if !s.saving.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.saving.Store(false)

	form := s.modal.Form()
	if form == nil {
		return ErrNotOpen
	}

	s.mu.Lock()
	s.state = StateSaving
	if v := form.Get("date"); v != "" {
		s.model.Date = v
	}
	if v := form.Get("timeStart"); v != "" {
		s.model.TimeStart = v
	}
	if v := form.Get("timeEnd"); v != "" {
		s.model.TimeEnd = v
	}
	if v := form.Get("duration"); v != "" {
		if d, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && d > 0 {
			s.model.Duration = d
		}
	}
	s.model.Reason = form.Get("reason")
	if v := form.Get("appointmentType"); v != "" {
		s.model.AppointmentType = v
	}
	if v := form.Get("status"); v != "" {
		s.model.Status = v
	}
	if id, ok := parseID(form.Data("patientId")); ok {
		s.model.PatientID = id
	}
	if id, ok := parseID(form.Data("providerId")); ok {
		s.model.ProviderID = id
	}

	patientID := s.model.PatientID
	providerID := s.model.ProviderID
	payload := s.model.Payload()
	apptID := s.model.AppointmentID
	s.mu.Unlock()

	if patientID == 0 {
		s.setBound()
		s.notify("Select a patient before saving.")
		return ErrNoPatient
	}
	if providerID == 0 {
		s.setBound()
		s.notify("Select a provider before saving.")
		return ErrNoProvider
	}

	op := "create"
	var err error
	var res *mutationOutcome
	if apptID != nil {
		op = "update"
		res, err = outcome(s.api.UpdateAppointment(ctx, *apptID, payload))
	} else {
		res, err = outcome(s.api.CreateAppointment(ctx, payload))
	}

	if err != nil || !res.ok {
		s.setBound()
		s.mx.ObserveSave(op, "failure")
		msg := "Could not save the appointment."
		if res != nil && res.message != "" {
			msg = res.message
		}
		s.logger.Error("appointment save failed", "op", op, "error", err, "backend", msgOrEmpty(res))
		s.notify(msg)
		if err != nil {
			return fmt.Errorf("editor: save: %w", err)
		}
		return fmt.Errorf("%w: %s", ErrSaveFailed, msg)
	}

	if op == "create" && res.id != 0 {
		s.mu.Lock()
		id := res.id
		s.model.AppointmentID = &id
		s.mu.Unlock()
	}

	s.mx.ObserveSave(op, "success")
	s.logger.Info("appointment saved", "op", op, "appointmentId", res.id)
	s.closeAfterMutation(ctx)
	return nil
}

// Delete removes the appointment under edit after user confirmation. New,
// never-saved appointments have nothing to delete.
func (s *Session) Delete(ctx context.Context) error {
	if !s.deleting.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.deleting.Store(false)

	s.mu.Lock()
	apptID := s.model.AppointmentID
	s.mu.Unlock()
	if apptID == nil {
		return ErrNoAppointmentID
	}

	if !s.confirm("Delete this appointment?") {
		return nil
	}

	s.mu.Lock()
	s.state = StateDeleting
	s.mu.Unlock()

	res, err := outcome(s.api.DeleteAppointment(ctx, *apptID))
	if err != nil || !res.ok {
		s.setBound()
		s.mx.ObserveSave("delete", "failure")
		s.logger.Error("appointment delete failed", "appointmentId", *apptID, "error", err, "backend", msgOrEmpty(res))
		s.notify("Could not delete the appointment.")
		if err != nil {
			return fmt.Errorf("editor: delete: %w", err)
		}
		return fmt.Errorf("%w: %s", ErrDeleteFailed, res.message)
	}

	s.mx.ObserveSave("delete", "success")
	s.logger.Info("appointment deleted", "appointmentId", *apptID)
	s.closeAfterMutation(ctx)
	return nil
}

func (s *Session) setBound() {
	s.mu.Lock()
	s.state = StateBound
	s.mu.Unlock()
}

// mutationOutcome normalizes the backend's success flag and error message.
type mutationOutcome struct {
	ok      bool
	id      int64
	message string
}

func outcome(res *ehrapi.MutationResult, err error) (*mutationOutcome, error) {
	if res == nil {
		return nil, err
	}
	return &mutationOutcome{ok: res.Success, id: res.ID, message: res.Error}, err
}

func msgOrEmpty(res *mutationOutcome) string {
	if res == nil {
		return ""
	}
	return res.message
}

func parseID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

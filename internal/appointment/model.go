// Package appointment holds the in-memory model of the appointment being
// edited. The model is exclusively owned by the active editing session and
// never persisted across a full reload; only its snapshot travels through
// the session store when the modal is backgrounded.
package appointment

import "github.com/openclinic/ehr-shell/internal/ehrapi"

// Defaults applied on every reset.
const (
	DefaultDuration = 15
	DefaultStatus   = "Scheduled"
	DefaultType     = "Follow-up"
)

// Model is the normalized appointment under edit. AppointmentID nil means
// the appointment has not been created yet.
type Model struct {
	AppointmentID   *int64           `json:"appointmentId"`
	ProviderID      int64            `json:"providerId"`
	PatientID       int64            `json:"patientId"`
	Patient         *ehrapi.Patient  `json:"patient,omitempty"`
	Provider        *ehrapi.Provider `json:"provider,omitempty"`
	Date            string           `json:"date"`      // YYYY-MM-DD
	TimeStart       string           `json:"timeStart"` // HH:MM
	TimeEnd         string           `json:"timeEnd"`   // HH:MM
	Duration        int              `json:"duration"`  // minutes
	Reason          string           `json:"reason"`
	AppointmentType string           `json:"appointmentType"`
	Status          string           `json:"status"`
}

// NewModel returns a model with default fields.
func NewModel() *Model {
	m := &Model{}
	m.Reset()
	return m
}

// Reset restores the defaults and clears all identifiers.
func (m *Model) Reset() {
	*m = Model{
		Duration:        DefaultDuration,
		Status:          DefaultStatus,
		AppointmentType: DefaultType,
	}
}

// ApplyDTO merges a backend appointment into the model, normalizing the
// known field-name variants onto the canonical shape: durationMinutes maps
// to duration, and a missing duration is derived from the time window.
func (m *Model) ApplyDTO(dto ehrapi.AppointmentDTO) {
	if dto.ID != 0 {
		id := dto.ID
		m.AppointmentID = &id
	}
	if dto.ProviderID != 0 {
		m.ProviderID = dto.ProviderID
	}
	if dto.PatientID != 0 {
		m.PatientID = dto.PatientID
	}
	if dto.Patient != nil {
		m.Patient = dto.Patient
		if m.PatientID == 0 {
			m.PatientID = dto.Patient.ID
		}
	}
	if dto.Provider != nil {
		m.Provider = dto.Provider
		if m.ProviderID == 0 {
			m.ProviderID = dto.Provider.ID
		}
	}
	if dto.Date != "" {
		m.Date = dto.Date
	}
	if dto.TimeStart != "" {
		m.TimeStart = clipHHMM(dto.TimeStart)
	}
	if dto.TimeEnd != "" {
		m.TimeEnd = clipHHMM(dto.TimeEnd)
	}
	if dto.Reason != "" {
		m.Reason = dto.Reason
	}
	if dto.AppointmentType != "" {
		m.AppointmentType = dto.AppointmentType
	}
	if dto.Status != "" {
		m.Status = dto.Status
	}

	switch {
	case dto.Duration > 0:
		m.Duration = dto.Duration
	case dto.DurationMinutes > 0:
		m.Duration = dto.DurationMinutes
	default:
		if d, ok := spanMinutes(m.TimeStart, m.TimeEnd); ok && d > 0 {
			m.Duration = d
		}
	}
}

// SetStart updates the start time and recomputes the end from the current
// duration. Start is the anchor of the two-way sync: editing it never
// changes the duration.
func (m *Model) SetStart(hhmm string) {
	m.TimeStart = clipHHMM(hhmm)
	if end, ok := AddMinutes(m.TimeStart, m.Duration); ok && m.Duration > 0 {
		m.TimeEnd = end
	}
}

// SetEnd updates the end time and recomputes the duration, leaving the
// start untouched.
func (m *Model) SetEnd(hhmm string) {
	m.TimeEnd = clipHHMM(hhmm)
	if d, ok := spanMinutes(m.TimeStart, m.TimeEnd); ok {
		m.Duration = d
	}
}

// SetDuration updates the duration and recomputes the end from the start.
func (m *Model) SetDuration(minutes int) {
	if minutes <= 0 {
		return
	}
	m.Duration = minutes
	if end, ok := AddMinutes(m.TimeStart, minutes); ok {
		m.TimeEnd = end
	}
}

// SetPatient locks a patient into the model.
func (m *Model) SetPatient(p ehrapi.Patient) {
	patient := p
	m.Patient = &patient
	m.PatientID = p.ID
}

// SetProvider locks a provider into the model.
func (m *Model) SetProvider(p ehrapi.Provider) {
	provider := p
	m.Provider = &provider
	m.ProviderID = p.ID
}

// IsEmpty reports whether nothing identifying has been bound yet.
func (m *Model) IsEmpty() bool {
	return m.AppointmentID == nil && m.PatientID == 0
}

// Payload builds the canonical request body for save requests.
func (m *Model) Payload() ehrapi.AppointmentPayload {
	return ehrapi.AppointmentPayload{
		AppointmentID:   m.AppointmentID,
		ProviderID:      m.ProviderID,
		PatientID:       m.PatientID,
		Date:            m.Date,
		TimeStart:       m.TimeStart,
		TimeEnd:         m.TimeEnd,
		Duration:        m.Duration,
		Reason:          m.Reason,
		AppointmentType: m.AppointmentType,
		Status:          m.Status,
	}
}

// Clone returns a deep copy, used for session-store snapshots.
func (m *Model) Clone() Model {
	out := *m
	if m.AppointmentID != nil {
		id := *m.AppointmentID
		out.AppointmentID = &id
	}
	if m.Patient != nil {
		p := *m.Patient
		out.Patient = &p
	}
	if m.Provider != nil {
		p := *m.Provider
		out.Provider = &p
	}
	return out
}

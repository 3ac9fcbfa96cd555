package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclinic/ehr-shell/internal/ehrapi"
)

func TestResetDefaults(t *testing.T) {
	m := NewModel()
	assert.Nil(t, m.AppointmentID)
	assert.Equal(t, DefaultDuration, m.Duration)
	assert.Equal(t, "Scheduled", m.Status)
	assert.Equal(t, "Follow-up", m.AppointmentType)
	assert.True(t, m.IsEmpty())
}

func TestApplyDTONormalizesDurationMinutes(t *testing.T) {
	m := NewModel()
	m.ApplyDTO(ehrapi.AppointmentDTO{
		ID:              9,
		Date:            "2024-06-01",
		TimeStart:       "09:00:00",
		TimeEnd:         "09:30:00",
		DurationMinutes: 30,
	})
	require.NotNil(t, m.AppointmentID)
	assert.Equal(t, int64(9), *m.AppointmentID)
	assert.Equal(t, "09:00", m.TimeStart)
	assert.Equal(t, "09:30", m.TimeEnd)
	assert.Equal(t, 30, m.Duration)
}

func TestApplyDTODerivesDurationFromWindow(t *testing.T) {
	m := NewModel()
	m.ApplyDTO(ehrapi.AppointmentDTO{
		Date:      "2024-06-01",
		TimeStart: "10:00",
		TimeEnd:   "10:45",
	})
	assert.Equal(t, 45, m.Duration)
}

func TestApplyDTONestedEntities(t *testing.T) {
	m := NewModel()
	m.ApplyDTO(ehrapi.AppointmentDTO{
		ID:      9,
		Patient: &ehrapi.Patient{ID: 42, FirstName: "Ann", LastName: "Smith"},
		Provider: &ehrapi.Provider{
			ID: 7, FirstName: "Gregory", LastName: "House", Display: "Dr. Gregory House",
		},
	})
	assert.Equal(t, int64(42), m.PatientID)
	assert.Equal(t, int64(7), m.ProviderID)
	assert.Equal(t, "Ann Smith", m.Patient.DisplayName())
}

func TestStartEditRecomputesEnd(t *testing.T) {
	m := NewModel()
	m.Date = "2024-06-01"
	m.SetStart("09:00")
	assert.Equal(t, "09:15", m.TimeEnd)
	assert.Equal(t, 15, m.Duration)

	// moving the start keeps the duration and shifts the end
	m.SetStart("10:00")
	assert.Equal(t, "10:15", m.TimeEnd)
	assert.Equal(t, 15, m.Duration)
}

func TestEndEditRecomputesDuration(t *testing.T) {
	m := NewModel()
	m.SetStart("09:00")
	m.SetEnd("09:45")
	assert.Equal(t, "09:00", m.TimeStart)
	assert.Equal(t, 45, m.Duration)
}

func TestDurationEditRecomputesEnd(t *testing.T) {
	m := NewModel()
	m.SetStart("09:00")
	m.SetDuration(60)
	assert.Equal(t, "10:00", m.TimeEnd)

	// non-positive durations are ignored
	m.SetDuration(0)
	assert.Equal(t, 60, m.Duration)
}

func TestEndBeforeMidnightWrap(t *testing.T) {
	m := NewModel()
	m.SetDuration(30)
	m.SetStart("23:45")
	assert.Equal(t, "00:15", m.TimeEnd)
}

func TestCloneIsDeep(t *testing.T) {
	m := NewModel()
	m.SetPatient(ehrapi.Patient{ID: 42, FirstName: "Ann"})
	snap := m.Clone()

	m.Patient.FirstName = "changed"
	m.PatientID = 99

	assert.Equal(t, "Ann", snap.Patient.FirstName)
	assert.Equal(t, int64(42), snap.PatientID)
}

func TestSplitISO(t *testing.T) {
	date, hhmm := SplitISO("2024-06-01T09:00:00")
	assert.Equal(t, "2024-06-01", date)
	assert.Equal(t, "09:00", hhmm)

	date, hhmm = SplitISO("2024-06-01")
	assert.Equal(t, "2024-06-01", date)
	assert.Equal(t, "", hhmm)
}

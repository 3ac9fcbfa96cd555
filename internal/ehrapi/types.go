package ehrapi

// Patient is the patient entity as delivered by the backend.
type Patient struct {
	ID             int64  `json:"id"`
	Title          string `json:"title,omitempty"`
	FirstName      string `json:"firstName"`
	MiddleName     string `json:"middleName,omitempty"`
	LastName       string `json:"lastName"`
	Gender         string `json:"gender,omitempty"`
	DOB            string `json:"dob,omitempty"` // YYYY-MM-DD
	PhonePrimary   string `json:"phonePrimary,omitempty"`
	PhoneSecondary string `json:"phoneSecondary,omitempty"`
	Email          string `json:"email,omitempty"`
	AddressLine1   string `json:"addressLine1,omitempty"`
	AddressLine2   string `json:"addressLine2,omitempty"`
	City           string `json:"city,omitempty"`
	State          string `json:"state,omitempty"`
	Zip            string `json:"zip,omitempty"`
}

// DisplayName returns the name shown in lookup fields.
func (p Patient) DisplayName() string {
	return joinName(p.FirstName, p.LastName)
}

// Provider is the provider entity as delivered by the backend.
type Provider struct {
	ID         int64  `json:"id"`
	Title      string `json:"title,omitempty"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Specialty  string `json:"specialty,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Active     bool   `json:"active"`
	InPractice bool   `json:"inPractice"`
	Display    string `json:"displayName,omitempty"`
}

// DisplayName returns the backend display name, falling back to a composed one.
func (p Provider) DisplayName() string {
	if p.Display != "" {
		return p.Display
	}
	return joinName(p.Title, joinName(p.FirstName, p.LastName))
}

// AppointmentDTO is the full appointment as delivered by the backend.
// Older payload shapes use durationMinutes instead of duration; both are
// accepted here and normalized at the appointment-model boundary.
type AppointmentDTO struct {
	ID              int64     `json:"id"`
	Date            string    `json:"date"`      // YYYY-MM-DD
	TimeStart       string    `json:"timeStart"` // HH:MM
	TimeEnd         string    `json:"timeEnd"`   // HH:MM
	Duration        int       `json:"duration,omitempty"`
	DurationMinutes int       `json:"durationMinutes,omitempty"`
	AppointmentType string    `json:"appointmentType,omitempty"`
	Status          string    `json:"status,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	ProviderID      int64     `json:"providerId,omitempty"`
	PatientID       int64     `json:"patientId,omitempty"`
	Provider        *Provider `json:"provider,omitempty"`
	Patient         *Patient  `json:"patient,omitempty"`
}

// AppointmentPayload is the create/update request body for /api/schedule.
type AppointmentPayload struct {
	AppointmentID   *int64 `json:"appointmentId,omitempty"`
	ProviderID      int64  `json:"providerId"`
	PatientID       int64  `json:"patientId"`
	Date            string `json:"date"`
	TimeStart       string `json:"timeStart"`
	TimeEnd         string `json:"timeEnd"`
	Duration        int    `json:"duration"`
	Reason          string `json:"reason"`
	AppointmentType string `json:"appointmentType"`
	Status          string `json:"status"`
}

// TimingUpdate carries just the fields changed by a calendar drag or resize.
type TimingUpdate struct {
	Date      string `json:"date"`
	TimeStart string `json:"timeStart"`
	TimeEnd   string `json:"timeEnd"`
}

// MutationResult is the backend's response to create/update/delete requests.
type MutationResult struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ScheduleEvent is one calendar event for a provider's schedule.
type ScheduleEvent struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Start           string `json:"start"` // ISO datetime
	End             string `json:"end"`
	Status          string `json:"status,omitempty"`
	AppointmentType string `json:"appointmentType,omitempty"`
	Reason          string `json:"reason,omitempty"`
	ProviderID      int64  `json:"providerId,omitempty"`
}

// PatientSearchQuery holds the /api/patients/search parameters.
type PatientSearchQuery struct {
	FirstName string
	LastName  string
	DOB       string
	Phone     string
	Email     string
	City      string
	State     string
	Zip       string
	Page      int
	Size      int
	SortBy    string
	SortDir   string
}

// PatientSearchResult is the paged response from /api/patients/search.
type PatientSearchResult struct {
	Patients   []Patient `json:"patients"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
}

// ProviderSearchQuery holds the /api/providers/search parameters.
type ProviderSearchQuery struct {
	FirstName      string
	LastName       string
	Specialty      string
	InPracticeOnly bool
	ActiveOnly     bool
	Page           int
	Size           int
}

// ProviderSearchResult is the response from /api/providers/search.
type ProviderSearchResult struct {
	Providers  []Provider `json:"providers"`
	Page       int        `json:"page"`
	TotalPages int        `json:"totalPages"`
}

func joinName(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

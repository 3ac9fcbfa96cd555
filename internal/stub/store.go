// Package stub is an in-memory stand-in for the EHR backend, serving the
// fragment and REST contract the shell runs against. It exists for local
// development and integration testing; nothing here persists.
package stub

import (
	"sort"
	"strings"
	"sync"

	"github.com/openclinic/ehr-shell/internal/ehrapi"
)

// Store holds the stub's seeded records and scheduled appointments.
type Store struct {
	mu           sync.Mutex
	patients     []ehrapi.Patient
	providers    []ehrapi.Provider
	appointments map[int64]*ehrapi.AppointmentDTO
	nextID       int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		appointments: make(map[int64]*ehrapi.AppointmentDTO),
		nextID:       1000,
	}
}

// NewSeededStore creates a store with a small demo practice.
func NewSeededStore() *Store {
	s := NewStore()
	s.patients = []ehrapi.Patient{
		{ID: 1, FirstName: "Ada", LastName: "Reyes", DOB: "1985-04-12", City: "Springfield", State: "IL", PhonePrimary: "555-0101"},
		{ID: 2, FirstName: "Ana", LastName: "Reyes", DOB: "1992-09-03", City: "Springfield", State: "IL", PhonePrimary: "555-0102"},
		{ID: 3, FirstName: "Omar", LastName: "Haddad", DOB: "1978-01-27", City: "Decatur", State: "IL", PhonePrimary: "555-0103"},
		{ID: 4, FirstName: "Maya", LastName: "Singh", DOB: "2001-06-15", City: "Springfield", State: "IL", PhonePrimary: "555-0104"},
	}
	s.providers = []ehrapi.Provider{
		{ID: 7, Title: "Dr.", FirstName: "Lena", LastName: "Voss", Specialty: "Family Medicine", Active: true, InPractice: true},
		{ID: 9, Title: "Dr.", FirstName: "Dana", LastName: "Okafor", Specialty: "Internal Medicine", Active: true, InPractice: true},
		{ID: 11, Title: "Dr.", FirstName: "Sam", LastName: "Ito", Specialty: "Cardiology", Active: true, InPractice: false},
	}
	return s
}

// Patient returns a patient by id.
func (s *Store) Patient(id int64) (ehrapi.Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.patients {
		if p.ID == id {
			return p, true
		}
	}
	return ehrapi.Patient{}, false
}

// Provider returns a provider by id.
func (s *Store) Provider(id int64) (ehrapi.Provider, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.providers {
		if p.ID == id {
			return p, true
		}
	}
	return ehrapi.Provider{}, false
}

// SearchPatients filters, sorts, and pages the patient roster.
func (s *Store) SearchPatients(q ehrapi.PatientSearchQuery) ehrapi.PatientSearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []ehrapi.Patient
	for _, p := range s.patients {
		if !prefixMatch(p.FirstName, q.FirstName) || !prefixMatch(p.LastName, q.LastName) {
			continue
		}
		if q.DOB != "" && p.DOB != q.DOB {
			continue
		}
		if q.Phone != "" && p.PhonePrimary != q.Phone && p.PhoneSecondary != q.Phone {
			continue
		}
		if !prefixMatch(p.Email, q.Email) || !prefixMatch(p.City, q.City) {
			continue
		}
		if q.State != "" && !strings.EqualFold(p.State, q.State) {
			continue
		}
		if q.Zip != "" && p.Zip != q.Zip {
			continue
		}
		matched = append(matched, p)
	}

	sortPatients(matched, q.SortBy, q.SortDir)
	page, total, rows := paginate(len(matched), q.Page, q.Size)
	return ehrapi.PatientSearchResult{
		Patients:   matched[rows[0]:rows[1]],
		Page:       page,
		TotalPages: total,
	}
}

// SearchProviders filters and pages the provider roster.
func (s *Store) SearchProviders(q ehrapi.ProviderSearchQuery) ehrapi.ProviderSearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []ehrapi.Provider
	for _, p := range s.providers {
		if !prefixMatch(p.FirstName, q.FirstName) || !prefixMatch(p.LastName, q.LastName) {
			continue
		}
		if !prefixMatch(p.Specialty, q.Specialty) {
			continue
		}
		if q.InPracticeOnly && !p.InPractice {
			continue
		}
		if q.ActiveOnly && !p.Active {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].LastName < matched[j].LastName
	})
	page, total, rows := paginate(len(matched), q.Page, q.Size)
	return ehrapi.ProviderSearchResult{
		Providers:  matched[rows[0]:rows[1]],
		Page:       page,
		TotalPages: total,
	}
}

// Appointment returns a scheduled appointment by id.
func (s *Store) Appointment(id int64) (*ehrapi.AppointmentDTO, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, false
	}
	cp := *a
	return &cp, true
}

// CreateAppointment books a new appointment and returns its id.
func (s *Store) CreateAppointment(p ehrapi.AppointmentPayload) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.appointments[id] = payloadToDTO(id, p)
	return id
}

// UpdateAppointment replaces an existing appointment.
func (s *Store) UpdateAppointment(id int64, p ehrapi.AppointmentPayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return false
	}
	s.appointments[id] = payloadToDTO(id, p)
	return true
}

// UpdateTiming applies a drag/resize to an existing appointment.
func (s *Store) UpdateTiming(id int64, t ehrapi.TimingUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return false
	}
	if t.Date != "" {
		a.Date = t.Date
	}
	if t.TimeStart != "" {
		a.TimeStart = t.TimeStart
	}
	if t.TimeEnd != "" {
		a.TimeEnd = t.TimeEnd
	}
	return true
}

// DeleteAppointment removes an appointment.
func (s *Store) DeleteAppointment(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return false
	}
	delete(s.appointments, id)
	return true
}

// ProviderEvents lists a provider's appointments as calendar events,
// optionally bounded by inclusive start/end dates.
func (s *Store) ProviderEvents(providerID int64, start, end string) []ehrapi.ScheduleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := []ehrapi.ScheduleEvent{}
	for _, a := range s.appointments {
		if a.ProviderID != providerID {
			continue
		}
		if start != "" && a.Date < start {
			continue
		}
		if end != "" && a.Date > end {
			continue
		}
		events = append(events, ehrapi.ScheduleEvent{
			ID:              a.ID,
			Title:           s.eventTitleLocked(a),
			Start:           a.Date + "T" + a.TimeStart,
			End:             a.Date + "T" + a.TimeEnd,
			Status:          a.Status,
			AppointmentType: a.AppointmentType,
			Reason:          a.Reason,
			ProviderID:      a.ProviderID,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Start < events[j].Start })
	return events
}

// eventTitleLocked renders "Last, First" for the booked patient. Callers
// hold s.mu.
func (s *Store) eventTitleLocked(a *ehrapi.AppointmentDTO) string {
	for _, p := range s.patients {
		if p.ID == a.PatientID {
			return p.LastName + ", " + p.FirstName
		}
	}
	return "Patient"
}

func payloadToDTO(id int64, p ehrapi.AppointmentPayload) *ehrapi.AppointmentDTO {
	return &ehrapi.AppointmentDTO{
		ID:              id,
		Date:            p.Date,
		TimeStart:       p.TimeStart,
		TimeEnd:         p.TimeEnd,
		Duration:        p.Duration,
		AppointmentType: p.AppointmentType,
		Status:          p.Status,
		Reason:          p.Reason,
		ProviderID:      p.ProviderID,
		PatientID:       p.PatientID,
	}
}

func prefixMatch(have, want string) bool {
	if want == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(have), strings.ToLower(want))
}

func sortPatients(ps []ehrapi.Patient, sortBy, sortDir string) {
	less := func(a, b ehrapi.Patient) bool {
		switch sortBy {
		case "firstName":
			return a.FirstName < b.FirstName
		case "dob":
			return a.DOB < b.DOB
		default:
			return a.LastName < b.LastName
		}
	}
	sort.Slice(ps, func(i, j int) bool {
		if sortDir == "desc" {
			return less(ps[j], ps[i])
		}
		return less(ps[i], ps[j])
	})
}

// paginate clamps page into range and returns the slice bounds for it.
func paginate(total, page, size int) (int, int, [2]int) {
	if size <= 0 {
		size = 20
	}
	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page > totalPages-1 {
		page = totalPages - 1
	}
	lo := page * size
	hi := lo + size
	if lo > total {
		lo = total
	}
	if hi > total {
		hi = total
	}
	return page, totalPages, [2]int{lo, hi}
}

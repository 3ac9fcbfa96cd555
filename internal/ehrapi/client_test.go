package ehrapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchPatientsParams(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patients/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(PatientSearchResult{
			Patients:   []Patient{{ID: 42, FirstName: "Ann", LastName: "Smith"}},
			Page:       0,
			TotalPages: 1,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.SearchPatients(context.Background(), PatientSearchQuery{
		FirstName: "An",
		LastName:  "Sm",
		Size:      6,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Patients) != 1 || result.Patients[0].ID != 42 {
		t.Fatalf("unexpected result: %+v", result)
	}
	want := "firstName=An&lastName=Sm&page=0&size=6"
	if gotQuery != want {
		t.Fatalf("query = %q, want %q", gotQuery, want)
	}
}

func TestSearchProvidersInPracticeOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("inPracticeOnly") != "true" {
			t.Errorf("expected inPracticeOnly=true, got query %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(ProviderSearchResult{
			Providers: []Provider{{ID: 7, FirstName: "Gregory", LastName: "House", Display: "Dr. Gregory House"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.SearchProviders(context.Background(), ProviderSearchQuery{
		LastName:       "Hou",
		InPracticeOnly: true,
		Size:           12,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Providers) != 1 || result.Providers[0].DisplayName() != "Dr. Gregory House" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCreateAppointmentAttachesCSRF(t *testing.T) {
	var gotHeader string
	var gotPayload AppointmentPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/schedule" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotHeader = r.Header.Get("X-CSRF-TOKEN")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(MutationResult{Success: true, ID: 101})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithCSRF("X-CSRF-TOKEN", "tok-123"))
	result, err := client.CreateAppointment(context.Background(), AppointmentPayload{
		ProviderID: 7,
		PatientID:  42,
		Date:       "2024-06-01",
		TimeStart:  "09:00",
		TimeEnd:    "09:15",
		Duration:   15,
		Status:     "Scheduled",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.ID != 101 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if gotHeader != "tok-123" {
		t.Fatalf("CSRF header = %q", gotHeader)
	}
	if gotPayload.PatientID != 42 || gotPayload.Duration != 15 {
		t.Fatalf("unexpected payload: %+v", gotPayload)
	}
}

func TestMutateNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(MutationResult{Success: false, Error: "Missing patient or provider ID"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.CreateAppointment(context.Background(), AppointmentPayload{})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if result == nil || result.Success {
		t.Fatalf("expected failed result body, got %+v", result)
	}
	if result.Error != "Missing patient or provider ID" {
		t.Fatalf("unexpected error message %q", result.Error)
	}
}

func TestDeleteAppointment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/schedule/9" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(MutationResult{Success: true})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.DeleteAppointment(context.Background(), 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success")
	}
}

func TestGetAppointmentNormalizesNothing(t *testing.T) {
	// the client delivers the DTO verbatim; normalization is the model's job
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AppointmentDTO{
			ID:              9,
			Date:            "2024-06-01",
			TimeStart:       "09:00",
			TimeEnd:         "09:30",
			DurationMinutes: 30,
			PatientID:       42,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	dto, err := client.GetAppointment(context.Background(), 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.Duration != 0 || dto.DurationMinutes != 30 {
		t.Fatalf("expected raw duration fields, got %+v", dto)
	}
}

package stub

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/openclinic/ehr-shell/internal/ehrapi"
	httpmiddleware "github.com/openclinic/ehr-shell/internal/http/middleware"
	"github.com/openclinic/ehr-shell/pkg/logging"
)

// RouterConfig holds stub server wiring.
type RouterConfig struct {
	Store              *Store
	Logger             *logging.Logger
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Non-empty requires this token on every mutating request.
	CSRFToken string
}

// NewRouter builds the chi router serving the fragment and REST contract.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Store == nil {
		cfg.Store = NewSeededStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	h := &handlers{store: cfg.Store, logger: cfg.Logger, csrfToken: cfg.CSRFToken}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Get("/fragments/{name}", h.fragment)

	r.Route("/api", func(r chi.Router) {
		r.Get("/patients/search", h.searchPatients)
		r.Get("/patients/{id}", h.getPatient)
		r.Get("/providers/search", h.searchProviders)
		r.Get("/providers/{id}", h.getProvider)

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/provider/{id}", h.providerEvents)
			r.Get("/appointment/{id}", h.getAppointment)
			r.Post("/", h.createAppointment)
			r.Put("/{id}", h.updateAppointment)
			r.Delete("/{id}", h.deleteAppointment)
		})
	})

	return r
}

type handlers struct {
	store     *Store
	logger    *logging.Logger
	csrfToken string
}

func (h *handlers) fragment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	markup, ok := fragments[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(markup))
}

func (h *handlers) searchPatients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := h.store.SearchPatients(ehrapi.PatientSearchQuery{
		FirstName: q.Get("firstName"),
		LastName:  q.Get("lastName"),
		DOB:       q.Get("dob"),
		Phone:     q.Get("phone"),
		Email:     q.Get("email"),
		City:      q.Get("city"),
		State:     q.Get("state"),
		Zip:       q.Get("zip"),
		SortBy:    q.Get("sortBy"),
		SortDir:   q.Get("sortDir"),
		Page:      atoi(q.Get("page")),
		Size:      atoi(q.Get("size")),
	})
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) searchProviders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := h.store.SearchProviders(ehrapi.ProviderSearchQuery{
		FirstName:      q.Get("firstName"),
		LastName:       q.Get("lastName"),
		Specialty:      q.Get("specialty"),
		InPracticeOnly: q.Get("inPracticeOnly") == "true",
		ActiveOnly:     q.Get("activeOnly") == "true",
		Page:           atoi(q.Get("page")),
		Size:           atoi(q.Get("size")),
	})
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) getPatient(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	p, ok := h.store.Patient(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) getProvider(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	p, ok := h.store.Provider(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) providerEvents(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	events := h.store.ProviderEvents(id, r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	writeJSON(w, http.StatusOK, events)
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	a, ok := h.store.Appointment(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if p, ok := h.store.Patient(a.PatientID); ok {
		a.Patient = &p
	}
	if p, ok := h.store.Provider(a.ProviderID); ok {
		a.Provider = &p
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handlers) createAppointment(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	var payload ehrapi.AppointmentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, ehrapi.MutationResult{Success: false, Error: "malformed payload"})
		return
	}
	if msg := validatePayload(payload); msg != "" {
		writeJSON(w, http.StatusBadRequest, ehrapi.MutationResult{Success: false, Error: msg})
		return
	}
	id := h.store.CreateAppointment(payload)
	h.logger.Info("appointment created", "appointmentId", id, "providerId", payload.ProviderID)
	writeJSON(w, http.StatusOK, ehrapi.MutationResult{Success: true, ID: id})
}

func (h *handlers) updateAppointment(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	id := idParam(r)

	var raw map[string]json.RawMessage
	body := json.NewDecoder(r.Body)
	if err := body.Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, ehrapi.MutationResult{Success: false, Error: "malformed payload"})
		return
	}

	// a timing-only body (drag/resize) carries no patientId
	if _, full := raw["patientId"]; !full {
		var timing ehrapi.TimingUpdate
		decodeRaw(raw, &timing)
		if !h.store.UpdateTiming(id, timing) {
			writeJSON(w, http.StatusNotFound, ehrapi.MutationResult{Success: false, Error: "appointment not found"})
			return
		}
		writeJSON(w, http.StatusOK, ehrapi.MutationResult{Success: true, ID: id})
		return
	}

	var payload ehrapi.AppointmentPayload
	decodeRaw(raw, &payload)
	if msg := validatePayload(payload); msg != "" {
		writeJSON(w, http.StatusBadRequest, ehrapi.MutationResult{Success: false, Error: msg})
		return
	}
	if !h.store.UpdateAppointment(id, payload) {
		writeJSON(w, http.StatusNotFound, ehrapi.MutationResult{Success: false, Error: "appointment not found"})
		return
	}
	writeJSON(w, http.StatusOK, ehrapi.MutationResult{Success: true, ID: id})
}

func (h *handlers) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	id := idParam(r)
	if !h.store.DeleteAppointment(id) {
		writeJSON(w, http.StatusNotFound, ehrapi.MutationResult{Success: false, Error: "appointment not found"})
		return
	}
	writeJSON(w, http.StatusOK, ehrapi.MutationResult{Success: true, ID: id})
}

func (h *handlers) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	if h.csrfToken == "" {
		return true
	}
	if r.Header.Get("X-CSRF-TOKEN") != h.csrfToken {
		writeJSON(w, http.StatusForbidden, ehrapi.MutationResult{Success: false, Error: "invalid csrf token"})
		return false
	}
	return true
}

func validatePayload(p ehrapi.AppointmentPayload) string {
	switch {
	case p.PatientID == 0:
		return "patient is required"
	case p.ProviderID == 0:
		return "provider is required"
	case p.Date == "" || p.TimeStart == "" || p.TimeEnd == "":
		return "date and time window are required"
	default:
		return ""
	}
}

func decodeRaw(raw map[string]json.RawMessage, dst any) {
	buf, _ := json.Marshal(raw)
	json.Unmarshal(buf, dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func idParam(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

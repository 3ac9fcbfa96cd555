package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclinic/ehr-shell/internal/config"
	"github.com/openclinic/ehr-shell/internal/editor"
	"github.com/openclinic/ehr-shell/internal/ehrapi"
)

type modalHost struct {
	mu      sync.Mutex
	visible bool
}

func (h *modalHost) Attach(string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.visible = true
}

func (h *modalHost) Detach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.visible = false
}

func (h *modalHost) SetVisible(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.visible = v
}

func (h *modalHost) isVisible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible
}

type gridWidget struct {
	mu      sync.Mutex
	refetch int
}

func (g *gridWidget) Refetch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refetch++
}

func (g *gridWidget) RevertMove(int64) {}

func (g *gridWidget) refetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refetch
}

// stubEHR is the in-memory backend the shell tests run against.
type stubEHR struct {
	mu        sync.Mutex
	patients  []ehrapi.Patient
	providers []ehrapi.Provider
	creates   int
}

func (s *stubEHR) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /fragments/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<section data-name=%q></section>", strings.TrimPrefix(r.URL.Path, "/fragments/"))
	})
	mux.HandleFunc("GET /api/patients/search", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		json.NewEncoder(w).Encode(ehrapi.PatientSearchResult{Patients: s.patients, TotalPages: 1})
	})
	mux.HandleFunc("GET /api/providers/search", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		json.NewEncoder(w).Encode(ehrapi.ProviderSearchResult{Providers: s.providers, TotalPages: 1})
	})
	mux.HandleFunc("POST /api/schedule", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.creates++
		s.mu.Unlock()
		json.NewEncoder(w).Encode(ehrapi.MutationResult{Success: true, ID: 301})
	})
	mux.HandleFunc("GET /api/providers/7", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ehrapi.Provider{ID: 7, Display: "Dr. Lena Voss"})
	})
	mux.HandleFunc("GET /api/patients/42", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ehrapi.Patient{ID: 42, FirstName: "Ada", LastName: "Reyes"})
	})
	mux.HandleFunc("GET /api/schedule/provider/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]ehrapi.ScheduleEvent{})
	})
	return mux
}

func newShell(t *testing.T, be *stubEHR) (*Shell, *modalHost, *gridWidget) {
	t.Helper()

	srv := httptest.NewServer(be.handler())
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := config.Load()
	cfg.EHRBaseURL = srv.URL
	cfg.LogLevel = "error"

	host := &modalHost{}
	widget := &gridWidget{}
	sh := New(cfg, rdb, "test-session", Hosts{Modal: host, Widget: widget},
		WithInitialProvider(7),
		WithConfirmer(func(string) bool { return true }),
		WithNotifier(func(string) {}),
	)
	return sh, host, widget
}

func TestBootDefaultsToScheduler(t *testing.T) {
	ctx := context.Background()
	sh, _, _ := newShell(t, &stubEHR{})

	require.NoError(t, sh.Boot(ctx))
	assert.Equal(t, SectionScheduler, sh.Views().Current())
}

func TestBootRestoresLastSection(t *testing.T) {
	ctx := context.Background()
	sh, _, _ := newShell(t, &stubEHR{})

	require.NoError(t, sh.Navigate(ctx, SectionPatient))

	// a fresh page load with the same session lands where the user left off
	section, err := sh.Store().LastSection(ctx)
	require.NoError(t, err)
	assert.Equal(t, SectionPatient, section)

	require.NoError(t, sh.Boot(ctx))
	assert.Equal(t, SectionPatient, sh.Views().Current())
}

func TestNavigateBackUsesCache(t *testing.T) {
	ctx := context.Background()
	sh, _, _ := newShell(t, &stubEHR{})

	require.NoError(t, sh.Boot(ctx))
	require.NoError(t, sh.Navigate(ctx, SectionPatient))
	require.NoError(t, sh.Navigate(ctx, SectionScheduler))

	assert.Equal(t, SectionScheduler, sh.Views().Current())
	assert.True(t, sh.Views().IsCached(SectionPatient))
	assert.Equal(t, 1, sh.Views().VisibleCount())
}

// Full round trip: an ambiguous patient lookup diverts to the search view,
// the picked row returns to the scheduler, and the backgrounded edit
// resumes with the patient locked in.
func TestPatientDivertAndReturn(t *testing.T) {
	ctx := context.Background()
	be := &stubEHR{
		patients: []ehrapi.Patient{
			{ID: 1, FirstName: "Ana", LastName: "Reyes"},
			{ID: 2, FirstName: "Ada", LastName: "Reyes"},
		},
	}
	sh, host, _ := newShell(t, be)
	require.NoError(t, sh.Boot(ctx))

	// double click an empty slot
	require.NoError(t, sh.Calendar().SlotClicked(ctx, "2026-03-02T09:30"))
	require.NoError(t, sh.Calendar().SlotClicked(ctx, "2026-03-02T09:30"))
	require.True(t, sh.Modal().IsOpen())
	sh.Editor().FieldChanged("reason", "intake")

	// ambiguous lookup backgrounds the modal and opens the search view
	locked, err := sh.Editor().ConfirmSuggest(ctx, editor.KindPatient, "Reyes")
	require.NoError(t, err)
	require.False(t, locked)
	assert.Equal(t, SectionPatient, sh.Views().Current())
	assert.True(t, sh.Modal().IsOpen())
	assert.False(t, host.isVisible())

	// the shown hook consumed the prefill and ran the search
	assert.Equal(t, "Reyes", sh.Patients().Filters().FirstName)
	require.Len(t, sh.Patients().Table().Rows(), 2)

	// picking a row lands back on the scheduler with the edit resumed
	require.NoError(t, sh.Patients().RowActivated(ctx, be.patients[1]))
	assert.Equal(t, SectionScheduler, sh.Views().Current())
	require.True(t, sh.Modal().IsOpen())
	assert.True(t, host.isVisible())

	form := sh.Modal().Form()
	assert.Equal(t, "Ada Reyes", form.Get("patientName"))
	assert.Equal(t, "2", form.Data("patientId"))
	assert.Equal(t, "intake", form.Get("reason"))
	assert.Equal(t, "09:30", form.Get("timeStart"))

	// and the resumed edit saves in one request
	require.NoError(t, sh.Editor().Save(ctx))
	assert.Equal(t, 1, be.creates)
	assert.False(t, sh.Modal().IsOpen())
}

// The scheduler's provider filter box opens the provider search; the
// picked row switches the calendar rather than feeding an appointment.
func TestProviderSwitchRoundTrip(t *testing.T) {
	ctx := context.Background()
	be := &stubEHR{
		providers: []ehrapi.Provider{{ID: 9, FirstName: "Dana", LastName: "Okafor"}},
	}
	sh, _, widget := newShell(t, be)
	require.NoError(t, sh.Boot(ctx))

	require.NoError(t, sh.FindProviderForCalendar(ctx))
	assert.Equal(t, SectionProvider, sh.Views().Current())

	refetchBefore := widget.refetchCount()
	require.NoError(t, sh.Providers().RowActivated(ctx, be.providers[0]))

	assert.Equal(t, SectionScheduler, sh.Views().Current())
	assert.Equal(t, int64(9), sh.Calendar().ProviderID())
	assert.Equal(t, refetchBefore+1, widget.refetchCount())
	assert.False(t, sh.Modal().IsOpen())

	cached, err := sh.Store().SelectedProvider(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, int64(9), cached.ID)
}

func TestDemographicsShownLoadsStagedPatient(t *testing.T) {
	ctx := context.Background()

	be := &stubEHR{
		patients: []ehrapi.Patient{{ID: 42, FirstName: "Ada", LastName: "Reyes"}},
	}
	sh, _, _ := newShell(t, be)

	require.NoError(t, sh.Boot(ctx))
	require.NoError(t, sh.Navigate(ctx, SectionPatient))
	require.NoError(t, sh.Patients().RowActivated(ctx, be.patients[0]))

	assert.Equal(t, SectionDemographics, sh.Views().Current())
	assert.Equal(t, "edit", sh.Demographics().Mode())
}

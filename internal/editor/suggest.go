package editor

import (
	"context"
	"strconv"
	"strings"

	"github.com/openclinic/ehr-shell/internal/ehrapi"
	"github.com/openclinic/ehr-shell/internal/session"
)

// Kind selects which lookup field a suggest operation targets.
type Kind string

const (
	KindPatient  Kind = "patient"
	KindProvider Kind = "provider"
)

// Section names of the full search views used when a lookup diverts.
const (
	patientSearchView  = "patient"
	providerSearchView = "provider"
)

// Candidate is one suggest dropdown entry.
type Candidate struct {
	ID       int64
	Display  string
	Patient  *ehrapi.Patient
	Provider *ehrapi.Provider
}

// SuggestInput handles a keystroke in a lookup field. The network query is
// debounced, and a generation counter discards responses that arrive after
// a newer keystroke.
func (s *Session) SuggestInput(ctx context.Context, kind Kind, query string) {
	s.mu.Lock()
	if cancel := s.cancelPrev[kind]; cancel != nil {
		cancel()
		s.cancelPrev[kind] = nil
	}
	gen := s.pendingGen[kind].Add(1)

	query = strings.TrimSpace(query)
	if query == "" {
		s.candidates[kind] = nil
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// the scheduler may run the callback inline, and runSuggest takes the
	// mutex, so scheduling must happen outside the critical section
	cancel := s.schedule(s.debounce, func() {
		s.runSuggest(ctx, kind, query, gen)
	})

	s.mu.Lock()
	if s.pendingGen[kind].Load() == gen {
		s.cancelPrev[kind] = cancel
	} else {
		cancel()
	}
	s.mu.Unlock()
}

// runSuggest fires the search and installs the candidates unless a newer
// keystroke has superseded this generation.
func (s *Session) runSuggest(ctx context.Context, kind Kind, query string, gen uint64) {
	list, err := s.lookup(ctx, kind, query)
	if err != nil {
		s.logger.Warn("suggest lookup failed", "kind", string(kind), "error", err)
		s.mx.ObserveSuggest(string(kind), "error")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingGen[kind].Load() != gen {
		// a newer keystroke owns the field now
		return
	}
	if len(list) > s.limit(kind) {
		s.candidates[kind] = nil
		return
	}
	s.candidates[kind] = list
}

func (s *Session) limit(kind Kind) int {
	if kind == KindProvider {
		return s.providerMax
	}
	return s.patientMax
}

// Candidates returns the current dropdown entries for a lookup field.
func (s *Session) Candidates(kind Kind) []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Candidate(nil), s.candidates[kind]...)
}

// SelectSuggestion locks a dropdown pick into the form and model.
func (s *Session) SelectSuggestion(ctx context.Context, c Candidate) error {
	return s.lock(ctx, c)
}

// ConfirmSuggest handles Enter or Tab in a lookup field: it searches
// immediately with the typed text, locks the entity when exactly one row
// matches, and otherwise diverts to the full search view with the text as
// a prefill.
func (s *Session) ConfirmSuggest(ctx context.Context, kind Kind, query string) (bool, error) {
	s.mu.Lock()
	if cancel := s.cancelPrev[kind]; cancel != nil {
		cancel()
		s.cancelPrev[kind] = nil
	}
	s.pendingGen[kind].Add(1)
	s.mu.Unlock()

	list, err := s.lookup(ctx, kind, query)
	if err != nil {
		s.logger.Warn("confirm lookup failed", "kind", string(kind), "error", err)
		list = nil
	}

	if len(list) == 1 {
		s.mx.ObserveSuggest(string(kind), "locked")
		return true, s.lock(ctx, list[0])
	}

	s.mx.ObserveSuggest(string(kind), "diverted")
	return false, s.divert(ctx, kind, query)
}

// lookup runs the size-bounded search behind both the dropdown and the
// confirm path.
func (s *Session) lookup(ctx context.Context, kind Kind, query string) ([]Candidate, error) {
	first, last := splitName(query)

	switch kind {
	case KindProvider:
		res, err := s.api.SearchProviders(ctx, ehrapi.ProviderSearchQuery{
			FirstName:      first,
			LastName:       last,
			InPracticeOnly: true,
			Size:           s.providerMax,
		})
		if err != nil {
			return nil, err
		}
		out := make([]Candidate, 0, len(res.Providers))
		for i := range res.Providers {
			p := res.Providers[i]
			out = append(out, Candidate{ID: p.ID, Display: p.DisplayName(), Provider: &p})
		}
		return out, nil
	default:
		res, err := s.api.SearchPatients(ctx, ehrapi.PatientSearchQuery{
			FirstName: first,
			LastName:  last,
			Size:      s.patientMax,
		})
		if err != nil {
			return nil, err
		}
		out := make([]Candidate, 0, len(res.Patients))
		for i := range res.Patients {
			p := res.Patients[i]
			out = append(out, Candidate{ID: p.ID, Display: p.DisplayName(), Patient: &p})
		}
		return out, nil
	}
}

// lock writes a resolved entity into the model and form. Locking a provider
// also retargets the calendar.
func (s *Session) lock(ctx context.Context, c Candidate) error {
	form := s.modal.Form()

	switch {
	case c.Patient != nil:
		s.mu.Lock()
		s.model.SetPatient(*c.Patient)
		s.candidates[KindPatient] = nil
		s.mu.Unlock()
		if form != nil {
			form.Set("patientName", c.Patient.DisplayName())
			form.SetData("patientId", strconv.FormatInt(c.Patient.ID, 10))
		}
	case c.Provider != nil:
		s.mu.Lock()
		s.model.SetProvider(*c.Provider)
		s.candidates[KindProvider] = nil
		switcher := s.switcher
		s.mu.Unlock()
		if form != nil {
			form.Set("providerName", c.Provider.DisplayName())
			form.SetData("providerId", strconv.FormatInt(c.Provider.ID, 10))
		}
		if err := s.store.SetSelectedProvider(ctx, *c.Provider); err != nil {
			s.logger.Warn("could not persist selected provider", "error", err)
		}
		if switcher != nil {
			if err := switcher.SwitchProvider(ctx, *c.Provider); err != nil {
				return err
			}
		}
	}
	return s.snapshot(ctx)
}

// divert backgrounds the modal and navigates to the full search view,
// carrying the typed text as a filter prefill.
func (s *Session) divert(ctx context.Context, kind Kind, query string) error {
	if err := s.snapshot(ctx); err != nil {
		return err
	}

	first, last := splitName(query)
	switch kind {
	case KindProvider:
		if err := s.store.SetPrefillProvider(ctx, session.Prefill{First: first, Last: last, InPracticeOnly: true}); err != nil {
			return err
		}
	default:
		if err := s.store.SetPrefillPatient(ctx, session.Prefill{First: first, Last: last}); err != nil {
			return err
		}
	}

	s.modal.SoftHide()

	s.mu.Lock()
	s.diverted = true
	s.mu.Unlock()

	target := patientSearchView
	if kind == KindProvider {
		target = providerSearchView
	}
	return s.views.LoadView(ctx, target, "/fragments/"+target, false)
}

// splitName splits the lookup text into first/last search terms. A single
// token searches the first name.
func splitName(query string) (first, last string) {
	fields := strings.Fields(strings.TrimSpace(query))
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

package modal

import "sync"

// Form holds the field values and data attributes bound to the mounted
// modal markup. It stands in for the modal's live form elements: soft
// hiding the modal leaves it untouched, a full unmount discards it.
type Form struct {
	mu     sync.Mutex
	values map[string]string
	data   map[string]string
}

// NewForm creates an empty form.
func NewForm() *Form {
	return &Form{
		values: make(map[string]string),
		data:   make(map[string]string),
	}
}

// Set assigns a field value.
func (f *Form) Set(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[field] = value
}

// Get returns a field value, or "".
func (f *Form) Get(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[field]
}

// SetData assigns a data attribute (e.g. the locked patientId on the
// patient name input).
func (f *Form) SetData(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
}

// Data returns a data attribute, or "".
func (f *Form) Data(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key]
}

// ClearData removes a data attribute.
func (f *Form) ClearData(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
}

// Snapshot copies all field values, for assertions and diagnostics.
func (f *Form) Snapshot() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

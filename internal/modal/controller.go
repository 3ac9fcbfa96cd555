// Package modal implements the global modal overlay: a singleton with two
// independent toggles, hard mount/unmount and soft visibility. Soft hiding
// keeps the mounted markup and bound form intact so an editing session can
// be backgrounded during a sub-search and resumed without losing state.
package modal

import (
	"sync"

	"github.com/openclinic/ehr-shell/internal/bus"
	"github.com/openclinic/ehr-shell/pkg/logging"
)

// Host is the container the modal mounts into. A page without the
// container yields a no-op manager instead of a failure.
type Host interface {
	Attach(markup string)
	Detach()
	SetVisible(visible bool)
}

// NopHost discards all modal operations, for headless operation.
type NopHost struct{}

func (NopHost) Attach(string)   {}
func (NopHost) Detach()         {}
func (NopHost) SetVisible(bool) {}

// Manager is the modal controller contract. All mount and visibility
// transitions funnel through it; nothing else touches the overlay.
type Manager interface {
	// Show unmounts any existing instance, mounts fresh markup, and fires
	// the shown signal only after the markup is attached.
	Show(markup string)
	// Hide fully unmounts and fires the hidden signal; no-op when closed.
	Hide()
	// SoftHide toggles the mounted modal invisible without unmounting.
	// Fires no signal since state is preserved.
	SoftHide()
	// SoftShow re-reveals a soft-hidden modal and fires the shown signal
	// after the visibility change is applied.
	SoftShow()
	// IsOpen reports whether the modal is mounted, soft-hidden or not.
	IsOpen() bool
	// Form returns the form bound to the mounted markup, or nil when closed.
	Form() *Form
}

// New creates the modal controller. A nil host degrades to a stub that
// warns on every call so the rest of the app keeps functioning.
func New(host Host, b *bus.Bus, logger *logging.Logger) Manager {
	if logger == nil {
		logger = logging.Default()
	}
	if host == nil {
		logger.Warn("modal container missing, modal manager degraded to no-op")
		return &noopManager{logger: logger}
	}
	return &controller{host: host, bus: b, logger: logger}
}

type controller struct {
	host   Host
	bus    *bus.Bus
	logger *logging.Logger

	mu      sync.Mutex
	mounted bool
	visible bool
	markup  string
	form    *Form
}

func (c *controller) Show(markup string) {
	// singleton invariant: at most one mounted instance
	c.Hide()

	c.mu.Lock()
	c.mounted = true
	c.visible = true
	c.markup = markup
	c.form = NewForm()
	c.mu.Unlock()

	c.host.Attach(markup)
	c.host.SetVisible(true)

	// published only after attach so consumers can query the markup
	c.bus.Publish(bus.Event{Signal: bus.ModalShown})
}

func (c *controller) Hide() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	c.visible = false
	c.markup = ""
	c.form = nil
	c.mu.Unlock()

	c.host.Detach()
	c.bus.Publish(bus.Event{Signal: bus.ModalHidden})
}

func (c *controller) SoftHide() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.visible = false
	c.mu.Unlock()

	c.host.SetVisible(false)
}

func (c *controller) SoftShow() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.visible = true
	c.mu.Unlock()

	c.host.SetVisible(true)

	// same signal as Show, after the visibility change is applied, so
	// field-patch logic always finds the form present
	c.bus.Publish(bus.Event{Signal: bus.ModalShown})
}

func (c *controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

func (c *controller) Form() *Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Markup returns the mounted markup, for tests and diagnostics.
func (c *controller) Markup() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.markup
}

// IsVisible reports the soft visibility state of the mounted modal.
func (c *controller) IsVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted && c.visible
}

type noopManager struct {
	logger *logging.Logger
}

func (n *noopManager) Show(string) {
	n.logger.Warn("modal show called but container missing")
}

func (n *noopManager) Hide() {
	n.logger.Warn("modal hide called but container missing")
}

func (n *noopManager) SoftHide() {
	n.logger.Warn("modal soft hide called but container missing")
}

func (n *noopManager) SoftShow() {
	n.logger.Warn("modal soft show called but container missing")
}

func (n *noopManager) IsOpen() bool { return false }
func (n *noopManager) Form() *Form  { return nil }

// Package panel governs which of the list/detail panes is shown on narrow
// viewports. On wide viewports both panes render and the state is ignored.
package panel

// Pane identifies one of the two panels.
type Pane int

const (
	Left  Pane = iota // chat list
	Right             // chat detail
)

// dualPaneMinWidth is the terminal width at which both panes fit.
const dualPaneMinWidth = 100

// Controller is the two-panel navigation state machine. Zero value starts
// on the left pane. Not a terminal state machine; it toggles for the whole
// session.
type Controller struct {
	active  Pane
	forward bool
}

// SwitchTo changes the visible pane and records the transition direction,
// which exists only to steer the slide animation.
func (c *Controller) SwitchTo(target Pane) {
	c.forward = target == Right
	c.active = target
}

func (c *Controller) Active() Pane {
	return c.active
}

// Forward reports whether the last switch moved list -> detail.
func (c *Controller) Forward() bool {
	return c.forward
}

// DualPane reports whether the viewport is wide enough to show both panes
// unconditionally.
func (c *Controller) DualPane(width int) bool {
	return width >= dualPaneMinWidth
}

// Visible reports whether the given pane should render at this width.
func (c *Controller) Visible(p Pane, width int) bool {
	return c.DualPane(width) || c.active == p
}

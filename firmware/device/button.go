package device

import "time"

// ButtonEvent represents when the state of a Button changes
type ButtonEvent int

const (
	NotChanged ButtonEvent = iota
	Pressed
	Released
)

// Button is a push-button with an internal or external pull-up, so it reads LOW when pressed.
// It remembers its state between polls so presses can be detected as edges
type Button struct {
	pin        Input
	activeHigh bool
	delay      time.Duration

	lastReading bool
	pressed     bool
	// lastChange is when the raw reading last changed. The reading must be stable for
	// delay before the debounced state follows it
	lastChange time.Time
}

// NewButton creates an active-low Button
func NewButton(pin Input, delay time.Duration) *Button {
	return &Button{pin: pin, delay: delay}
}

func (b *Button) read() bool {
	return b.pin.Get() == b.activeHigh
}

// Init samples the pin without reporting an event, so a button held at boot is not
// treated as a fresh press
func (b *Button) Init(now time.Time) {
	b.lastReading = b.read()
	b.pressed = b.lastReading
	b.lastChange = now
}

// Update samples the pin and returns the debounced change, if any
func (b *Button) Update(now time.Time) ButtonEvent {
	reading := b.read()
	if reading != b.lastReading {
		b.lastChange = now
	}
	b.lastReading = reading

	if now.Sub(b.lastChange) < b.delay || reading == b.pressed {
		return NotChanged
	}

	b.pressed = reading
	if b.pressed {
		return Pressed
	}
	return Released
}

// Pressed returns the debounced state from the last Update
func (b *Button) Pressed() bool {
	return b.pressed
}

// LimitSwitch stops movement in one direction. The panel's switches are normally closed to
// ground with a pull-up, so they read LOW while clear and HIGH once tripped or disconnected
type LimitSwitch struct {
	Pin       Input
	ActiveLow bool
}

// Tripped is true when movement toward this switch must stop
func (l LimitSwitch) Tripped() bool {
	return l.Pin.Get() != l.ActiveLow
}

package device

import "time"

// Input is a digital input. machine.Pin implements it
type Input interface {
	Get() bool
}

// Output is a digital output. machine.Pin implements it
type Output interface {
	Set(bool)
}

// PWM is the part of a TinyGo PWM peripheral used to generate step pulses. Each pulse is
// a step on the DRV8711, so the PWM frequency sets the step rate
type PWM interface {
	Top() uint32
	Set(channel uint8, value uint32)
}

// HBridge drives the actuator. tinygo.org/x/drivers/l9110x implements it and matches the
// IN1/IN2 truth table of direct PWM input mode
type HBridge interface {
	Forward()
	Backward()
	Stop()
}

// Driver is a motor driver that can be powered down and asked why it faulted
type Driver interface {
	Enable() error
	Disable() error
	ClearFaults() error
	FaultReport() (string, error)
}

// Clock allows replacing time in tests
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

// SystemClock uses the time package
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

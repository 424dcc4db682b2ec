//go:build tinygo

package main

import (
	"machine"
	"time"

	"github.com/calvinmclean/jogpanel/firmware/commands"
	"github.com/calvinmclean/jogpanel/firmware/device"
	"github.com/calvinmclean/jogpanel/firmware/drv8711"

	"tinygo.org/x/drivers/l9110x"
)

// Arduino Mega 2560 pin table. SPI uses the default pins: CIPO D50, COPI D51, SCK D52
const (
	emergencyStopPin = machine.D21
	resetPin         = machine.D2
	sm1CWPin         = machine.A8  // D62
	sm1CCWPin        = machine.A9  // D63
	sm2CWPin         = machine.A10 // D64
	sm2CCWPin        = machine.A11 // D65
	actuatorUpPin    = machine.A12 // D66
	actuatorDownPin  = machine.A13 // D67

	sm1DirectionPin = machine.D45
	sm1StepPin      = machine.D11 // OC1A
	sm2DirectionPin = machine.D44
	sm2StepPin      = machine.D12 // OC1B
	actuatorIN1Pin  = machine.D41
	actuatorIN2Pin  = machine.D39

	sm1TopLimitPin    = machine.D43
	sm1BottomLimitPin = machine.D10
	sm2TopLimitPin    = machine.D13
	sm2BottomLimitPin = machine.D42

	sm1FaultPin      = machine.D20
	sm2FaultPin      = machine.D19
	actuatorFaultPin = machine.D18

	sm1ChipSelectPin = machine.D53
	sm2ChipSelectPin = machine.D49
)

const (
	// stepPeriod is 600Hz. Each PWM cycle is one step on the DRV8711
	stepPeriod = 1667 * time.Microsecond

	driverCurrentMilliamps = 1500
	driverStepMode         = drv8711.StepModeFull
	driverDecayMode        = drv8711.DecayAutoMixed

	settleDelay = time.Second
)

func main() {
	configurePins()

	stepPWM := machine.Timer1
	err := stepPWM.Configure(machine.PWMConfig{Period: uint64(stepPeriod)})
	if err != nil {
		fatal("error configuring step PWM: " + err.Error())
	}
	sm1Channel, err := stepPWM.Channel(sm1StepPin)
	if err != nil {
		fatal("error configuring sm1 step pin: " + err.Error())
	}
	sm2Channel, err := stepPWM.Channel(sm2StepPin)
	if err != nil {
		fatal("error configuring sm2 step pin: " + err.Error())
	}

	err = machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 500_000,
		LSBFirst:  false,
		Mode:      0,
	})
	if err != nil {
		fatal("error configuring SPI: " + err.Error())
	}
	sm1Driver := newDriver(sm1ChipSelectPin)
	sm2Driver := newDriver(sm2ChipSelectPin)

	bridge := l9110x.New(actuatorIN1Pin, actuatorIN2Pin)
	bridge.Configure()

	handler := commands.NewHandler(machine.Serial)

	panel, err := device.New(device.Config{
		Buttons: device.ButtonConfig{
			EmergencyStop: emergencyStopPin,
			Reset:         resetPin,
			Stepper1CW:    sm1CWPin,
			Stepper1CCW:   sm1CCWPin,
			Stepper2CW:    sm2CWPin,
			Stepper2CCW:   sm2CCWPin,
			ActuatorUp:    actuatorUpPin,
			ActuatorDown:  actuatorDownPin,
		},
		Stepper1: device.StepperConfig{
			Name:      "sm1",
			Direction: sm1DirectionPin,
			StepPWM:   stepPWM,
			Channel:   sm1Channel,
			CWLimit:   device.LimitSwitch{Pin: sm1TopLimitPin},
			CCWLimit:  device.LimitSwitch{Pin: sm1BottomLimitPin},
			Driver:    sm1Driver,
		},
		Stepper2: device.StepperConfig{
			Name:      "sm2",
			Direction: sm2DirectionPin,
			StepPWM:   stepPWM,
			Channel:   sm2Channel,
			CWLimit:   device.LimitSwitch{Pin: sm2BottomLimitPin},
			CCWLimit:  device.LimitSwitch{Pin: sm2TopLimitPin},
			Driver:    sm2Driver,
		},
		Actuator: device.ActuatorConfig{
			Bridge: &bridge,
		},
		Faults: []device.FaultConfig{
			{Name: "sm1", Pin: sm1FaultPin, Driver: sm1Driver},
			{Name: "sm2", Pin: sm2FaultPin, Driver: sm2Driver},
			{Name: "act", Pin: actuatorFaultPin},
		},
		EmergencyRequested: handler.EmergencyRequested,
	}, machine.Serial)
	if err != nil {
		fatal(err.Error())
	}

	setEmergencyInterrupt(emergencyStopPin, panel.EmergencyStop)

	err = panel.Setup()
	if err != nil {
		println("error during setup:", err.Error())
	}
	time.Sleep(settleDelay)

	for {
		panel.Tick()
		handler.Poll(panel)
	}
}

func configurePins() {
	for _, p := range []machine.Pin{
		emergencyStopPin, resetPin,
		sm1CWPin, sm1CCWPin, sm2CWPin, sm2CCWPin,
		sm1TopLimitPin, sm1BottomLimitPin, sm2TopLimitPin, sm2BottomLimitPin,
		sm1FaultPin, sm2FaultPin, actuatorFaultPin,
	} {
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}

	// the actuator buttons have external pull-ups
	for _, p := range []machine.Pin{actuatorUpPin, actuatorDownPin} {
		p.Configure(machine.PinConfig{Mode: machine.PinInput})
	}

	for _, p := range []machine.Pin{sm1DirectionPin, sm2DirectionPin, sm1ChipSelectPin, sm2ChipSelectPin} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
	}
}

// newDriver configures a DRV8711 and leaves it disabled. Panel.Setup enables it
func newDriver(cs machine.Pin) *drv8711.Device {
	d := drv8711.New(machine.SPI0, cs)

	steps := []func() error{
		d.Configure,
		func() error { return d.SetCurrentMilliamps(driverCurrentMilliamps) },
		func() error { return d.SetStepMode(driverStepMode) },
		func() error { return d.SetDecayMode(driverDecayMode) },
	}
	for _, step := range steps {
		err := step()
		if err != nil {
			println("error configuring DRV8711:", err.Error())
			return d
		}
	}

	ok, err := d.Verify()
	if err != nil || !ok {
		println("DRV8711 settings did not verify, check power and SPI wiring")
	}

	return d
}

func fatal(msg string) {
	for {
		println(msg)
		time.Sleep(time.Second)
	}
}

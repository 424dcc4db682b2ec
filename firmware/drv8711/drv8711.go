// Package drv8711 is a driver for the TI DRV8711 stepper motor pre-driver using its SPI
// register interface. Steps and direction are driven separately through the STEP/DIR pins.
//
// Datasheet: https://www.ti.com/lit/ds/symlink/drv8711.pdf
package drv8711

import (
	"errors"

	"tinygo.org/x/drivers"
)

var (
	ErrInvalidStepMode  = errors.New("invalid step mode")
	ErrInvalidDecayMode = errors.New("invalid decay mode")
)

// Pin is the chip select output. machine.Pin implements it
type Pin interface {
	Set(bool)
}

// Device is a DRV8711. Register values are cached so single fields can be changed without
// reading the register first
type Device struct {
	bus drivers.SPI
	cs  Pin

	ctrl   uint16
	torque uint16
	off    uint16
	blank  uint16
	decay  uint16
	stall  uint16
	drive  uint16

	tx [2]byte
	rx [2]byte
}

// New returns a new DRV8711 driver. The SPI bus must be configured for mode 0, MSB first,
// at 500kHz or less. The chip select is active high
func New(bus drivers.SPI, cs Pin) *Device {
	d := &Device{bus: bus, cs: cs}
	d.ResetSettings()
	return d
}

// Configure writes the default settings and clears the status register. The driver is
// left disabled
func (d *Device) Configure() error {
	d.cs.Set(false)
	d.ResetSettings()

	err := d.ClearStatus()
	if err != nil {
		return err
	}

	return d.ApplySettings()
}

// ResetSettings resets the cached register values to their defaults without writing them
func (d *Device) ResetSettings() {
	d.ctrl = defaultCTRL
	d.torque = defaultTORQUE
	d.off = defaultOFF
	d.blank = defaultBLANK
	d.decay = defaultDECAY
	d.stall = defaultSTALL
	d.drive = defaultDRIVE
}

// ApplySettings writes every cached register. CTRL is written last since it holds the
// enable bit
func (d *Device) ApplySettings() error {
	regs := []struct {
		reg   Register
		value uint16
	}{
		{TORQUE, d.torque},
		{OFF, d.off},
		{BLANK, d.blank},
		{DECAY, d.decay},
		{DRIVE, d.drive},
		{STALL, d.stall},
		{CTRL, d.ctrl},
	}
	for _, r := range regs {
		err := d.WriteRegister(r.reg, r.value)
		if err != nil {
			return err
		}
	}
	return nil
}

// Verify reads back every register and returns false if any of them do not match the
// cached settings, which usually means the driver lost power or SPI is miswired
func (d *Device) Verify() (bool, error) {
	regs := []struct {
		reg   Register
		value uint16
	}{
		{CTRL, d.ctrl},
		{TORQUE, d.torque &^ torqueWriteOnly},
		{OFF, d.off},
		{BLANK, d.blank},
		{DECAY, d.decay},
		{STALL, d.stall},
		{DRIVE, d.drive},
	}
	for _, r := range regs {
		v, err := d.ReadRegister(r.reg)
		if err != nil {
			return false, err
		}
		if v != r.value {
			return false, nil
		}
	}
	return true, nil
}

// Enable turns on the motor outputs
func (d *Device) Enable() error {
	d.ctrl |= ctrlEnable
	return d.WriteRegister(CTRL, d.ctrl)
}

// Disable turns off the motor outputs so the motor can spin freely
func (d *Device) Disable() error {
	d.ctrl &^= ctrlEnable
	return d.WriteRegister(CTRL, d.ctrl)
}

// Enabled returns the cached enable bit
func (d *Device) Enabled() bool {
	return d.ctrl&ctrlEnable != 0
}

// SetStepMode sets the microstepping mode
func (d *Device) SetStepMode(mode StepMode) error {
	if mode > StepMode256 {
		return ErrInvalidStepMode
	}
	d.ctrl = (d.ctrl &^ ctrlModeMask) | (uint16(mode) << ctrlModeBit)
	return d.WriteRegister(CTRL, d.ctrl)
}

// SetDecayMode sets the current decay mode
func (d *Device) SetDecayMode(mode DecayMode) error {
	if mode > DecayAutoMixed {
		return ErrInvalidDecayMode
	}
	d.decay = (d.decay &^ decayModeMask) | (uint16(mode) << decayModeBit)
	return d.WriteRegister(DECAY, d.decay)
}

// SetCurrentMilliamps sets the full-scale current limit. It assumes the 30mΩ sense
// resistors of the 36v4 carrier board and uses the highest ISGAIN that fits the TORQUE
// field. The value is clamped to 8A
func (d *Device) SetCurrentMilliamps(current uint16) error {
	if current > maxCurrentMilliamps {
		current = maxCurrentMilliamps
	}

	// gain 40
	isgain := uint16(0b11)
	torque := uint16(uint32(768) * uint32(current) / 6875)
	for torque > torqueMask {
		isgain--
		torque >>= 1
	}

	d.ctrl = (d.ctrl &^ ctrlISGAINMask) | (isgain << ctrlISGAIN)
	err := d.WriteRegister(CTRL, d.ctrl)
	if err != nil {
		return err
	}

	d.torque = (d.torque &^ torqueMask) | torque
	return d.WriteRegister(TORQUE, d.torque)
}

// ReadStatus reads the STATUS register
func (d *Device) ReadStatus() (Status, error) {
	v, err := d.ReadRegister(STATUS)
	return Status(v), err
}

// ClearStatus clears every latched status bit
func (d *Device) ClearStatus() error {
	return d.WriteRegister(STATUS, 0)
}

// ClearFaults clears the bits that pull nFAULT low and leaves the stall bits alone.
// Writing 1 to a STATUS bit has no effect
func (d *Device) ClearFaults() error {
	return d.WriteRegister(STATUS, ^uint16(faultStatus)&dataMask)
}

// FaultReport returns the set STATUS bits, or an empty string when none are set
func (d *Device) FaultReport() (string, error) {
	s, err := d.ReadStatus()
	if err != nil {
		return "", err
	}
	if s == 0 {
		return "", nil
	}
	return s.String(), nil
}

// WriteRegister writes the low 12 bits of value to reg
func (d *Device) WriteRegister(reg Register, value uint16) error {
	_, err := d.transfer(uint16(reg&0b111)<<addressShift | value&dataMask)
	if err != nil {
		return errors.New("error writing register: " + err.Error())
	}
	return nil
}

// ReadRegister reads the 12 data bits of reg
func (d *Device) ReadRegister(reg Register) (uint16, error) {
	v, err := d.transfer(readFlag | uint16(reg&0b111)<<addressShift)
	if err != nil {
		return 0, errors.New("error reading register: " + err.Error())
	}
	return v & dataMask, nil
}

func (d *Device) transfer(frame uint16) (uint16, error) {
	d.tx[0] = byte(frame >> 8)
	d.tx[1] = byte(frame)

	d.cs.Set(true)
	err := d.bus.Tx(d.tx[:], d.rx[:])
	d.cs.Set(false)
	if err != nil {
		return 0, err
	}

	return uint16(d.rx[0])<<8 | uint16(d.rx[1]), nil
}

package drv8711

import "strings"

// Register is a DRV8711 register address
type Register uint8

const (
	CTRL   Register = 0x00
	TORQUE Register = 0x01
	OFF    Register = 0x02
	BLANK  Register = 0x03
	DECAY  Register = 0x04
	STALL  Register = 0x05
	DRIVE  Register = 0x06
	STATUS Register = 0x07
)

// Register defaults after a reset of the cached settings
const (
	defaultCTRL   uint16 = 0xC10 // DTIME 850ns, ISGAIN 5, 1/4 step, disabled
	defaultTORQUE uint16 = 0x1FF // SMPLTH 100us
	defaultOFF    uint16 = 0x030
	defaultBLANK  uint16 = 0x080
	defaultDECAY  uint16 = 0x110 // slow decay on increasing current, mixed on decreasing
	defaultSTALL  uint16 = 0x040
	defaultDRIVE  uint16 = 0xA59
)

const (
	readFlag     uint16 = 1 << 15
	dataMask     uint16 = 0x0FFF
	addressShift        = 12

	ctrlEnable     uint16 = 1 << 0
	ctrlModeBit           = 3
	ctrlModeMask   uint16 = 0b1111 << ctrlModeBit
	ctrlISGAIN            = 8
	ctrlISGAINMask uint16 = 0b11 << ctrlISGAIN

	torqueMask uint16 = 0xFF

	// torqueWriteOnly is write-only and always reads back as 0
	torqueWriteOnly uint16 = 1 << 10

	decayModeBit         = 8
	decayModeMask uint16 = 0b111 << decayModeBit

	maxCurrentMilliamps = 8000
)

// StepMode is the microstepping mode in the CTRL register
type StepMode uint16

const (
	StepModeFull StepMode = iota
	StepMode2
	StepMode4
	StepMode8
	StepMode16
	StepMode32
	StepMode64
	StepMode128
	StepMode256
)

// DecayMode is the current decay mode in the DECAY register
type DecayMode uint16

const (
	DecaySlow DecayMode = iota
	DecaySlowIncMixedDec
	DecayFast
	DecayMixed
	DecaySlowIncAutoMixedDec
	DecayAutoMixed
)

// Status is the STATUS register. Every bit is latched until cleared
type Status uint16

const (
	StatusOTS    Status = 1 << iota // overtemperature shutdown
	StatusAOCP                      // channel A overcurrent shutdown
	StatusBOCP                      // channel B overcurrent shutdown
	StatusAPDF                      // channel A predriver fault
	StatusBPDF                      // channel B predriver fault
	StatusUVLO                      // undervoltage lockout
	StatusSTD                       // stall detected
	StatusSTDLAT                    // latched stall detect
)

// faultStatus are the bits that also pull nFAULT low
const faultStatus = StatusOTS | StatusAOCP | StatusBOCP | StatusAPDF | StatusBPDF | StatusUVLO

var statusNames = []struct {
	bit  Status
	name string
}{
	{StatusOTS, "OTS"},
	{StatusAOCP, "AOCP"},
	{StatusBOCP, "BOCP"},
	{StatusAPDF, "APDF"},
	{StatusBPDF, "BPDF"},
	{StatusUVLO, "UVLO"},
	{StatusSTD, "STD"},
	{StatusSTDLAT, "STDLAT"},
}

// Faulted is true if any bit that pulls nFAULT low is set
func (s Status) Faulted() bool {
	return s&faultStatus != 0
}

// String lists the set bits, or "ok" when none are set
func (s Status) String() string {
	var set []string
	for _, n := range statusNames {
		if s&n.bit != 0 {
			set = append(set, n.name)
		}
	}
	if len(set) == 0 {
		return "ok"
	}
	return strings.Join(set, " ")
}

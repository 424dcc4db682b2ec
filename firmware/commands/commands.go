package commands

import (
	"errors"
	"io"

	"github.com/calvinmclean/jogpanel"
	"github.com/calvinmclean/jogpanel/firmware/device"

	"tinygo.org/x/drivers"
)

type Command struct {
	Flag        byte
	InputSize   uint
	Run         func(Controller, io.Writer, []byte) error
	Description string
}

// Controller is used to control a device
type Controller interface {
	Jog(jogpanel.Axis, jogpanel.Direction) (device.JogResult, error)
	EmergencyStop()
	Reset() error
	Debug()
	FaultReport()
	Verbose()
}

var (
	JogCommand = &Command{
		Flag:      jogpanel.FlagJog,
		InputSize: 2,
		Run: func(c Controller, _ io.Writer, input []byte) error {
			axis, err := jogpanel.AxisFromByte(input[0])
			if err != nil {
				return errors.New("invalid input: " + string(input))
			}
			dir, err := jogpanel.DirectionFromByte(input[1])
			if err != nil || dir == jogpanel.DirectionNone {
				return errors.New("invalid input: " + string(input))
			}

			_, err = c.Jog(axis, dir)
			return err
		},
		Description: "Jog an axis once. Input: '1', '2' or 'A', then '+' or '-'.",
	}
	EmergencyStopCommand = &Command{
		Flag:      jogpanel.FlagEmergencyStop,
		InputSize: 0,
		Run: func(c Controller, _ io.Writer, _ []byte) error {
			c.EmergencyStop()
			c.Debug()
			return nil
		},
		Description: "Stop all motion. Reset is required to continue.",
	}
	ResetCommand = &Command{
		Flag:      jogpanel.FlagReset,
		InputSize: 0,
		Run: func(c Controller, _ io.Writer, _ []byte) error {
			return c.Reset()
		},
		Description: "Clear the emergency stop and fault latches and enable the drivers.",
	}
	DebugCommand = &Command{
		Flag:      jogpanel.FlagDebug,
		InputSize: 0,
		Run: func(c Controller, _ io.Writer, _ []byte) error {
			c.Debug()
			return nil
		},
		Description: "Print the current state.",
	}
	FaultsCommand = &Command{
		Flag:      jogpanel.FlagFaults,
		InputSize: 0,
		Run: func(c Controller, _ io.Writer, _ []byte) error {
			c.FaultReport()
			return nil
		},
		Description: "Print the fault pins and driver status registers.",
	}
	VerboseCommand = &Command{
		Flag:      jogpanel.FlagVerbose,
		InputSize: 0,
		Run: func(c Controller, _ io.Writer, _ []byte) error {
			c.Verbose()
			return nil
		},
		Description: "Enable verbose output.",
	}
	HelpCommand = &Command{
		Flag:        jogpanel.FlagHelp,
		InputSize:   0,
		Description: "Show all available commands and their descriptions.",
		Run: func(_ Controller, w io.Writer, _ []byte) error {
			_, _ = io.WriteString(w, "Available Commands:\r\n")
			for _, cmd := range commands {
				_, _ = io.WriteString(w, flagStr(cmd.Flag)+": "+cmd.Description+"\r\n")
			}
			return nil
		},
	}
)

var commands = []*Command{
	JogCommand,
	EmergencyStopCommand,
	ResetCommand,
	DebugCommand,
	FaultsCommand,
	VerboseCommand,
}

func flagStr(f byte) string {
	if f >= 32 && f <= 126 {
		return string(f)
	}
	return "0x" + string("0123456789ABCDEF"[(f>>4)&0xF]) + string("0123456789ABCDEF"[f&0xF])
}

// maxQueued is how many bytes EmergencyRequested holds for Poll while a jog is running
const maxQueued = 64

// Handler reads commands from a UART without blocking. Input is assembled across calls to
// Poll so it can run between iterations of the main loop
type Handler struct {
	uart   drivers.UART
	cmdMap map[byte]*Command

	current *Command
	input   []byte
	// discarding skips the rest of a line after an unknown command
	discarding bool

	queued []byte
	buf    [1]byte
}

func NewHandler(uart drivers.UART) *Handler {
	h := &Handler{
		uart: uart,
		cmdMap: map[byte]*Command{
			HelpCommand.Flag: HelpCommand,
		},
		queued: make([]byte, 0, maxQueued),
	}
	for _, cmd := range commands {
		h.cmdMap[cmd.Flag] = cmd
	}
	return h
}

// Poll handles the bytes that are already buffered and returns when there are none left.
// Every command that runs is followed by TerminationChar
func (h *Handler) Poll(c Controller) {
	for len(h.queued) > 0 {
		b := h.queued[0]
		h.queued = append(h.queued[:0], h.queued[1:]...)
		h.handleByte(c, b)
	}

	for h.uart.Buffered() > 0 {
		n, err := h.uart.Read(h.buf[:])
		if err != nil || n == 0 {
			return
		}
		h.handleByte(c, h.buf[0])
	}
}

// EmergencyRequested moves buffered input into the queue and reports whether it has an
// emergency stop command. It is used while a command is running so an E received during
// a jog stops it. The queued bytes are still handled by the next Poll
func (h *Handler) EmergencyRequested() bool {
	for len(h.queued) < maxQueued && h.uart.Buffered() > 0 {
		n, err := h.uart.Read(h.buf[:])
		if err != nil || n == 0 {
			break
		}
		h.queued = append(h.queued, h.buf[0])
	}

	for _, b := range h.queued {
		if b == jogpanel.FlagEmergencyStop {
			return true
		}
	}
	return false
}

func (h *Handler) handleByte(c Controller, b byte) {
	if h.discarding {
		if b == '\n' {
			h.discarding = false
		}
		return
	}

	if h.current == nil {
		switch b {
		case '\r', '\n', ' ', '\t':
			return
		}

		cmd, ok := h.cmdMap[b]
		if !ok {
			h.discarding = true
			h.finish(errors.New("unknown command: " + flagStr(b)))
			return
		}
		h.current = cmd
		h.input = h.input[:0]
	} else {
		h.input = append(h.input, b)
	}

	if uint(len(h.input)) < h.current.InputSize {
		return
	}

	cmd := h.current
	h.current = nil
	h.finish(cmd.Run(c, h.uart, h.input))
}

func (h *Handler) finish(err error) {
	if err != nil {
		_, _ = io.WriteString(h.uart, "error: "+err.Error()+"\r\n")
	}
	_, _ = h.uart.Write([]byte{jogpanel.TerminationChar})
}

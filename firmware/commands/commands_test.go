package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/calvinmclean/jogpanel"
	"github.com/calvinmclean/jogpanel/firmware/device"
)

type fakeUART struct {
	in  bytes.Buffer
	out bytes.Buffer
}

func (u *fakeUART) Read(p []byte) (int, error)  { return u.in.Read(p) }
func (u *fakeUART) Write(p []byte) (int, error) { return u.out.Write(p) }
func (u *fakeUART) Buffered() int               { return u.in.Len() }

type fakeController struct {
	calls    []string
	jogErr   error
	resetErr error
}

func (c *fakeController) Jog(a jogpanel.Axis, d jogpanel.Direction) (device.JogResult, error) {
	c.calls = append(c.calls, "jog "+a.String()+" "+d.String())
	return device.JogCompleted, c.jogErr
}

func (c *fakeController) EmergencyStop() { c.calls = append(c.calls, "estop") }
func (c *fakeController) Debug()         { c.calls = append(c.calls, "debug") }
func (c *fakeController) FaultReport()   { c.calls = append(c.calls, "faults") }
func (c *fakeController) Verbose()       { c.calls = append(c.calls, "verbose") }

func (c *fakeController) Reset() error {
	c.calls = append(c.calls, "reset")
	return c.resetErr
}

const eot = string(rune(jogpanel.TerminationChar))

func TestPoll(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		jogErr        error
		resetErr      error
		expectedCalls []string
		expectedOut   string
	}{
		{
			"Jog",
			"J1+",
			nil, nil,
			[]string{"jog sm1 cw"},
			eot,
		},
		{
			"JogActuatorWithNewline",
			"JA-\r\n",
			nil, nil,
			[]string{"jog act ccw"},
			eot,
		},
		{
			"MultipleCommands",
			"J2-DFV",
			nil, nil,
			[]string{"jog sm2 ccw", "debug", "faults", "verbose"},
			eot + eot + eot + eot,
		},
		{
			"EmergencyStopPrintsState",
			"E",
			nil, nil,
			[]string{"estop", "debug"},
			eot,
		},
		{
			"JogError",
			"J1+",
			device.ErrStopped, nil,
			[]string{"jog sm1 cw"},
			"error: " + device.ErrStopped.Error() + "\r\n" + eot,
		},
		{
			"ResetError",
			"R",
			nil, device.ErrEmergencyHeld,
			[]string{"reset"},
			"error: " + device.ErrEmergencyHeld.Error() + "\r\n" + eot,
		},
		{
			"InvalidAxis",
			"J9+",
			nil, nil,
			nil,
			"error: invalid input: 9+\r\n" + eot,
		},
		{
			"InvalidDirection",
			"J10",
			nil, nil,
			nil,
			"error: invalid input: 10\r\n" + eot,
		},
		{
			"UnknownCommand",
			"x",
			nil, nil,
			nil,
			"error: unknown command: x\r\n" + eot,
		},
		{
			"UnknownCommandSkipsRestOfLine",
			"xyD\nD",
			nil, nil,
			[]string{"debug"},
			"error: unknown command: x\r\n" + eot + eot,
		},
		{
			"UnknownControlByte",
			"\x1b",
			nil, nil,
			nil,
			"error: unknown command: 0x1B\r\n" + eot,
		},
		{
			"IncompleteCommandWaits",
			"J1",
			nil, nil,
			nil,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uart := &fakeUART{}
			uart.in.WriteString(tt.input)
			c := &fakeController{jogErr: tt.jogErr, resetErr: tt.resetErr}

			h := NewHandler(uart)
			h.Poll(c)

			if strings.Join(c.calls, ",") != strings.Join(tt.expectedCalls, ",") {
				t.Errorf("unexpected calls: expected %v, got %v", tt.expectedCalls, c.calls)
			}
			if uart.out.String() != tt.expectedOut {
				t.Errorf("unexpected output: expected %q, got %q", tt.expectedOut, uart.out.String())
			}
		})
	}
}

func TestPollPartialInput(t *testing.T) {
	uart := &fakeUART{}
	c := &fakeController{}
	h := NewHandler(uart)

	for _, b := range []byte("J2+") {
		if uart.out.Len() != 0 {
			t.Fatalf("unexpected output before command completed: %q", uart.out.String())
		}
		uart.in.WriteByte(b)
		h.Poll(c)
	}

	if len(c.calls) != 1 || c.calls[0] != "jog sm2 cw" {
		t.Errorf("unexpected calls: %v", c.calls)
	}
	if uart.out.String() != eot {
		t.Errorf("expected termination char, got %q", uart.out.String())
	}

	// nothing buffered
	h.Poll(c)
	if len(c.calls) != 1 {
		t.Errorf("unexpected calls: %v", c.calls)
	}
}

func TestHelp(t *testing.T) {
	uart := &fakeUART{}
	uart.in.WriteString("H")

	NewHandler(uart).Poll(&fakeController{})

	out := uart.out.String()
	if !strings.HasPrefix(out, "Available Commands:\r\n") {
		t.Errorf("unexpected help output: %q", out)
	}
	for _, cmd := range commands {
		if !strings.Contains(out, string(cmd.Flag)+": "+cmd.Description) {
			t.Errorf("missing help for %q", cmd.Flag)
		}
	}
	if strings.Count(out, eot) != 1 || !strings.HasSuffix(out, eot) {
		t.Errorf("expected one termination char at the end: %q", out)
	}
}

func TestInputSizesMatchHost(t *testing.T) {
	h := NewHandler(&fakeUART{})
	for flag, cmd := range h.cmdMap {
		size, ok := jogpanel.InputSize(flag)
		if !ok {
			t.Errorf("host does not know command %q", flag)
			continue
		}
		if size != cmd.InputSize {
			t.Errorf("input size for %q: expected %d, got %d", flag, cmd.InputSize, size)
		}
	}
}

func TestPollDiscardAcrossCalls(t *testing.T) {
	uart := &fakeUART{}
	c := &fakeController{}
	h := NewHandler(uart)

	uart.in.WriteString("xy")
	h.Poll(c)
	uart.in.WriteString("z\nD")
	h.Poll(c)

	if strings.Join(c.calls, ",") != "debug" {
		t.Errorf("unexpected calls: %v", c.calls)
	}
	if uart.out.String() != "error: unknown command: x\r\n"+eot+eot {
		t.Errorf("unexpected output: %q", uart.out.String())
	}
}

func TestEmergencyRequested(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expected      bool
		expectedCalls []string
	}{
		{"Empty", "", false, nil},
		{"OtherCommands", "D\n", false, []string{"debug"}},
		{"EmergencyStop", "E\n", true, []string{"estop", "debug"}},
		{"EmergencyStopAfterOthers", "D\nE\n", true, []string{"debug", "estop", "debug"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uart := &fakeUART{}
			uart.in.WriteString(tt.input)
			h := NewHandler(uart)

			if got := h.EmergencyRequested(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
			if uart.in.Len() != 0 {
				t.Errorf("expected input to be queued, %d bytes left", uart.in.Len())
			}

			// queued commands still run in order
			c := &fakeController{}
			h.Poll(c)
			if strings.Join(c.calls, ",") != strings.Join(tt.expectedCalls, ",") {
				t.Errorf("unexpected calls: expected %v, got %v", tt.expectedCalls, c.calls)
			}
			if got := strings.Count(uart.out.String(), eot); got != len(strings.Fields(tt.input)) {
				t.Errorf("expected one termination char per command, got %d", got)
			}
		})
	}
}

func TestEmergencyRequestedQueueLimit(t *testing.T) {
	uart := &fakeUART{}
	uart.in.WriteString(strings.Repeat("D", maxQueued) + "E")
	h := NewHandler(uart)

	if h.EmergencyRequested() {
		t.Error("expected E past the queue limit to stay buffered")
	}
	if uart.in.Len() != 1 {
		t.Errorf("expected 1 byte left in the UART, got %d", uart.in.Len())
	}

	c := &fakeController{}
	h.Poll(c)
	if len(c.calls) != maxQueued+2 || c.calls[maxQueued] != "estop" {
		t.Errorf("unexpected calls after poll: %d", len(c.calls))
	}
}

func TestFlagStr(t *testing.T) {
	if flagStr('J') != "J" {
		t.Errorf("unexpected flag string %q", flagStr('J'))
	}
	if flagStr(0x04) != "0x04" {
		t.Errorf("unexpected flag string %q", flagStr(0x04))
	}
}

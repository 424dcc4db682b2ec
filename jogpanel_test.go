package jogpanel

import (
	"errors"
	"testing"
)

func TestAxisText(t *testing.T) {
	tests := []struct {
		in       string
		expected Axis
		err      error
	}{
		{"sm1", AxisStepper1, nil},
		{"2", AxisStepper2, nil},
		{"actuator", AxisActuator, nil},
		{"sm3", AxisUnknown, ErrUnknownAxis},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var a Axis
			err := a.UnmarshalText([]byte(tt.in))
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected err=%v, got %v", tt.err, err)
			}
			if a != tt.expected {
				t.Errorf("expected=%v, got=%v", tt.expected, a)
			}
		})
	}
}

func TestAxisByteRoundTrip(t *testing.T) {
	for _, a := range Axes {
		got, err := AxisFromByte(a.Byte())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != a {
			t.Errorf("expected=%v, got=%v", a, got)
		}
	}

	_, err := AxisFromByte('x')
	if !errors.Is(err, ErrUnknownAxis) {
		t.Errorf("expected ErrUnknownAxis, got %v", err)
	}
}

func TestDirection(t *testing.T) {
	if DirectionCW.Inverted() != DirectionCCW || DirectionCCW.Inverted() != DirectionCW {
		t.Error("CW and CCW should invert to each other")
	}
	if DirectionNone.Inverted() != DirectionNone {
		t.Error("None should stay None")
	}

	var d Direction
	if err := d.UnmarshalText([]byte("up")); err != nil || d != DirectionCW {
		t.Errorf("expected up to parse as cw, got %v (%v)", d, err)
	}
	if _, err := DirectionFromByte('0'); !errors.Is(err, ErrUnknownDirection) {
		t.Errorf("expected ErrUnknownDirection, got %v", err)
	}
	if _, err := DirectionNone.MarshalText(); !errors.Is(err, ErrUnknownDirection) {
		t.Errorf("expected ErrUnknownDirection, got %v", err)
	}
}

func TestJogCommand(t *testing.T) {
	got := string(JogCommand(AxisStepper2, DirectionCCW))
	if got != "J2-" {
		t.Errorf("expected=%q, got=%q", "J2-", got)
	}
}

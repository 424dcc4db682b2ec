package controller

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/calvinmclean/jogpanel"
)

func TestParseSequence(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expected      Sequence
		expectedError string
	}{
		{
			"Valid",
			`name: lower
steps:
  - axis: sm1
    direction: ccw
    repeat: 3
    pause: 500ms
  - axis: act
    direction: up
`,
			Sequence{
				Name: "lower",
				Steps: []Step{
					{jogpanel.AxisStepper1, jogpanel.DirectionCCW, 3, 500 * time.Millisecond},
					{jogpanel.AxisActuator, jogpanel.DirectionCW, 1, 0},
				},
			},
			"",
		},
		{
			"ConsoleBytes",
			`steps:
  - axis: "2"
    direction: "+"
`,
			Sequence{
				Steps: []Step{
					{jogpanel.AxisStepper2, jogpanel.DirectionCW, 1, 0},
				},
			},
			"",
		},
		{
			"NoSteps",
			"name: empty\n",
			Sequence{},
			"sequence has no steps",
		},
		{
			"UnknownAxis",
			"steps:\n  - axis: sm3\n    direction: cw\n",
			Sequence{},
			"unknown axis",
		},
		{
			"MissingDirection",
			"steps:\n  - axis: sm1\n",
			Sequence{},
			"step 1: unknown direction",
		},
		{
			"NegativeRepeat",
			"steps:\n  - axis: sm1\n    direction: cw\n    repeat: -1\n",
			Sequence{},
			"step 1: repeat must not be negative",
		},
		{
			"InvalidPause",
			"steps:\n  - axis: sm1\n    direction: cw\n    pause: soon\n",
			Sequence{},
			"error parsing sequence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := ParseSequence([]byte(tt.input))
			if tt.expectedError != "" {
				if err == nil || !strings.Contains(err.Error(), tt.expectedError) {
					t.Fatalf("expected error containing %q, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if seq.Name != tt.expected.Name || len(seq.Steps) != len(tt.expected.Steps) {
				t.Fatalf("expected %+v, got %+v", tt.expected, seq)
			}
			for i := range seq.Steps {
				if seq.Steps[i] != tt.expected.Steps[i] {
					t.Errorf("step %d: expected %+v, got %+v", i, tt.expected.Steps[i], seq.Steps[i])
				}
			}
		})
	}
}

func TestLoadSequence(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "seq.yaml")
	err := os.WriteFile(filename, []byte("steps:\n  - axis: sm2\n    direction: cw\n"), 0o600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seq, err := LoadSequence(filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seq.Steps) != 1 || seq.Steps[0].Axis != jogpanel.AxisStepper2 {
		t.Errorf("unexpected sequence: %+v", seq)
	}

	_, err = LoadSequence(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRunSequence(t *testing.T) {
	seq := Sequence{
		Steps: []Step{
			{jogpanel.AxisStepper1, jogpanel.DirectionCW, 2, time.Millisecond},
			{jogpanel.AxisActuator, jogpanel.DirectionCCW, 1, 0},
		},
	}

	t.Run("Completed", func(t *testing.T) {
		d, c := newFakeDevice(t, map[string]string{
			"J1+": "[2s] JOG sm1 cw done 2s\r\n",
			"JA-": "[4s] JOG act ccw done 500ms\r\n",
		})

		var out bytes.Buffer
		err := c.RunSequence(context.Background(), seq, &out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Join(d.commands(), ",") != "J1+,J1+,JA-" {
			t.Errorf("unexpected commands: %v", d.commands())
		}
		if strings.Count(out.String(), "JOG") != 3 {
			t.Errorf("unexpected output: %q", out.String())
		}
	})

	t.Run("LimitContinues", func(t *testing.T) {
		d, c := newFakeDevice(t, map[string]string{
			"J1+": "[0s] JOG sm1 cw limit 0s\r\n",
		})

		err := c.RunSequence(context.Background(), seq, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(d.commands()) != 3 {
			t.Errorf("unexpected commands: %v", d.commands())
		}
	})

	t.Run("StopsWhenHalted", func(t *testing.T) {
		d, c := newFakeDevice(t, map[string]string{
			"J1+": "[1s] JOG sm1 cw halted 300ms\r\n",
		})

		err := c.RunSequence(context.Background(), seq, &bytes.Buffer{})
		if !errors.Is(err, ErrSequenceStopped) {
			t.Fatalf("expected stopped error, got %v", err)
		}
		if strings.Join(d.commands(), ",") != "J1+" {
			t.Errorf("unexpected commands: %v", d.commands())
		}
	})

	t.Run("StopsOnError", func(t *testing.T) {
		d, c := newFakeDevice(t, map[string]string{
			"J1+": "error: panel is stopped, reset to continue\r\n",
		})

		err := c.RunSequence(context.Background(), seq, &bytes.Buffer{})
		if !errors.Is(err, ErrSequenceStopped) {
			t.Fatalf("expected stopped error, got %v", err)
		}
		if !strings.Contains(err.Error(), "panel is stopped") {
			t.Errorf("unexpected error: %v", err)
		}
		if len(d.commands()) != 1 {
			t.Errorf("unexpected commands: %v", d.commands())
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		d, c := newFakeDevice(t, map[string]string{})
		d.silent["J1+"] = true

		err := c.RunSequence(context.Background(), seq, &bytes.Buffer{})
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected timeout, got %v", err)
		}
	})
}

package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/calvinmclean/jogpanel"
)

var ErrSequenceStopped = errors.New("sequence stopped")

// Step is one entry of a Sequence. The jog is sent Repeat times with Pause between them
type Step struct {
	Axis      jogpanel.Axis      `yaml:"axis"`
	Direction jogpanel.Direction `yaml:"direction"`
	Repeat    int                `yaml:"repeat"`
	Pause     time.Duration      `yaml:"pause"`
}

// Sequence is a list of jogs loaded from YAML:
//
//	name: lower both
//	steps:
//	  - axis: sm1
//	    direction: ccw
//	    repeat: 3
//	    pause: 500ms
type Sequence struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// LoadSequence reads and parses a Sequence file
func LoadSequence(filename string) (Sequence, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Sequence{}, fmt.Errorf("error reading sequence file: %w", err)
	}
	return ParseSequence(data)
}

// ParseSequence parses and validates a YAML Sequence
func ParseSequence(data []byte) (Sequence, error) {
	var seq Sequence
	err := yaml.Unmarshal(data, &seq)
	if err != nil {
		return Sequence{}, fmt.Errorf("error parsing sequence: %w", err)
	}

	if len(seq.Steps) == 0 {
		return Sequence{}, errors.New("sequence has no steps")
	}

	for i := range seq.Steps {
		s := &seq.Steps[i]
		switch {
		case s.Axis == jogpanel.AxisUnknown:
			return Sequence{}, fmt.Errorf("step %d: %w", i+1, jogpanel.ErrUnknownAxis)
		case s.Direction == jogpanel.DirectionNone:
			return Sequence{}, fmt.Errorf("step %d: %w", i+1, jogpanel.ErrUnknownDirection)
		case s.Repeat < 0:
			return Sequence{}, fmt.Errorf("step %d: repeat must not be negative", i+1)
		case s.Pause < 0:
			return Sequence{}, fmt.Errorf("step %d: pause must not be negative", i+1)
		}
		if s.Repeat == 0 {
			s.Repeat = 1
		}
	}

	return seq, nil
}

// RunSequence sends every jog in order and writes the device output to out. It stops at
// the first jog that was halted or returned an error
func (c *Controller) RunSequence(ctx context.Context, seq Sequence, out io.Writer) error {
	for i, step := range seq.Steps {
		for n := range step.Repeat {
			lines, err := c.Send(ctx, jogpanel.JogCommand(step.Axis, step.Direction))
			for _, line := range lines {
				_, _ = fmt.Fprintln(out, line)
			}
			if err != nil {
				return fmt.Errorf("step %d: error sending jog: %w", i+1, err)
			}

			reason, stopped := stopReason(lines)
			if stopped {
				return fmt.Errorf("%w at step %d: %s", ErrSequenceStopped, i+1, reason)
			}

			last := i == len(seq.Steps)-1 && n == step.Repeat-1
			if step.Pause > 0 && !last {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(step.Pause):
				}
			}
		}
	}
	return nil
}

// stopReason looks for an error or a halted jog in the device output
func stopReason(lines []string) (string, bool) {
	for _, line := range lines {
		if strings.HasPrefix(line, "error:") {
			return line, true
		}

		fields := strings.Fields(line)
		for i, f := range fields {
			if f == "JOG" && i+3 < len(fields) && fields[i+3] == "halted" {
				return line, true
			}
		}
	}
	return "", false
}

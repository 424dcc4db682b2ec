package controller

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/calvinmclean/jogpanel"
)

var (
	ErrTimeout           = errors.New("timed out waiting for command to complete")
	ErrClosed            = errors.New("controller is closed")
	ErrIncompleteCommand = errors.New("incomplete command")
)

// Controller sends console commands to the panel over a serial connection. One goroutine
// reads everything the device writes. The device answers commands in order and ends each
// answer with TerminationChar, so replies are matched to commands with a FIFO queue.
// Lines are collected for the command at the front of the queue and copied to the monitor
// writer set by Run
type Controller struct {
	port io.ReadWriteCloser
	cfg  Config

	// writeMtx keeps the queue in the same order as the bytes written to the port
	writeMtx sync.Mutex

	mtx     sync.Mutex
	queue   []*response
	monitor io.Writer

	done    chan struct{}
	readErr error
}

// response is the reply to one write. remaining counts the TerminationChars still
// expected. Abandoned responses stay queued so their late output is not given to the
// next command
type response struct {
	lines     []string
	remaining int
	abandoned bool
	complete  chan struct{}
}

// NewFromEnv creates a Controller using the Config from environment variables
func NewFromEnv() (*Controller, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// New opens the configured serial port. If SerialPort is empty, the first USB serial port
// is used
func New(cfg Config) (*Controller, error) {
	if cfg.SerialPort == SerialPortNone {
		return NewWithPort(newNoopPort(), cfg), nil
	}

	port, err := openSerial(cfg)
	if err != nil {
		return nil, err
	}

	return NewWithPort(port, cfg), nil
}

// NewWithPort creates a Controller that uses an already opened connection
func NewWithPort(port io.ReadWriteCloser, cfg Config) *Controller {
	c := &Controller{
		port: port,
		cfg:  cfg,
		done: make(chan struct{}),
	}
	go c.read()
	return c
}

// Close closes the serial port
func (c *Controller) Close() error {
	return c.port.Close()
}

// Done is closed when the connection stops producing output
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Send writes a command line and waits for the device to finish every command in it. It
// returns the lines the device printed while running them. A newline is added if cmd does
// not end with one
func (c *Controller) Send(ctx context.Context, cmd []byte) ([]string, error) {
	select {
	case <-c.done:
		return nil, c.closedErr()
	default:
	}

	if len(cmd) == 0 || cmd[len(cmd)-1] != '\n' {
		cmd = append(cmd[:len(cmd):len(cmd)], '\n')
	}

	replies, err := countReplies(cmd)
	if err != nil {
		return nil, err
	}
	if replies == 0 {
		return nil, nil
	}

	resp := &response{remaining: replies, complete: make(chan struct{})}
	err = c.write(resp, cmd)
	if err != nil {
		return nil, fmt.Errorf("error writing command: %w", err)
	}

	timer := time.NewTimer(c.cfg.commandTimeout())
	defer timer.Stop()

	select {
	case <-resp.complete:
		return resp.lines, nil
	case <-timer.C:
		return c.abandon(resp), ErrTimeout
	case <-ctx.Done():
		return c.abandon(resp), ctx.Err()
	case <-c.done:
		return c.abandon(resp), c.closedErr()
	}
}

// EmergencyStop writes the emergency stop command without waiting for commands that are
// in progress. The device reads it during jogs. Its output is only shown on the monitor
func (c *Controller) EmergencyStop() error {
	resp := &response{remaining: 1, abandoned: true, complete: make(chan struct{})}
	err := c.write(resp, []byte{jogpanel.FlagEmergencyStop, '\n'})
	if err != nil {
		return fmt.Errorf("error writing emergency stop: %w", err)
	}
	return nil
}

func (c *Controller) write(resp *response, cmd []byte) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()

	c.mtx.Lock()
	c.queue = append(c.queue, resp)
	c.mtx.Unlock()

	_, err := c.port.Write(cmd)
	if err != nil {
		c.remove(resp)
	}
	return err
}

// countReplies is the number of TerminationChars the console writes for cmd. The console
// answers every command and every unknown byte, and skips the rest of the line after an
// unknown byte
func countReplies(cmd []byte) (int, error) {
	n := 0
	for i := 0; i < len(cmd); i++ {
		switch cmd[i] {
		case '\r', '\n', ' ', '\t':
			continue
		}

		n++
		size, ok := jogpanel.InputSize(cmd[i])
		if !ok {
			for i < len(cmd) && cmd[i] != '\n' {
				i++
			}
			continue
		}
		if i+int(size) >= len(cmd) {
			return 0, fmt.Errorf("%w: %q", ErrIncompleteCommand, cmd[i:])
		}
		i += int(size)
	}
	return n, nil
}

// Run sends each line from in to the device as a command and writes everything the device
// prints to out, including output from the panel buttons. It returns when in is exhausted,
// the context is cancelled, or the connection ends
func (c *Controller) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	c.mtx.Lock()
	c.monitor = out
	c.mtx.Unlock()

	defer func() {
		c.mtx.Lock()
		c.monitor = nil
		c.mtx.Unlock()
	}()

	inputErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			_, err := c.Send(ctx, []byte(line+"\n"))
			switch {
			case err == nil:
			case errors.Is(err, ErrTimeout), errors.Is(err, ErrIncompleteCommand):
				c.mtx.Lock()
				_, _ = fmt.Fprintf(out, "error: %q: %v\n", line, err)
				c.mtx.Unlock()
			default:
				inputErr <- err
				return
			}
		}
		inputErr <- scanner.Err()
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-inputErr:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-c.done:
		if errors.Is(c.readErr, io.EOF) {
			return nil
		}
		return c.readErr
	}
}

func (c *Controller) read() {
	defer close(c.done)

	reader := bufio.NewReader(c.port)
	var line strings.Builder
	for {
		b, err := reader.ReadByte()
		if err != nil {
			c.readErr = err
			return
		}

		switch b {
		case '\r':
		case '\n':
			c.handleLine(line.String())
			line.Reset()
		case jogpanel.TerminationChar:
			if line.Len() > 0 {
				c.handleLine(line.String())
				line.Reset()
			}
			c.complete()
		case 0:
		default:
			line.WriteByte(b)
		}
	}
}

func (c *Controller) handleLine(line string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if len(c.queue) > 0 && !c.queue[0].abandoned {
		c.queue[0].lines = append(c.queue[0].lines, line)
	}
	if c.monitor != nil {
		_, _ = fmt.Fprintln(c.monitor, line)
	}
}

func (c *Controller) complete() {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if len(c.queue) == 0 {
		return
	}

	resp := c.queue[0]
	resp.remaining--
	if resp.remaining > 0 {
		return
	}
	close(resp.complete)
	c.queue = c.queue[1:]
}

// abandon stops collecting output for resp and returns what was collected
func (c *Controller) abandon(resp *response) []string {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	resp.abandoned = true
	return append([]string(nil), resp.lines...)
}

func (c *Controller) remove(resp *response) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for i, r := range c.queue {
		if r == resp {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return
		}
	}
}

func (c *Controller) closedErr() error {
	if c.readErr == nil || errors.Is(c.readErr, io.EOF) || errors.Is(c.readErr, io.ErrClosedPipe) {
		return ErrClosed
	}
	return fmt.Errorf("%w: %w", ErrClosed, c.readErr)
}

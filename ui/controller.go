package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/calvinmclean/jogpanel"
)

const commandQueueSize = 16

// Connection is where the jog pad sends console commands. Lines written to it wait for
// the commands ahead of them. EmergencyStop is written to the device right away
type Connection interface {
	io.Writer
	EmergencyStop() error
}

// controllerWrapper queues console commands for the buttons. Each line is sent to the
// device by controller.Run, which waits for every command to finish, so writes happen
// off the UI goroutine
type controllerWrapper struct {
	conn         Connection
	commands     chan string
	lastJogTimer *timer
}

func newControllerWrapper(conn Connection, lastJogTimer *timer) *controllerWrapper {
	c := &controllerWrapper{
		conn:         conn,
		commands:     make(chan string, commandQueueSize),
		lastJogTimer: lastJogTimer,
	}

	go func() {
		for cmd := range c.commands {
			_, err := fmt.Fprintf(conn, "%s\n", cmd)
			if err != nil {
				fmt.Println("error sending command:", err)
				return
			}
		}
	}()

	return c
}

func (c *controllerWrapper) send(cmd string) {
	select {
	case c.commands <- cmd:
	default:
		fmt.Println("command queue is full, dropping", cmd)
	}
}

func (c *controllerWrapper) Jog(axis jogpanel.Axis, dir jogpanel.Direction) {
	c.lastJogTimer.Set(time.Now())
	c.send(string(jogpanel.JogCommand(axis, dir)))
}

// EmergencyStop drops queued commands and writes the stop without waiting for the
// command in progress
func (c *controllerWrapper) EmergencyStop() {
	c.dropQueued()

	err := c.conn.EmergencyStop()
	if err != nil {
		fmt.Println("error sending emergency stop:", err)
	}
}

func (c *controllerWrapper) dropQueued() {
	for {
		select {
		case cmd, ok := <-c.commands:
			if !ok {
				return
			}
			fmt.Println("emergency stop, dropping", cmd)
		default:
			return
		}
	}
}

func (c *controllerWrapper) Reset() {
	c.send(string(jogpanel.FlagReset))
}

func (c *controllerWrapper) Status() {
	c.send(string(jogpanel.FlagDebug))
}

func (c *controllerWrapper) Faults() {
	c.send(string(jogpanel.FlagFaults))
}

func (c *controllerWrapper) Close() {
	close(c.commands)
}

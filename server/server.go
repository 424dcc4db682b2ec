package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/calvinmclean/babyapi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/calvinmclean/jogpanel"
)

// Kind selects the console command that is sent for a Command
type Kind string

const (
	KindJog           Kind = "jog"
	KindEmergencyStop Kind = "estop"
	KindReset         Kind = "reset"
	KindStatus        Kind = "status"
	KindFaults        Kind = "faults"
)

var (
	ErrUnknownKind      = errors.New("unknown command kind")
	ErrMissingJogTarget = errors.New("jog requires axis and direction")
	ErrNotModifiable    = errors.New("commands cannot be modified after they are sent")
)

// Sender sends a console command and returns the device output. *controller.Controller
// implements it
type Sender interface {
	Send(ctx context.Context, cmd []byte) ([]string, error)
}

// Command is sent to the panel when it is created. The device output is stored with it
type Command struct {
	babyapi.DefaultResource

	Kind      Kind               `json:"kind"`
	Axis      jogpanel.Axis      `json:"axis,omitempty"`
	Direction jogpanel.Direction `json:"direction,omitempty"`

	SentAt time.Time `json:"sent_at"`
	Output []string  `json:"output,omitempty"`
	Error  string    `json:"error,omitempty"`
}

func (c *Command) Bind(r *http.Request) error {
	err := c.DefaultResource.Bind(r)
	if err != nil {
		return err
	}

	if r.Method == http.MethodPost {
		c.SentAt = time.Time{}
		c.Output = nil
		c.Error = ""
	}

	_, err = c.bytes()
	return err
}

// bytes returns the console command
func (c *Command) bytes() ([]byte, error) {
	switch c.Kind {
	case KindJog:
		if c.Axis == jogpanel.AxisUnknown || c.Direction == jogpanel.DirectionNone {
			return nil, ErrMissingJogTarget
		}
		return jogpanel.JogCommand(c.Axis, c.Direction), nil
	case KindEmergencyStop:
		return []byte{jogpanel.FlagEmergencyStop}, nil
	case KindReset:
		return []byte{jogpanel.FlagReset}, nil
	case KindStatus:
		return []byte{jogpanel.FlagDebug}, nil
	case KindFaults:
		return []byte{jogpanel.FlagFaults}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
}

// API is the REST API for sending commands to the panel
type API struct {
	sender   Sender
	commands *babyapi.API[*Command]
}

// New creates the API. Each created Command is sent with sender
func New(sender Sender) *API {
	a := &API{
		sender:   sender,
		commands: babyapi.NewAPI("Commands", "/commands", func() *Command { return &Command{} }),
	}
	a.commands.SetOnCreateOrUpdate(a.onCreateOrUpdate)
	return a
}

// Router returns the HTTP handler for the API
func (a *API) Router() (http.Handler, error) {
	commands, err := a.commands.Router()
	if err != nil {
		return nil, fmt.Errorf("error creating commands router: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", commands)
	return r, nil
}

func (a *API) onCreateOrUpdate(_ http.ResponseWriter, r *http.Request, c *Command) *babyapi.ErrResponse {
	if r.Method != http.MethodPost {
		return babyapi.ErrInvalidRequest(ErrNotModifiable)
	}

	cmd, err := c.bytes()
	if err != nil {
		return babyapi.ErrInvalidRequest(err)
	}

	c.SentAt = time.Now()
	c.Output, err = a.sender.Send(r.Context(), cmd)
	if err != nil {
		return &babyapi.ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusBadGateway,
			StatusText:     http.StatusText(http.StatusBadGateway),
			ErrorText:      fmt.Sprintf("error sending command: %v", err),
		}
	}

	for _, line := range c.Output {
		if strings.HasPrefix(line, "error: ") {
			c.Error = strings.TrimPrefix(line, "error: ")
			break
		}
	}

	return nil
}

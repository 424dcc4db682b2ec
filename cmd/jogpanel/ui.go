package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/calvinmclean/jogpanel/controller"
	"github.com/calvinmclean/jogpanel/ui"
)

type UICommand struct{}

// uiConnection sends queued lines through controller.Run and the emergency stop straight
// to the controller
type uiConnection struct {
	io.Writer
	ctl *controller.Controller
}

func (c uiConnection) EmergencyStop() error {
	return c.ctl.EmergencyStop()
}

func (c *UICommand) Execute(args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config()
	if err != nil {
		return err
	}

	jogUI := ui.NewJogPanelUI()

	var ctl *controller.Controller
	connect := func(cfg controller.Config) (ui.Connection, error) {
		var err error
		ctl, err = controller.New(cfg)
		if err != nil {
			return nil, err
		}

		r, w := io.Pipe()

		// read from Stdin also
		go func() {
			_, _ = io.Copy(w, os.Stdin)
		}()

		go func() {
			runErr := ctl.Run(ctx, r, io.MultiWriter(os.Stdout, jogUI))
			if runErr != nil {
				fmt.Fprintln(os.Stderr, "controller stopped:", runErr)
			}
			cancel()
		}()

		return uiConnection{w, ctl}, nil
	}

	jogUI.Run(ctx, cfg, connect)

	if ctl != nil {
		return ctl.Close()
	}
	return nil
}

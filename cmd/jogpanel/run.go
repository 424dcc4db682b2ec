package main

import (
	"context"
	"os"
	"os/signal"
)

type RunCommand struct{}

func (c *RunCommand) Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ctl, err := newController()
	if err != nil {
		return err
	}
	defer ctl.Close()

	return ctl.Run(ctx, os.Stdin, os.Stdout)
}

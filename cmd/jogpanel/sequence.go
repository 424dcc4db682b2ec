package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/calvinmclean/jogpanel/controller"
)

type SequenceCommand struct {
	Args struct {
		File string `positional-arg-name:"FILE" description:"YAML sequence file"`
	} `positional-args:"yes" required:"yes"`
}

func (c *SequenceCommand) Execute(args []string) error {
	seq, err := controller.LoadSequence(c.Args.File)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ctl, err := newController()
	if err != nil {
		return err
	}
	defer ctl.Close()

	return ctl.RunSequence(ctx, seq, os.Stdout)
}

package main

import (
	"fmt"

	"github.com/calvinmclean/jogpanel/controller"
)

type PortsCommand struct{}

func (c *PortsCommand) Execute(args []string) error {
	ports, err := controller.PortDetails()
	if err != nil {
		return err
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

package main

import (
	"fmt"
	"net/http"

	"github.com/calvinmclean/jogpanel/server"
)

type ServeCommand struct {
	Addr string `long:"addr" default:":8080" description:"Address to serve the API on"`
}

func (c *ServeCommand) Execute(args []string) error {
	ctl, err := newController()
	if err != nil {
		return err
	}
	defer ctl.Close()

	router, err := server.New(ctl).Router()
	if err != nil {
		return err
	}

	fmt.Printf("serving on %s\n", c.Addr)
	return http.ListenAndServe(c.Addr, router)
}

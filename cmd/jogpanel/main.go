package main

import (
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/calvinmclean/jogpanel/controller"
)

type Options struct {
	Port string `long:"port" description:"Serial port of the panel, overrides SERIAL_PORT. Use \"None\" to run without a device"`
	Baud string `long:"baud" description:"Baud rate, overrides BAUD_RATE"`

	Run      RunCommand      `command:"run" description:"Send console commands from stdin and print the panel output"`
	UI       UICommand       `command:"ui" description:"Open the desktop jog pad"`
	Serve    ServeCommand    `command:"serve" description:"Serve the /commands REST API"`
	Sequence SequenceCommand `command:"sequence" alias:"seq" description:"Run the jogs in a YAML sequence file"`
	Ports    PortsCommand    `command:"ports" description:"List USB serial ports"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "jogpanel - host tools for the stepper and actuator jog panel"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// config reads the controller Config from the environment and applies the global flags
func config() (controller.Config, error) {
	cfg, err := controller.ConfigFromEnv()
	if err != nil {
		return controller.Config{}, err
	}
	if opts.Port != "" {
		cfg.SerialPort = opts.Port
	}
	if opts.Baud != "" {
		cfg.BaudRate = opts.Baud
	}
	return cfg, nil
}

func newController() (*controller.Controller, error) {
	cfg, err := config()
	if err != nil {
		return nil, err
	}
	return controller.New(cfg)
}

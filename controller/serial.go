package controller

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialPortNone runs the controller without a device
const SerialPortNone = "None"

var ErrNoUSBSerial = errors.New("no USB serial ports found")

// GetSerialPorts returns the names of the connected USB serial ports
func GetSerialPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}

	var result []string
	for _, port := range ports {
		if port.IsUSB {
			result = append(result, port.Name)
		}
	}

	if len(result) == 0 {
		return nil, ErrNoUSBSerial
	}

	return result, nil
}

// PortDetails describes a USB serial port for listing
func PortDetails() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}

	var result []string
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		line := fmt.Sprintf("%s\t%s:%s", port.Name, port.VID, port.PID)
		if port.SerialNumber != "" {
			line += "\t" + port.SerialNumber
		}
		if port.Product != "" {
			line += "\t" + port.Product
		}
		result = append(result, line)
	}

	if len(result) == 0 {
		return nil, ErrNoUSBSerial
	}

	return result, nil
}

func openSerial(cfg Config) (serial.Port, error) {
	name := cfg.SerialPort
	if name == "" {
		ports, err := GetSerialPorts()
		if err != nil {
			return nil, err
		}
		name = ports[0]
	}

	rate, err := cfg.baudRate()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: rate})
	if err != nil {
		return nil, fmt.Errorf("error opening serial port %q: %w", name, err)
	}

	return port, nil
}

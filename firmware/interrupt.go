//go:build tinygo && !avr

package main

import "machine"

func setEmergencyInterrupt(pin machine.Pin, stop func()) {
	err := pin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		stop()
	})
	if err != nil {
		println("emergency stop interrupt unavailable, polling instead:", err.Error())
	}
}

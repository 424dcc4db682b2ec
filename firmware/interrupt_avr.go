//go:build tinygo && avr

package main

import "machine"

// AVR targets do not support pin interrupts yet, so the emergency stop is only polled
// by Panel.Tick and during jogs
func setEmergencyInterrupt(machine.Pin, func()) {
	println("emergency stop interrupt unavailable, polling instead")
}

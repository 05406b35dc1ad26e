// SPDX-License-Identifier: MIT

/*
Package simgpio simulates a Raspberry Pi pin-state interface in memory, so
code that drives GPIO output pins can be exercised without physical hardware.

A [Board] holds a fixed set of channels, each with a direction and level.
Channels are defined at construction, either directly with [WithChannels] or
extracted from a JSON config file with [WithConfigFile], and are then
manipulated through the usual setup/write/read operations. Channels may be
addressed by physical pin or BCM GPIO number - the board does not
differentiate, and [Board.SetNumbering] only stores the declared scheme.

Only output channels are simulated. [Board.Setup] rejects [DirectionInput],
and writes to a channel require a prior Setup.

Virtual peripherals implementing [Watcher] can be plugged into channels with
[Board.Attach], and are notified with a snapshot of the board levels whenever
a write touches one of their channels. [Motor] is a virtual stepper motor
built on this: it steps on the rising edge of its step channel, reverses on
its direction channel, and decodes its microstep divisor from the optional
ms1/ms2 channels.

# Example Usage

Create a board with a few channels and drive a pin:

	b, err := simgpio.NewBoard(simgpio.WithChannels(17, 18, 22, 23))
	err = b.Setup(simgpio.DirectionOutput, 17, 18)
	err = b.Write(simgpio.High, 17)
	level, err := b.Level(17)

Plug in a virtual stepper and pulse it one step:

	m := simgpio.NewMotor(17, 18, simgpio.WithMicrostepPins(22, 23))
	err = b.Attach(m, m.Pins()...)
	err = b.Write(simgpio.High, 17)
	err = b.Write(simgpio.Low, 17)
	steps := m.Steps()
*/
package simgpio

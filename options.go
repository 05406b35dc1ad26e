// SPDX-License-Identifier: MIT

package simgpio

import "go.uber.org/zap"

// NewBoardOption defines the interface required to provide an option to NewBoard.
type NewBoardOption interface {
	applyBoardOption(*builder)
}

// NewMotorOption defines the interface required to provide an option to NewMotor.
type NewMotorOption interface {
	applyMotorOption(*Motor)
}

// NameOption defines the name for a Board or Motor.
type NameOption string

// WithName returns an option that defines the name of a Board or Motor.
func WithName(name string) NameOption {
	return NameOption(name)
}

func (o NameOption) applyBoardOption(b *builder) {
	b.name = string(o)
}

func (o NameOption) applyMotorOption(m *Motor) {
	m.Name = string(o)
}

// ChannelsOption defines channels for a Board.
type ChannelsOption []int

// WithChannels returns an option that adds the given channels to the Board.
func WithChannels(channels ...int) ChannelsOption {
	return ChannelsOption(channels)
}

func (o ChannelsOption) applyBoardOption(b *builder) {
	b.channels = append(b.channels, o...)
}

// ConfigFileOption sources channels from a JSON config file.
type ConfigFileOption struct {
	path     string
	pinPaths []string
}

// WithConfigFile returns an option that adds the channels found at the given
// pin paths in the JSON config file to the Board.
//
// Pin paths are slash separated paths into the JSON document, e.g.
// "AltConf/AltStepGPIO". Paths that do not resolve are skipped with a
// warning.
func WithConfigFile(path string, pinPaths ...string) ConfigFileOption {
	return ConfigFileOption{path: path, pinPaths: pinPaths}
}

func (o ConfigFileOption) applyBoardOption(b *builder) {
	b.configPath = o.path
	b.pinPaths = append(b.pinPaths, o.pinPaths...)
}

// LoggerOption provides a logger to a Board or Motor.
type LoggerOption struct {
	logger *zap.Logger
}

// WithLogger returns an option that sets the logger used by a Board or Motor.
//
// By default logging is discarded.
func WithLogger(logger *zap.Logger) LoggerOption {
	return LoggerOption{logger: logger}
}

func (o LoggerOption) applyBoardOption(b *builder) {
	b.logger = o.logger
}

func (o LoggerOption) applyMotorOption(m *Motor) {
	m.log = o.logger
}

// StepsPerRevOption defines the number of full steps per revolution of a Motor.
type StepsPerRevOption int

// WithStepsPerRev returns an option that sets the number of full steps per
// revolution of a Motor.
//
// The default is 200.
func WithStepsPerRev(steps int) StepsPerRevOption {
	return StepsPerRevOption(steps)
}

func (o StepsPerRevOption) applyMotorOption(m *Motor) {
	m.stepsPerRev = int(o)
}

// MicrostepPinsOption defines the microstep select channels of a Motor.
type MicrostepPinsOption struct {
	ms1, ms2 int
}

// WithMicrostepPins returns an option that sets the ms1 and ms2 microstep
// select channels of a Motor.
//
// Without this option the motor runs in full steps only.
func WithMicrostepPins(ms1, ms2 int) MicrostepPinsOption {
	return MicrostepPinsOption{ms1: ms1, ms2: ms2}
}

func (o MicrostepPinsOption) applyMotorOption(m *Motor) {
	m.ms1Pin = o.ms1
	m.ms2Pin = o.ms2
	m.hasMicrostep = true
}

// SPDX-License-Identifier: MIT

package simgpio

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Motor is a simulated stepper motor.
//
// It implements Watcher and is driven entirely by board writes once attached
// to its channels with [Board.Attach]:
//
//   - A Low to High transition on the step channel advances the position by
//     one (micro)step. The step latch resets when the channel returns Low, so
//     holding the channel High does not step again.
//   - The direction channel selects clockwise (Low) or counter-clockwise
//     (High) rotation.
//   - If microstep select channels were provided, their levels select the
//     microstep divisor: (Low, Low) full steps, (High, Low) half,
//     (Low, High) quarter, (High, High) eighth. On a divisor change the
//     position snaps to the nearest boundary of the new divisor and is
//     rescaled to the new resolution.
//
// Channels absent from the update snapshot read as Low, except the microstep
// channels, which leave the divisor untouched when absent.
//
// All methods are safe for concurrent use.
type Motor struct {
	// Name identifies the motor in logs and debug dumps.
	Name string

	stepPin, dirPin int
	ms1Pin, ms2Pin  int
	hasMicrostep    bool
	stepsPerRev     int

	mu       sync.Mutex
	msteps   int  // position in microsteps, in [0, stepsPerRev*mode)
	mode     int  // microstep divisor: 1, 2, 4 or 8
	dir      int  // +1 clockwise, -1 counter-clockwise
	hasMoved bool // step latch, reset when the step channel returns Low

	log *zap.Logger
}

// microstepModes maps the (ms1, ms2) levels to the microstep divisor.
var microstepModes = map[[2]Level]int{
	{Low, Low}:   1,
	{High, Low}:  2,
	{Low, High}:  4,
	{High, High}: 8,
}

var motorCounter uint32

// NewMotor constructs a Motor stepped by stepPin and directed by dirPin.
//
// The available options are [WithName], [WithStepsPerRev],
// [WithMicrostepPins] and [WithLogger].
//
// If no name is provided one is generated.
func NewMotor(stepPin, dirPin int, options ...NewMotorOption) *Motor {
	m := &Motor{
		stepPin:     stepPin,
		dirPin:      dirPin,
		stepsPerRev: 200,
		mode:        1,
		dir:         1,
	}
	for _, o := range options {
		o.applyMotorOption(m)
	}
	if len(m.Name) == 0 {
		m.Name = fmt.Sprintf("motor-%d", atomic.AddUint32(&motorCounter, 1))
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	m.log = m.log.Named("motor").With(zap.String("motor", m.Name))
	return m
}

// Pins returns the channels the motor listens on, suitable for passing to
// [Board.Attach].
func (m *Motor) Pins() []int {
	pins := []int{m.stepPin, m.dirPin}
	if m.hasMicrostep {
		pins = append(pins, m.ms1Pin, m.ms2Pin)
	}
	return pins
}

// Update implements Watcher.
func (m *Motor) Update(levels map[int]Level) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if levels[m.dirPin] == High {
		m.dir = -1
	} else {
		m.dir = 1
	}

	if levels[m.stepPin] == Low {
		m.hasMoved = false
	} else if !m.hasMoved {
		m.msteps = floorMod(m.msteps+m.dir, m.stepsPerRev*m.mode)
		m.hasMoved = true
		m.log.Debug("stepped", zap.Int("msteps", m.msteps), zap.Int("dir", m.dir))
	}

	if !m.hasMicrostep {
		return
	}
	ms1, ok1 := levels[m.ms1Pin]
	ms2, ok2 := levels[m.ms2Pin]
	if !ok1 || !ok2 {
		return
	}
	mode := microstepModes[[2]Level{ms1, ms2}]
	if mode == m.mode {
		return
	}
	// Snap the position to the nearest boundary of the new divisor, then
	// rescale it to the new resolution.
	m.msteps += closestLoopMovement(m.msteps, m.msteps+(mode-m.msteps%mode), mode)
	m.msteps = m.msteps * mode / m.mode
	m.mode = mode
	m.log.Info("microstep divisor changed",
		zap.Int("mode", m.mode), zap.Int("msteps", m.msteps))
}

// closestLoopMovement returns the shortest signed movement to reach next from
// curr in a closed loop of size loop.
func closestLoopMovement(curr, next, loop int) int {
	curr = floorMod(curr, loop)
	next = floorMod(next, loop)
	if curr == next {
		return 0
	}
	upper, lower := next, next
	if next < curr {
		upper += loop
	} else {
		lower -= loop
	}
	if curr-lower < upper-curr {
		return lower - curr
	}
	return upper - curr
}

// floorMod returns the non-negative remainder of a divided by b.
func floorMod(a, b int) int {
	a %= b
	if a < 0 {
		a += b
	}
	return a
}

// Steps returns the motor position in full steps, in [0, StepsPerRev).
func (m *Motor) Steps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msteps / m.mode
}

// Microsteps returns the motor position in microsteps, in
// [0, StepsPerRev * MicrostepMode).
func (m *Motor) Microsteps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msteps
}

// MicrostepMode returns the current microstep divisor: 1, 2, 4 or 8.
func (m *Motor) MicrostepMode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// StepsPerRev returns the number of full steps per revolution.
func (m *Motor) StepsPerRev() int {
	return m.stepsPerRev
}

// Degrees returns the motor position in degrees.
func (m *Motor) Degrees() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.microstepsToDegrees(m.msteps)
}

// MicrostepsToDegrees converts a number of microsteps at the current divisor
// to degrees.
func (m *Motor) MicrostepsToDegrees(msteps int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.microstepsToDegrees(msteps)
}

// DegreesToMicrosteps converts degrees to microsteps at the current divisor,
// truncated.
func (m *Motor) DegreesToMicrosteps(deg float64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(deg * float64(m.stepsPerRev*m.mode) / 360)
}

// microstepsToDegrees converts microsteps to degrees.
//
// Caller must hold m.mu.
func (m *Motor) microstepsToDegrees(msteps int) float64 {
	return float64(msteps*360) / float64(m.stepsPerRev*m.mode)
}

// Settings returns a human readable dump of the motor configuration.
func (m *Motor) Settings() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s settings\n", m.Name)
	if m.hasMicrostep {
		fmt.Fprintf(&sb, "pins: step=%d dir=%d ms1=%d ms2=%d\n",
			m.stepPin, m.dirPin, m.ms1Pin, m.ms2Pin)
	} else {
		fmt.Fprintf(&sb, "pins: step=%d dir=%d\n", m.stepPin, m.dirPin)
	}
	fmt.Fprintf(&sb, "steps per revolution: %d\n", m.stepsPerRev)
	if m.mode == 1 {
		fmt.Fprintf(&sb, "microstepping: off\n")
	} else {
		fmt.Fprintf(&sb, "microstepping: 1/%d\n", m.mode)
		fmt.Fprintf(&sb, "microsteps per revolution: %d\n", m.stepsPerRev*m.mode)
	}
	return sb.String()
}

// Status returns a human readable dump of the motor position.
func (m *Motor) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s status\n", m.Name)
	direction := "CW"
	if m.dir < 0 {
		direction = "CCW"
	}
	fmt.Fprintf(&sb, "direction: %s\n", direction)
	if m.mode == 1 {
		fmt.Fprintf(&sb, "step position: %d of %d\n", m.msteps, m.stepsPerRev)
	} else {
		fmt.Fprintf(&sb, "microstep (1/%d) position: %d of %d\n",
			m.mode, m.msteps, m.stepsPerRev*m.mode)
	}
	fmt.Fprintf(&sb, "degree position: %g\n", m.microstepsToDegrees(m.msteps))
	return sb.String()
}

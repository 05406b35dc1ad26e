// SPDX-License-Identifier: MIT

package simgpio

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Errors returned by Board operations.
//
// They are always returned wrapped with the offending channel, so test them
// with errors.Is.
var (
	// ErrUnknownChannel indicates a channel that was never defined on the board.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrDirectionUnset indicates a write to a channel before Setup.
	ErrDirectionUnset = errors.New("channel direction not set")

	// ErrInputNotSimulated indicates an attempt to use a channel as an input.
	//
	// Only output channels are simulated.
	ErrInputNotSimulated = errors.New("input channels are not simulated")

	// ErrLengthMismatch indicates paired slices of different lengths.
	ErrLengthMismatch = errors.New("channels and levels must be the same length")
)

// Level is the level of a simulated channel.
type Level int

const (
	// Low is the inactive level.
	Low Level = iota

	// High is the active level.
	High
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Direction is the I/O direction of a channel.
type Direction int

const (
	// DirectionUnset indicates a channel that exists but has not been Setup.
	//
	// Freed channels return to this state.
	DirectionUnset Direction = iota

	// DirectionInput is rejected by Setup - input channels are not simulated.
	DirectionInput

	// DirectionOutput allows the channel level to be driven with Write.
	DirectionOutput
)

func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "in"
	case DirectionOutput:
		return "out"
	default:
		return "unset"
	}
}

// Numbering is the channel numbering scheme in use.
//
// The scheme is stored and reported but is otherwise not simulated - the
// board never maps between physical pin and BCM GPIO numbers, so channels
// may be addressed with whichever scheme the caller prefers, as long as it
// is used consistently.
type Numbering int

const (
	// NumberingNone indicates no scheme has been declared.
	NumberingNone Numbering = iota

	// NumberingBoard is physical pin numbering.
	NumberingBoard

	// NumberingBCM is Broadcom GPIO numbering.
	NumberingBCM
)

func (n Numbering) String() string {
	switch n {
	case NumberingBoard:
		return "BOARD"
	case NumberingBCM:
		return "BCM"
	default:
		return "none"
	}
}

// Watcher is a virtual peripheral plugged into one or more board channels.
//
// After a write touches a watched channel the watcher receives a snapshot of
// the level of every channel on the board. Channels absent from the map read
// as Low.
type Watcher interface {
	Update(levels map[int]Level)
}

// pin holds the simulated state of a single channel.
type pin struct {
	direction Direction
	level     Level
}

// Board is a simulated pin-state board.
//
// It is a drop-in, in-memory substitute for a hardware pin-state interface,
// intended for testing code that drives output pins. The channel set is
// fixed at construction; levels and directions are then manipulated through
// the usual setup/write/read operations.
//
// All methods are safe for concurrent use.
type Board struct {
	// The name of the board, to assist with debugging.
	Name string

	mu        sync.Mutex
	pins      map[int]*pin
	watchers  map[int][]Watcher
	numbering Numbering
	warnings  bool

	log *zap.Logger
}

// NewBoard constructs a Board based on the provided options.
//
// The available options are [WithName], [WithChannels], [WithConfigFile] and
// [WithLogger].
//
// Providing a name is optional; if none is provided a unique name is
// generated. At least one channel must be defined, either directly with
// WithChannels or via a config file.
func NewBoard(options ...NewBoardOption) (*Board, error) {
	b := builder{}
	for _, o := range options {
		o.applyBoardOption(&b)
	}
	return b.build()
}

// builder contains all the information required to build a board.
type builder struct {
	name       string // optional
	channels   []int
	configPath string
	pinPaths   []string
	logger     *zap.Logger
}

// build creates the board and initializes its channels.
func (b *builder) build() (*Board, error) {
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if len(b.name) == 0 {
		b.name = uniqueName()
	}
	log := b.logger.Named("simgpio").With(zap.String("board", b.name))

	channels := append([]int(nil), b.channels...)
	if b.configPath != "" {
		cc, skipped, err := LoadChannels(b.configPath, b.pinPaths)
		if err != nil {
			return nil, err
		}
		for _, p := range skipped {
			log.Warn("pin path could not be resolved and was skipped",
				zap.String("path", p))
		}
		channels = append(channels, cc...)
	}
	if len(channels) == 0 {
		return nil, errors.New("no channels defined")
	}

	brd := Board{
		Name:     b.name,
		pins:     make(map[int]*pin, len(channels)),
		watchers: make(map[int][]Watcher),
		warnings: true,
		log:      log,
	}
	for _, c := range channels {
		if _, ok := brd.pins[c]; ok {
			continue
		}
		brd.pins[c] = &pin{}
		log.Info("initializing channel",
			zap.Int("channel", c), zap.Stringer("level", Low))
	}
	return &brd, nil
}

var boardCounter uint32

// uniqueName returns a name for the board that is very likely to be unique,
// using the appname, PID and a monotonic atomic counter.
func uniqueName() string {
	return fmt.Sprintf("%s-p%d-%d", appName(), os.Getpid(), atomic.AddUint32(&boardCounter, 1))
}

// appName returns the name of the running executable.
//
// Falls back to "simgpio" if that can't be determined for some reason.
func appName() string {
	str, err := os.Executable()
	if err != nil {
		return "simgpio"
	}
	return path.Base(str)
}

// SetNumbering stores the channel numbering scheme.
func (b *Board) SetNumbering(n Numbering) {
	b.mu.Lock()
	b.numbering = n
	b.mu.Unlock()
	b.log.Info("setting channel numbering (not simulated)", zap.Stringer("numbering", n))
}

// Numbering returns the stored channel numbering scheme.
func (b *Board) Numbering() Numbering {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.numbering
}

// SetWarnings controls whether Cleanup of an unknown channel logs a warning.
//
// Warnings are enabled by default.
func (b *Board) SetWarnings(enabled bool) {
	b.mu.Lock()
	b.warnings = enabled
	b.mu.Unlock()
	b.log.Info("setting warnings", zap.Bool("enabled", enabled))
}

// Warnings returns whether warnings are enabled.
func (b *Board) Warnings() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.warnings
}

// Setup sets the direction of the given channels.
//
// Only DirectionOutput is accepted - input channels are not simulated.
func (b *Board) Setup(dir Direction, channels ...int) error {
	switch dir {
	case DirectionOutput:
	case DirectionInput:
		return errors.WithStack(ErrInputNotSimulated)
	default:
		return errors.Errorf("invalid direction: %d", dir)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range channels {
		p, ok := b.pins[c]
		if !ok {
			return errors.Wrapf(ErrUnknownChannel, "channel %d", c)
		}
		p.direction = dir
		b.log.Info("setting channel direction",
			zap.Int("channel", c), zap.Stringer("direction", dir))
	}
	return nil
}

// Write drives the given channels to the given level.
//
// The channels must have been Setup as outputs. Watchers attached to a
// written channel are notified with a snapshot of the board levels.
func (b *Board) Write(level Level, channels ...int) error {
	for _, c := range channels {
		if err := b.write(c, level); err != nil {
			return err
		}
	}
	return nil
}

// WriteEach drives each channel to the corresponding level.
//
// The slices must be the same length.
func (b *Board) WriteEach(channels []int, levels []Level) error {
	if len(channels) != len(levels) {
		return errors.Wrapf(ErrLengthMismatch, "%d channels, %d levels",
			len(channels), len(levels))
	}
	for i, c := range channels {
		if err := b.write(c, levels[i]); err != nil {
			return err
		}
	}
	return nil
}

// write sets the level of a single channel and notifies its watchers.
//
// Watchers are notified outside the board lock so they may read back board
// state from within Update.
func (b *Board) write(channel int, level Level) error {
	b.mu.Lock()
	p, ok := b.pins[channel]
	if !ok {
		b.mu.Unlock()
		return errors.Wrapf(ErrUnknownChannel, "channel %d", channel)
	}
	switch p.direction {
	case DirectionUnset:
		b.mu.Unlock()
		return errors.Wrapf(ErrDirectionUnset, "channel %d", channel)
	case DirectionInput:
		b.mu.Unlock()
		return errors.Wrapf(ErrInputNotSimulated, "channel %d", channel)
	}
	p.level = level
	watchers := append([]Watcher(nil), b.watchers[channel]...)
	var levels map[int]Level
	if len(watchers) > 0 {
		levels = b.levelsLocked()
	}
	b.mu.Unlock()
	b.log.Debug("setting channel level",
		zap.Int("channel", channel), zap.Stringer("level", level))
	for _, w := range watchers {
		w.Update(levels)
	}
	return nil
}

// levelsLocked snapshots the level of every channel.
//
// Caller must hold b.mu.
func (b *Board) levelsLocked() map[int]Level {
	levels := make(map[int]Level, len(b.pins))
	for c, p := range b.pins {
		levels[c] = p.level
	}
	return levels
}

// Level returns the level the given channel is being driven to.
func (b *Board) Level(channel int) (Level, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pins[channel]
	if !ok {
		return Low, errors.Wrapf(ErrUnknownChannel, "channel %d", channel)
	}
	return p.level, nil
}

// Direction returns the direction of the given channel.
func (b *Board) Direction(channel int) (Direction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pins[channel]
	if !ok {
		return DirectionUnset, errors.Wrapf(ErrUnknownChannel, "channel %d", channel)
	}
	return p.direction, nil
}

// Toggle flips the level of the given channel.
//
// If it was High it becomes Low, and vice versa.
func (b *Board) Toggle(channel int) error {
	l, err := b.Level(channel)
	if err != nil {
		return err
	}
	if l == Low {
		l = High
	} else {
		l = Low
	}
	return b.write(channel, l)
}

// Cleanup frees the given channels, returning them to Low with the direction
// unset. With no channels given, all channels are freed.
//
// Unknown channels are skipped rather than treated as errors, so Cleanup is
// safe to call unconditionally on teardown.
func (b *Board) Cleanup(channels ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(channels) == 0 {
		channels = b.channelsLocked()
	}
	for _, c := range channels {
		p, ok := b.pins[c]
		if !ok {
			if b.warnings {
				b.log.Warn("cleanup of unknown channel skipped", zap.Int("channel", c))
			}
			continue
		}
		p.level = Low
		p.direction = DirectionUnset
		b.log.Info("freeing channel", zap.Int("channel", c))
	}
}

// Attach plugs a watcher into the given channels.
//
// This needs to be done for the watcher to see writes. Attaching a watcher
// to a channel it is already attached to is not an error - the duplicate is
// ignored.
func (b *Board) Attach(w Watcher, channels ...int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range channels {
		if _, ok := b.pins[c]; !ok {
			return errors.Wrapf(ErrUnknownChannel, "channel %d", c)
		}
	}
	for _, c := range channels {
		if watcherAttached(b.watchers[c], w) {
			b.log.Info("watcher already attached", zap.Int("channel", c))
			continue
		}
		b.watchers[c] = append(b.watchers[c], w)
		b.log.Info("attaching watcher", zap.Int("channel", c))
	}
	return nil
}

func watcherAttached(ws []Watcher, w Watcher) bool {
	for _, x := range ws {
		if x == w {
			return true
		}
	}
	return false
}

// Channels returns the channels defined on the board, in ascending order.
func (b *Board) Channels() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channelsLocked()
}

// channelsLocked returns the sorted channel numbers.
//
// Caller must hold b.mu.
func (b *Board) channelsLocked() []int {
	channels := make([]int, 0, len(b.pins))
	for c := range b.pins {
		channels = append(channels, c)
	}
	sort.Ints(channels)
	return channels
}

// PinState is the snapshot of a single channel.
type PinState struct {
	Channel   int
	Direction Direction
	Level     Level
}

// Snapshot returns the state of every channel, in ascending channel order.
func (b *Board) Snapshot() []PinState {
	b.mu.Lock()
	defer b.mu.Unlock()
	states := make([]PinState, 0, len(b.pins))
	for _, c := range b.channelsLocked() {
		p := b.pins[c]
		states = append(states, PinState{Channel: c, Direction: p.direction, Level: p.level})
	}
	return states
}

// String returns a human readable dump of the board state.
func (b *Board) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Board %s (numbering: %s)\n", b.Name, b.Numbering())
	for _, ps := range b.Snapshot() {
		fmt.Fprintf(&sb, "%d (%s): %s\n", ps.Channel, ps.Direction, ps.Level)
	}
	return sb.String()
}

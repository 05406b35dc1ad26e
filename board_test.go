// SPDX-License-Identifier: MIT

package simgpio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simgpio "github.com/startrack/go-simgpio"
)

func checkLevel(t *testing.T, b *simgpio.Board, channel int, xl simgpio.Level) {
	t.Helper()
	l, err := b.Level(channel)
	assert.Nil(t, err)
	assert.Equal(t, xl, l)
}

func checkDirection(t *testing.T, b *simgpio.Board, channel int, xd simgpio.Direction) {
	t.Helper()
	d, err := b.Direction(channel)
	assert.Nil(t, err)
	assert.Equal(t, xd, d)
}

func TestNewBoard(t *testing.T) {
	b, err := simgpio.NewBoard(
		simgpio.WithName("board_test"),
		simgpio.WithChannels(18, 17, 22),
	)
	require.Nil(t, err)
	assert.Equal(t, "board_test", b.Name)
	assert.Equal(t, []int{17, 18, 22}, b.Channels())
	assert.Equal(t, simgpio.NumberingNone, b.Numbering())
	assert.True(t, b.Warnings())

	// channels start Low with the direction unset
	for _, c := range b.Channels() {
		checkLevel(t, b, c, simgpio.Low)
		checkDirection(t, b, c, simgpio.DirectionUnset)
	}

	// duplicate channels collapse
	b, err = simgpio.NewBoard(simgpio.WithChannels(4, 4, 5))
	require.Nil(t, err)
	assert.Equal(t, []int{4, 5}, b.Channels())

	// generated names are unique
	b2, err := simgpio.NewBoard(simgpio.WithChannels(4))
	require.Nil(t, err)
	assert.NotEmpty(t, b.Name)
	assert.NotEmpty(t, b2.Name)
	assert.NotEqual(t, b.Name, b2.Name)

	// no channels
	b, err = simgpio.NewBoard()
	assert.NotNil(t, err)
	assert.Nil(t, b)
}

func TestBoardSetup(t *testing.T) {
	b, err := simgpio.NewBoard(simgpio.WithChannels(17, 18))
	require.Nil(t, err)

	err = b.Setup(simgpio.DirectionOutput, 17, 18)
	assert.Nil(t, err)
	checkDirection(t, b, 17, simgpio.DirectionOutput)
	checkDirection(t, b, 18, simgpio.DirectionOutput)

	// inputs are not simulated
	err = b.Setup(simgpio.DirectionInput, 17)
	assert.ErrorIs(t, err, simgpio.ErrInputNotSimulated)

	// unset is not a valid direction to request
	err = b.Setup(simgpio.DirectionUnset, 17)
	assert.NotNil(t, err)

	// unknown channel
	err = b.Setup(simgpio.DirectionOutput, 3)
	assert.ErrorIs(t, err, simgpio.ErrUnknownChannel)
}

func TestBoardWrite(t *testing.T) {
	b, err := simgpio.NewBoard(simgpio.WithChannels(17, 18, 22))
	require.Nil(t, err)

	// write requires a prior setup
	err = b.Write(simgpio.High, 17)
	assert.ErrorIs(t, err, simgpio.ErrDirectionUnset)
	checkLevel(t, b, 17, simgpio.Low)

	require.Nil(t, b.Setup(simgpio.DirectionOutput, 17, 18, 22))

	err = b.Write(simgpio.High, 17)
	assert.Nil(t, err)
	checkLevel(t, b, 17, simgpio.High)

	// broadcast
	err = b.Write(simgpio.High, 18, 22)
	assert.Nil(t, err)
	checkLevel(t, b, 18, simgpio.High)
	checkLevel(t, b, 22, simgpio.High)

	err = b.Write(simgpio.Low, 17, 18, 22)
	assert.Nil(t, err)
	checkLevel(t, b, 17, simgpio.Low)
	checkLevel(t, b, 18, simgpio.Low)
	checkLevel(t, b, 22, simgpio.Low)

	// unknown channel
	err = b.Write(simgpio.High, 3)
	assert.ErrorIs(t, err, simgpio.ErrUnknownChannel)
}

func TestBoardWriteEach(t *testing.T) {
	b, err := simgpio.NewBoard(simgpio.WithChannels(17, 18))
	require.Nil(t, err)
	require.Nil(t, b.Setup(simgpio.DirectionOutput, 17, 18))

	err = b.WriteEach([]int{17, 18}, []simgpio.Level{simgpio.High, simgpio.Low})
	assert.Nil(t, err)
	checkLevel(t, b, 17, simgpio.High)
	checkLevel(t, b, 18, simgpio.Low)

	err = b.WriteEach([]int{17, 18}, []simgpio.Level{simgpio.High})
	assert.ErrorIs(t, err, simgpio.ErrLengthMismatch)
}

func TestBoardToggle(t *testing.T) {
	b, err := simgpio.NewBoard(simgpio.WithChannels(17))
	require.Nil(t, err)

	// toggling requires a prior setup, as it writes
	err = b.Toggle(17)
	assert.ErrorIs(t, err, simgpio.ErrDirectionUnset)

	require.Nil(t, b.Setup(simgpio.DirectionOutput, 17))

	err = b.Toggle(17)
	assert.Nil(t, err)
	checkLevel(t, b, 17, simgpio.High)

	err = b.Toggle(17)
	assert.Nil(t, err)
	checkLevel(t, b, 17, simgpio.Low)

	err = b.Toggle(3)
	assert.ErrorIs(t, err, simgpio.ErrUnknownChannel)
}

func TestBoardCleanup(t *testing.T) {
	b, err := simgpio.NewBoard(simgpio.WithChannels(17, 18))
	require.Nil(t, err)
	require.Nil(t, b.Setup(simgpio.DirectionOutput, 17, 18))
	require.Nil(t, b.Write(simgpio.High, 17, 18))

	b.Cleanup(17)
	checkLevel(t, b, 17, simgpio.Low)
	checkDirection(t, b, 17, simgpio.DirectionUnset)
	checkLevel(t, b, 18, simgpio.High)

	// unknown channels are skipped, not errors
	b.Cleanup(3)
	b.SetWarnings(false)
	b.Cleanup(3)

	// a freed channel needs setting up again before writing
	err = b.Write(simgpio.High, 17)
	assert.ErrorIs(t, err, simgpio.ErrDirectionUnset)

	// no channels frees everything
	b.Cleanup()
	checkLevel(t, b, 18, simgpio.Low)
	checkDirection(t, b, 18, simgpio.DirectionUnset)
}

func TestBoardNumbering(t *testing.T) {
	b, err := simgpio.NewBoard(simgpio.WithChannels(17))
	require.Nil(t, err)
	assert.Equal(t, simgpio.NumberingNone, b.Numbering())
	b.SetNumbering(simgpio.NumberingBCM)
	assert.Equal(t, simgpio.NumberingBCM, b.Numbering())
	b.SetNumbering(simgpio.NumberingBoard)
	assert.Equal(t, simgpio.NumberingBoard, b.Numbering())
}

// recorder is a Watcher that captures the snapshots it is passed.
type recorder struct {
	updates []map[int]simgpio.Level
}

func (r *recorder) Update(levels map[int]simgpio.Level) {
	r.updates = append(r.updates, levels)
}

func TestBoardAttach(t *testing.T) {
	b, err := simgpio.NewBoard(simgpio.WithChannels(17, 18))
	require.Nil(t, err)
	require.Nil(t, b.Setup(simgpio.DirectionOutput, 17, 18))

	r := &recorder{}
	err = b.Attach(r, 3)
	assert.ErrorIs(t, err, simgpio.ErrUnknownChannel)

	err = b.Attach(r, 17)
	assert.Nil(t, err)

	// a write to a watched channel delivers a full board snapshot
	require.Nil(t, b.Write(simgpio.High, 17))
	require.Equal(t, 1, len(r.updates))
	assert.Equal(t, map[int]simgpio.Level{17: simgpio.High, 18: simgpio.Low}, r.updates[0])

	// writes to unwatched channels are not delivered
	require.Nil(t, b.Write(simgpio.High, 18))
	assert.Equal(t, 1, len(r.updates))

	// double attach is deduplicated
	err = b.Attach(r, 17)
	assert.Nil(t, err)
	require.Nil(t, b.Write(simgpio.Low, 17))
	assert.Equal(t, 2, len(r.updates))
}

func TestBoardSnapshot(t *testing.T) {
	b, err := simgpio.NewBoard(simgpio.WithChannels(18, 17))
	require.Nil(t, err)
	require.Nil(t, b.Setup(simgpio.DirectionOutput, 18))
	require.Nil(t, b.Write(simgpio.High, 18))

	xs := []simgpio.PinState{
		{Channel: 17, Direction: simgpio.DirectionUnset, Level: simgpio.Low},
		{Channel: 18, Direction: simgpio.DirectionOutput, Level: simgpio.High},
	}
	assert.Equal(t, xs, b.Snapshot())

	s := b.String()
	assert.Contains(t, s, "17 (unset): LOW")
	assert.Contains(t, s, "18 (out): HIGH")
}

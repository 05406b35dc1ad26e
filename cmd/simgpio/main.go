// SPDX-License-Identifier: MIT

// simgpio is a demo CLI for the simulated pin-state board.
//
// It builds a board from a JSON pin config and either dumps its state or
// spins a virtual stepper motor on it.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	simgpio "github.com/startrack/go-simgpio"
)

// defaultPinPaths matches the star tracker's track-config.json layout.
var defaultPinPaths = []string{
	"AltConf/AltDirGPIO",
	"AltConf/AltStepGPIO",
	"AziConf/AziDirGPIO",
	"AziConf/AziStepGPIO",
	"ms1pin",
	"ms2pin",
}

// microstepLevels maps the microstep divisor to the (ms1, ms2) levels that
// select it.
var microstepLevels = map[int][2]simgpio.Level{
	1: {simgpio.Low, simgpio.Low},
	2: {simgpio.High, simgpio.Low},
	4: {simgpio.Low, simgpio.High},
	8: {simgpio.High, simgpio.High},
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "simgpio:", err)
		os.Exit(1)
	}
}

type options struct {
	configFile string
	pinPaths   []string
	verbose    bool
}

func (o *options) logger() (*zap.Logger, error) {
	if !o.verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	return cfg.Build()
}

func (o *options) board(log *zap.Logger, extra ...simgpio.NewBoardOption) (*simgpio.Board, error) {
	opts := []simgpio.NewBoardOption{simgpio.WithLogger(log)}
	if o.configFile != "" {
		opts = append(opts, simgpio.WithConfigFile(o.configFile, o.pinPaths...))
	}
	return simgpio.NewBoard(append(opts, extra...)...)
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "simgpio",
		Short:         "simulate a Raspberry Pi pin-state board",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&o.configFile, "config", "c",
		"track-config.json", "JSON pin config file (empty to skip)")
	cmd.PersistentFlags().StringArrayVar(&o.pinPaths, "pin-path",
		defaultPinPaths, "slash separated JSON path to a pin number")
	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v",
		false, "log board activity")
	cmd.AddCommand(newStatusCmd(o))
	cmd.AddCommand(newSpinCmd(o))
	return cmd
}

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "build a board from the config and dump its state",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := o.logger()
			if err != nil {
				return err
			}
			defer log.Sync()
			b, err := o.board(log)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), b.String())
			return nil
		},
	}
}

func newSpinCmd(o *options) *cobra.Command {
	var (
		stepPin, dirPin int
		ms1Pin, ms2Pin  int
		steps           int
		microstep       int
		ccw             bool
	)
	cmd := &cobra.Command{
		Use:   "spin",
		Short: "attach a virtual stepper to the board and pulse it",
		RunE: func(cmd *cobra.Command, args []string) error {
			msLevels, ok := microstepLevels[microstep]
			if !ok {
				return errors.Errorf("invalid microstep divisor: %d", microstep)
			}
			log, err := o.logger()
			if err != nil {
				return err
			}
			defer log.Sync()

			// the motor pins may not be in the config, so define them as well
			channels := []int{stepPin, dirPin}
			motorOpts := []simgpio.NewMotorOption{simgpio.WithLogger(log)}
			if ms1Pin >= 0 && ms2Pin >= 0 {
				channels = append(channels, ms1Pin, ms2Pin)
				motorOpts = append(motorOpts, simgpio.WithMicrostepPins(ms1Pin, ms2Pin))
			}
			b, err := o.board(log, simgpio.WithChannels(channels...))
			if err != nil {
				return err
			}
			defer b.Cleanup()

			m := simgpio.NewMotor(stepPin, dirPin, motorOpts...)
			if err := b.Attach(m, m.Pins()...); err != nil {
				return err
			}
			if err := b.Setup(simgpio.DirectionOutput, channels...); err != nil {
				return err
			}

			if ms1Pin >= 0 && ms2Pin >= 0 {
				err = b.WriteEach([]int{ms1Pin, ms2Pin}, msLevels[:])
				if err != nil {
					return err
				}
			}
			dir := simgpio.Low
			if ccw {
				dir = simgpio.High
			}
			if err := b.Write(dir, dirPin); err != nil {
				return err
			}
			for i := 0; i < steps; i++ {
				if err := b.Write(simgpio.High, stepPin); err != nil {
					return err
				}
				if err := b.Write(simgpio.Low, stepPin); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, m.Settings())
			fmt.Fprint(out, m.Status())
			return nil
		},
	}
	cmd.Flags().IntVar(&stepPin, "step-pin", 17, "step channel")
	cmd.Flags().IntVar(&dirPin, "dir-pin", 18, "direction channel")
	cmd.Flags().IntVar(&ms1Pin, "ms1-pin", -1, "ms1 microstep select channel")
	cmd.Flags().IntVar(&ms2Pin, "ms2-pin", -1, "ms2 microstep select channel")
	cmd.Flags().IntVar(&steps, "steps", 1, "number of step pulses to send")
	cmd.Flags().IntVar(&microstep, "microstep", 1, "microstep divisor (1, 2, 4 or 8)")
	cmd.Flags().BoolVar(&ccw, "ccw", false, "spin counter-clockwise")
	return cmd
}

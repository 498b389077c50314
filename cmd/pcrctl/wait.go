package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-thermocycle/thermal"
)

func monitorCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print live temperatures every second until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := a.waiter(cmd, nil)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			if all {
				return w.MonitorParameters(ctx, cmd.OutOrStdout())
			}

			return w.MonitorTemperature(ctx, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Also print the set point and periphery temperature")

	return cmd
}

func sampleCmd(a *app) *cobra.Command {
	var period time.Duration

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Record telemetry for a sampling period",
		Long: `Record set point, control and periphery temperatures once per sampling
interval into the telemetry log for the sampling period (sampling.period,
or --period).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("period") {
				period = cfg.Sampling.Period.Std()
			}

			telemetry, err := thermal.OpenTelemetryLog(cfg.TelemetryLogPath())
			if err != nil {
				return err
			}
			defer func() { _ = telemetry.Close() }()

			w, err := a.waiter(cmd, telemetry)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			_, err = w.Sample(ctx, period, cmd.OutOrStdout())

			return err
		},
	}
	cmd.Flags().DurationVar(&period, "period", 0, "Sampling period (defaults to sampling.period)")

	return cmd
}

func waitCmd(a *app) *cobra.Command {
	var (
		tolerance float64
		limit     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait <temperature>",
		Short: "Wait until the control temperature is steady at a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTemperature(args[0])
			if err != nil {
				return err
			}

			w, err := a.waiter(cmd, nil)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			res, err := w.WaitForSteadyState(ctx, target, tolerance, limit)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "wait", res)

			return nil
		},
	}
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "Steady-state band in C (defaults to sampling.tolerance)")
	cmd.Flags().DurationVar(&limit, "time-limit", 0, "Give up after this long (defaults to sampling.time_limit)")

	return cmd
}

func triggerCmd(a *app) *cobra.Command {
	var (
		tolerance float64
		limit     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "trigger <set-point> <poll-temperature>",
		Short: "Drive to a set point and wait until a poll temperature is reached",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setPoint, err := parseTemperature(args[0])
			if err != nil {
				return err
			}
			poll, err := parseTemperature(args[1])
			if err != nil {
				return err
			}

			w, err := a.waiter(cmd, nil)
			if err != nil {
				return err
			}
			if err := a.session.SetTemperature(setPoint); err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			res, err := w.PollUntilTrigger(ctx, poll, tolerance, limit)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "trigger", res)

			return nil
		},
	}
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "Trigger band in C (defaults to sampling.tolerance)")
	cmd.Flags().DurationVar(&limit, "time-limit", 0, "Give up after this long (defaults to sampling.time_limit)")

	return cmd
}

func incubateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "incubate <duration>",
		Short: "Hold the current set point for a duration, printing progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("pcrctl: invalid duration %q: %w", args[0], err)
			}

			w, err := a.waiter(cmd, nil)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			res, err := w.Incubate(ctx, d)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "incubate", res)

			return nil
		},
	}
}

func parseTemperature(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("pcrctl: invalid temperature %q: %w", s, err)
	}

	return v, nil
}

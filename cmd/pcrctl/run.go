package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-thermocycle/internal/notify"
	"github.com/arloliu/go-thermocycle/pcr"
	"github.com/arloliu/go-thermocycle/thermal"
)

func runCmd(a *app) *cobra.Command {
	var (
		trigger    bool
		cycles     int
		noExitGate bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured PCR profile",
		Long: `Run the configured PCR profile: outer denaturation, the annealing and
elongation cycles, and the final hold.

With --trigger every stage but the final hold first overshoots to its
trigger set point and switches to the stage temperature once the poll
temperature is reached.

Examples:
  # Run the profile from pcr.toml
  pcrctl run --config pcr.toml

  # Dry run against the simulated controller with 3 cycles
  pcrctl run --simulate --cycles 3 --no-exit-gate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			profile := cfg.Profile()
			if cmd.Flags().Changed("cycles") {
				profile.Cycles = cycles
			}

			log, err := a.openLogger(cmd)
			if err != nil {
				return err
			}

			if path, err := cfg.WriteDump(time.Now()); err != nil {
				log.Warn("pcrctl: parameter dump failed", "error", err)
			} else {
				log.Info("pcrctl: parameters saved", "path", path)
			}

			telemetry, err := thermal.OpenTelemetryLog(cfg.TelemetryLogPath())
			if err != nil {
				return err
			}

			waiter, err := a.waiter(cmd, telemetry)
			if err != nil {
				_ = telemetry.Close()
				return err
			}

			opts := []pcr.SequencerOption{
				pcr.WithLogger(log),
				pcr.WithTelemetry(telemetry),
			}

			if cfg.Speech.Enabled {
				speaker, err := notify.NewSpeaker(cfg.Speech.Player, cfg.Speech.Args, cfg.Speech.SoundDir, notify.WithLogger(log))
				if err != nil {
					_ = telemetry.Close()
					return err
				}
				defer func() { _ = speaker.Close() }()
				opts = append(opts, pcr.WithNotifier(speaker))
			}

			if !noExitGate {
				gateOpts := []pcr.GateOption{
					pcr.WithInput(cmd.InOrStdin()),
					pcr.WithOutput(cmd.OutOrStdout()),
					pcr.WithAcceptKeys(cfg.PCR.ExitKey),
					pcr.WithMaxAttempts(cfg.PCR.MaxExitAttempts),
					pcr.WithGateLogger(log),
				}
				gate, err := pcr.NewExitGate(gateOpts...)
				if err != nil {
					_ = telemetry.Close()
					return err
				}
				opts = append(opts, pcr.WithExitGate(gate))
			}

			seq, err := pcr.NewSequencer(a.session, waiter, opts...)
			if err != nil {
				_ = telemetry.Close()
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			var rep pcr.Report
			if trigger {
				rep, err = seq.RunWithTrigger(ctx, profile)
			} else {
				rep, err = seq.Run(ctx, profile)
			}
			printReport(cmd.OutOrStdout(), rep)

			return err
		},
	}

	cmd.Flags().BoolVar(&trigger, "trigger", false, "Use trigger-point overshoot on every stage")
	cmd.Flags().IntVar(&cycles, "cycles", 0, "Override pcr.cycles")
	cmd.Flags().BoolVar(&noExitGate, "no-exit-gate", false, "Switch the output off right after the final hold")

	return cmd
}

func printReport(w io.Writer, rep pcr.Report) {
	if len(rep.Stages) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%-20s %5s %-10s %10s %10s\n", "STAGE", "CYCLE", "WAIT", "WAIT (s)", "HOLD (s)")
	for _, st := range rep.Stages {
		wait := "-"
		if st.Wait.Outcome != 0 {
			wait = st.Wait.Outcome.String()
		}
		fmt.Fprintf(w, "%-20s %5d %-10s %10.0f %10.0f\n",
			st.Name, st.Cycle, wait, st.Wait.Elapsed.Seconds(), st.Hold.Elapsed.Seconds())
	}
	fmt.Fprintf(w, "passes: %d, elapsed: %s\n", rep.Passes, rep.Elapsed.Round(time.Second))
}

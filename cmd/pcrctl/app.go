package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-thermocycle/controller"
	"github.com/arloliu/go-thermocycle/internal/config"
	"github.com/arloliu/go-thermocycle/internal/simdevice"
	"github.com/arloliu/go-thermocycle/logger"
	"github.com/arloliu/go-thermocycle/thermal"
)

// app holds the state shared by subcommands: flags, configuration and the
// resources opened on demand.
type app struct {
	configPath string
	simulate   bool
	logLevel   string

	cfg     config.Config
	loaded  bool
	log     *logger.SlogLogger
	prevLog logger.Logger
	port    io.Closer
	session *controller.Session
}

// loadConfig loads the configuration once and applies flag overrides.
func (a *app) loadConfig() (config.Config, error) {
	if a.loaded {
		return a.cfg, nil
	}

	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return config.Config{}, err
		}
	}

	if a.logLevel != "" {
		if _, err := logger.ParseLevel(a.logLevel); err != nil {
			return config.Config{}, err
		}
		cfg.Logging.Level = a.logLevel
	}

	a.cfg, a.loaded = cfg, true

	return cfg, nil
}

// openLogger builds the process logger: console records on stderr plus the
// rotating process log file.
func (a *app) openLogger(cmd *cobra.Command) (logger.Logger, error) {
	if a.log != nil {
		return a.log, nil
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	opts := cfg.LoggerOptions()
	opts.Output = cmd.ErrOrStderr()
	a.log = logger.New(opts)
	a.prevLog = logger.GetLogger()
	logger.SetDefault(a.log)

	return a.log, nil
}

// open connects to the controller, real or simulated.
func (a *app) open(cmd *cobra.Command) (*controller.Session, error) {
	if a.session != nil {
		return a.session, nil
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := a.openLogger(cmd)
	if err != nil {
		return nil, err
	}

	var ch controller.Channel
	if a.simulate {
		dev := simdevice.New()
		ch, a.port = dev, dev
		log.Info("pcrctl: using simulated controller")
	} else {
		if cfg.Communication.SerialPort == "" {
			return nil, errors.New("pcrctl: communication.serial_port is not configured")
		}
		port, err := controller.OpenSerial(cfg.Communication.SerialPort, cfg.PortOptions())
		if err != nil {
			return nil, err
		}
		ch, a.port = port, port
		log.Info("pcrctl: serial port opened", "port", cfg.Communication.SerialPort)
	}

	sess, err := controller.NewSession(ch,
		controller.WithLogger(log),
		controller.WithResponseDelay(cfg.Communication.ResponseDelay.Std()),
	)
	if err != nil {
		return nil, err
	}
	a.session = sess

	return sess, nil
}

// waiter builds a waiter on the open session. telemetry may be nil.
func (a *app) waiter(cmd *cobra.Command, telemetry *thermal.TelemetryLog) (*thermal.Waiter, error) {
	sess, err := a.open(cmd)
	if err != nil {
		return nil, err
	}

	opts := []thermal.WaiterOption{
		thermal.WithLogger(a.log),
		thermal.WithSamplingInterval(a.cfg.Sampling.Interval.Std()),
		thermal.WithTimeLimit(a.cfg.Sampling.TimeLimit.Std()),
		thermal.WithTolerance(a.cfg.Sampling.Tolerance),
		thermal.WithReadout(thermal.NewReadout(cmd.OutOrStdout())),
	}
	if telemetry != nil {
		opts = append(opts, thermal.WithTelemetry(telemetry))
	}

	return thermal.NewWaiter(sess, opts...)
}

func (a *app) close() error {
	var errs []error
	if a.port != nil {
		errs = append(errs, a.port.Close())
		a.port, a.session = nil, nil
	}
	if a.log != nil {
		logger.SetDefault(a.prevLog)
		errs = append(errs, a.log.Close())
		a.log = nil
	}

	return errors.Join(errs...)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}

	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func printResult(w io.Writer, what string, res thermal.Result) {
	fmt.Fprintf(w, "%s: %s at %.2f C (target %.2f C) after %s, %d samples\n",
		what, res.Outcome, res.Temperature, res.Target, res.Elapsed, res.Samples)
}

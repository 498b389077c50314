// Package config loads the TOML run configuration of pcrctl, applies
// defaults, validates it and converts it to the typed settings of the
// controller, thermal, pcr and logger packages.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/arloliu/go-thermocycle/controller"
	"github.com/arloliu/go-thermocycle/logger"
	"github.com/arloliu/go-thermocycle/pcr"
)

var (
	// ErrUnknownKeys indicates keys in the file that no setting consumes.
	ErrUnknownKeys = errors.New("config: unknown keys")

	// ErrInvalid indicates a setting with an unusable value.
	ErrInvalid = errors.New("config: invalid value")
)

// File names inside the log directory.
const (
	ProcessLogName   = "pcr_process.log"
	TelemetryLogName = "pcr_temperature.log"
)

type Communication struct {
	SerialPort    string   `toml:"serial_port"`
	BaudRate      int      `toml:"baud_rate"`
	DataBits      int      `toml:"data_bits"`
	StopBits      int      `toml:"stop_bits"`
	Parity        string   `toml:"parity"`
	ReadTimeout   Duration `toml:"read_timeout"`
	ResponseDelay Duration `toml:"response_delay"`
}

type Logging struct {
	Level      string `toml:"level"`
	Console    bool   `toml:"console"`
	LogDir     string `toml:"log_dir"`
	CfgDir     string `toml:"cfg_dir"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type Speech struct {
	Enabled  bool     `toml:"enabled"`
	Player   string   `toml:"player"`
	Args     []string `toml:"args"`
	SoundDir string   `toml:"sound_dir"`
}

type Sampling struct {
	Interval  Duration `toml:"interval"`
	Period    Duration `toml:"period"`
	TimeLimit Duration `toml:"time_limit"`
	Tolerance float64  `toml:"tolerance"`
}

type Trigger struct {
	SetPoint        float64 `toml:"set_point"`
	PollTemperature float64 `toml:"poll_temperature"`
}

type Stage struct {
	Temperature           float64  `toml:"temperature"`
	Hold                  Duration `toml:"hold"`
	ProportionalBandwidth float64  `toml:"proportional_bandwidth"`
	IntegralGain          float64  `toml:"integral_gain"`
	DerivativeGain        float64  `toml:"derivative_gain"`
	Tolerance             float64  `toml:"tolerance,omitempty"`
	TimeLimit             Duration `toml:"time_limit,omitempty"`
	Trigger               *Trigger `toml:"trigger,omitempty"`
}

type PCR struct {
	Cycles          int    `toml:"cycles"`
	ExitKey         string `toml:"exit_key"`
	MaxExitAttempts int    `toml:"max_exit_attempts"`

	OuterDenaturation Stage `toml:"outer_denaturation"`
	InnerDenaturation Stage `toml:"inner_denaturation"`
	Annealing         Stage `toml:"annealing"`
	Elongation        Stage `toml:"elongation"`
	FinalHold         Stage `toml:"final_hold"`
}

// Config is the complete run configuration.
type Config struct {
	Communication Communication `toml:"communication"`
	Logging       Logging       `toml:"logging"`
	Speech        Speech        `toml:"speech"`
	Sampling      Sampling      `toml:"sampling"`
	PCR           PCR           `toml:"pcr"`
}

// Default returns the configuration used for every key the file omits.
func Default() Config {
	prof := pcr.DefaultProfile()

	return Config{
		Communication: Communication{
			BaudRate:      controller.DefaultBaudRate,
			DataBits:      8,
			StopBits:      1,
			Parity:        "N",
			ReadTimeout:   Duration(controller.DefaultReadTimeout),
			ResponseDelay: Duration(controller.DefaultResponseDelay),
		},
		Logging: Logging{
			Level:      "info",
			Console:    true,
			LogDir:     "logs",
			CfgDir:     "config_logs",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Speech: Speech{
			Player:   "mplayer",
			Args:     []string{"-really-quiet", "-ao", "pulse"},
			SoundDir: "speech",
		},
		Sampling: Sampling{
			Interval:  Duration(time.Second),
			Period:    Duration(time.Minute),
			TimeLimit: Duration(10 * time.Minute),
			Tolerance: 1.0,
		},
		PCR: PCR{
			Cycles:            prof.Cycles,
			ExitKey:           "q",
			OuterDenaturation: fromStage(prof.OuterDenaturation),
			InnerDenaturation: fromStage(prof.InnerDenaturation),
			Annealing:         fromStage(prof.Annealing),
			Elongation:        fromStage(prof.Elongation),
			FinalHold:         fromStage(prof.FinalHold),
		},
	}
}

func fromStage(st pcr.Stage) Stage {
	return Stage{
		Temperature:           st.Temperature,
		Hold:                  Duration(st.Hold),
		ProportionalBandwidth: st.PID.ProportionalBandwidth,
		IntegralGain:          st.PID.IntegralGain,
		DerivativeGain:        st.PID.DerivativeGain,
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}

	return finish(cfg, meta)
}

// Parse decodes data over Default and validates the result.
func Parse(data string) (Config, error) {
	cfg := Default()

	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	return finish(cfg, meta)
}

func finish(cfg Config, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)

		return Config{}, fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every setting.
func (c Config) Validate() error {
	if _, err := c.PortOptions().Normalize(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if d := c.Communication.ResponseDelay.Std(); d < 0 || d > controller.MaxResponseDelay {
		return fmt.Errorf("%w: communication.response_delay %v", ErrInvalid, d)
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %w", ErrInvalid, err)
	}
	if c.Logging.LogDir == "" {
		return fmt.Errorf("%w: logging.log_dir is empty", ErrInvalid)
	}

	if c.Speech.Enabled && c.Speech.Player == "" {
		return fmt.Errorf("%w: speech.player is empty", ErrInvalid)
	}

	if d := c.Sampling.Interval.Std(); d <= 0 || d > time.Minute {
		return fmt.Errorf("%w: sampling.interval %v not in (0, 1m]", ErrInvalid, d)
	}
	if c.Sampling.Period.Std() < 0 {
		return fmt.Errorf("%w: sampling.period is negative", ErrInvalid)
	}
	if c.Sampling.TimeLimit.Std() <= 0 {
		return fmt.Errorf("%w: sampling.time_limit must be positive", ErrInvalid)
	}
	if !(c.Sampling.Tolerance > 0) {
		return fmt.Errorf("%w: sampling.tolerance must be positive", ErrInvalid)
	}

	if strings.TrimSpace(c.PCR.ExitKey) == "" {
		return fmt.Errorf("%w: pcr.exit_key is empty", ErrInvalid)
	}
	if c.PCR.MaxExitAttempts < 0 {
		return fmt.Errorf("%w: pcr.max_exit_attempts is negative", ErrInvalid)
	}

	if err := c.Profile().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

// HasTriggers reports whether every non-final stage defines a trigger point.
func (c Config) HasTriggers() bool {
	return c.Profile().ValidateTrigger() == nil
}

// Profile converts the pcr section to a pcr.Profile.
func (c Config) Profile() pcr.Profile {
	return pcr.Profile{
		OuterDenaturation: c.PCR.OuterDenaturation.toStage(pcr.StageOuterDenaturation),
		InnerDenaturation: c.PCR.InnerDenaturation.toStage(pcr.StageInnerDenaturation),
		Annealing:         c.PCR.Annealing.toStage(pcr.StageAnnealing),
		Elongation:        c.PCR.Elongation.toStage(pcr.StageElongation),
		FinalHold:         c.PCR.FinalHold.toStage(pcr.StageFinalHold),
		Cycles:            c.PCR.Cycles,
	}
}

func (s Stage) toStage(name string) pcr.Stage {
	st := pcr.Stage{
		Name:        name,
		Temperature: s.Temperature,
		PID: pcr.PID{
			ProportionalBandwidth: s.ProportionalBandwidth,
			IntegralGain:          s.IntegralGain,
			DerivativeGain:        s.DerivativeGain,
		},
		Hold:      s.Hold.Std(),
		Tolerance: s.Tolerance,
		TimeLimit: s.TimeLimit.Std(),
	}
	if s.Trigger != nil {
		st.Trigger = &pcr.TriggerPoint{SetPoint: s.Trigger.SetPoint, PollTemperature: s.Trigger.PollTemperature}
	}

	return st
}

// PortOptions returns the serial settings.
func (c Config) PortOptions() controller.PortOptions {
	return controller.PortOptions{
		BaudRate:    c.Communication.BaudRate,
		DataBits:    c.Communication.DataBits,
		StopBits:    c.Communication.StopBits,
		Parity:      c.Communication.Parity,
		ReadTimeout: c.Communication.ReadTimeout.Std(),
	}
}

// LoggerOptions returns the process logger settings, writing to
// log_dir/pcr_process.log.
func (c Config) LoggerOptions() logger.Options {
	level, _ := logger.ParseLevel(c.Logging.Level)

	return logger.Options{
		Level:   level,
		Console: c.Logging.Console,
		File: &logger.FileOptions{
			Path:       c.ProcessLogPath(),
			MaxSizeMB:  c.Logging.MaxSizeMB,
			MaxBackups: c.Logging.MaxBackups,
			MaxAgeDays: c.Logging.MaxAgeDays,
			Compress:   c.Logging.Compress,
		},
	}
}

// ProcessLogPath returns the process log location.
func (c Config) ProcessLogPath() string {
	return filepath.Join(c.Logging.LogDir, ProcessLogName)
}

// TelemetryLogPath returns the telemetry log location.
func (c Config) TelemetryLogPath() string {
	return filepath.Join(c.Logging.LogDir, TelemetryLogName)
}

// Dump writes c as TOML.
func (c Config) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# pcrctl parameter set\n\n"); err != nil {
		return err
	}

	return toml.NewEncoder(w).Encode(c)
}

// WriteDump writes c to a timestamped parameter file in cfg_dir and returns
// its path.
func (c Config) WriteDump(now time.Time) (string, error) {
	dir := c.Logging.CfgDir
	if dir == "" {
		dir = c.Logging.LogDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config: create %s: %w", dir, err)
	}

	path := filepath.Join(dir, "parameter_"+now.Format("2006-01-02_15-04-05")+".toml")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("config: open %s: %w", path, err)
	}

	if err := c.Dump(f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("config: write %s: %w", path, err)
	}

	return path, f.Close()
}

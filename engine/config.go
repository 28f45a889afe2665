package engine

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/soroban-labs/mastery"
)

// Config is the file/environment configuration for services embedding
// the engine. Every field has a default matching the library defaults,
// so an empty file is a valid configuration.
type Config struct {
	Params     ParamsConfig     `yaml:"params"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Planner    PlannerConfig    `yaml:"planner"`
	Anomaly    AnomalyConfig    `yaml:"anomaly"`
	Deferral   DeferralConfig   `yaml:"deferral"`
	Log        LogConfig        `yaml:"log"`
}

type ParamsConfig struct {
	Prior           float64 `yaml:"prior" env:"MASTERY_PRIOR" env-default:"0.10"`
	Slip            float64 `yaml:"slip" env:"MASTERY_SLIP" env-default:"0.10"`
	Guess           float64 `yaml:"guess" env:"MASTERY_GUESS" env-default:"0.20"`
	Transit         float64 `yaml:"transit" env:"MASTERY_TRANSIT" env-default:"0.15"`
	ConfidenceScale float64 `yaml:"confidence_scale" env:"MASTERY_CONFIDENCE_SCALE" env-default:"5"`
	WindowCap       int     `yaml:"window_cap" env:"MASTERY_WINDOW_CAP" env-default:"15"`
}

type ThresholdsConfig struct {
	PKnown                  float64 `yaml:"p_known" env:"MASTERY_GATE_P_KNOWN" env-default:"0.85"`
	Confidence              float64 `yaml:"confidence" env:"MASTERY_GATE_CONFIDENCE" env-default:"0.5"`
	MinOpportunities        int     `yaml:"min_opportunities" env:"MASTERY_GATE_MIN_OPPORTUNITIES" env-default:"20"`
	MinSessions             int     `yaml:"min_sessions" env:"MASTERY_GATE_MIN_SESSIONS" env-default:"3"`
	SpeedWindow             int     `yaml:"speed_window" env:"MASTERY_GATE_SPEED_WINDOW" env-default:"10"`
	MaxMedianSecondsPerTerm float64 `yaml:"max_median_seconds_per_term" env:"MASTERY_GATE_MAX_MEDIAN_SPT" env-default:"4.0"`
	AccuracyWindow          int     `yaml:"accuracy_window" env:"MASTERY_GATE_ACCURACY_WINDOW" env-default:"15"`
	MinAccuracy             float64 `yaml:"min_accuracy" env:"MASTERY_GATE_MIN_ACCURACY" env-default:"0.85"`
	AllCorrectStreak        int     `yaml:"all_correct_streak" env:"MASTERY_GATE_ALL_CORRECT_STREAK" env-default:"5"`
	HelpFreeStreak          int     `yaml:"help_free_streak" env:"MASTERY_GATE_HELP_FREE_STREAK" env-default:"5"`
}

type PlannerConfig struct {
	StrugglingFloor  float64 `yaml:"struggling_floor" env:"MASTERY_STRUGGLING_FLOOR" env-default:"0.6"`
	StrugglingWindow int     `yaml:"struggling_window" env:"MASTERY_STRUGGLING_WINDOW" env-default:"10"`
	MinSample        int     `yaml:"min_sample" env:"MASTERY_STRUGGLING_MIN_SAMPLE" env-default:"5"`
}

type AnomalyConfig struct {
	SkipLimit int           `yaml:"skip_limit" env:"MASTERY_ANOMALY_SKIP_LIMIT" env-default:"3"`
	Staleness time.Duration `yaml:"staleness" env:"MASTERY_ANOMALY_STALENESS" env-default:"336h"`
}

type DeferralConfig struct {
	Duration time.Duration `yaml:"duration" env:"MASTERY_DEFERRAL_DURATION" env-default:"168h"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"MASTERY_LOG_LEVEL" env-default:"info"`
}

// LoadConfig reads configuration from the given YAML file, falling back
// to environment variables alone when the file cannot be read. The
// result is validated before it is returned.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("engine: load config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the tracing parameters and gate thresholds.
func (c *Config) Validate() error {
	if err := mastery.ValidateParams(c.MasteryParams()); err != nil {
		return err
	}
	return mastery.ValidateThresholds(c.MasteryThresholds())
}

func (c *Config) MasteryParams() mastery.Params {
	return mastery.Params{
		Prior:           c.Params.Prior,
		Slip:            c.Params.Slip,
		Guess:           c.Params.Guess,
		Transit:         c.Params.Transit,
		ConfidenceScale: c.Params.ConfidenceScale,
		WindowCap:       c.Params.WindowCap,
	}
}

func (c *Config) MasteryThresholds() mastery.Thresholds {
	return mastery.Thresholds{
		PKnown:                  c.Thresholds.PKnown,
		Confidence:              c.Thresholds.Confidence,
		MinOpportunities:        c.Thresholds.MinOpportunities,
		MinSessions:             c.Thresholds.MinSessions,
		SpeedWindow:             c.Thresholds.SpeedWindow,
		MaxMedianSecondsPerTerm: c.Thresholds.MaxMedianSecondsPerTerm,
		AccuracyWindow:          c.Thresholds.AccuracyWindow,
		MinAccuracy:             c.Thresholds.MinAccuracy,
		AllCorrectStreak:        c.Thresholds.AllCorrectStreak,
		HelpFreeStreak:          c.Thresholds.HelpFreeStreak,
	}
}

func (c *Config) MasteryPlanner() mastery.PlannerConfig {
	return mastery.PlannerConfig{
		StrugglingFloor:  c.Planner.StrugglingFloor,
		StrugglingWindow: c.Planner.StrugglingWindow,
		MinSample:        c.Planner.MinSample,
	}
}

func (c *Config) MasteryAnomaly() mastery.AnomalyConfig {
	return mastery.AnomalyConfig{
		SkipLimit: c.Anomaly.SkipLimit,
		Staleness: c.Anomaly.Staleness,
	}
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/listener/internal/listener"
)

// Config represents the listener configuration file (~/.config/listener/config.yaml).
// Hyperparameters are pointers so we can distinguish "not set" from zero values.
type Config struct {
	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	RunsDir   string `yaml:"runs_dir"`

	// Hyperparameters
	CellSize        *int     `yaml:"cell_size"`
	ForgetBias      *float64 `yaml:"forget_bias"`
	ColorResolution *int     `yaml:"color_resolution"`
	Dropout         *float64 `yaml:"dropout"`
	BatchSize       *int     `yaml:"batch_size"`
	TrainIters      *int     `yaml:"train_iters"`
	TrainEpochs     *int     `yaml:"train_epochs"`
	LearningRate    *float64 `yaml:"learning_rate"`
	Seed            *int64   `yaml:"seed"`
	DevFraction     *float64 `yaml:"dev_fraction"`

	// Server
	Checkpoint    string `yaml:"checkpoint"`
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "listener", "config.yaml")
}

// LoadConfig reads the config file at path, or the default location when
// path is empty. A missing default file yields a zero Config; a missing
// explicit file is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyLoggingConfig applies config file defaults to the root logging flags.
func applyLoggingConfig(c *cli.Command, cfg Config, level, format *string) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		*level = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		*format = cfg.LogFormat
	}
}

// applyTrainConfig applies config file defaults to the train command
// variables when the corresponding CLI flag was not explicitly set.
func applyTrainConfig(c *cli.Command, cfg Config, hp *listener.Config, devFraction *float64, runsDir *string) {
	if cfg.CellSize != nil && !c.IsSet("cell-size") {
		hp.CellSize = *cfg.CellSize
	}
	if cfg.ForgetBias != nil && !c.IsSet("forget-bias") {
		hp.ForgetBias = *cfg.ForgetBias
	}
	if cfg.ColorResolution != nil && !c.IsSet("color-resolution") && !c.IsSet("res") {
		hp.ColorResolution = *cfg.ColorResolution
	}
	if cfg.Dropout != nil && !c.IsSet("dropout") {
		hp.Dropout = *cfg.Dropout
	}
	if cfg.BatchSize != nil && !c.IsSet("batch-size") {
		hp.BatchSize = *cfg.BatchSize
	}
	if cfg.TrainIters != nil && !c.IsSet("train-iters") {
		hp.TrainIters = *cfg.TrainIters
	}
	if cfg.TrainEpochs != nil && !c.IsSet("train-epochs") {
		hp.TrainEpochs = *cfg.TrainEpochs
	}
	if cfg.LearningRate != nil && !c.IsSet("learning-rate") && !c.IsSet("lr") {
		hp.LearningRate = *cfg.LearningRate
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		hp.Seed = *cfg.Seed
	}
	if cfg.DevFraction != nil && !c.IsSet("dev-fraction") {
		*devFraction = *cfg.DevFraction
	}
	if cfg.RunsDir != "" && !c.IsSet("runs-dir") {
		*runsDir = cfg.RunsDir
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, checkpoint, addr *string) {
	if cfg.Checkpoint != "" && !c.IsSet("checkpoint") {
		*checkpoint = cfg.Checkpoint
	}
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

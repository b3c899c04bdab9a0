package main

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/listener/internal/listener"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	// hp collects the hyperparameter flags of the train command.
	hp = listener.DefaultConfig()

	dataPath       string
	evalDataPath   string
	devFraction    float64
	runsDir        string
	runName        string
	checkpointPath string

	addr        string
	readTimeout time.Duration
	topK        int
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default ~/.config/listener/config.yaml)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func hyperparameterFlags() []cli.Flag {
	def := listener.DefaultConfig()
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "cell-size",
			Usage:       "LSTM cell and embedding size",
			Value:       def.CellSize,
			Destination: &hp.CellSize,
		},
		&cli.Float64Flag{
			Name:        "forget-bias",
			Usage:       "initial forget gate bias",
			Value:       def.ForgetBias,
			Destination: &hp.ForgetBias,
		},
		&cli.IntFlag{
			Name:        "color-resolution",
			Aliases:     []string{"res"},
			Usage:       "buckets per RGB channel",
			Value:       def.ColorResolution,
			Destination: &hp.ColorResolution,
		},
		&cli.Float64Flag{
			Name:        "dropout",
			Usage:       "dropout probability applied during training",
			Value:       def.Dropout,
			Destination: &hp.Dropout,
		},
		&cli.IntFlag{
			Name:        "batch-size",
			Usage:       "minibatch size",
			Value:       def.BatchSize,
			Destination: &hp.BatchSize,
		},
		&cli.IntFlag{
			Name:        "train-iters",
			Usage:       "training iterations (runs train-iters-1 iterations)",
			Value:       def.TrainIters,
			Destination: &hp.TrainIters,
		},
		&cli.IntFlag{
			Name:        "train-epochs",
			Usage:       "epochs per iteration",
			Value:       def.TrainEpochs,
			Destination: &hp.TrainEpochs,
		},
		&cli.Float64Flag{
			Name:        "learning-rate",
			Aliases:     []string{"lr"},
			Usage:       "RMSProp learning rate",
			Value:       def.LearningRate,
			Destination: &hp.LearningRate,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "random seed for initialisation, shuffling and splitting (dropout masks are not seeded)",
			Value:       def.Seed,
			Destination: &hp.Seed,
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "runs-dir",
			Usage:       "directory that holds run output (or $" + envListenerRunsDir + ")",
			Destination: &runsDir,
		},
		&cli.StringFlag{
			Name:        "run-name",
			Usage:       "run directory name (default: random uuid)",
			Destination: &runName,
		},
	}
}

func checkpointFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:        "checkpoint",
		Aliases:     []string{"m"},
		Usage:       "path to a model.safetensors checkpoint",
		Required:    required,
		Destination: &checkpointPath,
	}
}

func dataFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:        "data",
		Aliases:     []string{"d"},
		Usage:       usage,
		Required:    true,
		Destination: &dataPath,
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/listener/internal/colors"
	"github.com/samcharles93/listener/internal/dataset"
	"github.com/samcharles93/listener/internal/listener"
	"github.com/samcharles93/listener/internal/logger"
	"github.com/samcharles93/listener/internal/runlog"
)

// runConfig is written to config.json in every run directory.
type runConfig struct {
	Listener    listener.Config `json:"listener"`
	Data        string          `json:"data"`
	EvalData    string          `json:"eval_data,omitempty"`
	DevFraction float64         `json:"dev_fraction"`
	Checkpoint  string          `json:"checkpoint"`
}

type trainResults struct {
	Run        string            `json:"run"`
	TrainSize  int               `json:"train_size"`
	DevSize    int               `json:"dev_size"`
	FinalLoss  float64           `json:"final_loss"`
	Elapsed    string            `json:"elapsed"`
	Dev        *listener.Metrics `json:"dev,omitempty"`
	Checkpoint string            `json:"checkpoint"`
}

func trainCmd() *cli.Command {
	flags := []cli.Flag{
		dataFlag("training data (JSON lines of {\"input\", \"output\": [h, s, v]})"),
		&cli.StringFlag{
			Name:        "eval-data",
			Usage:       "held-out data; when unset a dev split is taken from --data",
			Destination: &evalDataPath,
		},
		&cli.Float64Flag{
			Name:        "dev-fraction",
			Usage:       "fraction of --data held out for evaluation",
			Value:       0.1,
			Destination: &devFraction,
		},
		checkpointFlag(false),
	}
	flags = append(flags, hyperparameterFlags()...)
	flags = append(flags, runFlags()...)

	return &cli.Command{
		Name:  "train",
		Usage: "Train a listener and write its run directory",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyTrainConfig(cmd, fileConfig, &hp, &devFraction, &runsDir)
			return runTrain(ctx)
		},
	}
}

func runTrain(ctx context.Context) error {
	log := logger.FromContext(ctx)
	start := time.Now()

	train, dev, err := loadTrainData()
	if err != nil {
		return err
	}
	if len(train) == 0 {
		return fmt.Errorf("%s: %w", dataPath, listener.ErrNoInstances)
	}

	run, err := runlog.Create(resolveRunsDir(runsDir), runName)
	if err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	out, err := resolveCheckpointOut(checkpointPath, run)
	if err != nil {
		return err
	}
	log = log.With("run", run.ID)
	ctx = logger.WithContext(ctx, log)
	log.Info("starting run", "path", run.Path, "train", len(train), "dev", len(dev))

	if err := run.DumpJSON("config.json", runConfig{
		Listener:    hp,
		Data:        dataPath,
		EvalData:    evalDataPath,
		DevFraction: devFraction,
		Checkpoint:  out,
	}); err != nil {
		return err
	}
	if evalDataPath == "" && len(dev) > 0 {
		if err := writeInstances(run.File("dev.jsonl"), dev); err != nil {
			return err
		}
	}

	l, err := listener.New(hp)
	if err != nil {
		return err
	}
	losses, err := l.Train(ctx, train)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := runlog.DumpJSONLines(run, "losses.jsons", losses); err != nil {
		return err
	}
	if err := l.Save(out); err != nil {
		return err
	}
	log.Info("saved checkpoint", "path", out)

	res := trainResults{
		Run:        run.ID,
		TrainSize:  len(train),
		DevSize:    len(dev),
		Checkpoint: out,
	}
	if n := len(losses); n > 0 {
		last := losses[n-1]
		res.FinalLoss = last[len(last)-1]
	}
	if len(dev) > 0 {
		ev, err := l.Evaluate(ctx, dev)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		if err := writeEvaluation(run, ev); err != nil {
			return err
		}
		res.Dev = &ev.Metrics
		logMetrics(log, "dev", ev.Metrics)
	}
	res.Elapsed = time.Since(start).Round(time.Millisecond).String()
	return run.DumpJSON("results.json", res)
}

func loadTrainData() (train, dev []dataset.Instance, err error) {
	all, err := dataset.LoadJSONLines(dataPath)
	if err != nil {
		return nil, nil, err
	}
	if evalDataPath != "" {
		dev, err = dataset.LoadJSONLines(evalDataPath)
		if err != nil {
			return nil, nil, err
		}
		return all, dev, nil
	}
	return dataset.Split(all, devFraction, hp.Seed)
}

// writeInstances saves a held-out split so a later eval can reuse it.
func writeInstances(path string, insts []dataset.Instance) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.WriteJSONLines(f, insts); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// writeEvaluation dumps per-instance predictions (as [r, g, b]) and scores.
func writeEvaluation(run *runlog.Dir, ev *listener.Evaluation) error {
	preds := make([][3]float64, len(ev.Predictions))
	for i, p := range ev.Predictions {
		preds[i] = rgbArray(p)
	}
	if err := runlog.DumpJSONLines(run, "predictions.jsons", preds); err != nil {
		return err
	}
	return runlog.DumpJSONLines(run, "scores.jsons", ev.Scores)
}

func rgbArray(c colors.RGB) [3]float64 {
	return [3]float64{c.R, c.G, c.B}
}

func logMetrics(log logger.Logger, split string, m listener.Metrics) {
	log.Info("evaluation",
		"split", split,
		"instances", m.Instances,
		"mean_score", m.MeanScore,
		"accuracy", m.Accuracy,
		"perplexity", m.Perplexity,
		"mean_rgb_distance", m.MeanRGBDistance,
	)
}

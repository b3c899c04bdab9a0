package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/listener/internal/dataset"
	"github.com/samcharles93/listener/internal/listener"
	"github.com/samcharles93/listener/internal/logger"
	"github.com/samcharles93/listener/internal/runlog"
)

func evalCmd() *cli.Command {
	var writeRun bool

	flags := []cli.Flag{
		checkpointFlag(true),
		dataFlag("evaluation data (JSON lines)"),
		&cli.BoolFlag{
			Name:        "write-run",
			Usage:       "write predictions, scores and results to a new run directory",
			Destination: &writeRun,
		},
	}
	flags = append(flags, runFlags()...)

	return &cli.Command{
		Name:  "eval",
		Usage: "Score a checkpoint on held-out data",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if fileConfig.RunsDir != "" && !cmd.IsSet("runs-dir") {
				runsDir = fileConfig.RunsDir
			}
			log := logger.FromContext(ctx)

			path, err := resolveCheckpointIn(checkpointPath)
			if err != nil {
				return err
			}
			l, err := listener.Load(path)
			if err != nil {
				return err
			}
			recorded, err := recordedResults(checkpointPath)
			if err != nil {
				log.Warn("ignoring recorded results", "error", err)
			} else if recorded != nil && recorded.Dev != nil {
				logMetrics(log, "recorded dev", *recorded.Dev)
			}
			insts, err := dataset.LoadJSONLines(dataPath)
			if err != nil {
				return err
			}
			ev, err := l.Evaluate(ctx, insts)
			if err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}
			logMetrics(log, "eval", ev.Metrics)

			if writeRun {
				run, err := runlog.Create(resolveRunsDir(runsDir), runName)
				if err != nil {
					return err
				}
				if err := writeEvaluation(run, ev); err != nil {
					return err
				}
				if err := run.DumpJSON("results.json", ev.Metrics); err != nil {
					return err
				}
				log.Info("wrote evaluation", "path", run.Path)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ev.Metrics)
		},
	}
}

// recordedResults reads results.json from a run directory. It returns nil
// when path is a checkpoint file or the run has no results yet.
func recordedResults(path string) (*trainResults, error) {
	st, err := os.Stat(path)
	if err != nil || !st.IsDir() {
		return nil, nil
	}
	file := filepath.Join(path, "results.json")
	if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	var res trainResults
	if err := runlog.ReadJSON(file, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return &res, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/listener/internal/listener"
)

func predictCmd() *cli.Command {
	return &cli.Command{
		Name:      "predict",
		Usage:     "Predict the colour of a description",
		ArgsUsage: "<description>",
		Flags: []cli.Flag{
			checkpointFlag(true),
			&cli.IntFlag{
				Name:        "top-k",
				Aliases:     []string{"k"},
				Usage:       "number of buckets to list",
				Value:       5,
				Destination: &topK,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			description := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if description == "" {
				return fmt.Errorf("predict: a description is required")
			}
			path, err := resolveCheckpointIn(checkpointPath)
			if err != nil {
				return err
			}
			l, err := listener.Load(path)
			if err != nil {
				return err
			}
			pred, err := l.Describe(ctx, description, topK)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pred)
		},
	}
}

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/listener/internal/api"
	"github.com/samcharles93/listener/internal/listener"
	"github.com/samcharles93/listener/internal/logger"
	"github.com/samcharles93/listener/internal/version"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the listen and score HTTP API",
		Flags: []cli.Flag{
			checkpointFlag(false),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, fileConfig, &checkpointPath, &addr)
			log := logger.FromContext(ctx)

			path, err := resolveCheckpointIn(checkpointPath)
			if err != nil {
				return err
			}
			l, err := listener.Load(path)
			if err != nil {
				return err
			}
			log.Info("loaded checkpoint", "path", path,
				"vocab", l.SequenceVectorizer().NumTokens(),
				"buckets", l.ColorVectorizer().NumTypes(),
				"resolution", l.ColorVectorizer().Resolution())

			server := api.NewServer(l, version.String())
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

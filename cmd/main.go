package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"nwszones/internal/config"
	"nwszones/internal/database"
	"nwszones/internal/logger"
	"nwszones/internal/pipeline"
	"nwszones/internal/types"
)

const (
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

const (
	exitError  = 1
	exitConfig = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", colorRed, colorReset, err)
		fmt.Fprintln(os.Stderr, "usage: nwszones [input.shp|input.zip] [output.geojson]")
		return exitConfig
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	var opts []pipeline.Option
	if cfg.ShowPlot {
		opts = append(opts, pipeline.WithViewer(func(c *types.Collection) error {
			return view(c, cfg)
		}))
	}

	if cfg.Publish() {
		opts = append(opts, pipeline.WithPublisher(func(c *types.Collection) error {
			return publish(cfg, c)
		}))
	}

	start := time.Now()
	res, err := pipeline.Run(cfg, opts...)
	if err != nil {
		log.Error().Err(err).Str("kind", errorKind(err)).Msg("run failed")
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", colorRed, colorReset, err)
		if errors.Is(err, config.ErrInvalid) {
			return exitConfig
		}
		return exitError
	}

	log.Info().
		Str("output", res.Output).
		Int("regions", res.Dissolved.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("done")
	fmt.Printf("%sWrote %d regions to %s%s\n", colorGreen, res.Dissolved.Len(), res.Output, colorReset)
	return 0
}

// publish upserts the dissolved regions into DB_TABLE. It runs before the
// GeoJSON is written, so a database failure leaves no output file.
func publish(cfg config.Config, c *types.Collection) error {
	db, err := database.NewDatabase(cfg.DB)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrIO, cfg.DB.Host, err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := db.EnsureTable(ctx, cfg.DBTable); err != nil {
		return fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	if _, err := db.PublishRegions(ctx, cfg.DBTable, c, cfg.GroupByField, cfg.CountField); err != nil {
		return fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	return nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, types.ErrIO):
		return "io"
	case errors.Is(err, types.ErrSchema):
		return "schema"
	case errors.Is(err, types.ErrGeometry):
		return "geometry"
	case errors.Is(err, config.ErrInvalid):
		return "config"
	default:
		return "other"
	}
}

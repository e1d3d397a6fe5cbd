// Package pipeline runs load, filter, dissolve and write in order.
package pipeline

import (
	"fmt"
	"time"

	"nwszones/internal/config"
	"nwszones/internal/dissolve"
	"nwszones/internal/filter"
	"nwszones/internal/geojson"
	"nwszones/internal/loader"
	"nwszones/internal/logger"
	"nwszones/internal/types"
)

// Viewer inspects the dissolved collection before it is written. It must not
// modify the collection.
type Viewer func(*types.Collection) error

// Option customises a run.
type Option func(*runner)

// Publisher sends the dissolved collection to a secondary sink.
type Publisher func(*types.Collection) error

// WithViewer calls v between dissolve and write.
func WithViewer(v Viewer) Option {
	return func(r *runner) { r.viewer = v }
}

// WithPublisher calls p after the viewer and before the output file is
// written, so a failed publish leaves no output behind.
func WithPublisher(p Publisher) Option {
	return func(r *runner) { r.publisher = p }
}

// Timings records how long each stage took.
type Timings struct {
	Load     time.Duration
	Filter   time.Duration
	Dissolve time.Duration
	View     time.Duration
	Publish  time.Duration
	Write    time.Duration
}

// Result is what a successful run produced.
type Result struct {
	Loaded    *types.Collection
	Filtered  *types.Collection
	Dissolved *types.Collection
	Output    string
	Timings   Timings
}

type runner struct {
	viewer    Viewer
	publisher Publisher
}

// Run executes the pipeline described by cfg. Any stage error aborts the run
// before the output file is touched.
func Run(cfg config.Config, opts ...Option) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &runner{}
	for _, o := range opts {
		o(r)
	}

	res := &Result{Output: cfg.OutputPath}
	var err error

	start := time.Now()
	if res.Loaded, err = loader.Load(cfg.InputPath); err != nil {
		return nil, err
	}
	res.Timings.Load = stageDone("load", start, res.Loaded)

	start = time.Now()
	if res.Filtered, err = filter.Equal(res.Loaded, cfg.FilterField, cfg.FilterValue); err != nil {
		return nil, err
	}
	res.Timings.Filter = stageDone("filter", start, res.Filtered)
	if res.Filtered.Len() == 0 {
		logger.Log.Warn().
			Str("field", cfg.FilterField).
			Str("value", cfg.FilterValue).
			Msg("no records matched the filter")
	}

	start = time.Now()
	res.Dissolved, err = dissolve.Dissolve(res.Filtered, cfg.GroupByField, dissolve.Options{
		Keep:       cfg.Keep,
		CountField: cfg.CountField,
		Repair:     cfg.Repair,
	})
	if err != nil {
		return nil, err
	}
	res.Timings.Dissolve = stageDone("dissolve", start, res.Dissolved)

	if r.viewer != nil {
		start = time.Now()
		if err := r.viewer(res.Dissolved); err != nil {
			return nil, fmt.Errorf("view: %w", err)
		}
		res.Timings.View = time.Since(start)
	}

	if r.publisher != nil {
		start = time.Now()
		if err := r.publisher(res.Dissolved); err != nil {
			return nil, fmt.Errorf("publish: %w", err)
		}
		res.Timings.Publish = stageDone("publish", start, res.Dissolved)
	}

	start = time.Now()
	if err := geojson.Write(res.Dissolved, cfg.OutputPath); err != nil {
		return nil, err
	}
	res.Timings.Write = stageDone("write", start, res.Dissolved)
	return res, nil
}

func stageDone(stage string, start time.Time, c *types.Collection) time.Duration {
	elapsed := time.Since(start)
	logger.Log.Info().
		Str("stage", stage).
		Int("records", c.Len()).
		Dur("elapsed", elapsed).
		Msg("stage complete")
	return elapsed
}

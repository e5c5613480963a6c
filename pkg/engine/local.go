package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/starkviz/pkg/canvas"
	"github.com/matzehuels/starkviz/pkg/composite"
	"github.com/matzehuels/starkviz/pkg/observability"
	"github.com/matzehuels/starkviz/pkg/render"
)

// RenderFunc renders one partition. It must allocate its own canvas and
// must not touch shared mutable state.
type RenderFunc func(ctx context.Context, partition int) (*canvas.Canvas, render.Stats, error)

// Job describes one run.
type Job struct {
	RunID      string
	Width      int
	Height     int
	Partitions int
	Render     RenderFunc
}

// Result is the outcome of a successful run.
type Result struct {
	Canvas     *canvas.Canvas
	Stats      render.Stats
	Partitions int
	// Encoded is the total size of transferred frames; zero without Transfer.
	Encoded int
	// MapTime is the wall time until the last partition finished rendering.
	MapTime time.Duration
	// ReduceTime is the time spent merging, excluding waits for partials.
	ReduceTime time.Duration
}

// Local runs partitions on a bounded pool of goroutines in this process.
type Local struct {
	// Workers bounds concurrent renders; GOMAXPROCS when < 1.
	Workers int

	// Transfer sends every partial through Exchange in portable form, as a
	// distributed engine would.
	Transfer bool

	// Exchange carries partials when Transfer is set. A MemoryExchange is
	// used when nil.
	Exchange Exchange

	Logger *log.Logger
}

type partial struct {
	index  int
	canvas *canvas.Canvas
	stats  render.Stats
	size   int
}

// Run renders every partition and reduces the partials in completion
// order. A render error or a canvas size mismatch aborts the run; errors
// inside individual records are the render function's business and only
// show up in the returned Stats.
func (e *Local) Run(ctx context.Context, job Job) (*Result, error) {
	if job.Render == nil {
		return nil, fmt.Errorf("engine: job has no render function")
	}
	logger := e.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	workers := e.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	exchange := e.Exchange
	if e.Transfer && exchange == nil {
		exchange = NewMemoryExchange(0)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	hooks := observability.Pipeline()
	local := make(chan partial, max(job.Partitions, 1))
	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(workers)

	start := time.Now()
	mapDone := make(chan time.Duration, 1)
	waitErr := make(chan error, 1)
	go func() {
		for i := 0; i < job.Partitions; i++ {
			g.Go(func() error {
				return e.renderOne(gctx, job, i, exchange, local, logger)
			})
		}
		err := g.Wait()
		mapDone <- time.Since(start)
		if err != nil {
			cancel()
		}
		waitErr <- err
	}()

	next := func() (partial, error) {
		if !e.Transfer {
			select {
			case p := <-local:
				return p, nil
			case <-runCtx.Done():
				return partial{}, runCtx.Err()
			}
		}
		frame, err := exchange.Collect(runCtx, job.RunID)
		if err != nil {
			return partial{}, err
		}
		return decodePartial(frame)
	}

	res := &Result{Partitions: job.Partitions}
	reducer := composite.NewReducer(job.Width, job.Height)
	var reduceErr error
	for reducer.Merged() < job.Partitions {
		p, err := next()
		if err != nil {
			reduceErr = err
			break
		}
		mergeStart := time.Now()
		if err := reducer.Add(p.canvas); err != nil {
			reduceErr = fmt.Errorf("partition %d: %w", p.index, err)
			break
		}
		res.ReduceTime += time.Since(mergeStart)
		res.Stats.Add(p.stats)
		res.Encoded += p.size
		logger.Debug("merged partition", "partition", p.index, "merged", reducer.Merged(), "of", job.Partitions)
	}

	if reduceErr != nil {
		cancel()
	}
	mapErr := <-waitErr
	res.MapTime = <-mapDone
	if exchange != nil {
		_ = exchange.Discard(context.WithoutCancel(ctx), job.RunID)
	}

	// Report the cause, not the cancellation it produced in the other phase.
	err := reduceErr
	if mapErr != nil && (err == nil || isCancellation(err)) {
		err = mapErr
	}
	hooks.OnReduceComplete(ctx, job.RunID, reducer.Merged(), res.ReduceTime, err)
	if err != nil {
		return nil, err
	}

	res.Canvas = reducer.Result()
	return res, nil
}

func (e *Local) renderOne(ctx context.Context, job Job, i int, exchange Exchange, local chan<- partial, logger *log.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	c, stats, err := job.Render(ctx, i)
	if err != nil {
		return fmt.Errorf("render partition %d: %w", i, err)
	}
	took := time.Since(start)

	observability.Pipeline().OnPartitionComplete(ctx, job.RunID, i, observability.PartitionReport{
		Records:  stats.Records,
		Drawn:    stats.Drawn,
		Skipped:  stats.Skipped,
		Duration: took,
	})
	logger.Debug("rendered partition", "partition", i, "records", stats.Records,
		"drawn", stats.Drawn, "skipped", stats.Skipped, "duration", took)

	if !e.Transfer {
		// buffered for every partition, never blocks
		local <- partial{index: i, canvas: c, stats: stats}
		return nil
	}

	portable, err := canvas.Encode(c)
	if err != nil {
		return fmt.Errorf("partition %d: %w", i, err)
	}
	frame, err := EncodeFrame(Partial{Partition: i, Canvas: portable, Stats: stats})
	if err != nil {
		return fmt.Errorf("partition %d: %w", i, err)
	}
	if err := exchange.Publish(ctx, job.RunID, frame); err != nil {
		return fmt.Errorf("publish partition %d: %w", i, err)
	}
	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func decodePartial(frame []byte) (partial, error) {
	p, err := DecodeFrame(frame)
	if err != nil {
		return partial{}, err
	}
	c, err := p.Canvas.Decode()
	if err != nil {
		return partial{}, fmt.Errorf("partition %d: %w", p.Partition, err)
	}
	return partial{index: p.Partition, canvas: c, stats: p.Stats, size: len(frame)}, nil
}

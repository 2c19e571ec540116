package app

import (
	"context"
	"errors"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/parity/internal/core/execution"
	"github.com/example/parity/internal/core/fixture"
	"github.com/example/parity/internal/ports/secondary"
)

// RunPlan describes one collection pass over a corpus.
type RunPlan struct {
	Fixtures        []fixture.Fixture
	ReferenceBinary string
	CandidateBinary string
	Timeout         time.Duration
	Jobs            int // <= 0 means one per CPU
}

// Collection is the outcome of a collection pass. Every scheduled
// (fixture, mode, origin) key appears exactly once, either in Results or in
// Errors.
type Collection struct {
	Results map[execution.Key]execution.Result
	Errors  []execution.RunError
}

// Result returns the captured result for key, if any.
func (c *Collection) Result(key execution.Key) (execution.Result, bool) {
	r, ok := c.Results[key]
	return r, ok
}

// DualRunner executes reference and candidate over every fixture/mode pair
// on a bounded pool. A failure in one invocation never stops the others.
type DualRunner struct {
	invoker secondary.ProcessInvoker
	logger  *zap.Logger
}

// NewDualRunner creates a DualRunner with injected dependencies.
func NewDualRunner(invoker secondary.ProcessInvoker, logger *zap.Logger) *DualRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DualRunner{invoker: invoker, logger: logger}
}

// slot is written by exactly one task.
type slot struct {
	result execution.Result
	err    *execution.RunError
}

// Run collects a result or RunError for every key in the plan. Cancelling
// ctx kills in-flight subprocesses; tasks that have not started are
// recorded as cancelled.
func (r *DualRunner) Run(ctx context.Context, plan RunPlan) *Collection {
	invocations := r.plan(plan)
	slots := make([]slot, len(invocations))

	jobs := plan.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	r.logger.Debug("starting collection",
		zap.Int("invocations", len(invocations)),
		zap.Int("jobs", jobs),
		zap.Duration("timeout", plan.Timeout))

	var group errgroup.Group
	group.SetLimit(jobs)

	for i := range invocations {
		inv := invocations[i]
		out := &slots[i]

		group.Go(func() error {
			if ctx.Err() != nil {
				out.err = &execution.RunError{Key: inv.Key, Kind: execution.ErrCancelled, Message: "run cancelled before start"}
				return nil
			}

			res, err := r.invoker.Invoke(ctx, inv)
			if err != nil {
				var runErr *execution.RunError
				if !errors.As(err, &runErr) {
					runErr = &execution.RunError{Key: inv.Key, Kind: execution.ErrLaunchFailure, Message: err.Error()}
				}
				out.err = runErr
				r.logger.Debug("invocation failed",
					zap.Stringer("key", inv.Key),
					zap.String("kind", string(runErr.Kind)),
					zap.String("message", runErr.Message))
				return nil
			}

			res.Key = inv.Key
			out.result = res
			r.logger.Debug("invocation finished",
				zap.Stringer("key", inv.Key),
				zap.Int("exit_code", res.ExitCode),
				zap.Duration("duration", res.Duration))
			return nil
		})
	}

	// Tasks never return errors; failures live in their slots.
	_ = group.Wait()

	collection := &Collection{Results: make(map[execution.Key]execution.Result, len(slots))}
	for i, s := range slots {
		if s.err != nil {
			collection.Errors = append(collection.Errors, *s.err)
			continue
		}
		collection.Results[invocations[i].Key] = s.result
	}

	r.logger.Debug("collection finished",
		zap.Int("results", len(collection.Results)),
		zap.Int("errors", len(collection.Errors)))

	return collection
}

// plan expands fixtures into one invocation per (fixture, mode, origin),
// reference first.
func (r *DualRunner) plan(plan RunPlan) []secondary.Invocation {
	var invocations []secondary.Invocation
	for _, f := range plan.Fixtures {
		for _, m := range f.Modes {
			for _, origin := range execution.Origins {
				binary := plan.ReferenceBinary
				if origin == execution.OriginCandidate {
					binary = plan.CandidateBinary
				}
				invocations = append(invocations, secondary.Invocation{
					Key:     execution.Key{Fixture: f.Name, Mode: m.Name, Origin: origin},
					Binary:  binary,
					Mode:    m,
					Input:   f.Input,
					Timeout: plan.Timeout,
				})
			}
		}
	}
	return invocations
}

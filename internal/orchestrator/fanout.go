package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/dusk-indust/memoforge/internal/agent"
	"github.com/dusk-indust/memoforge/internal/llm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SectionTask is one unit of work for FanOut.
type SectionTask struct {
	Title     string
	Generator agent.Generator

	// FetchContext returns the section's supporting text. It is called once,
	// before the first attempt, and the result is reused on every retry.
	// May be nil.
	FetchContext func(ctx context.Context) string

	Input agent.Input
}

// SectionResult holds the outcome of one SectionTask.
type SectionResult struct {
	Title            string
	Output           agent.Output
	ContextAvailable bool
	Attempts         int
	State            SectionState
	Err              error
}

// FanOut runs every task concurrently and retries each one within a fixed
// budget. A failing task never cancels its siblings.
type FanOut struct {
	attempts int
	backoff  time.Duration
	emit     func(ProgressEvent)
	logger   *zap.Logger
}

// NewFanOut creates a FanOut. emit is called synchronously from each
// goroutine; it may be nil.
func NewFanOut(cfg Config, emit func(ProgressEvent), logger *zap.Logger) *FanOut {
	if emit == nil {
		emit = func(ProgressEvent) {}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanOut{
		attempts: cfg.attempts(),
		backoff:  cfg.RetryBackoff,
		emit:     emit,
		logger:   logger,
	}
}

// Run dispatches every task in parallel and returns one result per task, in
// task order. Each goroutine writes only its own slot, and tasks always
// return nil to the group so the group never cancels anything.
func (f *FanOut) Run(ctx context.Context, runID string, tasks []SectionTask) []SectionResult {
	results := make([]SectionResult, len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = f.runOne(ctx, runID, task)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (f *FanOut) runOne(ctx context.Context, runID string, task SectionTask) SectionResult {
	res := SectionResult{Title: task.Title, State: StatePending}
	f.emit(ProgressEvent{Kind: EventSectionStarted, RunID: runID, Section: task.Title, At: time.Now()})

	in := task.Input
	if task.FetchContext != nil {
		text, err := guard(func() (string, error) { return task.FetchContext(ctx), nil })
		if err != nil {
			f.logger.Warn("context fetch failed, continuing without context",
				zap.String("run", runID),
				zap.String("section", task.Title),
				zap.Error(err),
			)
		}
		in.Context = text
	}
	res.ContextAvailable = in.Context != ""
	res.State = StateContextFetched
	msg := "no context"
	if res.ContextAvailable {
		msg = "context available"
	}
	f.emit(ProgressEvent{Kind: EventContextFetched, RunID: runID, Section: task.Title, Message: msg, At: time.Now()})

	res.State = StateGenerating
	out, attempts, err := retry(ctx, f.attempts, f.backoff,
		func(ctx context.Context, _ int) (agent.Output, error) {
			return guard(func() (agent.Output, error) { return task.Generator.Generate(ctx, in) })
		},
		func(attempt int, err error) {
			f.logger.Warn("section attempt failed, retrying",
				zap.String("run", runID),
				zap.String("section", task.Title),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			f.emit(ProgressEvent{
				Kind:    EventSectionRetried,
				RunID:   runID,
				Section: task.Title,
				Attempt: attempt + 1,
				Message: err.Error(),
				At:      time.Now(),
			})
		},
	)
	res.Attempts = attempts

	if err != nil {
		res.State = StateFailed
		res.Err = err
		f.logger.Error("section failed",
			zap.String("run", runID),
			zap.String("section", task.Title),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		f.emit(ProgressEvent{
			Kind:    EventSectionFailed,
			RunID:   runID,
			Section: task.Title,
			Attempt: attempts,
			Message: err.Error(),
			At:      time.Now(),
		})
		return res
	}

	res.State = StateSucceeded
	res.Output = out
	f.emit(ProgressEvent{
		Kind:    EventSectionSucceeded,
		RunID:   runID,
		Section: task.Title,
		Attempt: attempts,
		At:      time.Now(),
	})
	return res
}

// guard runs fn and turns a panic into a permanent error.
func guard[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out, err = zero, llm.Permanent(fmt.Errorf("generator panic: %v", r))
		}
	}()
	return fn()
}

// retry calls fn up to attempts times, waiting backoff between calls and
// invoking onRetry after every failure that will be retried. It stops early
// when ctx is done or the error is not retryable (see llm.IsRetryable). It
// returns the last error and the number of calls made.
func retry[T any](
	ctx context.Context,
	attempts int,
	backoff time.Duration,
	fn func(ctx context.Context, attempt int) (T, error),
	onRetry func(attempt int, err error),
) (T, int, error) {
	var (
		zero T
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		var out T
		out, err = fn(ctx, attempt)
		if err == nil {
			return out, attempt, nil
		}
		if attempt == attempts || ctx.Err() != nil || !llm.IsRetryable(err) {
			return zero, attempt, err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if backoff > 0 {
			t := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return zero, attempt, err
			case <-t.C:
			}
		}
	}
	return zero, attempts, err
}

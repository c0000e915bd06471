package stage

import (
	"context"
	"time"

	"reelsmith/internal/services"
)

// Progress is a point-in-time status event emitted during a stage execution.
type Progress struct {
	StageName       string
	PercentComplete int
	Message         string
	Timestamp       time.Time
}

// Sink receives progress events. A nil Sink is valid and discards events.
type Sink func(Progress)

// Stage is one typed unit of pipeline work.
//
// ValidateInput must be cheap and side-effect free. ExecuteCore may emit any
// number of progress events through report; percentages must be non-decreasing
// and within [0, 100]. ExecuteCore must honor ctx cancellation at every
// externally-awaited operation and iteration boundary.
type Stage[I, O any] interface {
	Name() string
	ValidateInput(input I) bool
	ExecuteCore(ctx context.Context, input I, report Sink) (O, error)
}

// Run executes a stage under the shared harness.
//
// The harness rejects invalid input before any side effect, emits the 0%
// event, runs the core, and emits the 100% event only when the core returns
// successfully. Errors from the core propagate unchanged.
func Run[I, O any](ctx context.Context, stg Stage[I, O], input I, sink Sink) (O, error) {
	var zero O
	if stg == nil {
		return zero, services.Wrap(services.ErrInvalidArgument, "", "run stage", "stage is nil", nil)
	}
	name := stg.Name()
	if !stg.ValidateInput(input) {
		return zero, services.Wrap(services.ErrValidation, name, "validate input", "input rejected", nil)
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	emit(sink, name, 0, "started")

	guarded := monotonicSink(sink, name)
	output, err := stg.ExecuteCore(ctx, input, guarded)
	if err != nil {
		return zero, err
	}

	emit(sink, name, 100, "completed")
	return output, nil
}

// monotonicSink clamps percentages into [0, 100] and drops regressions so
// consumers always observe a non-decreasing sequence.
func monotonicSink(sink Sink, name string) Sink {
	if sink == nil {
		return nil
	}
	last := 0
	return func(p Progress) {
		if p.PercentComplete < 0 {
			p.PercentComplete = 0
		}
		if p.PercentComplete > 100 {
			p.PercentComplete = 100
		}
		if p.PercentComplete < last {
			p.PercentComplete = last
		}
		last = p.PercentComplete
		if p.StageName == "" {
			p.StageName = name
		}
		if p.Timestamp.IsZero() {
			p.Timestamp = time.Now().UTC()
		}
		sink(p)
	}
}

func emit(sink Sink, name string, percent int, message string) {
	if sink == nil {
		return
	}
	sink(Progress{
		StageName:       name,
		PercentComplete: percent,
		Message:         message,
		Timestamp:       time.Now().UTC(),
	})
}

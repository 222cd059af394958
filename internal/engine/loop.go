package engine

import (
	"context"
	"errors"

	"GopherView/internal/logger"

	"go.uber.org/zap"
)

// ErrSurfaceClosed is the stop signal raised when the user closes the window.
var ErrSurfaceClosed = errors.New("surface closed")

type LoopState int32

const (
	Idle LoopState = iota
	Scheduled
	Rendering
	Stopped
)

func (s LoopState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Rendering:
		return "rendering"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Scheduler paces the render loop. Wait blocks until the next refresh tick
// and returns a non-nil error to stop the loop.
type Scheduler interface {
	Wait(ctx context.Context) error
}

// SurfaceScheduler presents the previous frame, processes window events and
// reports ErrSurfaceClosed once the window asks to close. Buffer swaps are
// synchronized to the display refresh by the surface's swap interval.
type SurfaceScheduler struct {
	Surface Surface
}

func (s SurfaceScheduler) Wait(ctx context.Context) error {
	s.Surface.SwapBuffers()
	s.Surface.PollEvents()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Surface.ShouldClose() {
		return ErrSurfaceClosed
	}
	return nil
}

// isStopSignal reports whether err is normal teardown rather than a failure.
func isStopSignal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrSurfaceClosed)
}

// Run drives frames until the scheduler reports a stop signal. The loop has
// no exit of its own; a stop signal returns nil, any other scheduler error is
// returned as is. Run must be called from the goroutine that owns the GL
// context.
func (v *Viewer) Run(ctx context.Context, sched Scheduler) error {
	logger.Log.Info("Render loop started")
	for {
		v.state.Store(int32(Scheduled))
		if err := sched.Wait(ctx); err != nil {
			v.state.Store(int32(Stopped))
			if isStopSignal(err) {
				logger.Log.Info("Render loop stopped",
					zap.Uint64("frames", v.frames.Load()),
					zap.String("reason", err.Error()))
				return nil
			}
			logger.Log.Error("Render loop aborted", zap.Error(err))
			return err
		}
		v.state.Store(int32(Rendering))
		v.Frame()
	}
}

// State returns the loop state. Safe to call from any goroutine.
func (v *Viewer) State() LoopState {
	return LoopState(v.state.Load())
}

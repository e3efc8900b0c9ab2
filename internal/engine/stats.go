package engine

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/emberforge/engine/internal/core/system"
)

type frameStats struct {
	since    time.Time
	frames   uint64
	window   int
	dispatch time.Duration
	slowest  coresys.Span

	steps         uint64
	bodiesCreated uint64
	bodiesRemoved uint64
}

func (s *frameStats) record(d time.Duration, spans []coresys.Span) {
	if s.since.IsZero() {
		s.since = time.Now()
	}
	s.frames++
	s.window++
	s.dispatch += d
	for _, sp := range spans {
		if sp.End.Sub(sp.Start) > s.slowest.End.Sub(s.slowest.Start) {
			s.slowest = sp
		}
	}
}

func (e *Engine) logStats() {
	s := &e.stats
	elapsed := time.Since(s.since)
	fps := float64(s.window) / elapsed.Seconds()
	e.log.Info("frame stats",
		zap.Float64("fps", fps),
		zap.Duration("avg_frame", s.dispatch/time.Duration(max(s.window, 1))),
		zap.String("slowest_system", s.slowest.System),
		zap.Duration("slowest", s.slowest.End.Sub(s.slowest.Start)),
		zap.Uint64("physics_steps", s.steps),
		zap.Int("bodies", e.Physics.Handles.Bodies()),
		zap.Int("draws", e.render.Drawn()),
		zap.Uint64("model_rebuilds", e.transforms.Total()),
	)
	s.since = time.Now()
	s.window = 0
	s.dispatch = 0
	s.slowest = coresys.Span{}
}

package service

import (
	"context"
	"time"

	"smartpot/internal/history"
	"smartpot/internal/logger"
)

// RecorderTick is fixed at one second: the boiling-time metric treats a
// point's index as elapsed seconds, so the sampling rate must stay 1 Hz for
// that proxy to hold.
const RecorderTick = 1 * time.Second

// Recorder samples the latest bridge reading into the history store once
// per tick. Stop via context cancellation in main() for graceful shutdown.
type Recorder struct {
	telemetry Telemetry
	history   *history.Store
	log       *logger.Logger
}

func NewRecorder(telemetry Telemetry, hist *history.Store, log *logger.Logger) *Recorder {
	return &Recorder{telemetry: telemetry, history: hist, log: log}
}

// Run ticks at the given interval until ctx is canceled. Ticks with no data
// yet are skipped; the history only grows while readings arrive.
func (r *Recorder) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			reading, ok := r.telemetry.Latest()
			if !ok {
				continue
			}
			p := r.history.Append(reading.Temperature, now)
			r.log.Debugw("recorded point", "index", p.Index, "temp", p.Temp)
		}
	}
}

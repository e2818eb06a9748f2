package workers

import (
	"context"
	"log/slog"
	"time"
)

const DefaultSweepInterval = time.Minute

type Expirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// ExpirySweeper periodically flips reports past their expiry to inactive.
// Reads apply expiry lazily, so a missed tick only delays the physical write.
type ExpirySweeper struct {
	expirer  Expirer
	interval time.Duration
	logger   *slog.Logger
}

func NewExpirySweeper(expirer Expirer, interval time.Duration, logger *slog.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &ExpirySweeper{
		expirer:  expirer,
		interval: interval,
		logger:   logger,
	}
}

func (w *ExpirySweeper) Run(ctx context.Context) {
	w.logger.Info("expiry sweeper started", slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpirySweeper) sweep(ctx context.Context) {
	const op = "workers.ExpirySweeper.sweep"

	n, err := w.expirer.ExpireStale(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("sweep failed", slog.String("op", op), slog.Any("error", err))
		return
	}
	if n > 0 {
		w.logger.Info("expired reports", slog.Int("count", n))
	}
}

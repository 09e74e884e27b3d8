package scheduler

import (
	"context"
	"log/slog"

	"ticketdesk/internal/model"
)

// StatsSource reports slot usage of a ticket store.
type StatsSource interface {
	Stats(ctx context.Context) (model.Stats, error)
}

// StoreStatsJob logs a snapshot of the ticket store on every run.
func StoreStatsJob(src StatsSource, logger *slog.Logger) JobFunc {
	return func(ctx context.Context) error {
		st, err := src.Stats(ctx)
		if err != nil {
			return err
		}
		logger.Info("store stats",
			slog.Int("slots", st.Slots),
			slog.Int("live", st.Live),
			slog.Int("tombstones", st.Tombstones),
		)
		return nil
	}
}

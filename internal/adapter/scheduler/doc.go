// Package scheduler runs periodic background jobs on robfig/cron.
//
// Jobs receive a context that is canceled when the scheduler stops and,
// when JobOptions.Timeout is set, bounded by that timeout. Panics are
// recovered and logged. Overlapping executions follow JobOptions.OverlapPolicy.
//
//	s := scheduler.New(scheduler.Config{Logger: log})
//	_, err := s.Add("@every 1m", scheduler.StoreStatsJob(mc, log), scheduler.JobOptions{
//		Name:          "store-stats",
//		Timeout:       5 * time.Second,
//		OverlapPolicy: scheduler.SkipIfRunning,
//	})
//	s.Start()
//	defer s.Stop(ctx)
package scheduler

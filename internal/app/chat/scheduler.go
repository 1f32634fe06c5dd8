/*
This file defines the Scheduler, which owns every timer the server uses:
periodic stats broadcast, history compaction, the auto-rain interval check, and
the once-per-hour check anchored to a configured minute. Each trigger posts its
work onto the hub loop; Stop cancels the whole group.
*/
package chat

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rainchat/internal/configs"
	"rainchat/internal/pkg/logx"
)

// Scheduler drives the periodic economy and housekeeping tasks.
type Scheduler struct {
	cfg *configs.AppConfig
	hub *Hub

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger zerolog.Logger
}

// NewScheduler constructs a Scheduler bound to the hub. Call Start to arm the timers.
func NewScheduler(cfg *configs.AppConfig, hub *Hub) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		hub:      hub,
		stopChan: make(chan struct{}),
		logger:   logx.Logger().With().Str("component", "Scheduler").Logger(),
	}
}

// Start arms all periodic triggers.
func (s *Scheduler) Start() {
	s.every("stats_broadcast", s.cfg.StatsInterval, s.hub.broadcastStats)
	s.every("history_compaction", s.cfg.CompactInterval, s.hub.compactHistories)
	s.every("auto_rain_check", s.cfg.AutoRainInterval, func() {
		s.hub.economy.CheckDistribution(s.cfg.AutoRainThreshold)
	})

	s.wg.Add(1)
	go s.runHourly()

	s.logger.Info().
		Dur("stats_interval", s.cfg.StatsInterval).
		Dur("compact_interval", s.cfg.CompactInterval).
		Dur("auto_rain_interval", s.cfg.AutoRainInterval).
		Int("rain_check_minute", s.cfg.RainCheckMinute).
		Msg("Scheduler started.")
}

// Stop cancels every outstanding timer and waits for the trigger goroutines to exit.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()

	s.logger.Info().Msg("Scheduler stopped, all timers cancelled.")
}

// every runs task on the hub loop at a fixed interval until the scheduler stops.
func (s *Scheduler) every(name string, interval time.Duration, task func()) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if !s.hub.Do(task) {
					s.logger.Info().Str("trigger", name).Msg("Hub stopped, trigger exiting.")
					return
				}

			case <-s.stopChan:
				return
			}
		}
	}()
}

// runHourly fires the rain check once per hour at the configured minute.
func (s *Scheduler) runHourly() {
	defer s.wg.Done()

	for {
		timer := time.NewTimer(s.untilNextCheck(time.Now()))

		select {
		case <-timer.C:
			if !s.hub.Do(s.hub.economy.HourlyCheck) {
				return
			}

		case <-s.stopChan:
			timer.Stop()
			return
		}
	}
}

// untilNextCheck returns the duration until the next wall-clock occurrence of
// the configured minute-of-hour.
func (s *Scheduler) untilNextCheck(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), s.cfg.RainCheckMinute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(time.Hour)
	}
	return next.Sub(now)
}

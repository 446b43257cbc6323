package cache

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Janitor periodically sweeps expired entries from a Memory cache so
// long-lived clients with quiet keys do not accumulate dead entries.
// Lazy eviction on Get remains the correctness mechanism; the janitor
// only reclaims memory.
type Janitor struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewJanitor schedules a sweep of the cache on the given cron spec
// (e.g. "@every 1m"). The janitor is not started until Start is called.
func NewJanitor(c *Memory, schedule string, logger zerolog.Logger) (*Janitor, error) {
	j := &Janitor{
		cron:   cron.New(),
		logger: logger.With().Str("component", "cache-janitor").Logger(),
	}

	_, err := j.cron.AddFunc(schedule, func() {
		if removed := c.Sweep(); removed > 0 {
			j.logger.Debug().Int("removed", removed).Msg("Swept expired cache entries")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins background sweeping.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts background sweeping. Blocks until a running sweep finishes.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

package oauth2

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/storage"
)

const sweepBatchSize = 100

// Sweeper refreshes credentials that are about to expire so interactive
// requests rarely pay for a refresh
type Sweeper struct {
	store     storage.Store
	refresher *Refresher
	schedule  cron.Schedule
	expr      string
	batch     int
	logger    logging.Logger
	now       func() time.Time

	cron    *cron.Cron
	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// NewSweeper parses schedule as a cron expression (seconds optional) or a
// descriptor such as "@every 1m"
func NewSweeper(store storage.Store, refresher *Refresher, schedule string, logger logging.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, errors.ConfigError("invalid refresh sweep schedule: " + err.Error())
	}
	return &Sweeper{
		store:     store,
		refresher: refresher,
		schedule:  sched,
		expr:      schedule,
		batch:     sweepBatchSize,
		logger:    logger.WithFields(logging.Field{"component", "oauth2_sweeper"}),
		now:       time.Now,
	}, nil
}

// Start runs the sweep on its schedule until Stop
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New()
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		s.Sweep(ctx)
	}))
	s.cron.Start()
	s.logger.Info("Refresh sweep scheduled", logging.Field{"schedule", s.expr})
}

// Stop cancels a running sweep and waits for it to return
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.cron = nil
}

// Sweep refreshes every credential expiring within the safety margin. Runs
// do not overlap; a tick that finds one in progress is skipped.
func (s *Sweeper) Sweep(ctx context.Context) (refreshed, failed int) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug("Previous sweep still running, skipping")
		return 0, 0
	}
	defer s.running.Store(false)

	due, err := s.store.ListExpiring(ctx, s.now().Add(SafetyMargin), s.batch)
	if err != nil {
		s.logger.Error("Failed to list expiring credentials", err)
		return 0, 0
	}

	for _, cred := range due {
		if ctx.Err() != nil {
			break
		}
		// Dead grants wait for the user to reconnect
		if cred.RefreshExpired(s.now()) || cred.NeedsReauth() {
			continue
		}
		if _, err := s.refresher.EnsureValid(ctx, cred); err != nil {
			failed++
			s.logger.Warn("Proactive refresh failed",
				logging.Field{"provider", string(cred.Provider)},
				logging.Field{"owner", cred.Owner.Key()},
				logging.Field{"error_type", string(errors.GetType(err))},
			)
			continue
		}
		refreshed++
	}

	if len(due) > 0 {
		s.logger.Info("Refresh sweep finished",
			logging.Field{"due", len(due)},
			logging.Field{"refreshed", refreshed},
			logging.Field{"failed", failed},
		)
	}
	return refreshed, failed
}

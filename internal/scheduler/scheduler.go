// Package scheduler owns the background triggers that drive recurring
// transaction generation and retention.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"finanzas/internal/config"
	apperrors "finanzas/internal/errors"
	"finanzas/internal/logger"
	"finanzas/internal/services"
)

// Handle owns the cron timers. It is created once at process boot and
// stopped at shutdown; trigger bodies are exported so tests can invoke
// them directly instead of waiting on real timers.
type Handle struct {
	cron       *cron.Cron
	generation services.GenerationServicer
	cfg        *config.Config
	loc        *time.Location

	// genMu serializes generation runs across triggers. Overlapping
	// invocations are skipped, not queued: the store assumes a single
	// writer per series.
	genMu sync.Mutex
}

// New builds a scheduler handle with three independent triggers in the
// configured civil timezone:
//   - hourly generation inside the daytime window
//   - a daily early-morning backstop generation, guaranteeing at least one
//     attempt per calendar day even if interval fires were missed
//   - a monthly retention sweep over old generated transactions
func New(cfg *config.Config, generation services.GenerationServicer) (*Handle, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.SchedulerTimezone, err)
	}

	clog := cronLogger{logger.Get()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(clog)),
	)

	h := &Handle{cron: c, generation: generation, cfg: cfg, loc: loc}

	windowSpec := fmt.Sprintf("0 %d-%d * * *", cfg.WindowStartHour, cfg.WindowEndHour)
	if _, err := c.AddFunc(windowSpec, h.RunGeneration); err != nil {
		return nil, fmt.Errorf("invalid generation window spec %q: %w", windowSpec, err)
	}

	backstopSpec := fmt.Sprintf("0 %d * * *", cfg.BackstopHour)
	if _, err := c.AddFunc(backstopSpec, h.RunGeneration); err != nil {
		return nil, fmt.Errorf("invalid backstop spec %q: %w", backstopSpec, err)
	}

	// First day of each month at 02:00.
	if _, err := c.AddFunc("0 2 1 * *", h.RunRetention); err != nil {
		return nil, fmt.Errorf("failed to register retention trigger: %w", err)
	}

	return h, nil
}

// Start begins firing the triggers.
func (h *Handle) Start() {
	h.cron.Start()
	logger.Get().Infow("recurring transaction scheduler started",
		"timezone", h.cfg.SchedulerTimezone,
		"window_hours", fmt.Sprintf("%d-%d", h.cfg.WindowStartHour, h.cfg.WindowEndHour),
		"backstop_hour", h.cfg.BackstopHour,
	)
}

// Stop halts the timers and waits for any in-flight job to finish. A
// partially processed batch is safe to abandon: unadvanced series are
// simply retried on the next run.
func (h *Handle) Stop() {
	ctx := h.cron.Stop()
	<-ctx.Done()
	logger.Get().Info("recurring transaction scheduler stopped")
}

// TriggerGeneration performs one generation pass for today in the
// scheduler's timezone. Returns ErrGenerationInFlight if a pass is already
// running; callers decide whether that is worth reporting.
func (h *Handle) TriggerGeneration() (int, error) {
	if !h.genMu.TryLock() {
		return 0, apperrors.ErrGenerationInFlight
	}
	defer h.genMu.Unlock()

	today := time.Now().In(h.loc)
	return h.generation.GenerateDue(today)
}

// RunGeneration is the cron trigger body. Overlapping invocations are
// skipped, not queued.
func (h *Handle) RunGeneration() {
	count, err := h.TriggerGeneration()
	if err != nil {
		if errors.Is(err, apperrors.ErrGenerationInFlight) {
			logger.Get().Warnw("generation already running, skipping overlapping invocation")
			return
		}
		logger.Get().Errorw("scheduled generation failed", "error", err)
		return
	}
	logger.Get().Infow("scheduled generation finished", "generated", count)
}

// RunRetention deletes generated transactions older than the configured
// retention window. Failures are logged and left for next month's trigger;
// retention never blocks generation.
func (h *Handle) RunRetention() {
	cutoff := h.cfg.RetentionCutoff(time.Now().In(h.loc))
	purged, err := h.generation.PurgeGeneratedOlderThan(cutoff)
	if err != nil {
		logger.Get().Errorw("retention sweep failed", "error", err)
		return
	}
	if purged > 0 {
		logger.Get().Infow("retention sweep removed old generated transactions", "count", purged)
	}
}

// cronLogger adapts the zap sugared logger to cron's Logger interface.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type Refresher interface {
	RefreshAll(ctx context.Context) map[string]error
}

type Notifier interface {
	Send(ctx context.Context, msg string)
}

type RefreshConfig struct {
	// Spec is a robfig/cron expression such as "@every 1h" or "0 */30 * * * *"
	// (seconds field optional).
	Spec       string
	RunOnStart bool
	Timeout    time.Duration
}

// RefreshScheduler warms the price store on a cron schedule so request paths
// rarely have to wait on an upstream.
type RefreshScheduler struct {
	svc    Refresher
	notify Notifier
	cfg    RefreshConfig
	log    logrus.FieldLogger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewRefreshScheduler(svc Refresher, notify Notifier, cfg RefreshConfig, log logrus.FieldLogger) *RefreshScheduler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RefreshScheduler{svc: svc, notify: notify, cfg: cfg, log: log}
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSpec reports whether spec parses.
func ValidateSpec(spec string) error {
	_, err := parser.Parse(spec)
	return err
}

func (s *RefreshScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.log.Info("already running")
		return nil
	}

	c := cron.New(cron.WithParser(parser))
	if _, err := c.AddFunc(s.cfg.Spec, s.tick); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = c
	s.running = true
	c.Start()

	if s.cfg.RunOnStart {
		go s.tick()
	}

	s.log.Infof("started (%s)", s.cfg.Spec)
	return nil
}

// Stop halts the schedule and waits for a running refresh to return.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c, cancel := s.cron, s.cancel
	s.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	s.log.Info("stopped")
}

func (s *RefreshScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow refreshes every resource immediately and returns the failures.
func (s *RefreshScheduler) RunNow(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := time.Now()
	failed := s.svc.RefreshAll(ctx)
	if len(failed) == 0 {
		s.log.WithField("took", time.Since(started).Round(time.Millisecond).String()).Info("refresh complete")
		return failed
	}

	msg := summarize(failed)
	s.log.Warn(msg)
	if s.notify != nil {
		s.notify.Send(ctx, msg)
	}
	return failed
}

func (s *RefreshScheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.RunNow(ctx)
}

func summarize(failed map[string]error) string {
	keys := make([]string, 0, len(failed))
	for k := range failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, failed[k]))
	}
	return fmt.Sprintf("refresh failed for %d resource(s): %s", len(keys), strings.Join(parts, "; "))
}

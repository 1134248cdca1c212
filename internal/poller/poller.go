// Package poller owns the recurring sampling loops that feed live database
// statistics into the metrics registry, one loop per monitored target.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/queryhawk/queryhawk/internal/metrics"
	"github.com/queryhawk/queryhawk/internal/pgurl"
)

// ErrAlreadyRunning is returned by Start when a loop already exists for the
// user.
var ErrAlreadyRunning = errors.New("poller already running for this user")

// Stats is the result of one sampling cycle.
type Stats struct {
	Database       string
	Transactions   float64
	BlocksHit      float64
	BlocksRead     float64
	ActiveSessions float64
}

// Sampler performs sampling cycles against one monitored database.
type Sampler interface {
	Sample(ctx context.Context) (Stats, error)
	Close()
}

// SamplerFactory opens a Sampler for a connection string. The ctx deadline
// bounds connection establishment.
type SamplerFactory func(ctx context.Context, connectionURI string) (Sampler, error)

type loop struct {
	cancel  context.CancelFunc
	done    chan struct{}
	datname string // last database identity observed, for the degraded gauge
}

// Supervisor manages one sampling loop per user ID.
type Supervisor struct {
	log            *logrus.Logger
	reg            *metrics.Registry
	interval       time.Duration
	connectTimeout time.Duration
	newSampler     SamplerFactory

	mu    sync.Mutex
	loops map[string]*loop
}

// NewSupervisor creates a Supervisor. A nil factory uses the PostgreSQL
// sampler.
func NewSupervisor(log *logrus.Logger, reg *metrics.Registry, interval, connectTimeout time.Duration, factory SamplerFactory) *Supervisor {
	if factory == nil {
		factory = NewPgSampler
	}

	return &Supervisor{
		log:            log,
		reg:            reg,
		interval:       interval,
		connectTimeout: connectTimeout,
		newSampler:     factory,
		loops:          make(map[string]*loop),
	}
}

// Start opens a sampler for the target database, performs one immediate
// sample, and schedules periodic sampling. It fails with ErrAlreadyRunning
// if a loop for userID exists, and with the sampler's connection error if
// the database is unreachable.
func (s *Supervisor) Start(ctx context.Context, userID, connectionURI string) error {
	s.mu.Lock()
	if _, exists := s.loops[userID]; exists {
		s.mu.Unlock()

		return ErrAlreadyRunning
	}
	// Reserve the slot with its cancel already in place before the (slow)
	// connection attempt, so a concurrent Start for the same user fails fast
	// and a concurrent Stop always has something to cancel.
	loopCtx, loopCancel := context.WithCancel(context.Background())
	l := &loop{cancel: loopCancel, done: make(chan struct{}), datname: "postgres"}
	s.loops[userID] = l
	s.mu.Unlock()

	dialCtx, dialCancel := context.WithTimeout(loopCtx, s.connectTimeout)
	defer dialCancel()
	// The caller's context still bounds the dial.
	stopWatch := context.AfterFunc(ctx, dialCancel)
	defer stopWatch()

	sampler, err := s.newSampler(dialCtx, connectionURI)
	if err != nil {
		s.unregister(userID, l)
		loopCancel()
		close(l.done)

		return err
	}

	// A Stop that raced the dial wins; the sampler never goes live.
	if err := loopCtx.Err(); err != nil {
		sampler.Close()
		close(l.done)

		return err
	}

	// Immediate sample so dashboards are populated before the first tick.
	// Its failure is a steady-state condition, not a Start failure.
	s.runCycle(sampler, l, userID)

	go s.run(loopCtx, sampler, l, userID)

	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"database": pgurl.Mask(connectionURI),
		"interval": s.interval.String(),
	}).Info("metrics polling started")

	return nil
}

// Stop cancels the loop for userID. No-op if no loop is running; safe to
// call even if Start was never called. An in-flight sampling cycle is
// allowed to complete.
func (s *Supervisor) Stop(userID string) {
	s.mu.Lock()
	l, ok := s.loops[userID]
	if ok {
		delete(s.loops, userID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	l.cancel()
	s.log.WithField("user_id", userID).Info("metrics polling stopped")
}

// StopAll cancels every loop and waits for the loop goroutines to finish.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	loops := make(map[string]*loop, len(s.loops))
	for id, l := range s.loops {
		loops[id] = l
	}
	s.loops = make(map[string]*loop)
	s.mu.Unlock()

	for _, l := range loops {
		l.cancel()
	}

	for _, l := range loops {
		<-l.done
	}
}

// unregister drops the slot for userID if it still belongs to l. A Stop that
// raced the dial has already removed it, and a later Start may have
// registered a fresh loop under the same ID.
func (s *Supervisor) unregister(userID string, l *loop) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loops[userID] == l {
		delete(s.loops, userID)
	}
}

// Running reports whether a loop exists for userID.
func (s *Supervisor) Running(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.loops[userID]

	return ok
}

func (s *Supervisor) run(ctx context.Context, sampler Sampler, l *loop, userID string) {
	defer close(l.done)
	defer sampler.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(sampler, l, userID)
		}
	}
}

// runCycle executes one sampling cycle. The cycle carries its own deadline,
// independent of loop cancellation, so stopping the poller never aborts an
// in-flight sample.
func (s *Supervisor) runCycle(sampler Sampler, l *loop, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.connectTimeout)
	defer cancel()

	stats, err := sampler.Sample(ctx)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("sampling cycle failed")
		s.observe(metrics.ConnectionStatus, map[string]string{"datname": l.datname}, 0)

		return
	}

	l.datname = stats.Database

	labels := map[string]string{"datname": stats.Database}
	s.observe(metrics.ConnectionStatus, labels, 1)
	s.observe(metrics.TransactionTotal, labels, stats.Transactions)
	s.observe(metrics.BlocksHit, labels, stats.BlocksHit)
	s.observe(metrics.BlocksRead, labels, stats.BlocksRead)
	s.observe(metrics.ActiveConnections, labels, stats.ActiveSessions)
}

// observe writes to the registry; a failure here means a metric was never
// registered, which is a defect worth shouting about.
func (s *Supervisor) observe(name string, labels map[string]string, value float64) {
	if err := s.reg.Observe(name, labels, value); err != nil {
		s.log.WithError(err).WithField("metric", name).Error("registry observe failed")
	}
}

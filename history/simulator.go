package history

import (
	"context"
	"time"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/notify"
	"github.com/panelkit/panelctl/protocol/perrors"
	"github.com/panelkit/panelctl/support/logging"

	"github.com/pkg/errors"
)

// DefaultInterval is the default polling interval between history fetches.
const DefaultInterval = 5 * time.Second

// DefaultDepth is the default number of trailing history entries fetched per
// iteration.
const DefaultDepth = 5

// Simulator synthesizes DeviceAlert notifications by periodically polling
// the panel's history log, for panels that cannot push notifications of
// their own. Start launches a goroutine and returns immediately; Stop
// cancels it and blocks until it exits.
type Simulator struct {
	Engine     *command.Engine
	Host       string
	Port       int
	Dispatcher *notify.Dispatcher

	// Interval between fetches; DefaultInterval if zero.
	Interval time.Duration
	// Depth is the number of trailing entries fetched each iteration;
	// DefaultDepth if zero.
	Depth int

	Logger logging.L

	// StopLocalListener, if set, is called once at Start to suspend any
	// local-notification listener sharing the panel's address; it reports
	// whether a listener was actually running. StartLocalListener, if set,
	// is called at Stop to resume it, only if StopLocalListener reported
	// true.
	StopLocalListener  func() bool
	StartLocalListener func() error

	cancelFunc context.CancelFunc
	finishedC  chan struct{}
	wasRunning bool
}

// Start begins polling. It runs until ctx is cancelled or Stop is called.
func (s *Simulator) Start(ctx context.Context) {
	if s.StopLocalListener != nil {
		s.wasRunning = s.StopLocalListener()
	}

	c, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	s.finishedC = make(chan struct{})

	go func() {
		defer close(s.finishedC)
		s.run(c)
	}()
}

// Stop cancels the simulator and restarts the local listener if it was
// running when Start was called.
func (s *Simulator) Stop() {
	s.cancelFunc()
	<-s.finishedC

	if s.wasRunning && s.StartLocalListener != nil {
		if err := s.StartLocalListener(); err != nil {
			logging.Must(s.Logger).Errorf("history: failed to restart local listener after stopping simulation: %s", err)
		}
	}
}

func (s *Simulator) run(ctx context.Context) {
	logger := logging.Must(s.Logger)

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	depth := s.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSeen int64
	firstIteration := true

	for {
		entries, err := Fetch(ctx, s.Engine, s.Host, s.Port, depth)
		switch {
		case err == nil:
			lastSeen = s.processIteration(entries, lastSeen, firstIteration, logger)
			firstIteration = false

		case isTransient(err):
			logger.Warnf("history: transient error polling history, will retry: %s", err)

		default:
			logger.Errorf("history: simulation stopped by error fetching history: %s", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// processIteration injects DeviceAlerts for entries newer than lastSeen (skipped
// entirely on the first iteration, which only learns the current newest
// timestamp) and returns the newest timestamp observed.
func (s *Simulator) processIteration(entries []Entry, lastSeen int64, firstIteration bool, logger logging.L) int64 {
	newest := lastSeen
	for _, e := range entries {
		if e.raw.UnixTime > newest {
			newest = e.raw.UnixTime
		}
	}

	if firstIteration {
		return newest
	}

	// entries are sorted newest-first; walk in reverse so alerts are
	// injected in chronological order.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.raw.UnixTime <= lastSeen {
			continue
		}
		if err := s.Dispatcher.HandleDeviceAlert(e.AsDeviceAlert(), false); err != nil {
			logger.Errorf("history: failed to dispatch simulated alert: %s", err)
		}
	}
	return newest
}

func isTransient(err error) bool {
	return errors.Is(err, perrors.Timeout) || errors.Is(err, perrors.PanelCommand)
}

package panel

import (
	"context"
	"time"

	"github.com/panelkit/panelctl/history"
)

// History fetches the most recent count history entries.
func (p *Panel) History(ctx context.Context, count int) ([]history.Entry, error) {
	return history.Fetch(ctx, p.Engine, p.Addr.Host, p.Addr.Port, count)
}

// SimulatorOptions configures StartHistorySimulator.
type SimulatorOptions struct {
	Interval time.Duration // history.DefaultInterval if zero
	Depth    int
}

// StartHistorySimulator begins synthesizing DeviceAlert notifications from
// polled history, for panels that never push their own. While running, it
// suspends (and on Stop, resumes) the local notification listener, since
// the two would otherwise race to report the same events.
func (p *Panel) StartHistorySimulator(ctx context.Context, opts SimulatorOptions) {
	sim := &history.Simulator{
		Engine:     p.Engine,
		Host:       p.Addr.Host,
		Port:       p.Addr.Port,
		Dispatcher: p.Dispatcher,
		Depth:      opts.Depth,
		Interval:   opts.Interval,
		Logger:     p.logger,

		StopLocalListener:  p.StopLocalListener,
		StartLocalListener: p.restartLocalListener,
	}
	// p.mu is not held across Start: Start calls StopLocalListener, which
	// takes p.mu itself.
	sim.Start(ctx)

	p.mu.Lock()
	p.simulator = sim
	p.mu.Unlock()
}

// StopHistorySimulator stops the simulator if one is running.
func (p *Panel) StopHistorySimulator() {
	p.mu.Lock()
	sim := p.simulator
	p.simulator = nil
	p.mu.Unlock()

	if sim != nil {
		sim.Stop()
	}
}

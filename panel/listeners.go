package panel

import (
	"context"

	"github.com/panelkit/panelctl/notify"
)

// StartLocalListener binds the local-notification UDP listener (default
// port notify.DefaultPort) and begins dispatching datagrams to the panel's
// Dispatcher. It returns once the socket is bound.
func (p *Panel) StartLocalListener(ctx context.Context, port int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	l := &notify.Listener{Dispatcher: p.Dispatcher}
	if err := l.Start(ctx, port); err != nil {
		return err
	}
	p.Listener = l
	p.listenerPort = port
	return nil
}

// StopLocalListener reports whether a listener was running, closing it if
// so. It satisfies history.Simulator.StopLocalListener's signature.
func (p *Panel) StopLocalListener() bool {
	p.mu.Lock()
	l := p.Listener
	p.Listener = nil
	p.mu.Unlock()

	if l == nil {
		return false
	}
	l.Stop()
	return true
}

// restartLocalListener satisfies history.Simulator.StartLocalListener's
// signature, reusing the port last passed to StartLocalListener.
func (p *Panel) restartLocalListener() error {
	return p.StartLocalListener(context.Background(), p.listenerPort)
}

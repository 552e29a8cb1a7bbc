package panel

import (
	"context"

	"github.com/panelkit/panelctl/cloudserver"
	"github.com/panelkit/panelctl/notify"
	"github.com/panelkit/panelctl/protocol/cloud"
	"github.com/panelkit/panelctl/support/logging"
)

// cloudListener tracks a running cloudserver.Server alongside the
// cancellation needed to stop it.
type cloudListener struct {
	server *cloudserver.Server
	cancel context.CancelFunc
}

// CloudListenerOptions configures StartCloudListener.
type CloudListenerOptions struct {
	// Addr is the TCP address to listen on, e.g. ":15111".
	Addr string
	// Upstream, if set, transparently relays every connection instead of
	// decoding and dispatching it locally.
	Upstream string
}

// StartCloudListener binds a cloud-protocol TCP server on opts.Addr. Cloud
// status-change and notification frames are translated into DeviceAlerts
// and handed to the panel's Dispatcher, exactly like locally-received
// notifications, except that a mismatched device id logs and is dropped
// rather than rejected outright (see notify.Dispatcher.HandleDeviceAlert).
func (p *Panel) StartCloudListener(ctx context.Context, opts CloudListenerOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cctx, cancel := context.WithCancel(ctx)
	srv := &cloudserver.Server{
		Addr:     opts.Addr,
		Upstream: opts.Upstream,
		Logger:   p.logger,
	}
	srv.OnDispatch = func(identity string, frame cloud.Frame) (cloud.Message, error) {
		p.handleCloudFrame(identity, frame)
		return nil, nil
	}

	errC := make(chan error, 1)
	go func() {
		errC <- srv.ListenAndServe(cctx)
	}()
	select {
	case err := <-errC:
		cancel()
		return err
	default:
	}

	p.cloud = &cloudListener{server: srv, cancel: cancel}
	return nil
}

// StopCloudListener stops the cloud listener if one is running.
func (p *Panel) StopCloudListener() {
	p.mu.Lock()
	c := p.cloud
	p.cloud = nil
	p.mu.Unlock()

	if c != nil {
		c.cancel()
	}
}

// handleCloudFrame translates one decoded cloud frame into a DeviceAlert
// (or, for an embedded local-protocol Notification, replays it directly
// through the local-datagram path) and hands it to the Dispatcher.
func (p *Panel) handleCloudFrame(identity string, frame cloud.Frame) {
	logger := logging.Must(p.logger)

	switch m := frame.Message.(type) {
	case *cloud.StateChange:
		p.dispatchCloudAlert(notify.DeviceAlert{Type: notify.AlertStateChange, State: int(m.State), DeviceID: identity})

	case *cloud.AlarmChange:
		p.dispatchCloudAlert(notify.DeviceAlert{Type: notify.AlertAlarm, Reserved: int(m.AlarmCode), DeviceID: identity})

	case *cloud.SensorActivity:
		// The cloud status-change variant carries only a protocol-list
		// index, with none of the source/state detail the local alert
		// envelope provides; treat it as a plain activity ping, the same
		// as a local SENSOR_ACTIVITY notification.
		idx := int(m.SensorIndex)
		p.onSensorActivity(idx, p.resolveName(idx), true)

	case *cloud.Notification:
		if err := p.Dispatcher.HandleLocalDatagram(nil, m.Raw); err != nil {
			logger.Warnf("panel: could not process embedded notification from cloud connection %s: %s", identity, err)
		}

	default:
		logger.Debugf("panel: ignoring unhandled cloud message from %s: %T", identity, m)
	}
}

func (p *Panel) dispatchCloudAlert(alert notify.DeviceAlert) {
	_ = p.Dispatcher.HandleDeviceAlert(alert, true)
}

// Package panel implements the top-level facade for a single panel: one
// command engine, the optional local-notification and cloud listeners, the
// sensor/device caches, the cached alert configuration, and the optional
// history-polling simulator. It is the single entry point an application
// embeds.
package panel

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/config"
	"github.com/panelkit/panelctl/discovery"
	"github.com/panelkit/panelctl/entity"
	"github.com/panelkit/panelctl/history"
	"github.com/panelkit/panelctl/notify"
	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/support/logging"
)

// DefaultResetOccupancyInterval is the default delay, in the absence of a
// door-close event, before a sensor's occupancy flag is cleared again.
const DefaultResetOccupancyInterval = 3 * time.Second

// Options configures a new Panel.
type Options struct {
	// Host is the panel's address (IPv4 or broadcast). Immutable once the
	// Panel is built.
	Host string
	// Port is the panel's local command UDP port; command.DefaultPort if
	// zero.
	Port int

	// ResetOccupancyInterval overrides the sensor occupancy reset delay.
	ResetOccupancyInterval time.Duration
	// SMSAlertWhenArmed, if true, causes a successful arm to also flip on
	// the SMS-push alert flag in the panel's alert configuration.
	SMSAlertWhenArmed bool

	Logger logging.L
}

// Panel is the facade owning every resource associated with a single
// physical panel.
type Panel struct {
	Engine *command.Engine
	Addr   entity.PanelAddr

	Sensors *entity.SensorList
	Devices *entity.DeviceList
	Alerts  *config.AlertConfig

	Dispatcher *notify.Dispatcher
	Listener   *notify.Listener

	resetOccupancyInterval time.Duration
	smsAlertWhenArmed      bool
	logger                 logging.L

	mu           sync.Mutex
	simulator    *history.Simulator
	cloud        *cloudListener
	callbacks    Callbacks
	listenerPort int
}

// New builds a Panel against opts. The command engine, sensor/device
// caches and alert-config cache are created; no network listener is
// started until StartLocalListener or StartCloudListener is called.
func New(opts Options) *Panel {
	addr := entity.PanelAddr{Host: opts.Host, Port: opts.Port}
	eng := &command.Engine{Logger: opts.Logger}

	resetInterval := opts.ResetOccupancyInterval
	if resetInterval <= 0 {
		resetInterval = DefaultResetOccupancyInterval
	}

	p := &Panel{
		Engine:                 eng,
		Addr:                   addr,
		Sensors:                entity.NewSensorList(eng, addr),
		Devices:                entity.NewDeviceList(eng, addr),
		Alerts:                 &config.AlertConfig{Engine: eng, Host: addr.Host, Port: addr.Port, Logger: opts.Logger},
		resetOccupancyInterval: resetInterval,
		smsAlertWhenArmed:      opts.SMSAlertWhenArmed,
		logger:                 opts.Logger,
	}

	p.Dispatcher = &notify.Dispatcher{
		ExpectedHost: addr.Host,
		NameResolver: p.resolveName,
		Logger:       opts.Logger,
	}
	p.wireCallbacks()
	return p
}

// resolveName looks up an entity's display name by panel-index across both
// the sensor and device caches, for the dispatcher's NameResolver. Errors
// are swallowed (an unreachable cache yields an empty name, same as an
// unknown index) since this only ever feeds a log/callback argument.
func (p *Panel) resolveName(idx int) string {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if s, ok, _ := p.Sensors.FindByIndex(ctx, idx, false); ok {
		return s.DisplayName()
	}
	if d, ok, _ := p.Devices.FindByIndex(ctx, idx, false); ok {
		return d.DisplayName()
	}
	return ""
}

// Command issues a single generic local command, for callers exercising a
// code this facade does not itself wrap.
func (p *Panel) Command(ctx context.Context, code local.Code, body interface{}) (json.RawMessage, error) {
	return p.Engine.Run(ctx, command.Request{Host: p.Addr.Host, Port: p.Addr.Port, Code: code, Body: body})
}

// PaginatedResult runs a paginated command over [start, end], fetching as
// many pages as the range needs and returning every item, for callers
// exercising a paginated code this facade does not itself wrap.
func (p *Panel) PaginatedResult(ctx context.Context, code local.Code, start, end int) ([]command.Item, error) {
	var items []command.Item
	err := command.FetchPaginated(ctx, p.Engine, command.PaginatedRequest{
		Host: p.Addr.Host, Port: p.Addr.Port, Code: code, Start: start, End: end,
	}, func(item command.Item) error {
		items = append(items, item)
		return nil
	})
	return items, err
}

// Discover performs a broadcast discovery sweep. It does not require a
// Panel instance, but is exposed here for convenience alongside the rest of
// the facade's capabilities.
func Discover(ctx context.Context, opts discovery.Options) ([]discovery.Result, error) {
	return discovery.Discover(ctx, opts)
}

// TargetedDiscover probes for a single panel by GUID.
func TargetedDiscover(ctx context.Context, guid string, opts discovery.TargetedOptions) (discovery.TargetedResult, error) {
	return discovery.TargetedDiscover(ctx, guid, opts)
}

// Close releases every resource owned by the panel: the cloud listener, the
// history simulator and the local notification listener, in that order.
// Safe to call even if none were started.
func (p *Panel) Close() {
	p.StopCloudListener()
	p.StopHistorySimulator()
	p.StopLocalListener()
}

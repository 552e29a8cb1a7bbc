package notify

import (
	"encoding/json"
	"net"
	"strings"
	"sync"

	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/support/logging"
)

// Callbacks is the set of event handlers a Dispatcher invokes. All fields
// are optional. Each is run in its own goroutine ("scheduled, not
// awaited"), so a slow or blocking callback never stalls datagram
// processing.
type Callbacks struct {
	OnArmDisarm          func(state int)
	OnSensorActivity     func(idx int, name string)
	OnDoorOpenWhenArming func(idx int, name string)
	OnDoorOpenClose      func(idx int, name string, isOpen bool)
	OnLowBattery         func(idx int, name string)
	OnAlarm              func(idx int, name string, isTampered bool)
	OnSOS                func(idx int, name string, isHostSOS bool)
	OnRemoteButtonPress  func(idx int, name string, button RemoteButtonCode)
}

// Dispatcher adapts local-notification datagrams, cloud device alerts and
// synthesized history entries into one callback table.
//
// Dispatcher is safe for concurrent use: HandleLocalDatagram and
// HandleDeviceAlert may be called from multiple goroutines, though the
// facade normally drives each from a single listener loop.
type Dispatcher struct {
	Callbacks

	// ExpectedHost, if set, causes local datagrams from any other source
	// address to be rejected.
	ExpectedHost string

	// NameResolver maps a panel-index to its entity's display name. If nil,
	// callbacks receive an empty name.
	NameResolver func(idx int) string

	Logger logging.L

	mu       sync.Mutex
	deviceID string
}

// DeviceID returns the currently stored device identity, if any has been
// learned.
func (d *Dispatcher) DeviceID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deviceID
}

// checkDeviceID enforces the identity-stickiness invariant: once a
// non-blank GUID is stored, a differing non-blank GUID is rejected. A
// blank/whitespace GUID never sets, and never contradicts, the stored id.
func (d *Dispatcher) checkDeviceID(guid string) bool {
	if strings.TrimSpace(guid) == "" {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deviceID == "" {
		d.deviceID = guid
		return true
	}
	return d.deviceID == guid
}

func (d *Dispatcher) name(idx int) string {
	if d.NameResolver == nil {
		return ""
	}
	return d.NameResolver(idx)
}

// HandleLocalDatagram processes one local-notification UDP datagram.
func (d *Dispatcher) HandleLocalDatagram(from *net.UDPAddr, data []byte) error {
	logger := logging.Must(d.Logger)

	if d.ExpectedHost != "" && from != nil && from.IP.String() != d.ExpectedHost {
		logger.Errorf("notify: rejecting datagram from unexpected host %s (wanted %s)", from.IP, d.ExpectedHost)
		return nil
	}

	code, body, err := local.Decode(data)
	if err != nil {
		logger.Errorf("notify: could not decode local datagram: %s", err)
		return err
	}

	var fields []json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		logger.Errorf("notify: malformed notification body: %v", err)
		return err
	}
	var kind int
	if err := json.Unmarshal(fields[0], &kind); err != nil {
		logger.Errorf("notify: malformed notification kind: %s", err)
		return err
	}

	switch code {
	case local.CodeNotification:
		d.dispatchNotification(kind, fields[1:])
	case local.CodeAlert:
		d.dispatchAlert(kind, fields[1:])
	default:
		logger.Debugf("notify: ignoring datagram with unrecognized code %d", code)
	}
	return nil
}

func intAt(fields []json.RawMessage, i int) int {
	if i >= len(fields) {
		return 0
	}
	var v int
	_ = json.Unmarshal(fields[i], &v)
	return v
}

func (d *Dispatcher) dispatchNotification(kind int, fields []json.RawMessage) {
	idx := intAt(fields, 0)
	switch kind {
	case KindArmDisarm:
		d.fire(func() { d.OnArmDisarm(idx) }, d.OnArmDisarm != nil)
	case KindSensorActivity:
		name := d.name(idx)
		d.fire(func() { d.OnSensorActivity(idx, name) }, d.OnSensorActivity != nil)
	case KindDoorOpenWhenArming:
		name := d.name(idx)
		d.fire(func() { d.OnDoorOpenWhenArming(idx, name) }, d.OnDoorOpenWhenArming != nil)
	}
}

// isArmDisarmState reports whether v is one of the three recognized
// arm/disarm codes. A STATE_CHANGE alert/history entry not among them
// (AC power, Wi-Fi connectivity, low battery, ...) carries no arm/disarm
// meaning and is silently dropped rather than passed to OnArmDisarm.
func isArmDisarmState(v int) bool {
	return v == StateArmAway || v == StateArmHome || v == StateDisarm
}

func (d *Dispatcher) dispatchAlert(alertType int, fields []json.RawMessage) {
	switch alertType {
	case AlertStateChange:
		state := intAt(fields, 0)
		if isArmDisarmState(state) {
			d.fire(func() { d.OnArmDisarm(state) }, d.OnArmDisarm != nil)
		}

	case AlertAlarm:
		idx := intAt(fields, 0)
		source := Source(stringAt(fields, 1))
		isTampered := intAt(fields, 2) != 0
		if source == SourceRemote {
			name := d.name(idx)
			d.fire(func() { d.OnSOS(idx, name, false) }, d.OnSOS != nil)
			return
		}
		name := d.name(idx)
		d.fire(func() { d.OnAlarm(idx, name, isTampered) }, d.OnAlarm != nil)

	case AlertSensorActivity:
		idx := intAt(fields, 0)
		source := Source(stringAt(fields, 1))
		state := intAt(fields, 2)
		name := d.name(idx)

		if source == SourceRemote {
			button := RemoteButtonCode(state)
			d.fire(func() { d.OnRemoteButtonPress(idx, name, button) }, d.OnRemoteButtonPress != nil)
			return
		}

		switch {
		case state == StateDoorOpen || state == StateDoorClose || source == SourceDoorbell:
			d.fire(func() { d.OnDoorOpenClose(idx, name, state == StateDoorOpen) }, d.OnDoorOpenClose != nil)
		case source == SourceSensor && state == StateLowBattery:
			d.fire(func() { d.OnLowBattery(idx, name) }, d.OnLowBattery != nil)
		}

	case AlertHostSOS:
		d.fire(func() { d.OnSOS(0, "", true) }, d.OnSOS != nil)
	}
}

func stringAt(fields []json.RawMessage, i int) string {
	if i >= len(fields) {
		return ""
	}
	var v string
	_ = json.Unmarshal(fields[i], &v)
	return v
}

// fire runs cb in its own goroutine if enabled is true. A panic in cb is
// recovered and logged.
func (d *Dispatcher) fire(cb func(), enabled bool) {
	if !enabled {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Must(d.Logger).Errorf("notify: callback panicked: %v", r)
			}
		}()
		cb()
	}()
}

// HandleDeviceAlert processes a DeviceAlert sourced from the cloud listener
// or the history simulator. verifyDeviceID is false for simulator-sourced
// alerts, which replay a panel's own history and need not re-assert its
// identity.
func (d *Dispatcher) HandleDeviceAlert(alert DeviceAlert, verifyDeviceID bool) error {
	logger := logging.Must(d.Logger)

	if verifyDeviceID && !d.checkDeviceID(alert.DeviceID) {
		logger.Errorf("notify: rejecting alert with mismatched device id %q", alert.DeviceID)
		return nil
	}

	switch alert.Type {
	case AlertStateChange:
		if isArmDisarmState(alert.State) {
			d.fire(func() { d.OnArmDisarm(alert.State) }, d.OnArmDisarm != nil)
		}
	case AlertAlarm:
		if alert.Source == SourceRemote {
			name := d.name(alert.EventID)
			d.fire(func() { d.OnSOS(alert.EventID, name, false) }, d.OnSOS != nil)
			break
		}
		name := d.name(alert.EventID)
		d.fire(func() { d.OnAlarm(alert.EventID, name, alert.Reserved != 0) }, d.OnAlarm != nil)
	case AlertSensorActivity:
		name := d.name(alert.EventID)
		if alert.Source == SourceRemote {
			button := RemoteButtonCode(alert.State)
			d.fire(func() { d.OnRemoteButtonPress(alert.EventID, name, button) }, d.OnRemoteButtonPress != nil)
			break
		}
		switch {
		case alert.State == StateDoorOpen || alert.State == StateDoorClose || alert.Source == SourceDoorbell:
			d.fire(func() { d.OnDoorOpenClose(alert.EventID, name, alert.State == StateDoorOpen) }, d.OnDoorOpenClose != nil)
		case alert.Source == SourceSensor && alert.State == StateLowBattery:
			d.fire(func() { d.OnLowBattery(alert.EventID, name) }, d.OnLowBattery != nil)
		}
	case AlertHostSOS:
		d.fire(func() { d.OnSOS(0, "", true) }, d.OnSOS != nil)
	}
	return nil
}

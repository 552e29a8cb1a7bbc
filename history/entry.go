// Package history fetches and normalizes the panel's history log, and can
// simulate alert notifications by polling it when the panel itself has no
// push channel available.
package history

import (
	"encoding/json"
	"time"

	"github.com/panelkit/panelctl/notify"
	"github.com/panelkit/panelctl/protocol/perrors"
	"github.com/panelkit/panelctl/support/logging"
)

// HistoryState is a history entry's state, consolidated across the panel's
// several incompatible state numbering schemes (plain alert states, state
// change types, remote button presses) into one comparable value.
type HistoryState string

const (
	StateDoorClose  HistoryState = "DOOR_CLOSE"
	StateDoorOpen   HistoryState = "DOOR_OPEN"
	StateTamper     HistoryState = "TAMPER"
	StateLowBattery HistoryState = "LOW_BATTERY"

	StateACPowerFailure   HistoryState = "AC_POWER_FAILURE"
	StateACPowerRecover   HistoryState = "AC_POWER_RECOVER"
	StateDisarm           HistoryState = "DISARM"
	StateArmAway          HistoryState = "ARM_AWAY"
	StateArmHome          HistoryState = "ARM_HOME"
	StateWifiConnected    HistoryState = "WIFI_CONNECTED"
	StateWifiDisconnected HistoryState = "WIFI_DISCONNECTED"

	StateRemoteButtonArmAway HistoryState = "REMOTE_BUTTON_ARM_AWAY"
	StateRemoteButtonArmHome HistoryState = "REMOTE_BUTTON_ARM_HOME"
	StateRemoteButtonDisarm  HistoryState = "REMOTE_BUTTON_DISARM"
	StateRemoteButtonSOS     HistoryState = "REMOTE_BUTTON_SOS"
)

// Raw alert-state codes, as carried by a history entry's state field when
// its type is ALARM or SENSOR_ACTIVITY and its source is not REMOTE.
const (
	rawAlertDoorClose  = 0
	rawAlertDoorOpen   = 1
	rawAlertTamper     = 2
	rawAlertLowBattery = 3
)

var alertStateLookup = map[int]HistoryState{
	rawAlertDoorClose:  StateDoorClose,
	rawAlertDoorOpen:   StateDoorOpen,
	rawAlertTamper:     StateTamper,
	rawAlertLowBattery: StateLowBattery,
}

// Raw state-change-type codes, carried by a history entry's event_id field
// when its type is STATE_CHANGE.
const (
	rawChangeACPowerFailure   = 1
	rawChangeACPowerRecover   = 2
	rawChangeDisarm           = 3
	rawChangeArmAway          = 4
	rawChangeArmHome          = 5
	rawChangeLowBattery       = 6
	rawChangeWifiConnected    = 7
	rawChangeWifiDisconnected = 8
)

// armDisarmEventIDLookup maps the subset of state-change event ids that
// pertain to arm/disarm, to notify's unified arm/disarm state codes. Other
// state changes (power, Wi-Fi, battery) have no arm/disarm equivalent.
var armDisarmEventIDLookup = map[int]int{
	rawChangeArmAway: notify.StateArmAway,
	rawChangeArmHome: notify.StateArmHome,
	rawChangeDisarm:  notify.StateDisarm,
}

var stateChangeLookup = map[int]HistoryState{
	rawChangeACPowerFailure:   StateACPowerFailure,
	rawChangeACPowerRecover:   StateACPowerRecover,
	rawChangeDisarm:           StateDisarm,
	rawChangeArmAway:          StateArmAway,
	rawChangeArmHome:          StateArmHome,
	rawChangeLowBattery:       StateLowBattery,
	rawChangeWifiConnected:    StateWifiConnected,
	rawChangeWifiDisconnected: StateWifiDisconnected,
}

// Raw remote-button codes, carried by a history entry's state field when its
// source is REMOTE. Only SOS is directly evidenced by known device traffic;
// the arm/disarm buttons follow the panel's natural arm/home/disarm/SOS
// ordering.
const (
	rawRemoteArmAway = 1
	rawRemoteArmHome = 2
	rawRemoteDisarm  = 4
	rawRemoteSOS     = 3
)

var remoteButtonLookup = map[int]HistoryState{
	rawRemoteArmAway: StateRemoteButtonArmAway,
	rawRemoteArmHome: StateRemoteButtonArmHome,
	rawRemoteDisarm:  StateRemoteButtonDisarm,
	rawRemoteSOS:     StateRemoteButtonSOS,
}

// sourceCodeLookup maps a history entry's numeric source field to the
// notify package's source discriminant, used elsewhere for wire alerts
// carrying the source as a string.
var sourceCodeLookup = map[int]notify.Source{
	0:  notify.SourceDevice,
	1:  notify.SourceSensor,
	2:  notify.SourceDoorbell,
	7:  notify.SourceInfrared,
	10: notify.SourceRemote,
}

// entryTuple is the flat, positional wire shape of one history record.
type entryTuple struct {
	Type       int
	EventID    int
	SourceCode int
	RawState   int
	SensorName string
	UnixTime   int64
	Other      string
}

func decodeEntryTuple(raw json.RawMessage) (entryTuple, error) {
	var t entryTuple
	err := json.Unmarshal(raw, &[]interface{}{
		&t.Type, &t.EventID, &t.SourceCode, &t.RawState, &t.SensorName,
		&t.UnixTime, &t.Other,
	})
	if err != nil {
		return entryTuple{}, perrors.Newf(perrors.Framing, "malformed history entry: %v", err)
	}
	return t, nil
}

// Entry is one normalized history log record.
type Entry struct {
	raw entryTuple
}

// Time is the entry's timestamp.
func (e Entry) Time() time.Time { return time.Unix(e.raw.UnixTime, 0).UTC() }

// Type is the entry's alert type, one of the notify package's Alert*
// constants (AlertHostSOS, AlertStateChange, AlertAlarm, AlertSensorActivity).
func (e Entry) Type() int { return e.raw.Type }

// Source reports the entry's originating peripheral class, or ok=false with
// a warning logged if the panel's source code is not recognized.
func (e Entry) Source(logger logging.L) (notify.Source, bool) {
	// A HOST_SOS entry carries no meaningful source; it is always DEVICE.
	if e.raw.Type == notify.AlertHostSOS {
		return notify.SourceDevice, true
	}
	if e.raw.Type != notify.AlertStateChange && e.raw.Type != notify.AlertAlarm && e.raw.Type != notify.AlertSensorActivity {
		return "", false
	}
	src, ok := sourceCodeLookup[e.raw.SourceCode]
	if !ok {
		logging.Must(logger).Warnf("history: unrecognized source code %d (entry %+v)", e.raw.SourceCode, e.raw)
		return "", false
	}
	return src, true
}

// State derives the entry's consolidated history state. Unmappable codes
// produce ok=false and a warning log rather than an error, per the history
// log's best-effort nature.
func (e Entry) State(logger logging.L) (HistoryState, bool) {
	if e.raw.Type == notify.AlertHostSOS {
		return "", false
	}

	isAlertLike := e.raw.Type == notify.AlertSensorActivity || e.raw.Type == notify.AlertAlarm
	if isAlertLike {
		if src, ok := e.Source(logger); ok && src == notify.SourceRemote {
			if state, ok := remoteButtonLookup[e.raw.RawState]; ok {
				return state, true
			}
			logging.Must(logger).Warnf("history: unrecognized remote button state %d (entry %+v)", e.raw.RawState, e.raw)
			return "", false
		}
		if state, ok := alertStateLookup[e.raw.RawState]; ok {
			return state, true
		}
		logging.Must(logger).Warnf("history: unrecognized alert state %d (entry %+v)", e.raw.RawState, e.raw)
		return "", false
	}

	if state, ok := stateChangeLookup[e.raw.EventID]; ok {
		return state, true
	}
	logging.Must(logger).Warnf("history: unrecognized state change event_id %d (entry %+v)", e.raw.EventID, e.raw)
	return "", false
}

// SensorName is the name of the sensor related to the entry, if any.
func (e Entry) SensorName() (string, bool) {
	if e.raw.SensorName == "" {
		return "", false
	}
	return e.raw.SensorName, true
}

// SensorIdx is the index of the sensor related to the entry, only present
// when the entry's source is SENSOR (in which case event_id carries it).
func (e Entry) SensorIdx(logger logging.L) (int, bool) {
	if src, ok := e.Source(logger); !ok || src != notify.SourceSensor {
		return 0, false
	}
	return e.raw.EventID, true
}

// AsDeviceAlert converts the entry into the normalized cross-source alert
// shape, suitable for re-injection into a notify.Dispatcher.
func (e Entry) AsDeviceAlert() notify.DeviceAlert {
	state := e.raw.RawState
	if e.raw.Type == notify.AlertStateChange {
		// Unlike other alert types, a state-change entry's arm/disarm
		// meaning lives in event_id, not state; translate it to notify's
		// unified codes so HandleDeviceAlert's STATE_CHANGE case applies
		// uniformly regardless of source.
		state = armDisarmEventIDLookup[e.raw.EventID]
	}
	return notify.DeviceAlert{
		Type:     e.raw.Type,
		EventID:  e.raw.EventID,
		Source:   sourceCodeLookup[e.raw.SourceCode],
		State:    state,
		ZoneName: e.raw.SensorName,
		UnixTime: e.raw.UnixTime,
		Other:    e.raw.Other,
	}
}

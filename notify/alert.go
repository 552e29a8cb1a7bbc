package notify

// Source identifies the originating peripheral class of a DeviceAlert.
type Source string

const (
	SourceDevice   Source = "DEVICE"
	SourceSensor   Source = "SENSOR"
	SourceRemote   Source = "REMOTE"
	SourceDoorbell Source = "DOORBELL"
	SourceInfrared Source = "INFRARED"
)

// Notification sub-kinds, carried as the first element of a NOTIFICATION
// (code 170) envelope's data array.
const (
	KindArmDisarm           = 1
	KindSensorActivity      = 5
	KindDoorOpenWhenArming  = 6
)

// Alert types, carried as the first element of an ALERT (code 208)
// envelope's data array.
const (
	AlertHostSOS         = 1
	AlertStateChange     = 2
	AlertAlarm           = 3
	AlertSensorActivity  = 4 // also used for DOOR_OPEN_CLOSE
)

// Arm/disarm states, matching the panel's own ARM_AWAY/ARM_HOME/DISARM wire
// ordering.
const (
	StateArmAway = iota + 1
	StateArmHome
	StateDisarm
)

// Door/sensor alert states, numbered as in a history entry's raw alert
// state.
const (
	StateDoorClose  = 0
	StateDoorOpen   = 1
	StateLowBattery = 3
)

// RemoteButtonCode identifies which button a remote fob reported, carried as
// the alert's state when source=REMOTE.
type RemoteButtonCode int

const (
	ButtonArmAway RemoteButtonCode = iota + 1
	ButtonArmHome
	ButtonDisarm
	ButtonSOS
)

// DeviceAlert is the normalized cross-source event shape: every input
// (local notification, cloud status-change, synthesized history entry)
// converges to this before reaching the dispatcher's callback table.
type DeviceAlert struct {
	Type     int
	EventID  int
	Source   Source
	State    int
	ZoneName string
	DeviceID string
	UnixTime int64
	Reserved int
	Other    string
}

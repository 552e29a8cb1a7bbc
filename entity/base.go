package entity

import "fmt"

// Base holds the fields shared by Sensor and Device.
type Base struct {
	ParentName  string
	PanelIndex  int
	RoomID      int
	Type        int
	Subtype     int
	Protocol    int
	Timeout     int
	UserFlags   int
	Baudrate    int
	Reserved    int
	NodeCount   int
	PrivateData []byte

	// Subindex selects one node of a multi-node expansion; 0 when
	// NodeCount <= 1.
	Subindex int

	// ProtoIndex is this entity's 1-based position in the panel's protocol
	// list at the time it was last read.
	ProtoIndex int

	// Transient, instance-local state.
	Occupied           bool
	LowBattery         bool
	Tamper             bool
	DoorOpenWhenArming bool
	ExtraData          interface{}
	Unavailable        bool
}

// DisplayName is parent_name, or parent_name#<subindex+1> for multi-node
// expansions.
func (b *Base) DisplayName() string {
	if b.NodeCount <= 1 {
		return b.ParentName
	}
	return fmt.Sprintf("%s#%d", b.ParentName, b.Subindex+1)
}

// OrdinalKey implements Record.
func (b *Base) OrdinalKey() (panelIndex int, displayName string, subindex int) {
	return b.PanelIndex, b.DisplayName(), b.Subindex
}

// SetUnavailable implements Record.
func (b *Base) SetUnavailable() { b.Unavailable = true }

// IsUnavailable implements Record.
func (b *Base) IsUnavailable() bool { return b.Unavailable }

// base implements Record, giving List access to the shared transient state
// regardless of which concrete entity type embeds it.
func (b *Base) base() *Base { return b }

// preserveTransient copies runtime state that survives a re-fetch (the
// panel has no notion of these fields) from src into b.
func (b *Base) preserveTransient(src *Base) {
	b.Occupied = src.Occupied
	b.LowBattery = src.LowBattery
	b.Tamper = src.Tamper
	b.DoorOpenWhenArming = src.DoorOpenWhenArming
	b.ExtraData = src.ExtraData
}

// Sensor type codes (the Type field of Base), as reported by the panel's
// sensor list.
const (
	TypeDoor   = 1
	TypeGlass  = 2
	TypeGas    = 3
	TypeSmoke  = 4
	TypeSOS    = 5
	TypeVib    = 6
	TypeWater  = 7
)

// Sensor user-flag bitmask.
const (
	FlagEnabled                 = 1
	FlagArmDelay                = 2
	FlagDetectDoor              = 4
	FlagDoorChime               = 8
	FlagIndependentZone         = 16
	FlagAlertWhenAwayAndHome    = 32
	FlagAlertWhenAway           = 64
	FlagSupportsUpdatingSubtype = 512
)

// AlertMode is derived from the ALERT_WHEN_AWAY/ALERT_WHEN_AWAY_AND_HOME
// bits of a sensor's user flags.
type AlertMode int

const (
	AlertAlways          AlertMode = 0
	AlertWhenAway        AlertMode = FlagAlertWhenAway
	AlertWhenAwayAndHome AlertMode = FlagAlertWhenAwayAndHome
)

// DeriveAlertMode computes the alert mode encoded in flags.
func DeriveAlertMode(flags int) AlertMode {
	switch flags & (FlagAlertWhenAwayAndHome | FlagAlertWhenAway) {
	case FlagAlertWhenAwayAndHome:
		return AlertWhenAwayAndHome
	case FlagAlertWhenAway:
		return AlertWhenAway
	default:
		return AlertAlways
	}
}

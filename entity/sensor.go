package entity

import (
	"context"
	"encoding/json"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"

	"github.com/pkg/errors"
)

// Sensor mirrors one (node of a) sensor entry in the panel's sensor list.
type Sensor struct {
	Base

	// Mask is a read-only field returned alongside the sensor record; its
	// meaning is opaque to this package.
	Mask int
}

// Enabled reports whether the ENABLED user flag is set.
func (s *Sensor) Enabled() bool { return s.UserFlags&FlagEnabled != 0 }

// AlertMode derives the sensor's alert mode from its user flags.
func (s *Sensor) AlertMode() AlertMode { return DeriveAlertMode(s.UserFlags) }

// sensorReadTuple is the flat, positional wire shape of a sensor record, shared
// by both the GETSENSORLIST read and the SETSINGLESENSOR write (the write
// record swaps the trailing mask field for rx/tx).
type sensorReadTuple struct {
	ParentName string
	PanelIndex int
	RoomID     int
	Type       int
	Subtype    int
	Timeout    int
	UserFlags  int
	Baudrate   int
	Protocol   int
	Reserved   int
	NodeCount  int
	Mask       int
	PrivateRaw string
}

func decodeSensorTuple(raw json.RawMessage) (sensorReadTuple, error) {
	var t sensorReadTuple
	err := json.Unmarshal(raw, &[]interface{}{
		&t.ParentName, &t.PanelIndex, &t.RoomID, &t.Type, &t.Subtype,
		&t.Timeout, &t.UserFlags, &t.Baudrate, &t.Protocol, &t.Reserved,
		&t.NodeCount, &t.Mask, &t.PrivateRaw,
	})
	if err != nil {
		return sensorReadTuple{}, perrors.Newf(perrors.Framing, "malformed sensor record: %v", err)
	}
	return t, nil
}

func newSensor(t sensorReadTuple, protoIdx, subindex int) *Sensor {
	return &Sensor{
		Base: Base{
			ParentName: t.ParentName,
			PanelIndex: t.PanelIndex,
			RoomID:     t.RoomID,
			Type:       t.Type,
			Subtype:    t.Subtype,
			Protocol:   t.Protocol,
			Timeout:    t.Timeout,
			UserFlags:  t.UserFlags,
			Baudrate:   t.Baudrate,
			Reserved:   t.Reserved,
			NodeCount:  t.NodeCount,
			Subindex:   subindex,
			ProtoIndex: protoIdx,
		},
		Mask: t.Mask,
	}
}

func (t sensorReadTuple) equal(o sensorReadTuple) bool { return t == o }

func (s *Sensor) readTuple(privateData string) sensorReadTuple {
	return sensorReadTuple{
		ParentName: s.ParentName, PanelIndex: s.PanelIndex, RoomID: s.RoomID,
		Type: s.Type, Subtype: s.Subtype, Timeout: s.Timeout,
		UserFlags: s.UserFlags, Baudrate: s.Baudrate, Protocol: s.Protocol,
		Reserved: s.Reserved, NodeCount: s.NodeCount, Mask: s.Mask,
		PrivateRaw: privateData,
	}
}

// SetEnabled toggles the ENABLED user flag, following the spec's
// refresh-then-write contract: the sensor is re-read at its remembered
// proto-index, the read is compared against the in-memory record to detect
// out-of-band changes, and only then is the write issued. privateData is
// the private-data blob as read (the mask/private_data carried by the
// incoming tuple, used only for the out-of-band comparison).
func (s *Sensor) SetEnabled(ctx context.Context, eng *command.Engine, addr PanelAddr, privateData string, value bool) error {
	def, err := FindPeripheralDefinition(s.Type, s.Subtype, s.Protocol)
	if err != nil {
		return err
	}

	var current sensorReadTuple
	found := false
	err = command.FetchPaginated(ctx, eng, command.PaginatedRequest{
		Host: addr.Host, Port: addr.Port, Code: local.CodeGetSensorList,
		Start: s.ProtoIndex, End: s.ProtoIndex,
	}, func(item command.Item) error {
		t, err := decodeSensorTuple(item.Raw)
		if err != nil {
			return err
		}
		current = t
		found = true
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "refreshing sensor before set-enabled")
	}
	if !found {
		return perrors.Newf(perrors.EntityRegistration, "sensor at proto_index=%d not found", s.ProtoIndex)
	}
	if !current.equal(s.readTuple(privateData)) {
		return perrors.Newf(perrors.Mismatch, "sensor %q has changed externally, refusing to alter it", s.DisplayName())
	}

	newFlags := s.UserFlags
	if value {
		newFlags |= FlagEnabled
	} else {
		newFlags &^= FlagEnabled
	}
	if newFlags == s.UserFlags {
		return nil
	}

	write := []interface{}{
		s.ParentName, s.PanelIndex, s.RoomID, s.Type, s.Subtype, s.Timeout,
		newFlags, s.Baudrate, s.Protocol, def.Reserved, def.NodeCount,
		def.RX, def.TX, def.PrivateData,
	}
	if _, err := eng.Run(ctx, command.Request{Host: addr.Host, Port: addr.Port, Code: local.CodeSetSingleSensor, Body: write}); err != nil {
		return errors.Wrap(err, "setting sensor enabled state")
	}
	s.UserFlags = newFlags
	return nil
}

// Delete removes the sensor from the panel and marks it unavailable.
func (s *Sensor) Delete(ctx context.Context, eng *command.Engine, addr PanelAddr) error {
	if _, err := eng.Run(ctx, command.Request{Host: addr.Host, Port: addr.Port, Code: local.CodeDelSensor, Body: []int{s.PanelIndex}}); err != nil {
		return errors.Wrap(err, "deleting sensor")
	}
	s.SetUnavailable()
	return nil
}

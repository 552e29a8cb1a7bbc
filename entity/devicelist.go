package entity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"
)

// DeviceList caches the panel's device (relay) list and drives device
// registration.
type DeviceList struct {
	List[*Device]

	Engine *command.Engine
	Addr   PanelAddr
}

// NewDeviceList builds a DeviceList fetching from eng against addr.
func NewDeviceList(eng *command.Engine, addr PanelAddr) *DeviceList {
	l := &DeviceList{Engine: eng, Addr: addr}
	l.Fetch = l.fetch
	l.Kind = "device"
	return l
}

func (l *DeviceList) fetch(ctx context.Context) ([]*Device, error) {
	var out []*Device
	err := command.FetchPaginated(ctx, l.Engine, command.PaginatedRequest{
		Host: l.Addr.Host, Port: l.Addr.Port, Code: local.CodeGetDeviceList,
	}, func(item command.Item) error {
		t, err := decodeSensorTuple(item.Raw)
		if err != nil {
			return err
		}
		out = append(out, newDevice(t, item.ProtoIndex, 0))
		for node := 1; node < t.NodeCount; node++ {
			out = append(out, newDevice(t, item.ProtoIndex, node))
		}
		return nil
	})
	return out, err
}

// Register adds a new device to the panel using the named peripheral
// definition. Unlike sensor registration, the panel sends no notification
// for a new device: the added index is read back from SENDREGDEVICERESULT,
// and the list is polled once a second until the entity appears.
func (l *DeviceList) Register(ctx context.Context, definitionName string, roomID int, name string, timeout time.Duration) (*Device, error) {
	def, err := FindPeripheralDefinitionByName(definitionName)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = def.Name
	}

	freeIdx, err := l.FreeIndex(ctx)
	if err != nil {
		return nil, err
	}
	write := []interface{}{
		name, freeIdx, roomID, def.Type, def.Subtype, def.Timeout,
		FlagEnabled, def.Baudrate, def.Protocol, def.Reserved, def.NodeCount,
		def.RX, def.TX, def.PrivateData,
	}
	if _, err := l.Engine.Run(ctx, command.Request{Host: l.Addr.Host, Port: l.Addr.Port, Code: local.CodeAddDevice, Body: write}); err != nil {
		return nil, err
	}

	body, err := l.Engine.Run(ctx, command.Request{Host: l.Addr.Host, Port: l.Addr.Port, Code: local.CodeSendRegDeviceResult, Body: []int{1}})
	if err != nil {
		return nil, err
	}
	var result []int
	if err := json.Unmarshal(body, &result); err != nil || len(result) == 0 {
		return nil, perrors.Newf(perrors.EntityRegistration,
			"failed to register device %q - response does not contain the index in the device list", name)
	}
	addedAt := result[0]

	deadline := time.Now().Add(timeout)
	for {
		if err := l.Update(ctx); err != nil {
			return nil, err
		}
		if found, ok, err := l.FindByIndex(ctx, addedAt, false); err != nil {
			return nil, err
		} else if ok {
			return found, nil
		}
		if time.Now().After(deadline) {
			return nil, perrors.Newf(perrors.EntityRegistration, "failed to find the added device %q at index %d", name, addedAt)
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

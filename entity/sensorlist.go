package entity

import (
	"context"
	"time"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"
)

// SensorList caches the panel's sensor list and drives sensor registration.
type SensorList struct {
	List[*Sensor]

	Engine *command.Engine
	Addr   PanelAddr

	changeFuture chan sensorChangeResult
}

type sensorChangeResult struct {
	sensor *Sensor
	err    error
}

// NewSensorList builds a SensorList fetching from eng against addr.
func NewSensorList(eng *command.Engine, addr PanelAddr) *SensorList {
	l := &SensorList{Engine: eng, Addr: addr}
	l.Fetch = l.fetch
	l.Kind = "sensor"
	return l
}

func (l *SensorList) fetch(ctx context.Context) ([]*Sensor, error) {
	var out []*Sensor
	err := command.FetchPaginated(ctx, l.Engine, command.PaginatedRequest{
		Host: l.Addr.Host, Port: l.Addr.Port, Code: local.CodeGetSensorList,
	}, func(item command.Item) error {
		t, err := decodeSensorTuple(item.Raw)
		if err != nil {
			return err
		}
		out = append(out, newSensor(t, item.ProtoIndex, 0))
		for node := 1; node < t.NodeCount; node++ {
			out = append(out, newSensor(t, item.ProtoIndex, node))
		}
		return nil
	})
	return out, err
}

// SensorChangeCallback completes any in-flight registration: it refreshes
// the list and hands the sensor found at (idx, name) to the waiting
// Register call. The panel facade calls it on every sensor-activity event;
// no separate sensor-list-change notification is handled. It is a no-op
// when no registration is in flight.
func (l *SensorList) SensorChangeCallback(ctx context.Context, idx int, name string) {
	if l.changeFuture == nil {
		return
	}
	if err := l.Update(ctx); err != nil {
		l.changeFuture <- sensorChangeResult{err: err}
		return
	}
	found, ok, err := l.Find(ctx, idx, name, false)
	if err != nil {
		l.changeFuture <- sensorChangeResult{err: err}
		return
	}
	if !ok {
		l.changeFuture <- sensorChangeResult{err: perrors.Newf(perrors.EntityRegistration,
			"failed to find the added sensor %q at index %d", name, idx)}
		return
	}
	l.changeFuture <- sensorChangeResult{sensor: found}
}

// Register adds a new sensor to the panel using the named peripheral
// definition, then waits (up to timeout) for SensorChangeCallback to report
// the new sensor, confirming the addition.
func (l *SensorList) Register(ctx context.Context, definitionName string, roomID int, name string, timeout time.Duration) (*Sensor, error) {
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
		FlagEnabled | FlagAlertWhenAwayAndHome, def.Baudrate, def.Protocol,
		def.Reserved, def.NodeCount, def.RX, def.TX, def.PrivateData,
	}

	l.changeFuture = make(chan sensorChangeResult, 1)
	defer func() { l.changeFuture = nil }()

	if _, err := l.Engine.Run(ctx, command.Request{Host: l.Addr.Host, Port: l.Addr.Port, Code: local.CodeAddSensor, Body: write}); err != nil {
		return nil, err
	}

	select {
	case res := <-l.changeFuture:
		if res.err != nil {
			return nil, res.err
		}
		return res.sensor, nil
	case <-time.After(timeout):
		return nil, perrors.New(perrors.EntityRegistration, "sensor registration timeout")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

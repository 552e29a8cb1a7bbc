package panel

import (
	"context"
	"time"

	"github.com/panelkit/panelctl/config"
	"github.com/panelkit/panelctl/entity"
	"github.com/panelkit/panelctl/notify"
	"github.com/panelkit/panelctl/support/logging"
)

// Callbacks is the set of event handlers an application may register on a
// Panel. All fields are optional.
type Callbacks struct {
	OnArmDisarm          func(state int)
	OnSensorActivity     func(sensor *entity.Sensor, occupied bool)
	OnDoorOpenWhenArming func(sensor *entity.Sensor)
	OnDoorOpenClose      func(sensor *entity.Sensor, isOpen bool)
	OnLowBattery         func(sensor *entity.Sensor)
	OnAlarm              func(idx int, name string, isTampered bool, extraData interface{})
	OnSOS                func(idx int, name string, isHostSOS bool)
	OnRemoteButtonPress  func(sensor *entity.Sensor, button notify.RemoteButtonCode)
}

// SetCallbacks installs cb. The panel's own occupancy/tamper bookkeeping
// handlers, wired to the Dispatcher by New, stay in place and invoke cb's
// handlers after their bookkeeping.
func (p *Panel) SetCallbacks(cb Callbacks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = cb
}

func (p *Panel) wireCallbacks() {
	p.Dispatcher.Callbacks = notify.Callbacks{
		OnArmDisarm:          p.onArmDisarm,
		OnSensorActivity:     func(idx int, name string) { p.onSensorActivity(idx, name, true) },
		OnDoorOpenWhenArming: p.onDoorOpenWhenArming,
		OnDoorOpenClose:      p.onDoorOpenClose,
		OnLowBattery:         p.onLowBattery,
		OnAlarm:              p.onAlarm,
		OnSOS:                p.onSOS,
		OnRemoteButtonPress:  p.onRemoteButtonPress,
	}
}

func (p *Panel) findSensor(idx int, name string) *entity.Sensor {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	s, ok, err := p.Sensors.Find(ctx, idx, name, false)
	if err != nil || !ok {
		return nil
	}
	return s
}

// onArmDisarm toggles the SMS-push alert flag (when configured) and clears
// the tamper/door-open-when-arming flags of every cached sensor, matching
// the panel's own behavior of clearing those latched conditions on a
// fresh arm/disarm.
func (p *Panel) onArmDisarm(state int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger := logging.Must(p.logger)

	if p.smsAlertWhenArmed {
		var err error
		switch state {
		case notify.StateDisarm:
			err = p.Alerts.SetFlag(ctx, config.FlagSMSPush, false)
		case notify.StateArmAway, notify.StateArmHome:
			err = p.Alerts.SetFlag(ctx, config.FlagSMSPush, true)
		}
		if err != nil {
			logger.Warnf("panel: failed to update sms_push alert flag on arm/disarm: %s", err)
		}
	}

	sensors, err := p.Sensors.Get(ctx)
	if err != nil {
		logger.Warnf("panel: failed to refresh sensors on arm/disarm: %s", err)
	} else {
		for _, s := range sensors {
			s.Tamper = false
			s.DoorOpenWhenArming = false
		}
	}

	if p.callbacks.OnArmDisarm != nil {
		p.callbacks.OnArmDisarm(state)
	}
}

// onSensorActivity is shared by local sensor-activity notifications
// (occupied is always true) and door-open/close alerts (occupied reflects
// the actual open/closed state).
func (p *Panel) onSensorActivity(idx int, name string, occupied bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	p.Sensors.SensorChangeCallback(ctx, idx, name)
	cancel()

	s := p.findSensor(idx, name)
	if s == nil {
		if p.callbacks.OnSensorActivity != nil {
			p.callbacks.OnSensorActivity(nil, occupied)
		}
		return
	}

	s.LowBattery = false
	s.Occupied = occupied

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	doorCloseEnabled, _ := p.Alerts.GetFlag(ctx, config.FlagDoorClose)
	if !(doorCloseEnabled && s.Type == entity.TypeDoor) {
		time.AfterFunc(p.resetOccupancyInterval, func() { s.Occupied = false })
	}

	if p.callbacks.OnSensorActivity != nil {
		p.callbacks.OnSensorActivity(s, occupied)
	}
}

func (p *Panel) onDoorOpenWhenArming(idx int, name string) {
	s := p.findSensor(idx, name)
	if s != nil {
		s.DoorOpenWhenArming = true
	}
	if p.callbacks.OnDoorOpenWhenArming != nil {
		p.callbacks.OnDoorOpenWhenArming(s)
	}
}

func (p *Panel) onDoorOpenClose(idx int, name string, isOpen bool) {
	p.onSensorActivity(idx, name, isOpen)
	if p.callbacks.OnDoorOpenClose != nil {
		p.callbacks.OnDoorOpenClose(p.findSensor(idx, name), isOpen)
	}
}

func (p *Panel) onLowBattery(idx int, name string) {
	s := p.findSensor(idx, name)
	if s != nil {
		s.LowBattery = true
	}
	if p.callbacks.OnLowBattery != nil {
		p.callbacks.OnLowBattery(s)
	}
}

// onAlarm sets occupancy (if not already set) and the tamper flag on the
// matching sensor, and always invokes the global alarm callback, carrying
// the sensor's extra_data when the sensor is found (nil otherwise) so the
// important callback is never suppressed for want of a sensor match.
func (p *Panel) onAlarm(idx int, name string, isTampered bool) {
	s := p.findSensor(idx, name)
	var extraData interface{}
	if s != nil {
		extraData = s.ExtraData
		if !s.Occupied {
			p.onSensorActivity(idx, name, true)
		}
		if isTampered {
			s.Tamper = true
		}
	}
	if p.callbacks.OnAlarm != nil {
		p.callbacks.OnAlarm(idx, name, isTampered, extraData)
	}
}

// onSOS invokes the global SOS callback, then fans the event out as an
// alarm (zone name hard-coded to "Host SOS" for a host-triggered SOS) and,
// for a non-host SOS, as a remote-button-press(SOS) — the panel never sends
// a separate alert for that case.
func (p *Panel) onSOS(idx int, name string, isHostSOS bool) {
	if p.callbacks.OnSOS != nil {
		p.callbacks.OnSOS(idx, name, isHostSOS)
	}

	zoneName := name
	if isHostSOS {
		zoneName = "Host SOS"
	}
	p.onAlarm(idx, zoneName, false)

	if !isHostSOS {
		p.onRemoteButtonPress(idx, name, notify.ButtonSOS)
	}
}

// onRemoteButtonPress invokes the remote-button callback, then fans the
// event out as a sensor-activity event: a remote is just a special kind of
// sensor.
func (p *Panel) onRemoteButtonPress(idx int, name string, button notify.RemoteButtonCode) {
	if p.callbacks.OnRemoteButtonPress != nil {
		p.callbacks.OnRemoteButtonPress(p.findSensor(idx, name), button)
	}
	p.onSensorActivity(idx, name, true)
}

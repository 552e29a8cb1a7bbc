package config

import (
	"context"
	"encoding/json"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"
	"github.com/panelkit/panelctl/support/logging"

	"github.com/pkg/errors"
)

// VolumeLevel is a panel speaker volume setting.
type VolumeLevel int

const (
	VolumeMute VolumeLevel = 0
	VolumeLow  VolumeLevel = 1
	VolumeHigh VolumeLevel = 2
)

var volumeBounds = intBounds{min: int(VolumeMute), max: int(VolumeHigh)}

// SpeechLanguage is a panel built-in voice prompt language/voice.
type SpeechLanguage int

const (
	SpeechNone           SpeechLanguage = 0
	SpeechEnglishFemale  SpeechLanguage = 1
	SpeechEnglishMale    SpeechLanguage = 2
	SpeechChineseFemale  SpeechLanguage = 3
	SpeechChineseMale    SpeechLanguage = 4
	SpeechGermanFemale   SpeechLanguage = 5
	SpeechGermanMale     SpeechLanguage = 6
	SpeechSpanishFemale  SpeechLanguage = 7
	SpeechSpanishMale    SpeechLanguage = 8
	SpeechDutchFemale    SpeechLanguage = 9
	SpeechDutchMale      SpeechLanguage = 10
	SpeechSwedishFemale  SpeechLanguage = 11
	SpeechSwedishMale    SpeechLanguage = 12
	SpeechFrenchFemale   SpeechLanguage = 13
	SpeechFrenchMale     SpeechLanguage = 14
	SpeechTurkishFemale  SpeechLanguage = 15
	SpeechTurkishMale    SpeechLanguage = 16
	SpeechRussianFemale  SpeechLanguage = 17
	SpeechRussianMale    SpeechLanguage = 18
)

var speechLanguageBounds = intBounds{min: int(SpeechNone), max: int(SpeechRussianMale)}

// HostConfig mirrors the fields of the GETHOSTCONFIG/SETHOSTCONFIG commands.
// Bounds below were determined experimentally against real panel firmware;
// values loaded from the panel itself bypass validation (a warning is
// logged on mismatch) to tolerate firmware variance.
type HostConfig struct {
	// AlarmSirenDuration is the duration of the siren when triggered, in
	// seconds.
	AlarmSirenDuration int
	// ArmDelay is the delay before the panel arms, in seconds.
	ArmDelay int
	// AlarmDelay is the delay before a triggered alarm actually sounds, in
	// seconds.
	AlarmDelay int
	// BacklightDuration is the duration of the panel's backlight, in
	// seconds.
	BacklightDuration int
	// AlarmVolumeLevel is the panel's built-in siren/speaker volume.
	AlarmVolumeLevel VolumeLevel
	// SpeechVolumeLevel is the volume of spoken voice prompts.
	SpeechVolumeLevel VolumeLevel
	// RingDuration is the duration of the ring for an incoming call, in
	// seconds.
	RingDuration int
	// SpeechLanguage selects the voice prompt language.
	SpeechLanguage SpeechLanguage
	// KeyToneVolumeLevel is the volume of the keypad tone.
	KeyToneVolumeLevel VolumeLevel
	// TimezoneOffsetM is the timezone offset from UTC, in minutes.
	TimezoneOffsetM int

	// RingVolumeLevel is the ring volume for incoming calls. It is nil on a
	// panel with no cellular module, and then read-only: Save refuses to
	// proceed if it has been set to a non-nil value afterward, since the
	// device never reported having this capability.
	RingVolumeLevel *VolumeLevel

	// ringVolumeProvided records whether the panel sent a value for
	// RingVolumeLevel at load time.
	ringVolumeProvided bool
}

func (c *HostConfig) validate(logger logging.L, strict bool) error {
	checks := []error{
		intBounds{0, 999}.check("alarm_siren_duration", c.AlarmSirenDuration),
		intBounds{0, 255}.check("arm_delay", c.ArmDelay),
		intBounds{0, 255}.check("alarm_delay", c.AlarmDelay),
		intBounds{0, 255}.check("backlight_duration", c.BacklightDuration),
		volumeBounds.check("alarm_volume_level", int(c.AlarmVolumeLevel)),
		volumeBounds.check("speech_volume_level", int(c.SpeechVolumeLevel)),
		intBounds{0, 255}.check("ring_duration", c.RingDuration),
		speechLanguageBounds.check("speech_language", int(c.SpeechLanguage)),
		volumeBounds.check("key_tone_volume_level", int(c.KeyToneVolumeLevel)),
		intBounds{-720, 720}.check("timezone_offset_m", c.TimezoneOffsetM),
	}
	if c.RingVolumeLevel != nil {
		checks = append(checks, volumeBounds.check("ring_volume_level", int(*c.RingVolumeLevel)))
	}

	for _, err := range checks {
		if err == nil {
			continue
		}
		if strict {
			return err
		}
		trust(logger, err)
	}
	return nil
}

// LoadHostConfig retrieves the panel's host configuration.
func LoadHostConfig(ctx context.Context, eng *command.Engine, host string, port int, logger logging.L) (*HostConfig, error) {
	body, err := eng.Run(ctx, command.Request{Host: host, Port: port, Code: local.CodeGetHostConfig})
	if err != nil {
		return nil, errors.Wrap(err, "loading host configuration")
	}

	var fields []json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) < 10 {
		return nil, perrors.Newf(perrors.Framing, "malformed host configuration response: %v", err)
	}

	var alarmVol, speechVol, keyToneVol int
	c := &HostConfig{}
	dec := []interface{}{
		&c.AlarmSirenDuration, &c.ArmDelay, &c.AlarmDelay, &c.BacklightDuration,
		&alarmVol, &speechVol, &c.RingDuration, (*int)(&c.SpeechLanguage),
		&keyToneVol, &c.TimezoneOffsetM,
	}
	for i, d := range dec {
		if err := json.Unmarshal(fields[i], d); err != nil {
			return nil, perrors.Newf(perrors.Framing, "malformed host configuration field %d: %v", i, err)
		}
	}
	c.AlarmVolumeLevel = VolumeLevel(alarmVol)
	c.SpeechVolumeLevel = VolumeLevel(speechVol)
	c.KeyToneVolumeLevel = VolumeLevel(keyToneVol)

	if len(fields) >= 11 {
		var v int
		if err := json.Unmarshal(fields[10], &v); err != nil {
			return nil, perrors.Newf(perrors.Framing, "malformed ring_volume_level field: %v", err)
		}
		ring := VolumeLevel(v)
		c.RingVolumeLevel = &ring
		c.ringVolumeProvided = true
	}

	c.validate(logger, false)
	return c, nil
}

// Save validates and writes the configuration back to the panel.
func (c *HostConfig) Save(ctx context.Context, eng *command.Engine, host string, port int) error {
	if !c.ringVolumeProvided && c.RingVolumeLevel != nil {
		return perrors.Newf(perrors.Validation, "ring_volume_level: read-only, device did not report a value at load")
	}
	if err := c.validate(nil, true); err != nil {
		return err
	}

	fields := []interface{}{
		c.AlarmSirenDuration, c.ArmDelay, c.AlarmDelay, c.BacklightDuration,
		int(c.AlarmVolumeLevel), int(c.SpeechVolumeLevel), c.RingDuration,
		int(c.SpeechLanguage), int(c.KeyToneVolumeLevel), c.TimezoneOffsetM,
	}
	if c.RingVolumeLevel != nil {
		fields = append(fields, int(*c.RingVolumeLevel))
	}

	if _, err := eng.Run(ctx, command.Request{Host: host, Port: port, Code: local.CodeSetHostConfig, Body: fields}); err != nil {
		return errors.Wrap(err, "saving host configuration")
	}
	return nil
}

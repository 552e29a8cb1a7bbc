package cloud

import (
	"bytes"
	"io"

	"github.com/panelkit/panelctl/protocol/perrors"
)

// key identifies a registered message class by its header triple.
type key struct {
	Command     Command
	Source      Party
	Destination Party
}

// Message is a decoded cloud-protocol payload.
type Message interface {
	// Key identifies which (command, source, destination) slot this message
	// occupies in the registry.
	Key() (Command, Party, Party)

	// UnpackPayload parses the frame's payload (header already consumed).
	UnpackPayload(r io.Reader, n int) error

	// PackPayload serializes the payload (header excluded).
	PackPayload(w io.Writer) error

	// Legacy reports whether this message uses the 8-byte legacy header.
	Legacy() bool
}

type factory func() Message

var registry = map[key][]factory{}

func register(cmd Command, src, dst Party, f factory) {
	k := key{cmd, src, dst}
	registry[k] = append(registry[k], f)
}

func init() {
	register(CommandHello, PartyDevice, PartyUnspecified, func() Message { return &PingRequest{} })
	register(CommandHello, PartyDevice, PartyUnspecified, func() Message { return &PingResponse{} })
	register(CommandHello, PartyDevice, PartyCloud, func() Message { return &HelloRequest{} })
	register(CommandHello, PartyCloud, PartyDevice, func() Message { return &HelloResponse{} })
	register(CommandHello, PartyDevice, PartyCloud, func() Message { return &HelloAck{} })
	register(CommandHello, PartyCloud, PartyDevice, func() Message { return &HelloInfo{} })

	register(CommandHello, PartyDeviceDiscovery, PartyCloudDiscovery, func() Message { return &DiscoveryHelloRequest{} })
	register(CommandHello, PartyCloudDiscovery, PartyDeviceDiscovery, func() Message { return &DiscoveryHelloResponse{} })

	register(CommandStatusChange, PartyDevice, PartyCloud, func() Message { return &StateChange{} })
	register(CommandStatusChange, PartyDevice, PartyCloud, func() Message { return &AlarmChange{} })
	register(CommandStatusChange, PartyDevice, PartyCloud, func() Message { return &SensorActivity{} })

	register(CommandNotification, PartyDevice, PartyCloud, func() Message { return &Notification{} })

	register(CommandCloudCommand, PartyCloud, PartyDevice, func() Message { return &CloudCommand{} })
}

// Frame is a single decoded frame: its header and the concrete message that
// matched it.
type Frame struct {
	Header  Header
	Message Message
}

// Parse reads successive frames from data until it is exhausted, failing
// with CloudFraming if a header's message_length exceeds the remaining
// buffer or if no registered message for a header's key can parse its
// payload.
func Parse(data []byte) ([]Frame, error) {
	var out []Frame
	for len(data) > 0 {
		h, headerSize, err := decodeHeader(data)
		if err != nil {
			return out, err
		}
		if int(h.MessageLength) > len(data) || int(h.MessageLength) < headerSize {
			return out, perrors.Newf(perrors.CloudFraming,
				"message_length %d invalid for buffer of %d byte(s)", h.MessageLength, len(data))
		}

		payload := data[headerSize:h.MessageLength]
		msg, err := decodeMessage(h, payload)
		if err != nil {
			return out, err
		}

		out = append(out, Frame{Header: h, Message: msg})
		data = data[h.MessageLength:]
	}
	return out, nil
}

func decodeMessage(h Header, payload []byte) (Message, error) {
	candidates := registry[h.key()]
	if len(candidates) == 0 {
		return nil, perrors.Newf(perrors.CloudFraming, "no registered message for command=%#x source=%#x destination=%#x",
			byte(h.Command), byte(h.Source), byte(h.Destination))
	}

	var lastErr error
	for _, f := range candidates {
		msg := f()
		if err := msg.UnpackPayload(bytes.NewReader(payload), len(payload)); err != nil {
			lastErr = err
			continue
		}
		return msg, nil
	}
	return nil, perrors.Newf(perrors.CloudFraming,
		"no registered message variant matched the payload: %v", lastErr)
}

// Encode packs msg into a complete frame (header + payload), assigning the
// header's message_length and choosing the legacy header variant when msg
// requests it.
func Encode(msg Message, sequence uint16) ([]byte, error) {
	var payload bytes.Buffer
	if err := msg.PackPayload(&payload); err != nil {
		return nil, err
	}

	cmd, src, dst := msg.Key()
	headerSize := HeaderSize
	if msg.Legacy() {
		headerSize = LegacyHeaderSize
	}

	h := Header{
		Command: cmd, Source: src, Destination: dst,
		MessageLength: uint32(headerSize + payload.Len()),
		Version:       ProtocolVersion, Sequence: sequence,
	}

	headerBytes, err := encodeHeader(h, headerSize)
	if err != nil {
		return nil, err
	}
	return append(headerBytes, payload.Bytes()...), nil
}

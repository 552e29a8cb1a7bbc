package cloud

import (
	"encoding/binary"
	"io"

	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"

	"github.com/pkg/errors"
)

// PingRequest is the device->cloud heartbeat. It carries no payload and
// uses the legacy 8-byte header. Both the request and its acknowledgement
// carry source=Device, destination=Unspecified: the legacy header predates
// per-party addressing.
type PingRequest struct{}

func (*PingRequest) Key() (Command, Party, Party) {
	return CommandHello, PartyDevice, PartyUnspecified
}
func (*PingRequest) Legacy() bool                  { return true }
func (*PingRequest) PackPayload(w io.Writer) error { return nil }
func (*PingRequest) UnpackPayload(r io.Reader, n int) error {
	return expectEmpty(r, n)
}

// PingResponse is the cloud's heartbeat acknowledgement.
type PingResponse struct{}

func (*PingResponse) Key() (Command, Party, Party) {
	return CommandHello, PartyDevice, PartyUnspecified
}
func (*PingResponse) Legacy() bool                  { return true }
func (*PingResponse) PackPayload(w io.Writer) error { return nil }
func (*PingResponse) UnpackPayload(r io.Reader, n int) error {
	return expectEmpty(r, n)
}

// HelloRequest opens the four-step cloud handshake. Its payload is opaque
// in the original protocol; this implementation treats it as empty.
type HelloRequest struct{}

func (*HelloRequest) Key() (Command, Party, Party)  { return CommandHello, PartyDevice, PartyCloud }
func (*HelloRequest) Legacy() bool                  { return false }
func (*HelloRequest) PackPayload(w io.Writer) error { return nil }
func (*HelloRequest) UnpackPayload(r io.Reader, n int) error {
	return expectEmpty(r, n)
}

// HelloResponse acknowledges a HelloRequest.
type HelloResponse struct{}

func (*HelloResponse) Key() (Command, Party, Party)  { return CommandHello, PartyCloud, PartyDevice }
func (*HelloResponse) Legacy() bool                  { return false }
func (*HelloResponse) PackPayload(w io.Writer) error { return nil }
func (*HelloResponse) UnpackPayload(r io.Reader, n int) error {
	return expectEmpty(r, n)
}

// HelloAck completes the handshake from the device side.
type HelloAck struct{}

func (*HelloAck) Key() (Command, Party, Party)  { return CommandHello, PartyDevice, PartyCloud }
func (*HelloAck) Legacy() bool                  { return false }
func (*HelloAck) PackPayload(w io.Writer) error { return nil }
func (*HelloAck) UnpackPayload(r io.Reader, n int) error {
	return expectEmpty(r, n)
}

// HelloInfo is the cloud's final handshake message, carrying the port the
// device should use for subsequent traffic. Port is encoded as given (the
// zero value carries 0); DefaultHelloInfoPort holds the usual 0x7202.
type HelloInfo struct {
	Port uint16
}

func (*HelloInfo) Key() (Command, Party, Party) { return CommandHello, PartyCloud, PartyDevice }
func (*HelloInfo) Legacy() bool                 { return false }

func (m *HelloInfo) PackPayload(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, m.Port)
}

func (m *HelloInfo) UnpackPayload(r io.Reader, n int) error {
	if n != 2 {
		return perrors.Newf(perrors.CloudNoMatch, "hello-info payload must be 2 bytes, got %d", n)
	}
	return binary.Read(r, binary.LittleEndian, &m.Port)
}

// DefaultHelloInfoPort is the port HelloInfo carries absent other
// configuration.
const DefaultHelloInfoPort = 0x7202

// DiscoveryHelloRequest starts the discovery-channel hello exchange.
type DiscoveryHelloRequest struct{}

func (*DiscoveryHelloRequest) Key() (Command, Party, Party) {
	return CommandHello, PartyDeviceDiscovery, PartyCloudDiscovery
}
func (*DiscoveryHelloRequest) Legacy() bool                  { return false }
func (*DiscoveryHelloRequest) PackPayload(w io.Writer) error { return nil }
func (*DiscoveryHelloRequest) UnpackPayload(r io.Reader, n int) error {
	return expectEmpty(r, n)
}

// DiscoveryHelloResponse embeds the cloud relay's address, for the device
// to dial subsequent connections to: an ASCII IPv4 address in a 16-byte
// field, two reserved zero fields, a port, and a unix timestamp.
type DiscoveryHelloResponse struct {
	IPAddress [16]byte
	Reserved1 uint32
	Reserved2 uint32
	Port      uint16
	Timestamp uint32
}

func (*DiscoveryHelloResponse) Key() (Command, Party, Party) {
	return CommandHello, PartyCloudDiscovery, PartyDeviceDiscovery
}
func (*DiscoveryHelloResponse) Legacy() bool { return false }

func (m *DiscoveryHelloResponse) PackPayload(w io.Writer) error {
	if _, err := w.Write(m.IPAddress[:]); err != nil {
		return err
	}
	for _, v := range []uint32{m.Reserved1, m.Reserved2} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, m.Port); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, m.Timestamp)
}

func (m *DiscoveryHelloResponse) UnpackPayload(r io.Reader, n int) error {
	const want = 16 + 4 + 4 + 2 + 4
	if n != want {
		return perrors.Newf(perrors.CloudNoMatch, "discovery-hello-response payload must be %d bytes, got %d", want, n)
	}
	if _, err := io.ReadFull(r, m.IPAddress[:]); err != nil {
		return err
	}
	for _, v := range []*uint32{&m.Reserved1, &m.Reserved2} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &m.Port); err != nil {
		return err
	}
	return binary.Read(r, binary.LittleEndian, &m.Timestamp)
}

// IP returns the ASCII IPv4 address embedded in the response, with
// trailing NUL padding trimmed.
func (m *DiscoveryHelloResponse) IP() string {
	i := 0
	for i < len(m.IPAddress) && m.IPAddress[i] != 0 {
		i++
	}
	return string(m.IPAddress[:i])
}

// statusChangeType discriminates the status-change payload variants, which
// all share (CommandStatusChange, PartyDevice, PartyCloud).
type statusChangeType byte

const (
	statusChangeTypeState  statusChangeType = 2
	statusChangeTypeAlarm  statusChangeType = 3
	statusChangeTypeSensor statusChangeType = 4
)

func readStatusChangeHeader(r io.Reader, n int, want statusChangeType) ([]byte, error) {
	if n < 1 {
		return nil, perrors.New(perrors.CloudNoMatch, "status-change payload too short for type byte")
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if statusChangeType(rest[0]) != want {
		return nil, perrors.Newf(perrors.CloudNoMatch, "status-change type %d does not match", rest[0])
	}
	return rest[1:], nil
}

// StateChange reports an arm/disarm (or similar) state transition.
type StateChange struct {
	State byte
}

func (*StateChange) Key() (Command, Party, Party) { return CommandStatusChange, PartyDevice, PartyCloud }
func (*StateChange) Legacy() bool                 { return false }

func (m *StateChange) PackPayload(w io.Writer) error {
	_, err := w.Write([]byte{byte(statusChangeTypeState), m.State})
	return err
}

func (m *StateChange) UnpackPayload(r io.Reader, n int) error {
	rest, err := readStatusChangeHeader(r, n, statusChangeTypeState)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return perrors.Newf(perrors.CloudNoMatch, "state-change payload must carry exactly 1 byte, got %d", len(rest))
	}
	m.State = rest[0]
	return nil
}

// AlarmChange reports an alarm condition.
type AlarmChange struct {
	AlarmCode byte
}

func (*AlarmChange) Key() (Command, Party, Party) { return CommandStatusChange, PartyDevice, PartyCloud }
func (*AlarmChange) Legacy() bool                 { return false }

func (m *AlarmChange) PackPayload(w io.Writer) error {
	_, err := w.Write([]byte{byte(statusChangeTypeAlarm), m.AlarmCode})
	return err
}

func (m *AlarmChange) UnpackPayload(r io.Reader, n int) error {
	rest, err := readStatusChangeHeader(r, n, statusChangeTypeAlarm)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return perrors.Newf(perrors.CloudNoMatch, "alarm-change payload must carry exactly 1 byte, got %d", len(rest))
	}
	m.AlarmCode = rest[0]
	return nil
}

// SensorActivity reports activity on a sensor, identified by its
// protocol-list index.
type SensorActivity struct {
	SensorIndex uint16
}

func (*SensorActivity) Key() (Command, Party, Party) {
	return CommandStatusChange, PartyDevice, PartyCloud
}
func (*SensorActivity) Legacy() bool { return false }

func (m *SensorActivity) PackPayload(w io.Writer) error {
	if _, err := w.Write([]byte{byte(statusChangeTypeSensor)}); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, m.SensorIndex)
}

func (m *SensorActivity) UnpackPayload(r io.Reader, n int) error {
	rest, err := readStatusChangeHeader(r, n, statusChangeTypeSensor)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return perrors.Newf(perrors.CloudNoMatch, "sensor-activity payload must carry exactly 2 bytes, got %d", len(rest))
	}
	m.SensorIndex = binary.LittleEndian.Uint16(rest)
	return nil
}

// Notification carries a complete local-protocol notification/alert frame
// (see protocol/local), embedded verbatim as the cloud message's payload.
type Notification struct {
	Raw []byte

	// Code and Body are populated by UnpackPayload when Raw parses as a
	// well-formed local-protocol frame; decoding failure is not itself
	// fatal to accepting the Notification, since the embedded frame is
	// only interesting to callers that care about its contents.
	Code local.Code
	Body []byte
}

func (*Notification) Key() (Command, Party, Party) { return CommandNotification, PartyDevice, PartyCloud }
func (*Notification) Legacy() bool                 { return false }

func (m *Notification) PackPayload(w io.Writer) error {
	_, err := w.Write(m.Raw)
	return err
}

func (m *Notification) UnpackPayload(r io.Reader, n int) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.Raw = raw

	if code, body, err := local.Decode(raw); err == nil {
		m.Code = code
		m.Body = body
	}
	return nil
}

// CloudCommand carries an AT-style system command issued by the cloud to
// the device (e.g. set_cloud_server_address), as an opaque text line.
type CloudCommand struct {
	Text string
}

func (*CloudCommand) Key() (Command, Party, Party) { return CommandCloudCommand, PartyCloud, PartyDevice }
func (*CloudCommand) Legacy() bool                 { return false }

func (m *CloudCommand) PackPayload(w io.Writer) error {
	_, err := io.WriteString(w, m.Text)
	return err
}

func (m *CloudCommand) UnpackPayload(r io.Reader, n int) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "could not read cloud-command payload")
	}
	m.Text = string(raw)
	return nil
}

func expectEmpty(r io.Reader, n int) error {
	if n != 0 {
		return perrors.Newf(perrors.CloudNoMatch, "expected an empty payload, got %d byte(s)", n)
	}
	return nil
}

package cloud

import (
	"bytes"

	"github.com/lunixbochs/struc"

	"github.com/panelkit/panelctl/protocol/perrors"
)

const (
	// HeaderSize is the common frame header length, in bytes.
	HeaderSize = 12

	// LegacyHeaderSize is the shorter header used by ping frames, which
	// predate the version/sequence fields.
	LegacyHeaderSize = 8

	// ProtocolVersion is the version value carried by non-legacy headers.
	ProtocolVersion = 1
)

// Party identifies one endpoint of a framed cloud message.
type Party byte

const (
	// PartyUnspecified is the destination carried by legacy ping frames,
	// which predate per-party addressing.
	PartyUnspecified     Party = 0x00
	PartyDevice          Party = 0x10
	PartyCloud           Party = 0x20
	PartyDeviceDiscovery Party = 0x30
	PartyCloudDiscovery  Party = 0xD0
)

// Command identifies a framed cloud message's operation.
type Command byte

const (
	// CommandHello covers both the ping heartbeat (legacy header, empty
	// payload) and the four-step hello handshake (full header).
	CommandHello Command = 0x01

	CommandStatusChange Command = 0x21
	CommandNotification Command = 0x22
	CommandCloudCommand Command = 0x29
)

// Header is the common 12-byte frame header. MessageLength covers the
// header and its payload.
type Header struct {
	Command       Command `struc:",little"`
	Source        Party   `struc:",little"`
	Flag1         byte    `struc:",little"`
	Destination   Party   `struc:",little"`
	MessageLength uint32  `struc:",little"`
	Version       uint16  `struc:",little"`
	Sequence      uint16  `struc:",little"`
}

// legacyHeader is the 8-byte ping-era header variant: no version/sequence.
type legacyHeader struct {
	Command       Command `struc:",little"`
	Source        Party   `struc:",little"`
	Flag1         byte    `struc:",little"`
	Destination   Party   `struc:",little"`
	MessageLength uint32  `struc:",little"`
}

func (h Header) key() key { return key{h.Command, h.Source, h.Destination} }

// decodeHeader reads a frame header from the start of data, returning the
// decoded header and the number of bytes it occupies (HeaderSize or
// LegacyHeaderSize).
//
// The legacy 8-byte variant is recognized by its message_length: ping
// frames carry no payload, so message_length == LegacyHeaderSize exactly.
// Any other frame is assumed to carry the full 12-byte header.
func decodeHeader(data []byte) (Header, int, error) {
	if len(data) < LegacyHeaderSize {
		return Header{}, 0, perrors.New(perrors.CloudFraming, "buffer shorter than the minimum frame header")
	}

	var lh legacyHeader
	if err := struc.Unpack(bytes.NewReader(data[:LegacyHeaderSize]), &lh); err != nil {
		return Header{}, 0, perrors.Wrap(perrors.CloudFraming, err, "could not parse legacy header")
	}

	if lh.MessageLength == LegacyHeaderSize {
		return Header{
			Command: lh.Command, Source: lh.Source, Flag1: lh.Flag1, Destination: lh.Destination,
			MessageLength: lh.MessageLength, Version: ProtocolVersion,
		}, LegacyHeaderSize, nil
	}

	if len(data) < HeaderSize {
		return Header{}, 0, perrors.New(perrors.CloudFraming, "buffer shorter than the full frame header")
	}
	var h Header
	if err := struc.Unpack(bytes.NewReader(data[:HeaderSize]), &h); err != nil {
		return Header{}, 0, perrors.Wrap(perrors.CloudFraming, err, "could not parse header")
	}
	return h, HeaderSize, nil
}

// encodeHeader packs h using the legacy variant when headerSize requests it.
func encodeHeader(h Header, headerSize int) ([]byte, error) {
	var buf bytes.Buffer
	if headerSize == LegacyHeaderSize {
		lh := legacyHeader{Command: h.Command, Source: h.Source, Flag1: h.Flag1, Destination: h.Destination, MessageLength: h.MessageLength}
		if err := struc.Pack(&buf, &lh); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := struc.Pack(&buf, &h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

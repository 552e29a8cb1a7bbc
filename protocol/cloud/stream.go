package cloud

import (
	"bytes"
	"io"

	"github.com/lunixbochs/struc"

	"github.com/panelkit/panelctl/protocol/perrors"
)

// ReadFrame reads exactly one frame from r: first the legacy-sized header
// prefix, then (if message_length indicates a full header) the remaining
// header bytes, then the payload. It returns the decoded frame along with
// the complete raw bytes read, so callers relaying traffic need not
// re-encode it.
func ReadFrame(r io.Reader) (Frame, []byte, error) {
	prefix := make([]byte, LegacyHeaderSize)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return Frame{}, nil, err
	}

	var lh legacyHeader
	if err := struc.Unpack(bytes.NewReader(prefix), &lh); err != nil {
		return Frame{}, nil, perrors.Wrap(perrors.CloudFraming, err, "could not parse legacy header")
	}

	var h Header
	headerSize := LegacyHeaderSize
	raw := prefix
	if lh.MessageLength == LegacyHeaderSize {
		h = Header{Command: lh.Command, Source: lh.Source, Flag1: lh.Flag1, Destination: lh.Destination, MessageLength: lh.MessageLength, Version: ProtocolVersion}
	} else {
		headerSize = HeaderSize
		rest := make([]byte, HeaderSize-LegacyHeaderSize)
		if _, err := io.ReadFull(r, rest); err != nil {
			return Frame{}, nil, err
		}
		raw = append(raw, rest...)
		if err := struc.Unpack(bytes.NewReader(raw), &h); err != nil {
			return Frame{}, nil, perrors.Wrap(perrors.CloudFraming, err, "could not parse header")
		}
	}

	if int(h.MessageLength) < headerSize {
		return Frame{}, nil, perrors.Newf(perrors.CloudFraming, "message_length %d smaller than header", h.MessageLength)
	}
	payloadLen := int(h.MessageLength) - headerSize
	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, nil, err
		}
	}
	raw = append(raw, payload...)

	msg, err := decodeMessage(h, payload)
	if err != nil {
		return Frame{}, raw, err
	}
	return Frame{Header: h, Message: msg}, raw, nil
}

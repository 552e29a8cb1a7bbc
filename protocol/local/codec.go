// Package local implements the panel's text/JSON request-response wire
// codec: a literal "ISTART" marker, a JSON array, and a literal "IEND\0"
// marker.
//
// Requests are encoded as a 3-element array: [code, code, body]. Responses
// (and notifications/alerts, which share the same envelope) are decoded as a
// 2-element array: [code, data].
package local

import (
	"bytes"
	"encoding/json"

	"github.com/panelkit/panelctl/protocol/perrors"

	"github.com/pkg/errors"
)

const (
	startMarker = "ISTART"
	endMarker   = "IEND\x00"
)

// Code is a local command/notification code.
type Code int

// NoBody is the body value used for no-argument requests; it marshals to the
// literal JSON empty string, matching the panel's wire format.
const NoBody = ""

// Encode builds a request frame for code with the given body.
//
// body is marshaled as-is: pass NoBody for a no-argument command, a
// single-element slice for a single-argument command (e.g. []interface{}{v}),
// or a two-element []int{start, end} for a paginated request.
func Encode(code Code, body interface{}) ([]byte, error) {
	encodedBody, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal request body")
	}

	outer := []json.RawMessage{
		mustMarshal(int(code)),
		mustMarshal(int(code)),
		encodedBody,
	}
	payload, err := json.Marshal(outer)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal request frame")
	}

	var buf bytes.Buffer
	buf.Grow(len(startMarker) + len(payload) + len(endMarker))
	buf.WriteString(startMarker)
	buf.Write(payload)
	buf.WriteString(endMarker)
	return buf.Bytes(), nil
}

// EncodeResponse builds a response (or notification/alert) frame: the
// 2-element array [code, data] Decode expects, as opposed to the
// double-echoed 3-element shape Encode builds for requests.
func EncodeResponse(code Code, data interface{}) ([]byte, error) {
	encodedData, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal response data")
	}

	outer := []json.RawMessage{mustMarshal(int(code)), encodedData}
	payload, err := json.Marshal(outer)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal response frame")
	}

	var buf bytes.Buffer
	buf.Grow(len(startMarker) + len(payload) + len(endMarker))
	buf.WriteString(startMarker)
	buf.Write(payload)
	buf.WriteString(endMarker)
	return buf.Bytes(), nil
}

// Decode parses a response (or notification/alert) frame, returning its code
// and raw body for further unmarshaling.
//
// Decode fails with perrors.Framing if the markers are missing or the JSON
// payload does not parse into a 2-element array.
func Decode(data []byte) (Code, json.RawMessage, error) {
	rest, ok := stripMarkers(data)
	if !ok {
		return 0, nil, perrors.New(perrors.Framing, "missing ISTART/IEND markers")
	}

	var outer []json.RawMessage
	if err := json.Unmarshal(rest, &outer); err != nil {
		return 0, nil, perrors.Wrap(perrors.Framing, err, "could not parse frame JSON")
	}
	if len(outer) != 2 {
		return 0, nil, perrors.Newf(perrors.Framing, "expected a 2-element array, got %d elements", len(outer))
	}

	var code int
	if err := json.Unmarshal(outer[0], &code); err != nil {
		return 0, nil, perrors.Wrap(perrors.Framing, err, "could not parse response code")
	}

	return Code(code), outer[1], nil
}

// DecodeRequest parses a request frame built by Encode: the double-echoed
// 3-element array [code, code, body]. It is the panel side's counterpart to
// Decode, used by anything standing in for the panel itself (the fake
// panels the test suite drives Engine against).
//
// DecodeRequest fails with perrors.Framing if the markers are missing, the
// JSON payload does not parse into a 3-element array, or the two code
// copies disagree.
func DecodeRequest(data []byte) (Code, json.RawMessage, error) {
	rest, ok := stripMarkers(data)
	if !ok {
		return 0, nil, perrors.New(perrors.Framing, "missing ISTART/IEND markers")
	}

	var outer []json.RawMessage
	if err := json.Unmarshal(rest, &outer); err != nil {
		return 0, nil, perrors.Wrap(perrors.Framing, err, "could not parse frame JSON")
	}
	if len(outer) != 3 {
		return 0, nil, perrors.Newf(perrors.Framing, "expected a 3-element array, got %d elements", len(outer))
	}

	var code, codeEcho int
	if err := json.Unmarshal(outer[0], &code); err != nil {
		return 0, nil, perrors.Wrap(perrors.Framing, err, "could not parse request code")
	}
	if err := json.Unmarshal(outer[1], &codeEcho); err != nil {
		return 0, nil, perrors.Wrap(perrors.Framing, err, "could not parse request code echo")
	}
	if code != codeEcho {
		return 0, nil, perrors.Newf(perrors.Framing, "request code %d does not match its echo %d", code, codeEcho)
	}

	return Code(code), outer[2], nil
}

// DecodeExpect decodes data and confirms its code matches want, returning
// perrors.Mismatch if it does not.
func DecodeExpect(data []byte, want Code) (json.RawMessage, error) {
	got, body, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if got != want {
		return nil, perrors.Newf(perrors.Mismatch, "response code %d does not match request code %d", got, want)
	}
	return body, nil
}

func stripMarkers(data []byte) ([]byte, bool) {
	if !bytes.HasPrefix(data, []byte(startMarker)) {
		return nil, false
	}
	data = data[len(startMarker):]
	if !bytes.HasSuffix(data, []byte(endMarker)) {
		return nil, false
	}
	return data[:len(data)-len(endMarker)], true
}

func mustMarshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// These are always marshaling integers; this can't fail.
		panic(err)
	}
	return b
}

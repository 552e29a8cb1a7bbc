package local

import (
	"fmt"
	"strings"
)

// System command codes, issued over the system-command frame (distinct
// from the regular command envelope: no code-echo, no response).
const (
	SystemCommandSetConfiguration = 1
	SystemCommandWiFiReboot       = 1006
	SystemCommandMCUReboot        = 1123
	SystemCommandGSMReboot        = 1129
)

// System configuration sub-commands, used with
// SystemCommandSetConfiguration.
const (
	SystemConfigServerAddress = 78
)

// EncodeSystemCommand builds a system-command frame: no response is
// expected or parsed for these. data, if non-empty, is appended verbatim
// after code (used by plain system commands that take a single opaque
// argument); it is mutually exclusive with EncodeSystemConfigCommand's
// subcmd/values form.
func EncodeSystemCommand(code int, data string) []byte {
	return systemFrame(fmt.Sprintf("AT^IWT=%d%s,IWT", code, data))
}

// EncodeSystemConfigCommand builds a SET_CONFIGURATION system-command
// frame for sub-command subcmd, with values joined by "&".
func EncodeSystemConfigCommand(subcmd int, values ...string) []byte {
	return systemFrame(fmt.Sprintf("AT^IWT=%d,%d=%s,IWT", SystemCommandSetConfiguration, subcmd, strings.Join(values, "&")))
}

func systemFrame(body string) []byte {
	var buf strings.Builder
	buf.WriteString(startMarker)
	buf.WriteString(`[0,100,"`)
	buf.WriteString(body)
	buf.WriteString(`"]`)
	buf.WriteString(endMarker)
	return []byte(buf.String())
}

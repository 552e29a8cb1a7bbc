package entity

// PanelAddr identifies the panel a command targets. Port 0 defers to the
// command engine's default local command port.
type PanelAddr struct {
	Host string
	Port int
}

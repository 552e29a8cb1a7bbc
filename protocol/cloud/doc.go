// Package cloud implements the panel's binary cloud protocol: a common
// little-endian frame header (with a shorter legacy variant used by ping
// frames), and a registry of concrete message types keyed by
// (command, source, destination).
package cloud

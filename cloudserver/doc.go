// Package cloudserver implements a TCP endpoint for the panel's cloud
// protocol: it accepts a single connection per panel identity, and either
// relays that connection transparently to a configured upstream cloud
// server, or terminates it locally and answers recognized frames itself.
package cloudserver

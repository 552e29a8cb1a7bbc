// Package discovery locates panels on the local network.
//
// Two independent mechanisms are implemented, mirroring the panel's own
// firmware: a broadcast host-info query over the local command protocol
// (see Discover), and a targeted, GUID-addressed probe using a separate
// ASCII wire format (see TargetedDiscover).
package discovery

// Package entity implements the sensor/device model and the generic
// entity-list cache used to track them: lazily-populated collections that
// reconcile a fresh panel fetch against what was previously cached,
// marking entries absent from the fetch unavailable rather than dropping
// them.
package entity

// Package notify implements the notification dispatcher: it unifies local
// UDP notifications/alerts, cloud device alerts, and alerts synthesized
// from history polling into one callback table.
package notify

// Package idgen produces identifiers for sequencer runs and report
// events. IDs are UUIDv7 so they sort by creation time in logs and sinks.
package idgen

import (
	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every ID from gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is used by New.
var Default Generator = UUIDv7()

// New produces an ID using Default.
func New() string {
	return Default()
}

// Run tags one Action Sequencer run.
var Run = Prefixed("run_", Default)

// Event tags one report event.
var Event = Prefixed("evt_", Default)

package main

import (
	"strconv"

	log "github.com/Financial-Times/go-logger"
)

const (
	defaultSeverity = uint8(2)
	lowestSeverity  = uint8(3)
)

// getSeverityForWorkload reads the severity label, falling back to the
// default when it is missing or outside 1..3.
func getSeverityForWorkload(w workload) uint8 {
	value, ok := w.Labels[severityLabel]
	if !ok || value == "" {
		return defaultSeverity
	}

	severity, err := strconv.ParseUint(value, 10, 8)
	if err != nil || severity < 1 || uint8(severity) > lowestSeverity {
		log.Warnf("Invalid severity label value %q for workload %s, using default severity: %d.", value, w.Name, defaultSeverity)
		return defaultSeverity
	}
	return uint8(severity)
}

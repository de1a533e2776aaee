package models

import "time"

// AuditEntry records one pipeline stage invocation.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp" db:"ts"`
	Stage     string    `json:"stage" db:"stage"`
	Affected  int       `json:"affected" db:"affected"`
}

// AuditLog is an append-only trail of stage invocations.
type AuditLog struct {
	entries []AuditEntry
}

// Append adds entries to the end of the log.
func (l *AuditLog) Append(entries ...AuditEntry) {
	l.entries = append(l.entries, entries...)
}

// Entries returns a copy of the recorded entries.
func (l *AuditLog) Entries() []AuditEntry {
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *AuditLog) Len() int { return len(l.entries) }

package models

import "time"

type EntryKind int

const (
	Info EntryKind = iota
	Command
	Write
	Failure
)

// LogEntry is one line of the operator log shown under the panels.
type LogEntry struct {
	Time    time.Time
	Kind    EntryKind
	Content string
	Device  string // device or attribute the entry is about
}

package core

import (
	"sync"
	"time"

	"github.com/maxlab/magnetpanel/internal/models"
)

// ControlState holds the operator log and the in-flight request count.
type ControlState struct {
	mu        sync.RWMutex
	log       []models.LogEntry
	inFlight  int
	lastError error
	now       func() time.Time
}

func NewControlState() *ControlState {
	return &ControlState{
		log: make([]models.LogEntry, 0),
		now: time.Now,
	}
}

func (cs *ControlState) AddEntry(kind models.EntryKind, device, content string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.log = append(cs.log, models.LogEntry{
		Time:    cs.now(),
		Kind:    kind,
		Device:  device,
		Content: content,
	})
}

// Log returns a copy of the whole log.
func (cs *ControlState) Log() []models.LogEntry {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make([]models.LogEntry, len(cs.log))
	copy(out, cs.log)
	return out
}

// Since returns the entries after the first n.
func (cs *ControlState) Since(n int) ([]models.LogEntry, int) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if n > len(cs.log) {
		n = len(cs.log)
	}
	out := make([]models.LogEntry, len(cs.log)-n)
	copy(out, cs.log[n:])
	return out, len(cs.log)
}

// Begin marks a request as started and clears the last error.
func (cs *ControlState) Begin() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.inFlight++
	cs.lastError = nil
}

// Finish marks a request as done; a non-nil err becomes the last error.
func (cs *ControlState) Finish(err error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.inFlight > 0 {
		cs.inFlight--
	}
	if err != nil {
		cs.lastError = err
	}
}

func (cs *ControlState) Busy() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.inFlight > 0
}

func (cs *ControlState) LastError() error {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.lastError
}

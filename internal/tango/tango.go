package tango

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrMalformed   = errors.New("malformed model identifier")
	ErrUnreachable = errors.New("device unreachable")
	ErrReadOnly    = errors.New("attribute is read-only")
	ErrNoCommand   = errors.New("command not supported")
)

// ModelID names a remote device or attribute as a slash separated path.
type ModelID string

// Attr builds the identifier of an attribute of device.
func Attr(device ModelID, name string) ModelID {
	return ModelID(string(device) + "/" + name)
}

func (m ModelID) String() string { return string(m) }

func (m ModelID) IsZero() bool { return m == "" }

// Segments returns the path segments, ignoring empty ones.
func (m ModelID) Segments() []string {
	parts := strings.Split(string(m), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Device strips the last segment. A model with a single segment has no device.
func (m ModelID) Device() ModelID {
	i := strings.LastIndex(string(m), "/")
	if i <= 0 {
		return ""
	}
	return m[:i]
}

// Name returns the last path segment.
func (m ModelID) Name() string {
	i := strings.LastIndex(string(m), "/")
	return string(m[i+1:])
}

// Validate reports ErrMalformed for identifiers that cannot name anything.
func (m ModelID) Validate() error {
	s := string(m)
	if strings.TrimSpace(s) == "" || strings.Contains(s, "//") ||
		strings.HasPrefix(s, "/") || strings.HasSuffix(s, "/") ||
		strings.ContainsAny(s, " \t\n") {
		return fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return nil
}

type Quality int

const (
	Valid Quality = iota
	Invalid
	Alarm
	Changing
	Warning
)

func (q Quality) String() string {
	switch q {
	case Valid:
		return "VALID"
	case Invalid:
		return "INVALID"
	case Alarm:
		return "ALARM"
	case Changing:
		return "CHANGING"
	case Warning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

type State int

const (
	StateUnknown State = iota
	StateOn
	StateOff
	StateFault
	StateAlarm
	StateRunning
	StateStandby
	StateMoving
)

var stateNames = map[State]string{
	StateUnknown: "UNKNOWN",
	StateOn:      "ON",
	StateOff:     "OFF",
	StateFault:   "FAULT",
	StateAlarm:   "ALARM",
	StateRunning: "RUNNING",
	StateStandby: "STANDBY",
	StateMoving:  "MOVING",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParseState is the inverse of State.String; unknown names map to StateUnknown.
func ParseState(name string) State {
	name = strings.ToUpper(strings.TrimSpace(name))
	for s, n := range stateNames {
		if n == name {
			return s
		}
	}
	return StateUnknown
}

// Value is one reading of an attribute. Data holds float64, bool, string,
// State or []float64.
type Value struct {
	Data       any
	WriteValue any
	Quality    Quality
	Time       time.Time
}

// Float returns Data as a float64 when it is numeric or boolean.
func (v Value) Float() (float64, bool) {
	switch d := v.Data.(type) {
	case float64:
		return d, true
	case int:
		return float64(d), true
	case bool:
		if d {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AttrInfo is the static configuration of an attribute.
type AttrInfo struct {
	Label    string
	Unit     string
	Format   string
	Writable bool
	Min      float64
	Max      float64
}

// Callback receives change notifications. It may run on any goroutine.
type Callback func(attr ModelID, v Value)

// Handle identifies one upstream subscription.
type Handle string

// Source delivers change events. Subscribe must not invoke cb before it
// returns; the first event carries the current value.
type Source interface {
	Subscribe(attr ModelID, cb Callback) (Handle, error)
	Unsubscribe(h Handle) error
}

type Topology interface {
	GetProperty(ctx context.Context, device ModelID, name string) ([]string, error)
	ClassOf(ctx context.Context, device ModelID) (string, error)
}

type Reader interface {
	Info(ctx context.Context, attr ModelID) (AttrInfo, error)
	Read(ctx context.Context, attr ModelID) (Value, error)
}

type Commander interface {
	Command(ctx context.Context, device ModelID, name string) error
}

type Writer interface {
	Write(ctx context.Context, attr ModelID, value any) error
}

// ControlSystem is everything a panel application needs from the backend.
type ControlSystem interface {
	Source
	Reader
	Commander
	Writer
}

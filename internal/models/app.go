package models

// ConfirmationRequest represents a confirmation request (avoiding import cycle)
type ConfirmationRequest struct {
	ID        string // Unique identifier for this confirmation request
	Operation string // Description of the operation to confirm
	Device    string // Target device
	Command   string // Command name
}

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	Title               string               // e.g. "Magnet circuit panel: r3/mag/crq1"
	Log                 []LogEntry           // Operator log, newest last
	Status              string               // Status bar text
	Busy                bool                 // A command or write is in flight
	BusyDots            int                  // Animation counter for the busy indicator
	Width               int                  // Terminal width
	Height              int                  // Terminal height
	Delivered           int                  // Updates applied to panels
	Discarded           int                  // Stale updates dropped
	ShowHelp            bool                 // Key help expanded
	PendingConfirmation *ConfirmationRequest // Current confirmation request
}

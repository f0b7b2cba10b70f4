package constant

// Message roles stored with agent messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Session lifecycle states.
const (
	SessionStatusActive    = "active"
	SessionStatusSuspended = "suspended"
	SessionStatusDone      = "done"
	SessionStatusFailed    = "failed"
)

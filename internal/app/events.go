package app

// Event names for frontend communication.
const (
	EventStatus   = "dictation:status"
	EventError    = "dictation:error"
	EventFragment = "dictation:fragment"
	EventHotkey   = "hotkey:active"
)

// ErrorEvent is emitted with EventError. The UI shows it for a few seconds.
type ErrorEvent struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// FragmentEvent is emitted with EventFragment after text was typed.
type FragmentEvent struct {
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

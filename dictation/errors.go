package dictation

import "errors"

// Error kinds reported to the UI. Failures are wrapped as
// fmt.Errorf("%w: %w", kind, cause) so both can be matched with errors.Is.
var (
	// ErrDevice means the microphone could not be opened or read.
	ErrDevice = errors.New("audio device unavailable")
	// ErrEngine means the speech model is missing or failed.
	ErrEngine = errors.New("transcription failed")
	// ErrInjection means a fragment could not be typed. The session goes on.
	ErrInjection = errors.New("text injection failed")
)

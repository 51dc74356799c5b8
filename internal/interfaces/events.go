package interfaces

// EventType represents the progress event variants a job can emit
type EventType string

const (
	EventStatusMessage      EventType = "status_message"
	EventProgressValue      EventType = "progress_value"
	EventAuthCodePrompt     EventType = "auth_code_prompt"
	EventAuthPasswordPrompt EventType = "auth_password_prompt"
)

// ProgressEvent is a single event emitted by a running job. Events are
// ordered and delivered at least once, in emission order.
type ProgressEvent struct {
	Type  EventType
	Text  string
	Count int
}

// StatusMessage builds a status-line event
func StatusMessage(text string) ProgressEvent {
	return ProgressEvent{Type: EventStatusMessage, Text: text}
}

// ProgressValue builds a counter event
func ProgressValue(count int) ProgressEvent {
	return ProgressEvent{Type: EventProgressValue, Count: count}
}

// AuthCodePrompt asks the presentation collaborator for a phone number or
// login code. The collaborator answers through the job's Supply method; an
// empty answer cancels the job.
func AuthCodePrompt(text string) ProgressEvent {
	return ProgressEvent{Type: EventAuthCodePrompt, Text: text}
}

// AuthPasswordPrompt asks the presentation collaborator for the two-factor
// password.
func AuthPasswordPrompt() ProgressEvent {
	return ProgressEvent{Type: EventAuthPasswordPrompt}
}

// EventSink receives progress events from a running job. A job emits no
// further events once it has produced its terminal outcome.
type EventSink interface {
	Emit(event ProgressEvent)
}

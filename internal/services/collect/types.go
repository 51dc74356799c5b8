// Package collect implements the collection jobs: a shared lifecycle
// skeleton (connect, authorize, resolve, paginate, transform) driven by a
// per-mode strategy.
package collect

import (
	"fmt"

	"github.com/ternarybob/colligo/internal/telegram"
)

// Mode selects the collection strategy
type Mode string

const (
	ModeMembers   Mode = "members"
	ModeMessages  Mode = "messages"
	ModeComments  Mode = "comments"
	ModeReactions Mode = "reactions"
)

// ParseMode parses a mode string
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMembers, ModeMessages, ModeComments, ModeReactions:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown collection mode: %q", s)
}

// postScoped reports whether the mode requires a <channel>/<post-id> link
func (m Mode) postScoped() bool {
	return m == ModeComments || m == ModeReactions
}

// JobConfig configures one collection job. Immutable once the job starts.
type JobConfig struct {
	Credentials telegram.Credentials
	Link        string
	Mode        Mode
	Limit       int
}

// OutcomeStatus is the terminal state of a job
type OutcomeStatus string

const (
	StatusCompleted OutcomeStatus = "completed"
	StatusFailed    OutcomeStatus = "failed"
	StatusCancelled OutcomeStatus = "cancelled"
)

// Outcome is the single terminal result of a job run. Soft marks failures
// that the presentation layer should surface as a status line rather than
// an error dialog.
type Outcome struct {
	Status  OutcomeStatus
	Title   string
	Records []*Record
	Reason  string
	Soft    bool
}

// Completed builds a success outcome
func Completed(title string, records []*Record) Outcome {
	return Outcome{Status: StatusCompleted, Title: title, Records: records}
}

// Failed builds a failure outcome with human-readable text
func Failed(reason string) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason}
}

// Cancelled builds a cancellation outcome
func Cancelled() Outcome {
	return Outcome{Status: StatusCancelled}
}

// softError marks a transient fetch failure reported informationally;
// the job still ends without records.
type softError struct {
	msg string
}

func (e *softError) Error() string {
	return e.msg
}

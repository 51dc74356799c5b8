// Package telegram defines the remote messaging-API capability the
// collectors depend on. The concrete MTProto transport is an external
// collaborator; a driver registers itself via RegisterDriver, and tests
// substitute fakes.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Credentials identify one API application plus the on-disk session
type Credentials struct {
	APIID       int
	APIHash     string
	SessionName string
}

// StatusKind enumerates the presence-status variants the API reports
type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusOnline
	StatusOffline
	StatusRecently
	StatusLastWeek
	StatusLastMonth
	StatusEmpty
)

// UserStatus is a user's presence status. A nil *UserStatus means the
// status is hidden entirely.
type UserStatus struct {
	Kind StatusKind
	// WasOnline is set for StatusOffline only
	WasOnline time.Time
}

// User is a participant record as yielded by the remote iterators
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	Phone     string
	Bot       bool
	Verified  bool
	Scam      bool
	Premium   bool
	Status    *UserStatus
}

// Entity is a resolved remote channel, chat or user
type Entity struct {
	ID       int64
	Title    string
	Username string
}

// DisplayTitle returns the entity title, falling back to the username
func (e *Entity) DisplayTitle() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Username
}

// Message is a single message record
type Message struct {
	ID        int64
	Date      time.Time
	Text      string
	MediaKind string // empty when the message carries no media
	SenderID  int64
}

// ReactionEntry pairs a reacting user id with the emoji used
type ReactionEntry struct {
	UserID   int64
	Emoticon string
}

// ReactionList is the raw reaction-listing response: the reacting users
// and a parallel reactions list matched by user id
type ReactionList struct {
	Users     []*User
	Reactions []ReactionEntry
}

// ParticipantFilter selects which participants an iteration yields
type ParticipantFilter int

const (
	FilterNone ParticipantFilter = iota
	FilterAdmins
)

// UserIterator is a lazy cursor over participants. Next yields from
// internally buffered pages; the driver owns the pacing of its page
// fetches, so callers do not rate-limit individual Next calls.
type UserIterator interface {
	// Next returns the next user, or ok=false at end of data
	Next(ctx context.Context) (user *User, ok bool, err error)
}

// MessageIterator is a lazy cursor over messages, newest first. Pacing
// follows the same contract as UserIterator.
type MessageIterator interface {
	Next(ctx context.Context) (msg *Message, ok bool, err error)
}

// Client is the remote API capability. All methods are sequential; a call
// already in flight completes or errors before cancellation is observed.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	IsAuthorized(ctx context.Context) (bool, error)
	Me(ctx context.Context) (*User, error)
	// SendCodeRequest may return *FloodWaitError with a server-specified
	// retry-after duration.
	SendCodeRequest(ctx context.Context, phone string) error
	// SignIn may return ErrTwoFactorRequired.
	SignIn(ctx context.Context, phone, code string) error
	SignInWithPassword(ctx context.Context, password string) error

	ResolveEntity(ctx context.Context, handle string) (*Entity, error)
	// ParticipantCount returns the total participant count of a resolved
	// group or channel.
	ParticipantCount(ctx context.Context, entity *Entity) (int, error)
	IterParticipants(entity *Entity, filter ParticipantFilter, limit int) UserIterator
	// IterMessages iterates up to limit most-recent messages; replyTo > 0
	// restricts the iteration to replies to that post id.
	IterMessages(entity *Entity, limit int, replyTo int64) MessageIterator
	ResolveSender(ctx context.Context, msg *Message) (*User, error)
	MessageReactions(ctx context.Context, entity *Entity, msgID int64, limit int) (*ReactionList, error)
}

// Factory creates a client for the given credentials, reusing any session
// blob the store holds for the session name.
type Factory func(creds Credentials, sessions *SessionStore) (Client, error)

var (
	driverMu sync.RWMutex
	driver   Factory
)

// RegisterDriver installs the concrete client implementation. Typically
// called from a driver package's init.
func RegisterDriver(f Factory) {
	driverMu.Lock()
	defer driverMu.Unlock()
	driver = f
}

// NewClient creates a client using the registered driver
func NewClient(creds Credentials, sessions *SessionStore) (Client, error) {
	driverMu.RLock()
	f := driver
	driverMu.RUnlock()
	if f == nil {
		return nil, errors.New("no telegram driver registered")
	}
	return f(creds, sessions)
}

// ErrTwoFactorRequired signals that sign-in needs the account password
var ErrTwoFactorRequired = errors.New("two-factor password required")

// FloodWaitError is the rate-limit response to a code request
type FloodWaitError struct {
	Seconds int
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait: retry after %d seconds", e.Seconds)
}

// Duration returns the server-specified backoff
func (e *FloodWaitError) Duration() time.Duration {
	return time.Duration(e.Seconds) * time.Second
}

package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/services/collect"
	"github.com/ternarybob/colligo/internal/telegram"
)

// stubIter yields users, optionally blocking until cancellation after the
// fixed items run out
type stubIter struct {
	users []*telegram.User
	pos   int
	block bool
}

func (it *stubIter) Next(ctx context.Context) (*telegram.User, bool, error) {
	if it.pos < len(it.users) {
		it.pos++
		return it.users[it.pos-1], true, nil
	}
	if it.block {
		<-ctx.Done()
		return nil, false, ctx.Err()
	}
	return nil, false, nil
}

// stubClient serves a members run out of fixed data. With blockIteration
// set the participant iterator hangs until the job is cancelled.
type stubClient struct {
	connected      bool
	users          []*telegram.User
	blockIteration bool
}

func (c *stubClient) Connect(ctx context.Context) error { c.connected = true; return nil }
func (c *stubClient) Disconnect() error                 { c.connected = false; return nil }
func (c *stubClient) IsConnected() bool                 { return c.connected }

func (c *stubClient) IsAuthorized(ctx context.Context) (bool, error) { return true, nil }

func (c *stubClient) Me(ctx context.Context) (*telegram.User, error) {
	return &telegram.User{ID: 1, FirstName: "Tester"}, nil
}

func (c *stubClient) SendCodeRequest(ctx context.Context, phone string) error { return nil }
func (c *stubClient) SignIn(ctx context.Context, phone, code string) error    { return nil }
func (c *stubClient) SignInWithPassword(ctx context.Context, password string) error {
	return nil
}

func (c *stubClient) ResolveEntity(ctx context.Context, handle string) (*telegram.Entity, error) {
	return &telegram.Entity{ID: 100, Title: "Stub Group", Username: handle}, nil
}

func (c *stubClient) ParticipantCount(ctx context.Context, entity *telegram.Entity) (int, error) {
	return len(c.users), nil
}

func (c *stubClient) IterParticipants(entity *telegram.Entity, filter telegram.ParticipantFilter, limit int) telegram.UserIterator {
	if filter == telegram.FilterAdmins {
		return &stubIter{}
	}
	return &stubIter{users: c.users, block: c.blockIteration}
}

func (c *stubClient) IterMessages(entity *telegram.Entity, limit int, replyTo int64) telegram.MessageIterator {
	return nil
}

func (c *stubClient) ResolveSender(ctx context.Context, msg *telegram.Message) (*telegram.User, error) {
	return nil, errors.New("not implemented")
}

func (c *stubClient) MessageReactions(ctx context.Context, entity *telegram.Entity, msgID int64, limit int) (*telegram.ReactionList, error) {
	return nil, errors.New("not implemented")
}

// memoryHistory collects history entries in memory
type memoryHistory struct {
	entries []*interfaces.JobHistory
}

func (h *memoryHistory) SaveHistory(ctx context.Context, entry *interfaces.JobHistory) error {
	h.entries = append(h.entries, entry)
	return nil
}

func (h *memoryHistory) ListHistory(ctx context.Context, limit int) ([]*interfaces.JobHistory, error) {
	return h.entries, nil
}

func newTestSupervisor(t *testing.T, client *stubClient, history interfaces.HistoryStorage, opts Options) *Supervisor {
	t.Helper()
	logger := arbor.NewLogger()
	opts.Runner = collect.Options{
		RequestsPerSecond: 100000,
		NewClient: func(creds telegram.Credentials, sessions *telegram.SessionStore) (telegram.Client, error) {
			return client, nil
		},
	}
	return NewSupervisor(telegram.NewSessionStore(t.TempDir(), logger), history, logger, opts)
}

func membersConfig(limit int) collect.JobConfig {
	return collect.JobConfig{
		Credentials: telegram.Credentials{APIID: 1, APIHash: "hash", SessionName: "test"},
		Link:        "mygroup",
		Mode:        collect.ModeMembers,
		Limit:       limit,
	}
}

// drain consumes events until the terminal outcome arrives, mirroring
// how a presenter watches both channels
func drain(t *testing.T, job *Job) collect.Outcome {
	t.Helper()
	deadline := time.After(5 * time.Second)
	events := job.Events()
	for {
		select {
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		case outcome := <-job.Outcome():
			return outcome
		case <-deadline:
			t.Fatal("timed out waiting for outcome")
			return collect.Outcome{}
		}
	}
}

func TestStartRunsJobToCompletion(t *testing.T) {
	client := &stubClient{users: []*telegram.User{
		{ID: 1, Username: "alice"},
		{ID: 2, Username: "bob"},
	}}
	s := newTestSupervisor(t, client, nil, Options{})

	job, err := s.Start(membersConfig(100))
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)

	outcome := drain(t, job)
	assert.Equal(t, collect.StatusCompleted, outcome.Status)
	assert.Equal(t, "Stub Group", outcome.Title)
	assert.Len(t, outcome.Records, 2)
	assert.Equal(t, "idle", s.Status())
}

func TestEventsChannelClosesAfterOutcome(t *testing.T) {
	client := &stubClient{users: []*telegram.User{{ID: 1}}}
	s := newTestSupervisor(t, client, nil, Options{})

	job, err := s.Start(membersConfig(100))
	require.NoError(t, err)

	drain(t, job)

	// Flush buffered events; the range terminates because the stream was
	// closed before the outcome was delivered
	for range job.Events() {
	}
	_, open := <-job.Events()
	assert.False(t, open, "events channel should be closed after the outcome")
}

func TestStartPreemptsRunningJob(t *testing.T) {
	blocked := &stubClient{blockIteration: true}
	s := newTestSupervisor(t, blocked, nil, Options{
		PreemptWait: 100 * time.Millisecond,
		StopWait:    time.Second,
	})

	first, err := s.Start(membersConfig(100))
	require.NoError(t, err)
	require.Equal(t, "running", s.Status())

	second, err := s.Start(membersConfig(100))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	firstOutcome := drain(t, first)
	assert.Equal(t, collect.StatusCancelled, firstOutcome.Status)

	go s.Stop()
	secondOutcome := drain(t, second)
	assert.Equal(t, collect.StatusCancelled, secondOutcome.Status)
}

func TestStopCancelsRunningJob(t *testing.T) {
	client := &stubClient{blockIteration: true}
	s := newTestSupervisor(t, client, nil, Options{StopWait: time.Second})

	job, err := s.Start(membersConfig(100))
	require.NoError(t, err)

	go s.Stop()

	outcome := drain(t, job)
	assert.Equal(t, collect.StatusCancelled, outcome.Status)
	assert.Equal(t, "idle", s.Status())
}

func TestStopWithoutActiveJobIsNoOp(t *testing.T) {
	s := newTestSupervisor(t, &stubClient{}, nil, Options{})
	s.Stop()
	assert.Equal(t, "idle", s.Status())
}

func TestTerminalOutcomeIsRecorded(t *testing.T) {
	client := &stubClient{users: []*telegram.User{{ID: 1}}}
	history := &memoryHistory{}
	s := newTestSupervisor(t, client, history, Options{})

	job, err := s.Start(membersConfig(100))
	require.NoError(t, err)
	drain(t, job)

	require.Len(t, history.entries, 1)
	entry := history.entries[0]
	assert.Equal(t, job.ID, entry.ID)
	assert.Equal(t, "members", entry.Mode)
	assert.Equal(t, "mygroup", entry.Link)
	assert.Equal(t, "completed", entry.Status)
	assert.Equal(t, 1, entry.RecordCount)
	assert.False(t, entry.FinishedAt.IsZero())
}

func TestSupplyWithoutActiveJobDoesNotPanic(t *testing.T) {
	s := newTestSupervisor(t, &stubClient{}, nil, Options{})
	s.Supply("ignored")
}

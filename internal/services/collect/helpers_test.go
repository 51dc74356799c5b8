package collect

import (
	"context"
	"sync"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/telegram"
)

// fakeSink records emitted events
type fakeSink struct {
	mu     sync.Mutex
	events []interfaces.ProgressEvent
}

func (s *fakeSink) Emit(event interfaces.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeSink) byType(t interfaces.EventType) []interfaces.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []interfaces.ProgressEvent
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeUserIter yields a fixed user slice, invoking onNext before each item
type fakeUserIter struct {
	users  []*telegram.User
	pos    int
	err    error
	onNext func(n int)
}

func (it *fakeUserIter) Next(ctx context.Context) (*telegram.User, bool, error) {
	if it.err != nil {
		return nil, false, it.err
	}
	if it.pos >= len(it.users) {
		return nil, false, nil
	}
	it.pos++
	if it.onNext != nil {
		it.onNext(it.pos)
	}
	return it.users[it.pos-1], true, nil
}

type fakeMessageIter struct {
	messages []*telegram.Message
	pos      int
	err      error
}

func (it *fakeMessageIter) Next(ctx context.Context) (*telegram.Message, bool, error) {
	if it.err != nil {
		return nil, false, it.err
	}
	if it.pos >= len(it.messages) {
		return nil, false, nil
	}
	it.pos++
	return it.messages[it.pos-1], true, nil
}

// fakeClient is an in-memory remote API capability
type fakeClient struct {
	connected  bool
	authorized bool
	me         *telegram.User

	entity     *telegram.Entity
	resolveErr error
	resolved   []string

	participantCount    int
	participantCountErr error

	admins    []*telegram.User
	adminsErr error

	users         []*telegram.User
	onParticipant func(n int)

	messages  []*telegram.Message
	replies   map[int64][]*telegram.Message
	senders   map[int64]*telegram.User
	senderErr error

	reactions    *telegram.ReactionList
	reactionsErr error
}

func (c *fakeClient) Connect(ctx context.Context) error { c.connected = true; return nil }
func (c *fakeClient) Disconnect() error                 { c.connected = false; return nil }
func (c *fakeClient) IsConnected() bool                 { return c.connected }

func (c *fakeClient) IsAuthorized(ctx context.Context) (bool, error) { return c.authorized, nil }

func (c *fakeClient) Me(ctx context.Context) (*telegram.User, error) {
	if c.me != nil {
		return c.me, nil
	}
	return &telegram.User{ID: 1, FirstName: "Tester"}, nil
}

func (c *fakeClient) SendCodeRequest(ctx context.Context, phone string) error { return nil }
func (c *fakeClient) SignIn(ctx context.Context, phone, code string) error    { return nil }
func (c *fakeClient) SignInWithPassword(ctx context.Context, password string) error {
	return nil
}

func (c *fakeClient) ResolveEntity(ctx context.Context, handle string) (*telegram.Entity, error) {
	c.resolved = append(c.resolved, handle)
	if c.resolveErr != nil {
		return nil, c.resolveErr
	}
	return c.entity, nil
}

func (c *fakeClient) ParticipantCount(ctx context.Context, entity *telegram.Entity) (int, error) {
	if c.participantCountErr != nil {
		return 0, c.participantCountErr
	}
	if c.participantCount > 0 {
		return c.participantCount, nil
	}
	return len(c.users), nil
}

func (c *fakeClient) IterParticipants(entity *telegram.Entity, filter telegram.ParticipantFilter, limit int) telegram.UserIterator {
	if filter == telegram.FilterAdmins {
		return &fakeUserIter{users: c.admins, err: c.adminsErr}
	}
	return &fakeUserIter{users: c.users, onNext: c.onParticipant}
}

func (c *fakeClient) IterMessages(entity *telegram.Entity, limit int, replyTo int64) telegram.MessageIterator {
	if replyTo > 0 {
		return &fakeMessageIter{messages: c.replies[replyTo]}
	}
	return &fakeMessageIter{messages: c.messages}
}

func (c *fakeClient) ResolveSender(ctx context.Context, msg *telegram.Message) (*telegram.User, error) {
	if c.senderErr != nil {
		return nil, c.senderErr
	}
	return c.senders[msg.SenderID], nil
}

func (c *fakeClient) MessageReactions(ctx context.Context, entity *telegram.Entity, msgID int64, limit int) (*telegram.ReactionList, error) {
	if c.reactionsErr != nil {
		return nil, c.reactionsErr
	}
	return c.reactions, nil
}

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

// newTestRunner wires a runner around the fake client with a limiter fast
// enough to be unobservable in tests
func newTestRunner(t *testing.T, cfg JobConfig, client *fakeClient) (*Runner, *fakeSink) {
	t.Helper()
	client.authorized = true
	sink := &fakeSink{}
	logger := arbor.NewLogger()
	runner := NewRunner(cfg, telegram.NewSessionStore(t.TempDir(), logger), sink, logger, Options{
		RequestsPerSecond: 100000,
		NewClient: func(creds telegram.Credentials, sessions *telegram.SessionStore) (telegram.Client, error) {
			return client, nil
		},
	})
	return runner, sink
}

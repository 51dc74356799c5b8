package collect

import (
	"context"
	"fmt"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/telegram"
)

// maxTextRunes truncates exported message text
const maxTextRunes = 4096

// messagesStrategy collects the most-recent chat history. Sender
// resolution is one remote call per message; progress is reported during
// the fetch phase only.
type messagesStrategy struct{}

func (s *messagesStrategy) collect(ctx context.Context, rt *runtime) (string, []*Record, error) {
	handle := NormalizeHandle(rt.cfg.Link)

	if err := rt.throttle(ctx); err != nil {
		return "", nil, err
	}
	entity, err := rt.client.ResolveEntity(ctx, handle)
	if err != nil {
		return "", nil, fmt.Errorf("failed to find chat: %w", err)
	}
	rt.sink.Emit(interfaces.StatusMessage(fmt.Sprintf("Chat: %s", entity.DisplayTitle())))
	rt.sink.Emit(interfaces.StatusMessage("Fetching messages"))

	messages, err := fetchMessages(ctx, rt, entity, 0, "Fetched messages: %d")
	if err != nil {
		return "", nil, err
	}

	records := make([]*Record, 0, len(messages))
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		if err := rt.throttle(ctx); err != nil {
			return "", nil, err
		}
		sender, err := rt.client.ResolveSender(ctx, msg)
		if err != nil {
			return "", nil, fmt.Errorf("failed to resolve sender of message %d: %w", msg.ID, err)
		}

		rec := NewRecord()
		rec.SetInt("Message ID", msg.ID)
		setSenderFields(rec, "Author ID", sender)
		rec.Set("Date", msg.Date.Format(dateFormat))
		rec.Set("Text", truncateRunes(msg.Text, maxTextRunes))
		rec.Set("Media Type", msg.MediaKind)
		records = append(records, rec)
	}

	return fmt.Sprintf("Messages of %s", entity.DisplayTitle()), records, nil
}

// fetchMessages buffers up to limit messages from the iterator, emitting
// progress every 50. replyTo > 0 restricts to replies to that post.
func fetchMessages(ctx context.Context, rt *runtime, entity *telegram.Entity, replyTo int64, progressFormat string) ([]*telegram.Message, error) {
	var messages []*telegram.Message
	it := rt.client.IterMessages(entity, rt.cfg.Limit, replyTo)
	for len(messages) < rt.cfg.Limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, ok, err := it.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch messages: %w", err)
		}
		if !ok {
			break
		}
		messages = append(messages, msg)
		if len(messages)%progressEvery == 0 {
			rt.sink.Emit(interfaces.StatusMessage(fmt.Sprintf(progressFormat, len(messages))))
			rt.sink.Emit(interfaces.ProgressValue(min(len(messages), rt.cfg.Limit)))
		}
	}
	return messages, nil
}

// setSenderFields writes the sender identity fields. A nil sender (e.g. a
// channel posting as itself) leaves the fields empty.
func setSenderFields(rec *Record, idKey string, sender *telegram.User) {
	if sender == nil {
		rec.Set(idKey, "")
		rec.Set("Username", "")
		rec.Set("First Name", "")
		rec.Set("Last Name", "")
		return
	}
	rec.SetInt(idKey, sender.ID)
	rec.Set("Username", sender.Username)
	rec.Set("First Name", sender.FirstName)
	rec.Set("Last Name", sender.LastName)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

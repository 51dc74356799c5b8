package collect

import (
	"context"
	"fmt"

	"github.com/ternarybob/colligo/internal/interfaces"
)

// commentsStrategy collects the replies to one post
type commentsStrategy struct{}

func (s *commentsStrategy) collect(ctx context.Context, rt *runtime) (string, []*Record, error) {
	channel, postID, err := ParsePostLink(rt.cfg.Link)
	if err != nil {
		return "", nil, err
	}

	if err := rt.throttle(ctx); err != nil {
		return "", nil, err
	}
	entity, err := rt.client.ResolveEntity(ctx, channel)
	if err != nil {
		return "", nil, fmt.Errorf("failed to find channel: %w", err)
	}
	rt.sink.Emit(interfaces.StatusMessage(fmt.Sprintf("Channel: %s | Post #%d", entity.DisplayTitle(), postID)))
	rt.sink.Emit(interfaces.StatusMessage("Fetching comments"))

	replies, err := fetchMessages(ctx, rt, entity, postID, "Fetched comments: %d")
	if err != nil {
		return "", nil, err
	}

	records := make([]*Record, 0, len(replies))
	for _, reply := range replies {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		if err := rt.throttle(ctx); err != nil {
			return "", nil, err
		}
		sender, err := rt.client.ResolveSender(ctx, reply)
		if err != nil {
			return "", nil, fmt.Errorf("failed to resolve sender of comment %d: %w", reply.ID, err)
		}

		rec := NewRecord()
		rec.SetInt("Comment ID", reply.ID)
		setSenderFields(rec, "Author ID", sender)
		rec.Set("Text", reply.Text)
		rec.Set("Date", reply.Date.Format(dateFormat))
		records = append(records, rec)
	}

	return fmt.Sprintf("Comments on post #%d", postID), records, nil
}

package collect

import (
	"context"
	"fmt"

	"github.com/ternarybob/colligo/internal/interfaces"
)

// fallbackEmoji stands in when a reacting user has no matching entry in
// the parallel reactions list. A data-shape edge case, not an error.
const fallbackEmoji = "🧩"

// reactionsStrategy lists the reactors of one post from a single raw
// reaction-listing call (offset 0, no reaction-type filter).
type reactionsStrategy struct{}

func (s *reactionsStrategy) collect(ctx context.Context, rt *runtime) (string, []*Record, error) {
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

	title := fmt.Sprintf("Reactions to post #%d", postID)
	if rt.cfg.Limit == 0 {
		return title, nil, nil
	}

	if err := rt.throttle(ctx); err != nil {
		return "", nil, err
	}
	list, err := rt.client.MessageReactions(ctx, entity, postID, rt.cfg.Limit)
	if err != nil {
		// Soft failure: reported informationally, job ends without records
		return "", nil, &softError{msg: fmt.Sprintf("unable to fetch reactions: %v", err)}
	}

	records := make([]*Record, 0, len(list.Users))
	for _, user := range list.Users {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		if len(records) >= rt.cfg.Limit {
			break
		}

		emoji := fallbackEmoji
		for _, reaction := range list.Reactions {
			if reaction.UserID == user.ID {
				emoji = reaction.Emoticon
				break
			}
		}

		rec := NewRecord()
		rec.Set("Emoji", emoji)
		rec.SetInt("User ID", user.ID)
		rec.Set("Username", user.Username)
		rec.Set("First Name", user.FirstName)
		rec.Set("Last Name", user.LastName)
		records = append(records, rec)
	}

	return title, records, nil
}

package collect

import (
	"context"
	"fmt"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/telegram"
)

const dateFormat = "2006-01-02 15:04:05"

// membersStrategy collects group participants: buffer up to limit, then a
// transform pass cross-referencing a precomputed admin-identifier set.
type membersStrategy struct{}

func (s *membersStrategy) collect(ctx context.Context, rt *runtime) (string, []*Record, error) {
	handle := NormalizeHandle(rt.cfg.Link)
	rt.sink.Emit(interfaces.StatusMessage(fmt.Sprintf("Looking up group @%s", handle)))

	if err := rt.throttle(ctx); err != nil {
		return "", nil, err
	}
	entity, err := rt.client.ResolveEntity(ctx, handle)
	if err != nil {
		return "", nil, fmt.Errorf("failed to find group: %w", err)
	}
	rt.sink.Emit(interfaces.StatusMessage(fmt.Sprintf("Group: %s", entity.DisplayTitle())))

	// Total size is informational only; a failed count never fails the job
	if err := rt.throttle(ctx); err != nil {
		return "", nil, err
	}
	if count, err := rt.client.ParticipantCount(ctx, entity); err != nil {
		rt.logger.Warn().Err(err).Msg("Failed to fetch participant count")
	} else {
		rt.sink.Emit(interfaces.StatusMessage(fmt.Sprintf("Participants: %d", count)))
	}

	adminIDs := s.fetchAdminIDs(ctx, rt, entity)

	members, err := s.fetchMembers(ctx, rt, entity)
	if err != nil {
		return "", nil, err
	}

	records := make([]*Record, 0, len(members))
	for idx, user := range members {
		if err := ctx.Err(); err != nil {
			// Partial results are discarded on cancellation
			return "", nil, err
		}
		records = append(records, memberRecord(user, adminIDs))
		if (idx+1)%progressEvery == 0 {
			rt.sink.Emit(interfaces.StatusMessage(fmt.Sprintf("Processed: %d/%d", idx+1, len(members))))
			rt.sink.Emit(interfaces.ProgressValue(idx + 1))
		}
	}

	return entity.DisplayTitle(), records, nil
}

// fetchAdminIDs collects the admin identifier set via a filtered
// participant iteration. Failure here is non-fatal: admin flags simply
// fall back to an empty set.
func (s *membersStrategy) fetchAdminIDs(ctx context.Context, rt *runtime, entity *telegram.Entity) map[int64]struct{} {
	adminIDs := make(map[int64]struct{})
	it := rt.client.IterParticipants(entity, telegram.FilterAdmins, 0)
	for {
		admin, ok, err := it.Next(ctx)
		if err != nil {
			rt.logger.Warn().Err(err).Msg("Failed to list admins, continuing with empty set")
			return adminIDs
		}
		if !ok {
			return adminIDs
		}
		adminIDs[admin.ID] = struct{}{}
	}
}

func (s *membersStrategy) fetchMembers(ctx context.Context, rt *runtime, entity *telegram.Entity) ([]*telegram.User, error) {
	var members []*telegram.User
	it := rt.client.IterParticipants(entity, telegram.FilterNone, rt.cfg.Limit)
	for len(members) < rt.cfg.Limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		user, ok, err := it.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch participants: %w", err)
		}
		if !ok {
			break
		}
		members = append(members, user)
		if len(members)%progressEvery == 0 {
			rt.sink.Emit(interfaces.StatusMessage(fmt.Sprintf("Fetched members: %d", len(members))))
			rt.sink.Emit(interfaces.ProgressValue(min(len(members), rt.cfg.Limit)))
		}
	}
	return members, nil
}

// memberRecord transforms one participant into a result row
func memberRecord(user *telegram.User, adminIDs map[int64]struct{}) *Record {
	// Last-seen timestamp is only available for the offline variant
	lastOnline := telegram.LabelHidden
	if user.Status != nil && user.Status.Kind == telegram.StatusOffline && !user.Status.WasOnline.IsZero() {
		lastOnline = user.Status.WasOnline.Format(dateFormat)
	}

	_, isAdmin := adminIDs[user.ID]

	rec := NewRecord()
	rec.SetInt("ID", user.ID)
	rec.Set("Username", user.Username)
	rec.Set("First Name", user.FirstName)
	rec.Set("Last Name", user.LastName)
	rec.Set("Phone", user.Phone)
	rec.Set("Status", telegram.StatusText(user.Status))
	rec.Set("Last Online", lastOnline)
	rec.Set("Is Bot", telegram.YesNo(user.Bot))
	rec.Set("Is Verified", telegram.YesNo(user.Verified))
	rec.Set("Is Scam", telegram.YesNo(user.Scam))
	rec.Set("Is Premium", telegram.YesNo(user.Premium))
	rec.Set("Is Admin", telegram.YesNo(isAdmin))
	return rec
}

package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/query"
	"github.com/kritdbb/DobyHR/internal/store"
)

// Preview evaluates q against every user without granting anything.
//
// An invalid query is not an error: the result carries the validation
// failure and no users. Users whose fields fail to resolve are left out of
// the matches and logged.
func (r *Runner) Preview(ctx context.Context, q string) (ir.PreviewResult, error) {
	result := ir.PreviewResult{
		Query:      q,
		Validation: query.Validate(ctx, q, r.registry),
		Users:      []ir.PreviewMatch{},
	}
	if !result.Validation.Valid {
		return result, nil
	}

	parsed, err := query.Parse(ctx, q, r.registry)
	if err != nil {
		return result, err
	}
	users, err := r.store.ListUsers(ctx)
	if err != nil {
		return result, fmt.Errorf("list users: %w", err)
	}
	result.TotalUsers = len(users)

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		values, err := query.ResolveFields(ctx, u.ID, q, r.registry)
		if err != nil {
			r.logger.Warn("preview: field resolution failed", "user_id", u.ID, "query", q, "error", err)
			continue
		}
		if !query.Fold(parsed, values) {
			continue
		}
		result.Users = append(result.Users, ir.PreviewMatch{
			UserID:      u.ID,
			UserName:    u.DisplayName(),
			UserImage:   u.Image,
			FieldValues: values,
		})
	}
	result.MatchingUsers = len(result.Users)
	return result, nil
}

// Progress reports, for every active quest, whether the user already holds
// its award and the user's current value of each field in its condition.
func (r *Runner) Progress(ctx context.Context, userID int64) ([]ir.QuestProgress, error) {
	if _, err := r.store.UserByID(ctx, userID); err != nil {
		return nil, err
	}
	quests, err := r.store.ListActiveQuests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active quests: %w", err)
	}

	progress := make([]ir.QuestProgress, 0, len(quests))
	for _, quest := range quests {
		p := ir.QuestProgress{
			QuestID:     quest.ID,
			Description: quest.Description,
			RewardType:  quest.RewardType,
			RewardValue: quest.RewardValue,
			FieldValues: map[string]int64{},
		}
		if quest.RewardType == ir.RewardBadge && quest.BadgeID != nil {
			badge, err := r.store.BadgeByID(ctx, *quest.BadgeID)
			switch {
			case err == nil:
				p.BadgeName = badge.Name
			case !errors.Is(err, store.ErrNotFound):
				return nil, err
			}
		}

		held, err := r.store.HasAward(ctx, quest, userID)
		if err != nil {
			return nil, err
		}
		p.Completed = held

		if text, ok := quest.EffectiveQuery(); ok {
			p.Query = text
			values, err := query.ResolveFields(ctx, userID, text, r.registry)
			if err != nil {
				p.Error = err.Error()
			} else {
				p.FieldValues = values
			}
		}
		progress = append(progress, p)
	}
	return progress, nil
}

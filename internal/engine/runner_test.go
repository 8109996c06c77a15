package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kritdbb/DobyHR/internal/fields"
	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/query"
	"github.com/kritdbb/DobyHR/internal/reward"
	"github.com/kritdbb/DobyHR/internal/store"
	"github.com/kritdbb/DobyHR/internal/testutil"
)

var runTime = time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)

type fixture struct {
	store    *store.Store
	registry *fields.Registry
	clock    *testutil.FixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := testutil.NewFixedClock(runTime)
	return &fixture{
		store:    s,
		registry: fields.NewRegistry(s, fields.WithClock(clock)),
		clock:    clock,
	}
}

func (f *fixture) runner(opts ...RunnerOption) *Runner {
	opts = append([]RunnerOption{
		WithRunIDGenerator(testutil.NewSequentialRunIDs("")),
		WithClock(f.clock),
	}, opts...)
	return NewRunner(f.store, f.registry, reward.NewApplier(reward.WithClock(f.clock)), opts...)
}

func (f *fixture) user(t *testing.T, id int64, name string, coins int64) {
	t.Helper()
	_, err := f.store.CreateUser(context.Background(), ir.User{ID: id, Name: name, Coins: coins})
	require.NoError(t, err)
}

// steps records n total steps for a user on a single day.
func (f *fixture) steps(t *testing.T, userID, n int64) {
	t.Helper()
	require.NoError(t, f.store.RecordSteps(context.Background(), userID, runTime, n))
}

func (f *fixture) quest(t *testing.T, q ir.Quest) int64 {
	t.Helper()
	q.Active = true
	id, err := f.store.SaveQuest(context.Background(), q)
	require.NoError(t, err)
	return id
}

func int64Ptr(v int64) *int64 { return &v }

func TestRun_GoldRewardEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1, "Anan", 5)
	f.user(t, 2, "Boon", 5)
	f.steps(t, 1, 12000)
	f.steps(t, 2, 800)
	qid := f.quest(t, ir.Quest{
		ConditionQuery: "total_steps >= 10000",
		RewardType:     ir.RewardGold,
		RewardValue:    10,
	})

	summary, err := f.runner().Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, "test-run-1", summary.RunID)
	assert.Equal(t, 1, summary.Awarded)
	assert.Equal(t, []ir.GrantDetail{{
		QuestID: qid, UserID: 1, UserName: "Anan", Reward: "+10 Gold", Query: "total_steps >= 10000",
	}}, summary.Details)
	assert.Empty(t, summary.Failures)
	assert.Empty(t, summary.QuestsDisabled)

	u, err := f.store.UserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(15), u.Coins)

	entries, err := f.store.LedgerEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ir.MarkerReason(qid), entries[0].Reason)
	assert.Equal(t, int64(10), entries[0].Amount)

	records, err := f.store.AwardRecords(ctx, qid)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "test-run-1", records[0].RunID)
	assert.Equal(t, ir.AwardSourceRunner, records[0].Source)
	assert.NotEmpty(t, records[0].QueryHash)
}

func TestRun_SecondRunGrantsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		f.user(t, id, "user", 0)
		f.steps(t, id, 20000)
	}
	f.quest(t, ir.Quest{ConditionQuery: "total_steps >= 10000", RewardType: ir.RewardMana, RewardValue: 2})

	r := f.runner()
	first, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Awarded)

	second, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test-run-2", second.RunID)
	assert.Equal(t, 0, second.Awarded)
	assert.Empty(t, second.Details)

	u, err := f.store.UserByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.Mana)
}

func TestRun_CapDeactivatesQuest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for id := int64(1); id <= 5; id++ {
		f.user(t, id, "user", 0)
		f.steps(t, id, 15000)
	}
	qid := f.quest(t, ir.Quest{
		ConditionQuery: "total_steps >= 10000",
		RewardType:     ir.RewardGold,
		RewardValue:    1,
		MaxAwards:      int64Ptr(2),
	})

	summary, err := f.runner().Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Awarded)
	assert.Equal(t, int64(1), summary.Details[0].UserID)
	assert.Equal(t, int64(2), summary.Details[1].UserID)
	assert.Equal(t, []int64{qid}, summary.QuestsDisabled)

	q, err := f.store.QuestByID(ctx, qid)
	require.NoError(t, err)
	assert.False(t, q.Active)

	n, err := f.store.CountAwards(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRun_ZeroCapGrantsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1, "user", 0)
	f.steps(t, 1, 15000)
	qid := f.quest(t, ir.Quest{
		ConditionQuery: "total_steps >= 10000",
		RewardType:     ir.RewardGold,
		RewardValue:    1,
		MaxAwards:      int64Ptr(0),
	})

	summary, err := f.runner().Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Awarded)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, []int64{qid}, summary.QuestsDisabled)

	q, err := f.store.QuestByID(ctx, qid)
	require.NoError(t, err)
	assert.False(t, q.Active)
}

func TestRun_ParallelNeverOvershootsCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for id := int64(1); id <= 12; id++ {
		f.user(t, id, "user", 0)
		f.steps(t, id, 15000)
	}
	qid := f.quest(t, ir.Quest{
		ConditionQuery: "total_steps >= 10000",
		RewardType:     ir.RewardGold,
		RewardValue:    1,
		MaxAwards:      int64Ptr(3),
	})

	summary, err := f.runner(WithParallelism(4)).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Awarded)
	assert.Equal(t, []int64{qid}, summary.QuestsDisabled)

	q, err := f.store.QuestByID(ctx, qid)
	require.NoError(t, err)
	n, err := f.store.CountAwards(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRun_OverlappingRunsGrantOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for id := int64(1); id <= 4; id++ {
		f.user(t, id, "user", 0)
		f.steps(t, id, 15000)
	}
	f.quest(t, ir.Quest{ConditionQuery: "total_steps >= 1", RewardType: ir.RewardGold, RewardValue: 5})

	a, b := f.runner(), f.runner()
	done := make(chan ir.RunSummary, 2)
	for _, r := range []*Runner{a, b} {
		go func() {
			s, err := r.Run(ctx)
			assert.NoError(t, err)
			done <- s
		}()
	}
	total := (<-done).Awarded + (<-done).Awarded
	assert.Equal(t, 4, total)

	for id := int64(1); id <= 4; id++ {
		u, err := f.store.UserByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(5), u.Coins, "user %d", id)
	}
}

func TestRun_LegacyConditionMatchesQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for id, n := range map[int64]int64{1: 9999, 2: 10000, 3: 25000, 4: 0} {
		f.user(t, id, "user", 0)
		if n > 0 {
			f.steps(t, id, n)
		}
	}
	legacy := f.quest(t, ir.Quest{
		ConditionType: "total_steps",
		Threshold:     int64Ptr(10000),
		RewardType:    ir.RewardStr,
		RewardValue:   1,
	})
	modern := f.quest(t, ir.Quest{
		ConditionQuery: "total_steps >= 10000",
		RewardType:     ir.RewardDef,
		RewardValue:    1,
	})

	summary, err := f.runner().Run(ctx)
	require.NoError(t, err)

	byQuest := map[int64][]int64{}
	for _, d := range summary.Details {
		byQuest[d.QuestID] = append(byQuest[d.QuestID], d.UserID)
	}
	assert.Equal(t, []int64{2, 3}, byQuest[legacy])
	assert.Equal(t, byQuest[legacy], byQuest[modern])
	assert.Equal(t, "total_steps >= 10000", summary.Details[0].Query)
}

func TestRun_LegacyMarkerBlocksRegrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1, "Anan", 0)
	f.steps(t, 1, 50000)
	qid := f.quest(t, ir.Quest{ConditionQuery: "total_steps >= 1", RewardType: ir.RewardGold, RewardValue: 7})

	_, err := f.store.AppendLedger(ctx, ir.LedgerEntry{
		UserID: 1, Amount: 7, Reason: ir.MarkerReason(qid), CreatedBy: ir.AwardedBy,
	})
	require.NoError(t, err)

	summary, err := f.runner().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Awarded)
}

func TestRun_SkipsInactiveAndConditionlessQuests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1, "Anan", 0)
	f.steps(t, 1, 50000)

	inactive := f.quest(t, ir.Quest{ConditionQuery: "total_steps >= 1", RewardType: ir.RewardGold, RewardValue: 1})
	require.NoError(t, f.store.SetQuestActive(ctx, inactive, false))
	f.quest(t, ir.Quest{RewardType: ir.RewardGold, RewardValue: 1})

	summary, err := f.runner().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Awarded)
	assert.Empty(t, summary.Failures)
}

func TestRun_BadgeQuest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1, "Anan", 0)
	f.steps(t, 1, 50000)
	badgeID, err := f.store.CreateBadge(ctx, ir.Badge{Name: "Walker"})
	require.NoError(t, err)
	f.quest(t, ir.Quest{ConditionQuery: "total_steps >= 1", RewardType: ir.RewardBadge, BadgeID: &badgeID})

	summary, err := f.runner().Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Details, 1)
	assert.Equal(t, "Badge: Walker", summary.Details[0].Reward)

	n, err := f.store.QueryInt(ctx, `SELECT COUNT(*) FROM user_badges WHERE user_id = 1 AND awarded_by = ?`, ir.AwardedBy)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRun_BadgeMissingIsReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1, "Anan", 0)
	f.steps(t, 1, 50000)
	qid := f.quest(t, ir.Quest{ConditionQuery: "total_steps >= 1", RewardType: ir.RewardBadge, BadgeID: int64Ptr(99)})
	other := f.quest(t, ir.Quest{ConditionQuery: "total_steps >= 1", RewardType: ir.RewardGold, RewardValue: 1})

	summary, err := f.runner().Run(ctx)
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, qid, summary.Failures[0].QuestID)
	assert.Equal(t, string(ErrCodeBadgeMissing), summary.Failures[0].Code)
	require.Len(t, summary.Details, 1)
	assert.Equal(t, other, summary.Details[0].QuestID)
}

func TestRun_CouponItemMissingIsRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1, "Anan", 0)
	f.steps(t, 1, 50000)
	qid := f.quest(t, ir.Quest{ConditionQuery: "total_steps >= 1", RewardType: ir.RewardCoupon, RewardValue: 42})

	r := f.runner()
	summary, err := r.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Details, 1)
	assert.Equal(t, "Coupon (item 42 not found)", summary.Details[0].Reward)

	q, err := f.store.QuestByID(ctx, qid)
	require.NoError(t, err)
	held, err := f.store.HasAward(ctx, q, 1)
	require.NoError(t, err)
	assert.False(t, held, "non-durable outcome must roll back")

	_, err = f.store.CreateReward(ctx, ir.RewardItem{ID: 42, Name: "Movie ticket", Active: true})
	require.NoError(t, err)

	summary, err = r.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Details, 1)
	assert.Equal(t, "Coupon: Movie ticket", summary.Details[0].Reward)
}

// failingRegistry resolves one field with an error.
type failingRegistry struct {
	query.Registry
	field string
}

func (r failingRegistry) Lookup(ctx context.Context, name string) (fields.Resolver, error) {
	if name == r.field {
		return func(context.Context, int64) (int64, error) {
			return 0, errors.New("steps service unavailable")
		}, nil
	}
	return r.Registry.Lookup(ctx, name)
}

func TestRun_EvaluationFailureIsFailClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1, "Anan", 0)
	f.user(t, 2, "Boon", 0)
	qid := f.quest(t, ir.Quest{ConditionQuery: "total_steps >= 1 OR coins >= 0", RewardType: ir.RewardGold, RewardValue: 1})

	reg := failingRegistry{Registry: f.registry, field: "total_steps"}
	r := NewRunner(f.store, reg, reward.NewApplier(),
		WithRunIDGenerator(testutil.NewSequentialRunIDs("")), WithClock(f.clock))

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Awarded)
	require.Len(t, summary.Failures, 2)
	for i, fail := range summary.Failures {
		assert.Equal(t, qid, fail.QuestID)
		assert.Equal(t, int64(i+1), fail.UserID)
		assert.Equal(t, string(ErrCodeEvaluationFailed), fail.Code)
		assert.Contains(t, fail.Message, "steps service unavailable")
	}
}

type brokenApplier struct{}

func (brokenApplier) Apply(context.Context, reward.Ledger, ir.Quest, ir.User) (ir.Outcome, error) {
	return ir.Outcome{}, errors.New("ledger offline")
}

func TestRun_GrantFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1, "Anan", 0)
	f.steps(t, 1, 50000)
	qid := f.quest(t, ir.Quest{ConditionQuery: "total_steps >= 1", RewardType: ir.RewardGold, RewardValue: 1})

	r := NewRunner(f.store, f.registry, brokenApplier{},
		WithRunIDGenerator(testutil.NewSequentialRunIDs("")), WithClock(f.clock))
	summary, err := r.Run(ctx)
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, string(ErrCodeGrantFailed), summary.Failures[0].Code)
	records, err := f.store.AwardRecords(ctx, qid)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRun_InvalidStoredQueryIsReportedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1, "Anan", 0)
	f.user(t, 2, "Boon", 0)
	qid := f.quest(t, ir.Quest{ConditionQuery: "total_stepz >= 1", RewardType: ir.RewardGold, RewardValue: 1})

	summary, err := f.runner().Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, qid, summary.Failures[0].QuestID)
	assert.Zero(t, summary.Failures[0].UserID)
	assert.Contains(t, summary.Failures[0].Message, "total_stepz")
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t)
	f.user(t, 1, "Anan", 0)
	f.quest(t, ir.Quest{ConditionQuery: "coins >= 0", RewardType: ir.RewardGold, RewardValue: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := f.runner().Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "test-run-1", summary.RunID)
}

func TestPreview_DoesNotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1, "Anan", 5)
	f.user(t, 2, "Boon", 5)
	f.steps(t, 1, 12000)
	f.quest(t, ir.Quest{ConditionQuery: "total_steps >= 10000", RewardType: ir.RewardGold, RewardValue: 10})

	result, err := f.runner().Preview(ctx, "total_steps >= 10000 AND coins >= 5")
	require.NoError(t, err)

	assert.True(t, result.Validation.Valid)
	assert.Equal(t, 2, result.TotalUsers)
	assert.Equal(t, 1, result.MatchingUsers)
	require.Len(t, result.Users, 1)
	assert.Equal(t, ir.PreviewMatch{
		UserID:      1,
		UserName:    "Anan",
		FieldValues: map[string]int64{"total_steps": 12000, "coins": 5},
	}, result.Users[0])

	u, err := f.store.UserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), u.Coins)
	entries, err := f.store.LedgerEntries(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPreview_InvalidQuery(t *testing.T) {
	f := newFixture(t)
	f.user(t, 1, "Anan", 0)

	result, err := f.runner().Preview(context.Background(), "steps >= ")
	require.NoError(t, err)
	assert.False(t, result.Validation.Valid)
	assert.NotEmpty(t, result.Validation.Error)
	assert.Empty(t, result.Users)
	assert.Zero(t, result.TotalUsers)
}

func TestProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1, "Anan", 3)
	f.steps(t, 1, 12000)
	badgeID, err := f.store.CreateBadge(ctx, ir.Badge{Name: "Walker"})
	require.NoError(t, err)
	walk := f.quest(t, ir.Quest{
		ConditionQuery: "total_steps >= 10000", RewardType: ir.RewardBadge, BadgeID: &badgeID,
		Description: "Walk far",
	})
	rich := f.quest(t, ir.Quest{ConditionQuery: "coins >= 100", RewardType: ir.RewardGold, RewardValue: 10})

	r := f.runner()
	_, err = r.Run(ctx)
	require.NoError(t, err)

	progress, err := r.Progress(ctx, 1)
	require.NoError(t, err)
	require.Len(t, progress, 2)

	assert.Equal(t, walk, progress[0].QuestID)
	assert.Equal(t, "Walker", progress[0].BadgeName)
	assert.Equal(t, "Walk far", progress[0].Description)
	assert.True(t, progress[0].Completed)
	assert.Equal(t, map[string]int64{"total_steps": 12000}, progress[0].FieldValues)

	assert.Equal(t, rich, progress[1].QuestID)
	assert.False(t, progress[1].Completed)
	assert.Equal(t, map[string]int64{"coins": 3}, progress[1].FieldValues)
	assert.Equal(t, int64(10), progress[1].RewardValue)
}

func TestProgress_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner().Progress(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

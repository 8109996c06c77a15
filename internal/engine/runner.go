package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/query"
	"github.com/kritdbb/DobyHR/internal/reward"
	"github.com/kritdbb/DobyHR/internal/store"
)

// Applier applies a quest's reward inside a grant transaction.
// Implemented by *reward.Applier.
type Applier interface {
	Apply(ctx context.Context, l reward.Ledger, quest ir.Quest, user ir.User) (ir.Outcome, error)
}

// DefaultParallelism evaluates users of a quest one at a time.
const DefaultParallelism = 1

// errAlreadyAwarded aborts a grant whose award record already exists.
var errAlreadyAwarded = errors.New("award already recorded")

// errNotDurable aborts a grant whose outcome must not be committed.
var errNotDurable = errors.New("reward outcome not durable")

// Runner evaluates every active quest against every user.
//
// Thread-safety: Run, Preview and Progress may be called concurrently. Two
// overlapping runs cannot grant the same pair twice; the award record's
// unique index decides.
type Runner struct {
	store       *store.Store
	registry    query.Registry
	applier     Applier
	runIDs      RunIDGenerator
	clock       ir.Clock
	logger      *slog.Logger
	parallelism int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithParallelism sets how many users of one quest are evaluated at once.
// Values below 1 are treated as 1.
func WithParallelism(n int) RunnerOption {
	return func(r *Runner) {
		if n < 1 {
			n = 1
		}
		r.parallelism = n
	}
}

// WithRunIDGenerator sets the run id source.
func WithRunIDGenerator(g RunIDGenerator) RunnerOption {
	return func(r *Runner) {
		r.runIDs = g
	}
}

// WithClock sets the clock used for summary and award timestamps.
func WithClock(c ir.Clock) RunnerOption {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a Runner.
func NewRunner(s *store.Store, reg query.Registry, applier Applier, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:       s,
		registry:    reg,
		applier:     applier,
		runIDs:      UUIDv7Generator{},
		clock:       ir.SystemClock{},
		logger:      slog.Default(),
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// collector gathers summary entries from concurrent pair evaluations.
type collector struct {
	mu       sync.Mutex
	details  []ir.GrantDetail
	failures []ir.RunFailure
	disabled []int64
}

func (c *collector) grant(d ir.GrantDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.details = append(c.details, d)
}

func (c *collector) fail(e *RuntimeError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, e.failure())
}

func (c *collector) disable(questID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = append(c.disabled, questID)
}

// Run performs one full evaluation pass.
//
// Only context cancellation and failure to list quests or users are
// returned as errors. Everything else is recorded in the summary, which is
// returned even when err is non-nil.
func (r *Runner) Run(ctx context.Context) (ir.RunSummary, error) {
	runID := r.runIDs.Generate()
	summary := ir.RunSummary{
		RunID:     runID,
		StartedAt: r.clock.Now(),
	}
	log := r.logger.With("run_id", runID)
	log.Info("quest run starting")

	c := &collector{}
	err := r.run(ctx, log, runID, c)

	sort.SliceStable(c.details, func(i, j int) bool {
		a, b := c.details[i], c.details[j]
		if a.QuestID != b.QuestID {
			return a.QuestID < b.QuestID
		}
		return a.UserID < b.UserID
	})
	sort.SliceStable(c.failures, func(i, j int) bool {
		a, b := c.failures[i], c.failures[j]
		if a.QuestID != b.QuestID {
			return a.QuestID < b.QuestID
		}
		return a.UserID < b.UserID
	})
	sort.Slice(c.disabled, func(i, j int) bool { return c.disabled[i] < c.disabled[j] })

	summary.Details = append([]ir.GrantDetail{}, c.details...)
	summary.Failures = append([]ir.RunFailure{}, c.failures...)
	summary.QuestsDisabled = append([]int64{}, c.disabled...)
	summary.Awarded = len(summary.Details)
	summary.FinishedAt = r.clock.Now()

	if err != nil {
		log.Warn("quest run aborted", "error", err, "awarded", summary.Awarded)
		return summary, err
	}
	log.Info("quest run finished",
		"awarded", summary.Awarded,
		"failures", len(summary.Failures),
		"quests_disabled", len(summary.QuestsDisabled),
	)
	return summary, nil
}

func (r *Runner) run(ctx context.Context, log *slog.Logger, runID string, c *collector) error {
	quests, err := r.store.ListQuests(ctx)
	if err != nil {
		return fmt.Errorf("list quests: %w", err)
	}
	users, err := r.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	for _, quest := range quests {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !quest.Active {
			continue
		}
		if err := r.runQuest(ctx, log.With("quest_id", quest.ID), runID, quest, users, c); err != nil {
			return err
		}
	}
	return nil
}

// runQuest evaluates one quest against all users. It returns only context
// errors.
func (r *Runner) runQuest(ctx context.Context, log *slog.Logger, runID string, quest ir.Quest, users []ir.User, c *collector) error {
	if quest.RewardType == ir.RewardBadge {
		if quest.BadgeID == nil {
			log.Warn("badge quest has no badge, skipping")
			c.fail(NewBadgeMissingError(quest.ID, 0))
			return nil
		}
		if _, err := r.store.BadgeByID(ctx, *quest.BadgeID); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				c.fail(NewEvaluationError(quest.ID, 0, err))
				return nil
			}
			log.Warn("badge not found, skipping quest", "badge_id", *quest.BadgeID)
			c.fail(NewBadgeMissingError(quest.ID, *quest.BadgeID))
			return nil
		}
	}

	text, ok := quest.EffectiveQuery()
	if !ok {
		log.Debug("quest has no condition, skipping")
		return nil
	}
	parsed, err := query.Parse(ctx, text, r.registry)
	if err != nil {
		log.Warn("quest condition does not parse", "query", text, "error", err)
		c.fail(NewEvaluationError(quest.ID, 0, err))
		return nil
	}

	p := &questPass{
		runner: r,
		log:    log,
		runID:  runID,
		quest:  quest,
		query:  parsed,
		text:   text,
		hash:   ir.QueryHash(parsed),
		out:    c,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, user := range users {
		if p.capped.Load() {
			break
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if p.capped.Load() {
				return nil
			}
			return p.evaluate(gctx, user)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// questPass is the state shared by the pair evaluations of one quest.
type questPass struct {
	runner *Runner
	log    *slog.Logger
	runID  string
	quest  ir.Quest
	query  ir.Query
	text   string
	hash   string
	out    *collector
	capped atomic.Bool
}

// evaluate handles one (quest, user) pair. Only context errors are returned.
func (p *questPass) evaluate(ctx context.Context, user ir.User) error {
	r := p.runner
	log := p.log.With("user_id", user.ID)

	held, err := r.store.HasAward(ctx, p.quest, user.ID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("award lookup failed", "error", err)
		p.out.fail(NewEvaluationError(p.quest.ID, user.ID, err))
		return nil
	}
	if held {
		return nil
	}

	ok, err := query.EvaluateParsed(ctx, user.ID, p.query, r.registry)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("condition evaluation failed", "query", p.text, "error", err)
		p.out.fail(NewEvaluationError(p.quest.ID, user.ID, err))
		return nil
	}
	if !ok {
		return nil
	}

	return p.grant(ctx, log, user)
}

// grant runs the grant transaction for a satisfied pair.
func (p *questPass) grant(ctx context.Context, log *slog.Logger, user ir.User) error {
	r := p.runner
	quest := p.quest

	var outcome ir.Outcome
	err := r.store.WithTx(ctx, func(tx *store.Tx) error {
		if limit := quest.MaxAwards; limit != nil {
			n, err := tx.CountAwards(ctx, quest)
			if err != nil {
				return NewGrantError(quest.ID, user.ID, err)
			}
			if n >= *limit {
				return NewCapReachedError(quest.ID, n, *limit)
			}
		}

		inserted, err := tx.InsertAward(ctx, ir.AwardRecord{
			QuestID:    quest.ID,
			UserID:     user.ID,
			RewardType: quest.RewardType,
			QueryHash:  p.hash,
			RunID:      p.runID,
			Source:     ir.AwardSourceRunner,
			AwardedAt:  r.clock.Now(),
		})
		if err != nil {
			return NewGrantError(quest.ID, user.ID, err)
		}
		if !inserted {
			return errAlreadyAwarded
		}

		outcome, err = r.applier.Apply(ctx, tx, quest, user)
		if err != nil {
			return NewGrantError(quest.ID, user.ID, err)
		}
		if !outcome.Durable {
			return errNotDurable
		}
		return nil
	})

	switch {
	case err == nil:
		log.Info("quest reward granted", "reward", outcome.Label)
	case errors.Is(err, errAlreadyAwarded):
		log.Debug("award recorded by another run, skipping")
		return nil
	case errors.Is(err, errNotDurable):
		log.Warn("reward not applied, will retry next run", "reward", outcome.Label)
	case IsCapReached(err):
		if p.capped.CompareAndSwap(false, true) {
			log.Info("quest reached max awards, deactivating", "max_awards", *quest.MaxAwards)
			if serr := r.store.SetQuestActive(ctx, quest.ID, false); serr != nil {
				log.Error("deactivate quest failed", "error", serr)
			}
			p.out.disable(quest.ID)
		}
		return nil
	default:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var re *RuntimeError
		if !errors.As(err, &re) {
			re = NewGrantError(quest.ID, user.ID, err)
		}
		log.Error("grant failed", "error", err)
		p.out.fail(re)
		return nil
	}

	p.out.grant(ir.GrantDetail{
		QuestID:  quest.ID,
		UserID:   user.ID,
		UserName: user.DisplayName(),
		Reward:   outcome.Label,
		Query:    p.text,
	})
	return nil
}

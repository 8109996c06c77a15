package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kritdbb/DobyHR/internal/compiler"
	"github.com/kritdbb/DobyHR/internal/engine"
	"github.com/kritdbb/DobyHR/internal/fields"
	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/reward"
	"github.com/kritdbb/DobyHR/internal/store"
	"github.com/kritdbb/DobyHR/internal/testutil"
)

// Harness holds the wiring of one scenario execution.
type Harness struct {
	store    *store.Store
	registry *fields.Registry
	runner   *engine.Runner
	clock    *testutil.FixedClock
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// A setup failure (bad seed row, quest that does not compile) is returned
// as an error; failed assertions are reported in the result.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Seed users, catalog and source data
// 3. Compile and save quests
// 4. Run the runner the requested number of times
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	// Suppress logs in scenarios
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewFixedClock(scenario.now())
	registry := fields.NewRegistry(st, fields.WithClock(clock), fields.WithLogger(logger))

	h := &Harness{
		store:    st,
		registry: registry,
		clock:    clock,
		runner: engine.NewRunner(st, registry,
			reward.NewApplier(reward.WithClock(clock)),
			engine.WithClock(clock),
			engine.WithRunIDGenerator(testutil.NewSequentialRunIDs("run")),
			engine.WithParallelism(scenario.Parallelism),
			engine.WithLogger(logger),
		),
	}

	if err := h.seed(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to seed scenario: %w", err)
	}
	if err := h.importQuests(ctx, scenario.Quests); err != nil {
		return nil, err
	}

	result := NewResult()
	for i := 0; i < scenario.runCount(); i++ {
		summary, err := h.runner.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		result.Runs = append(result.Runs, summary)
	}

	actx := &AssertionContext{
		Store:    st,
		Registry: registry,
		Ctx:      ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness) seed(ctx context.Context, s *Scenario) error {
	for _, u := range s.Users {
		user := ir.User{ID: u.ID, Name: u.Name, Surname: u.Surname, Coins: u.Coins, Mana: u.Mana}
		if u.StartDate != "" {
			d, _ := time.Parse(time.DateOnly, u.StartDate) // checked by validateScenario
			user.StartDate = &d
		}
		if _, err := h.store.CreateUser(ctx, user); err != nil {
			return err
		}
	}
	for _, b := range s.Badges {
		if _, err := h.store.CreateBadge(ctx, ir.Badge{ID: b.ID, Name: b.Name}); err != nil {
			return err
		}
	}
	for _, r := range s.Rewards {
		if _, err := h.store.CreateReward(ctx, ir.RewardItem{ID: r.ID, Name: r.Name, PointCost: r.Cost, Active: r.Active}); err != nil {
			return err
		}
	}

	d := s.Data
	for _, st := range d.Steps {
		day, _ := time.Parse(time.DateOnly, st.Date)
		if err := h.store.RecordSteps(ctx, st.User, day, st.Steps); err != nil {
			return err
		}
	}
	for _, a := range d.Attendance {
		if err := h.store.RecordAttendance(ctx, a.User, a.At, a.Status); err != nil {
			return err
		}
	}
	for _, l := range d.Leave {
		if err := h.store.RecordLeave(ctx, l.User, l.Type, l.Status); err != nil {
			return err
		}
	}
	for _, b := range d.Battles {
		if err := h.store.RecordBattle(ctx, b.A, b.B, b.Winner); err != nil {
			return err
		}
	}
	for _, p := range d.ThankYou {
		if err := h.store.RecordThankYou(ctx, p.From, p.To); err != nil {
			return err
		}
	}
	for _, p := range d.Praise {
		if err := h.store.RecordPraise(ctx, p.From, p.To); err != nil {
			return err
		}
	}
	for _, l := range d.Ledger {
		_, err := h.store.AppendLedger(ctx, ir.LedgerEntry{
			UserID: l.User, Amount: l.Amount, Reason: l.Reason, CreatedBy: l.CreatedBy,
			CreatedAt: h.clock.Now(),
		})
		if err != nil {
			return err
		}
	}
	for _, o := range d.Owned {
		if _, err := h.store.GrantBadge(ctx, o.User, o.Badge, "admin"); err != nil {
			return err
		}
	}
	return nil
}

// importQuests compiles and saves quests the way `questd quests import` does,
// except that badge ids are not checked so scenarios can reach BADGE_MISSING.
func (h *Harness) importQuests(ctx context.Context, defs []compiler.QuestDef) error {
	quests, errs := compiler.Compile(ctx, defs, h.registry)
	if len(errs) > 0 {
		return fmt.Errorf("quests do not compile: %w", errs[0])
	}
	for _, q := range quests {
		q.CreatedAt = h.clock.Now()
		if _, err := h.store.SaveQuest(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

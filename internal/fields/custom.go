package fields

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/metricir"
	"github.com/kritdbb/DobyHR/internal/metricsql"
	"github.com/kritdbb/DobyHR/internal/store"
)

// localDate truncates t to midnight of its calendar day in loc, expressed in
// UTC so that day arithmetic ignores the zone.
func localDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// checkinStreak counts consecutive local days with a present check-in,
// ending today. A day without one ends the streak, so a user who has not
// checked in yet today has a streak of 0.
func (r *Registry) checkinStreak() Resolver {
	return func(ctx context.Context, userID int64) (int64, error) {
		times, err := r.src.PresentCheckinTimes(ctx, userID)
		if err != nil {
			return 0, err
		}
		seen := make(map[time.Time]struct{}, len(times))
		for _, ts := range times {
			seen[localDate(ts, r.loc)] = struct{}{}
		}

		var streak int64
		for d := localDate(r.clock.Now(), r.loc); ; d = d.AddDate(0, 0, -1) {
			if _, ok := seen[d]; !ok {
				break
			}
			streak++
		}
		return streak, nil
	}
}

// daysEmployed is the number of local days since start_date, never negative.
func (r *Registry) daysEmployed() Resolver {
	return func(ctx context.Context, userID int64) (int64, error) {
		u, err := r.src.UserByID(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		if u.StartDate == nil {
			return 0, nil
		}

		y, m, d := u.StartDate.UTC().Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		days := int64(localDate(r.clock.Now(), r.loc).Sub(start).Hours() / 24)
		return max(0, days), nil
	}
}

// revivalPrayers counts ledger rows anywhere that mention a Revival Prayer
// from the user's first name.
func (r *Registry) revivalPrayers() Resolver {
	return r.prayersFrom(func(u ir.User) string { return u.Name })
}

// rescueGiven is revivalPrayers matched on the full display name.
func (r *Registry) rescueGiven() Resolver {
	return r.prayersFrom(ir.User.DisplayName)
}

func (r *Registry) prayersFrom(name func(ir.User) string) Resolver {
	return func(ctx context.Context, userID int64) (int64, error) {
		u, err := r.src.UserByID(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}

		// Prayers land on the revived user's ledger, not the subject's.
		stmt, err := metricsql.Compile(metricir.Aggregate{
			Func:   metricir.Count,
			Table:  "coin_logs",
			Filter: metricir.Like{Field: "reason", Pattern: "%Revival Prayer from " + metricir.EscapeLike(name(u)) + "%"},
		})
		if err != nil {
			return 0, fmt.Errorf("compile prayer metric: %w", err)
		}
		return r.src.QueryInt(ctx, stmt.SQL, stmt.Args(userID)...)
	}
}

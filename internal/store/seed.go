package store

import (
	"context"
	"fmt"
	"time"
)

// The methods below write the source tables that field resolvers read.
// Production deployments populate these tables from the surrounding HR
// system; questd uses them for scenarios, imports and tests.

// RecordAttendance inserts one check-in.
func (s *Store) RecordAttendance(ctx context.Context, userID int64, at time.Time, status string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance (user_id, timestamp, status) VALUES (?, ?, ?)
	`, userID, at.UTC(), status)
	if err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}
	return nil
}

// RecordSteps inserts one day of step data.
func (s *Store) RecordSteps(ctx context.Context, userID int64, day time.Time, steps int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fitbit_steps (user_id, date, steps) VALUES (?, ?, ?)
	`, userID, day.UTC().Format(time.DateOnly), steps)
	if err != nil {
		return fmt.Errorf("record steps: %w", err)
	}
	return nil
}

// RecordLeave inserts one leave request.
func (s *Store) RecordLeave(ctx context.Context, userID int64, leaveType, status string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_requests (user_id, leave_type, status) VALUES (?, ?, ?)
	`, userID, leaveType, status)
	if err != nil {
		return fmt.Errorf("record leave: %w", err)
	}
	return nil
}

// RecordBattle inserts one PvP battle. winnerID 0 means no winner.
func (s *Store) RecordBattle(ctx context.Context, playerA, playerB, winnerID int64) error {
	var winner any
	if winnerID != 0 {
		winner = winnerID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pvp_battles (player_a_id, player_b_id, winner_id) VALUES (?, ?, ?)
	`, playerA, playerB, winner)
	if err != nil {
		return fmt.Errorf("record battle: %w", err)
	}
	return nil
}

// RecordThankYou inserts one thank-you card.
func (s *Store) RecordThankYou(ctx context.Context, senderID, recipientID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thank_you_cards (sender_id, recipient_id) VALUES (?, ?)
	`, senderID, recipientID)
	if err != nil {
		return fmt.Errorf("record thank you: %w", err)
	}
	return nil
}

// RecordPraise inserts one anonymous praise.
func (s *Store) RecordPraise(ctx context.Context, senderID, recipientID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO anonymous_praises (sender_id, recipient_id) VALUES (?, ?)
	`, senderID, recipientID)
	if err != nil {
		return fmt.Errorf("record praise: %w", err)
	}
	return nil
}

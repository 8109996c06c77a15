// Package store provides SQLite-backed storage for the quest engine.
//
// The store holds the source tables that field resolvers read (users,
// attendance, steps, ledger, redemptions, leave, badges, battles, social
// cards), the quest definitions, and the award_records table.
//
// # Exactly-once grants
//
//   - award_records carries UNIQUE(quest_id, user_id)
//   - grants insert with ON CONFLICT DO NOTHING inside the grant transaction
//   - legacy proof (badge ownership, "🎯 Quest #{id} reward" ledger rows) is
//     still honoured on read and backfilled by schema version 2
//
// # Deterministic listing
//
//   - quests and users are always listed ORDER BY id ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - _txlock=immediate: grant transactions take the write lock on BEGIN
package store

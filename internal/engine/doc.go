// Package engine runs quest evaluation passes.
//
// A Runner scans every active quest against every user, skips pairs that
// already hold an award, evaluates the quest's condition and grants the
// reward in one transaction per pair. Runs are stateless: the store is the
// only memory between passes, so a pass may be repeated at any time and a
// second pass over unchanged data grants nothing.
//
// GRANT TRANSACTION:
//
//  1. Recount the quest's awards inside the transaction and compare with
//     max_awards. At the cap the transaction is abandoned, the quest is
//     deactivated and no further users are considered for it.
//  2. Insert the (quest, user) award record. The unique index makes this the
//     exactly-once guard; a conflicting insert means another run got there
//     first and the pair is skipped.
//  3. Apply the reward through reward.Applier.
//
// Evaluation failures never grant. They are logged with run, quest and user
// ids and reported in the run summary.
//
// Scheduler repeats Run on an interval and skips a tick while its previous
// run is still going.
package engine

// Package scoring coordinates the authenticated quiz flows: sign-up, sign-in,
// answer submission with score crediting, and account removal.
//
// A submission authenticates the caller against the user directory, grades
// the chosen answer with the quiz engine and, when correct, atomically adds
// the difficulty's score to the caller's ledger. Authentication failures are
// reported as *interfaces.AuthError and grading failures as
// *interfaces.GradingError, each wrapping the underlying sentinel.
//
// An optional leaderboard mirrors totals after credited answers; its failures
// are logged and never fail a submission.
package scoring

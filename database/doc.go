// Package database owns the bounded connection pool over the SQLite quiz store
// and the table models shared by the directory and quiz packages.
//
// Every connection applies the same pragmas: busy_timeout (default 5s),
// journal_mode=WAL with synchronous=NORMAL, and foreign_keys=ON. Open checks
// that they took effect and fails with interfaces.ErrPoolInit otherwise.
//
// Callers check handles out with Acquire (or WithConn) and must release them.
// Acquire honours context cancellation while waiting for a handle, but
// statements issued through an acquired handle are never interrupted: they run
// to completion even if the caller's context is cancelled meanwhile.
package database

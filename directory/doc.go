// Package directory owns identity records: registration, lookup, credential
// verification and the score ledger.
package directory

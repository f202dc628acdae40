// Package store persists the last-known version token per tracked app.
//
// The mapping is the only state that survives across cycles. It is read
// once at cycle start and merged once at cycle end; the merge is a
// single transaction so a subsequent load can never observe a partially
// written delta.
package store

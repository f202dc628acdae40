// Package monitor implements the polling cycle: it diffs freshly
// fetched catalog metadata against the persisted last-known versions,
// builds one consolidated digest for everything that changed, and
// commits the new versions only after the digest was delivered.
package monitor

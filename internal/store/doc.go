package store

// Package store implements the durable per-source record collections: URL
// dedup on insert, validated status transitions, atomic write-then-rename
// persistence, and the data directory layout shared by all commands.
//
// One store file is the unit of mutual exclusion. A single in-process lock
// per store serializes writers; running separate processes against the same
// data directory is not supported.

package model

// Package model defines domain data structures shared across the app: link
// records, link type and status enums with explicit state transitions, and
// the channel snapshot entry.

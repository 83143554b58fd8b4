// Package records defines TextRecord, the unit of output of a k21 run, and
// an optional SQLite store that keeps the records of past runs.
//
// Records are created through New so their text is always NFC-normalized and
// trimmed and their timestamps share one RFC3339 UTC layout.
package records

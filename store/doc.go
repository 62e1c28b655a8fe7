// Package store defines the [Store] interface for usage ledgers: counters
// of admitted and rejected calls per limiter, bucketed by time. A ledger is
// reporting only; limiters never read from it.
//
//   - [MemoryStore]: in-process counters, lost on restart.
//   - [SQLiteStore]: persistent counters in a SQLite database.
//   - [TieredStore]: memory write-through in front of a persistent store.
//
// A Redis backend lives in the store/redis module. Custom backends can be
// created by implementing the [Store] interface.
package store

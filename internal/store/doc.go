// Package store provides the state cell that holds the current application
// snapshot.
//
// This package is internal to Rose. A [Cell] owns exactly one value at a
// time; the event engine is its only writer and replaces the value wholesale
// on every fold. Snapshots are treated as immutable, so readers can keep a
// reference to an old snapshot while newer ones are stored.
//
// Cells are not synchronized. The engine assumes single-flight dispatch and
// the platform adapter is responsible for serializing access.
//
// Users of the rose library should not need to interact with this package
// directly. The cell is created by [rose.New].
package store

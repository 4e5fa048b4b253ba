// Package models defines the core domain models for the sign-in service.
//
// # Registries
//
// Members and events are owned by the surrounding application and consumed here:
//   - Member: identity with an opaque presence code, approval flag, Role and Subteam
//   - Role: named bundle of Capabilities (admin, mentor, receives_funds, visible, ...)
//   - Event: a named [Start, End) window with grace offsets, funds, cost and overhead
//   - EventType: classification; Autoload marks types shown on idle displays
//   - EventBlock: sub-window of an event members can register interest in
//
// # Attendance
//
// A (member, event) pair is either not present or present:
//   - Active: the member is currently at the event; at most one per pair
//   - Stamp: an immutable completed session, created only by closing an Active
//
// # Design Principles
//
//  1. All times are UTC instants; display conversion lives in package clock
//  2. Money is stored in integer cents; computed shares are float64
//  3. Relationships are ID strings, with denormalized *Detail views for reads
//  4. Window predicates are pure functions over already fetched timestamps
package models

// Package state provides a lightweight FSM/session manager for Telegram bots.
// Sessions accumulate data across conversation steps via partial updates and
// expire after a configurable idle period, either by an explicit sweep
// (memory backend) or by key TTL (redis backend).
package state

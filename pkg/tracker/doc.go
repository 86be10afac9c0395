// Package tracker wraps a record value in a Mirror that intercepts field
// writes and reports them to subscribers.
//
// Interception is explicit: callers read and write fields through Get, Set
// and Delete rather than touching the map. Every Set or Delete is reported,
// even when the new value equals the old one. Only first-level fields are
// tracked; mutating a nested map or slice obtained from Get is not
// reported, so callers should Set the field again after changing it.
package tracker

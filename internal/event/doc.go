// Package event defines the transit state-change events and the synchronous
// pub-sub bus they travel on.
//
// The bus is the optional monitor surface of the coordinators: every
// state-changing operation publishes an event after releasing its locks, and
// observers (loggers, the demo driver, tests) subscribe without the
// coordinators knowing about them. Publication is purely observational and
// never affects coordinator control flow.
package event

// Package coordinator owns the emergency lifecycle at runtime.
//
// A Coordinator serialises Start, Cancel, Reset and countdown ticks behind
// one mutex, drives the single countdown ticker, dispatches activation hooks
// once per expired countdown and broadcasts every change to subscribers.
package coordinator

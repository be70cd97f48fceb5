// Package hooks runs the activation side effects of an emergency.
//
// A Dispatcher holds an ordered list of Hook values and runs them one after
// another when the countdown expires. Every hook gets its own timeout and
// its own tagged HookResult; a failing or panicking hook never prevents the
// next one from running, and nothing is retried here.
package hooks

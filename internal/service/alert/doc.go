// Package alert delivers emergency messages to the configured contacts.
//
// Messages go to a Slack incoming webhook when one is configured and are
// only logged otherwise. The package also provides the alert-send activation
// hook and the location sharing used by the location-share hook.
package alert

// Package config defines the settings used by the sos-button binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Besides connection parameters it carries the activation hook settings:
// the fixed location, the emergency contacts, the evidence directory, the
// siren file and the optional Slack webhook.
package config

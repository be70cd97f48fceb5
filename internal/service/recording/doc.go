// Package recording opens evidence recording sessions when an emergency
// activates. A session is described by a YAML manifest in the evidence
// directory; the capture itself belongs to the device that uploads into it.
package recording

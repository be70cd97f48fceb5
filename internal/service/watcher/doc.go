// Package watcher follows the emergency state of a server from another
// device. It logs every update as it happens and can sound the siren
// locally while the emergency is active.
package watcher

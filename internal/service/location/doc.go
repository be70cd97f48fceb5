// Package location provides the position reported when an emergency
// activates and the hook that shares it with the emergency contacts.
package location

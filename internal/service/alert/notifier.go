package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/service/hooks"
	"github.com/oshokin/sos-button/internal/service/location"
)

// errNoContacts is returned when there is nobody to alert.
var errNoContacts = errors.New("no emergency contacts configured")

// Notifier builds emergency messages and hands them to a Sender.
// It implements location.Sharer and is the alert-send hook.
type Notifier struct {
	sender   Sender
	contacts []config.Contact
	provider location.Provider
}

// NewNotifier creates a notifier. provider may be nil when no position is known.
func NewNotifier(sender Sender, contacts []config.Contact, provider location.Provider) *Notifier {
	return &Notifier{
		sender:   sender,
		contacts: contacts,
		provider: provider,
	}
}

// ShareLocation sends the position link to the contacts.
func (n *Notifier) ShareLocation(ctx context.Context, incident *domain.Incident, position location.Position) error {
	if len(n.contacts) == 0 {
		return errNoContacts
	}

	return n.sender.Send(ctx, &Message{
		Title: "Location shared with emergency contacts",
		Text:  position.MapsURL(),
		Fields: []Field{
			{Title: "Address", Value: position.Address},
			{Title: "Accuracy", Value: position.FormatAccuracy()},
			{Title: "Cycle", Value: incident.CycleID},
		},
		Contacts: n.contacts,
	})
}

// Name implements hooks.Hook.
func (n *Notifier) Name() string {
	return hooks.NameAlertSend
}

// Run sends the emergency alert. A missing position does not stop the alert,
// it is only left out of the message.
func (n *Notifier) Run(ctx context.Context, incident *domain.Incident) error {
	if len(n.contacts) == 0 {
		return errNoContacts
	}

	msg := &Message{
		Title:  "EMERGENCY: SOS activated",
		Text:   fmt.Sprintf("%s activated the emergency button and did not cancel it.", incident.Actor),
		Urgent: true,
		Fields: []Field{
			{Title: "Activated at", Value: incident.ActivatedAt.UTC().Format(time.RFC3339)},
			{Title: "Cycle", Value: incident.CycleID},
		},
		Contacts: n.contacts,
	}

	if n.provider != nil {
		if position, err := n.provider.Current(ctx); err == nil {
			msg.Fields = append(msg.Fields, Field{Title: "Location", Value: position.MapsURL()})
		}
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}

	return nil
}

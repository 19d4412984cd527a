package email

import (
	"fmt"
	"log/slog"

	"github.com/docket-app/docket/internal/store"
)

// Notifier delivers reminder notifications over email, resolving firm member
// ids to their addresses.
type Notifier struct {
	client  *Client
	members *store.MemberStore
	logger  *slog.Logger
}

func NewNotifier(client *Client, members *store.MemberStore, logger *slog.Logger) *Notifier {
	return &Notifier{client: client, members: members, logger: logger}
}

func (n *Notifier) Notify(subject, htmlBody string, recipients []int64) error {
	members, err := n.members.ListByIDs(recipients)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}

	var addresses []string
	for _, m := range members {
		if m.Email != "" {
			addresses = append(addresses, m.Email)
		}
	}
	if len(addresses) == 0 {
		// Nothing deliverable; not an error, the reminder is still marked sent.
		n.logger.Warn("no email addresses for reminder recipients", "recipients", recipients)
		return nil
	}

	return n.client.Send(addresses, subject, htmlBody)
}

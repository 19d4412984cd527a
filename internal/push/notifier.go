package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/docket-app/docket/internal/store"
)

// Notifier delivers in-app reminder notifications as web pushes to every
// device subscription the recipients have registered.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	logger  *slog.Logger
}

func NewNotifier(service *Service, subs *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{service: service, subs: subs, logger: logger}
}

func (n *Notifier) Notify(subject, htmlBody string, recipients []int64) error {
	if !n.service.Configured() {
		n.logger.Debug("push service not configured, skipping")
		return nil
	}

	subs, err := n.subs.ListByMembers(recipients)
	if err != nil {
		return fmt.Errorf("list push subscriptions: %w", err)
	}

	payload := Payload{
		Title: subject,
		URL:   "/calendar",
		Tag:   "reminder",
	}

	var errs []error
	for _, sub := range subs {
		if err := n.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				// Dead endpoint; prune it and move on.
				if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
					n.logger.Error("prune expired push subscription", "endpoint", sub.Endpoint, "error", err)
				}
				continue
			}
			errs = append(errs, fmt.Errorf("member %d: %w", sub.MemberID, err))
		}
	}
	return errors.Join(errs...)
}

package reminder

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/docket-app/docket/internal/dates"
	"github.com/docket-app/docket/internal/model"
)

// concreteChannels is what ChannelAll fans out to.
var concreteChannels = []model.Channel{model.ChannelEmail, model.ChannelSMS, model.ChannelInApp}

func (s *Scheduler) dispatch(r *model.Reminder, event *model.CalendarEvent) error {
	subject := fmt.Sprintf("Reminder: %s - %s from now", event.Title, dates.TimeUntil(event.StartDate))
	body := buildBody(event)

	switch r.Channel {
	case model.ChannelEmail, model.ChannelSMS, model.ChannelInApp:
		return s.send(r.Channel, subject, body, r.Recipients)
	case model.ChannelAll:
		var errs []error
		for _, ch := range concreteChannels {
			if err := s.send(ch, subject, body, r.Recipients); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", ch, err))
			}
		}
		return errors.Join(errs...)
	}
	return fmt.Errorf("unknown reminder channel %q", r.Channel)
}

func (s *Scheduler) send(ch model.Channel, subject, body string, recipients []int64) error {
	n, ok := s.channels[ch]
	if !ok {
		// Channel not wired in this deployment (e.g. sms).
		s.logger.Debug("no notifier for channel", "channel", ch)
		return nil
	}
	return n.Notify(subject, body, recipients)
}

func buildBody(event *model.CalendarEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(event.Title))
	fmt.Fprintf(&b, "<p><strong>When:</strong> %s</p>", dates.FormatDate(event.StartDate))
	if event.Location != "" {
		fmt.Fprintf(&b, "<p><strong>Where:</strong> %s</p>", html.EscapeString(event.Location))
	}
	if event.Description != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(event.Description))
	}
	return b.String()
}

package meet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	domainMeet "meet_link_bot/internal/domain/meet"
	"meet_link_bot/internal/infra/retry"

	"github.com/google/uuid"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const eventDuration = 24 * time.Hour

// CalendarProducer creates a day-long public calendar event with a Meet
// conference attached and returns the conference's video entry point.
type CalendarProducer struct {
	svc        *calendar.Service
	calendarID string
	now        func() time.Time
}

// NewCalendarProducer builds the Calendar service on an authorized client.
// Extra options are passed to calendar.NewService.
func NewCalendarProducer(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*CalendarProducer, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &CalendarProducer{svc: svc, calendarID: "primary", now: time.Now}, nil
}

func (p *CalendarProducer) ProduceLink(ctx context.Context) (string, error) {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	start := p.now().UTC()
	end := start.Add(eventDuration)
	yes := true

	event := &calendar.Event{
		Summary:                 "Open Meet " + suffix,
		Description:             "Открытая встреча Google Meet созданная через API",
		Start:                   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: "UTC"},
		End:                     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: "UTC"},
		GuestsCanModify:         true,
		GuestsCanInviteOthers:   &yes,
		GuestsCanSeeOtherGuests: &yes,
		AnyoneCanAddSelf:        true,
		Visibility:              "public",
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := p.svc.Events.Insert(p.calendarID, event).ConferenceDataVersion(1).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
			return "", retry.Permanent(fmt.Errorf("failed to create event: %w", err))
		}
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	return videoEntryPoint(created)
}

func videoEntryPoint(event *calendar.Event) (string, error) {
	if event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri, nil
			}
		}
	}
	if event.HangoutLink != "" {
		return event.HangoutLink, nil
	}
	return "", domainMeet.ErrNoLink
}

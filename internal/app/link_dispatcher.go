package app

import (
	"context"
	"fmt"
	"time"

	"meet_link_bot/internal/domain/meet"
	"meet_link_bot/internal/domain/reminder"
	"meet_link_bot/internal/domain/schedule"
	domainTelegram "meet_link_bot/internal/domain/telegram"
	"meet_link_bot/internal/infra/metrics"
	"meet_link_bot/internal/infra/retry"

	"github.com/sirupsen/logrus"
)

var ErrLinkProduction = fmt.Errorf("failed to produce meeting link")

const linkFailureText = "Произошла ошибка при отправке ссылки на Google Meet."

// LinkDispatcher produces a link and posts it, retrying the pair as one
// attempt. Posted links are deleted again after ttl.
type LinkDispatcher struct {
	producer meet.Producer
	client   domainTelegram.Client
	engine   TriggerEngine
	policy   retry.Policy
	ttl      time.Duration
	now      func() time.Time
	logger   *logrus.Entry
}

func NewLinkDispatcher(
	producer meet.Producer,
	client domainTelegram.Client,
	engine TriggerEngine,
	policy retry.Policy,
	ttl time.Duration,
	logger *logrus.Entry,
) *LinkDispatcher {
	return &LinkDispatcher{
		producer: producer,
		client:   client,
		engine:   engine,
		policy:   policy,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.WithField("component", "link_dispatcher"),
	}
}

// PostScheduledLink implements LinkPoster.
func (d *LinkDispatcher) PostScheduledLink(ctx context.Context, chatID int64, entry schedule.Entry) error {
	return d.deliver(ctx, "scheduled", chatID, entry.ThreadID, func(link string) string {
		return fmt.Sprintf("Ваша еженедельная Google Meet встреча (%s):\n%s", entry.String(), link)
	})
}

// PostInstantLink answers an on-demand request.
func (d *LinkDispatcher) PostInstantLink(ctx context.Context, chatID int64, threadID *int) error {
	return d.deliver(ctx, "instant", chatID, threadID, func(link string) string {
		return "Ваша мгновенная Google Meet ссылка:\n" + link
	})
}

// SendReminder implements ReminderNotifier.
func (d *LinkDispatcher) SendReminder(ctx context.Context, chatID int64, r reminder.Reminder) error {
	logCtx := d.logger.WithFields(logrus.Fields{"chat_id": chatID, "reminder_id": r.ID})
	_, err := retry.Do(ctx, d.policy, logCtx, func(ctx context.Context) (int, error) {
		return d.client.SendMessage(chatID, r.ThreadID, "⏰ Напоминание:\n\n"+r.Text)
	})
	if err != nil {
		metrics.ReminderFailures.Inc()
		return fmt.Errorf("error sending reminder: %w", err)
	}
	metrics.RemindersSent.Inc()
	logCtx.Info("Reminder sent")
	return nil
}

func (d *LinkDispatcher) deliver(ctx context.Context, kind string, chatID int64, threadID *int, render func(link string) string) error {
	logCtx := d.logger.WithFields(logrus.Fields{"chat_id": chatID, "kind": kind})
	if threadID != nil {
		logCtx = logCtx.WithField("thread_id", *threadID)
	}

	// A produced link is reused by later attempts, so a failed send does
	// not create another meeting.
	var link string
	messageID, err := retry.Do(ctx, d.policy, logCtx, func(ctx context.Context) (int, error) {
		if link == "" {
			produced, err := d.producer.ProduceLink(ctx)
			if err != nil {
				return 0, fmt.Errorf("%w: %w", ErrLinkProduction, err)
			}
			link = produced
		}
		return d.client.SendMessage(chatID, threadID, render(link))
	})
	if err != nil {
		metrics.LinkFailures.WithLabelValues(kind).Inc()
		logCtx.WithError(err).Error("Failed to deliver meeting link after retries")
		if _, notifyErr := d.client.SendMessage(chatID, threadID, linkFailureText); notifyErr != nil {
			logCtx.WithError(notifyErr).Error("Failed to report link failure to chat")
		}
		return err
	}

	metrics.LinksSent.WithLabelValues(kind).Inc()
	logCtx.WithField("message_id", messageID).Info("Meeting link sent")
	d.scheduleDeletion(chatID, messageID, logCtx)
	return nil
}

func (d *LinkDispatcher) scheduleDeletion(chatID int64, messageID int, logCtx *logrus.Entry) {
	if d.ttl <= 0 || d.engine == nil {
		return
	}
	d.engine.ArmOnce(d.now().Add(d.ttl), func() {
		if err := d.client.DeleteMessage(chatID, messageID); err != nil {
			logCtx.WithError(err).WithField("message_id", messageID).Warn("Failed to delete expired meeting link")
			return
		}
		logCtx.WithField("message_id", messageID).Debug("Expired meeting link deleted")
	})
}

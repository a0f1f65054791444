package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"meet_link_bot/internal/domain/reminder"
	"meet_link_bot/internal/domain/schedule"
	"meet_link_bot/internal/infra/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = retry.Policy{Attempts: 3, Delay: time.Millisecond}

func newTestDispatcher(producer *fakeProducer, client *fakeClient) (*LinkDispatcher, *fakeEngine) {
	engine := newFakeEngine()
	d := NewLinkDispatcher(producer, client, engine, fastPolicy, 59*time.Minute, testLogger())
	d.now = func() time.Time { return time.Date(2024, 1, 3, 12, 45, 0, 0, msk) }
	return d, engine
}

func TestPostScheduledLink(t *testing.T) {
	producer := &fakeProducer{link: "https://meet.google.com/pep-zuux-ubg"}
	client := &fakeClient{}
	d, engine := newTestDispatcher(producer, client)

	entry := schedule.Entry{Day: 2, Hour: 12, Minute: 46, ThreadID: intPtr(7)}
	require.NoError(t, d.PostScheduledLink(context.Background(), 555, entry))

	require.Len(t, client.sent, 1)
	msg := client.sent[0]
	assert.Equal(t, int64(555), msg.chatID)
	assert.Equal(t, 7, *msg.threadID)
	assert.Equal(t, "Ваша еженедельная Google Meet встреча (среда 12:46):\nhttps://meet.google.com/pep-zuux-ubg", msg.text)

	deletions := engine.oneShots()
	require.Len(t, deletions, 1)
	assert.Equal(t, time.Date(2024, 1, 3, 13, 44, 0, 0, msk), deletions[0].at)

	deletions[0].job()
	assert.Equal(t, []int{1}, client.deleted)
}

func TestPostInstantLinkRetriesProducer(t *testing.T) {
	producer := &fakeProducer{err: errors.New("quota exceeded")}
	client := &fakeClient{}
	d, engine := newTestDispatcher(producer, client)

	err := d.PostInstantLink(context.Background(), 555, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLinkProduction)
	assert.Equal(t, 3, producer.calls)

	require.Len(t, client.sent, 1)
	assert.Equal(t, linkFailureText, client.sent[0].text)
	assert.Empty(t, engine.oneShots())
}

func TestPostInstantLinkRecoversFromSendFailure(t *testing.T) {
	producer := &fakeProducer{link: "https://meet.google.com/abc-defg-hij"}
	client := &fakeClient{failures: 2}
	d, _ := newTestDispatcher(producer, client)

	require.NoError(t, d.PostInstantLink(context.Background(), 42, nil))
	assert.Equal(t, 1, producer.calls, "only the send is retried")
	require.Len(t, client.sent, 1)
	assert.Equal(t, "Ваша мгновенная Google Meet ссылка:\nhttps://meet.google.com/abc-defg-hij", client.sent[0].text)
	assert.Nil(t, client.sent[0].threadID)
}

func TestSendFailureReusesProducedLink(t *testing.T) {
	producer := &fakeProducer{link: "https://meet.google.com/abc-defg-hij"}
	client := &fakeClient{failures: 10}
	d, _ := newTestDispatcher(producer, client)

	err := d.PostScheduledLink(context.Background(), 555, schedule.Entry{Day: 2, Hour: 12, Minute: 46})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLinkProduction)
	assert.Equal(t, 1, producer.calls)
}

func TestDispatcherWithoutTTLKeepsMessage(t *testing.T) {
	producer := &fakeProducer{link: "https://meet.google.com/x"}
	client := &fakeClient{}
	engine := newFakeEngine()
	d := NewLinkDispatcher(producer, client, engine, fastPolicy, 0, testLogger())

	require.NoError(t, d.PostInstantLink(context.Background(), 1, nil))
	assert.Empty(t, engine.oneShots())
}

func TestSendReminder(t *testing.T) {
	client := &fakeClient{failures: 1}
	d, _ := newTestDispatcher(&fakeProducer{}, client)

	r := reminder.Reminder{ID: "r1", Text: "Сдать отчёт", ThreadID: intPtr(9)}
	require.NoError(t, d.SendReminder(context.Background(), 555, r))

	require.Len(t, client.sent, 1)
	assert.Equal(t, "⏰ Напоминание:\n\nСдать отчёт", client.sent[0].text)
	assert.Equal(t, 9, *client.sent[0].threadID)
}

func TestSendReminderGivesUp(t *testing.T) {
	client := &fakeClient{failures: 10}
	d, _ := newTestDispatcher(&fakeProducer{}, client)

	err := d.SendReminder(context.Background(), 555, reminder.Reminder{Text: "x"})
	require.Error(t, err)
	assert.Empty(t, client.sent)
	assert.Equal(t, 7, client.failures)
}

package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"meet_link_bot/internal/domain/reminder"
	"meet_link_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

var msk = time.FixedZone("MSK", 3*60*60)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func intPtr(v int) *int { return &v }

type memScheduleStore struct {
	mu      sync.Mutex
	table   schedule.Table
	saves   int
	loadErr error
	saveErr error
}

func (m *memScheduleStore) Load(ctx context.Context) (schedule.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.table.Clone(), nil
}

func (m *memScheduleStore) Save(ctx context.Context, t schedule.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.table = t.Clone()
	m.saves++
	return nil
}

type memReminderStore struct {
	mu    sync.Mutex
	table reminder.Table
	saves int
}

func (m *memReminderStore) Load(ctx context.Context) (reminder.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.Clone(), nil
}

func (m *memReminderStore) Save(ctx context.Context, t reminder.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table = t.Clone()
	m.saves++
	return nil
}

type fakeTrigger struct {
	rec  Recurrence
	at   time.Time
	job  func()
	once bool
}

// fakeEngine records armed jobs and runs them only when the test asks.
type fakeEngine struct {
	mu        sync.Mutex
	next      TriggerID
	triggers  map[TriggerID]fakeTrigger
	cancelled []TriggerID
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{triggers: make(map[TriggerID]fakeTrigger)}
}

func (e *fakeEngine) Arm(r Recurrence, job func()) TriggerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.triggers[e.next] = fakeTrigger{rec: r, job: job}
	return e.next
}

func (e *fakeEngine) ArmOnce(at time.Time, job func()) TriggerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.triggers[e.next] = fakeTrigger{at: at, job: job, once: true}
	return e.next
}

func (e *fakeEngine) Cancel(id TriggerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.triggers[id]; ok {
		delete(e.triggers, id)
		e.cancelled = append(e.cancelled, id)
	}
}

func (e *fakeEngine) snapshot() map[TriggerID]fakeTrigger {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[TriggerID]fakeTrigger, len(e.triggers))
	for id, t := range e.triggers {
		out[id] = t
	}
	return out
}

func (e *fakeEngine) recurring() []fakeTrigger {
	var out []fakeTrigger
	for _, t := range e.snapshot() {
		if !t.once {
			out = append(out, t)
		}
	}
	return out
}

func (e *fakeEngine) oneShots() []fakeTrigger {
	var out []fakeTrigger
	for _, t := range e.snapshot() {
		if t.once {
			out = append(out, t)
		}
	}
	return out
}

// fireAll runs every recurring job once, outside the engine lock.
func (e *fakeEngine) fireAll() {
	for _, t := range e.recurring() {
		t.job()
	}
}

type postedLink struct {
	chatID int64
	entry  schedule.Entry
}

type fakePoster struct {
	mu    sync.Mutex
	posts []postedLink
}

func (p *fakePoster) PostScheduledLink(ctx context.Context, chatID int64, entry schedule.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, postedLink{chatID: chatID, entry: entry})
	return nil
}

type sentMessage struct {
	chatID   int64
	threadID *int
	text     string
}

type fakeClient struct {
	mu       sync.Mutex
	sent     []sentMessage
	deleted  []int
	failures int // number of SendMessage calls to fail before succeeding
	nextID   int
}

func (c *fakeClient) SendMessage(chatID int64, threadID *int, text string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return 0, errors.New("telegram unavailable")
	}
	c.nextID++
	c.sent = append(c.sent, sentMessage{chatID: chatID, threadID: threadID, text: text})
	return c.nextID, nil
}

func (c *fakeClient) DeleteMessage(chatID int64, messageID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, messageID)
	return nil
}

type fakeReminderNotifier struct {
	mu   sync.Mutex
	sent []reminder.Reminder
}

func (n *fakeReminderNotifier) SendReminder(ctx context.Context, chatID int64, r reminder.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, r)
	return nil
}

type fakeProducer struct {
	link  string
	err   error
	calls int
}

func (p *fakeProducer) ProduceLink(ctx context.Context) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.link, nil
}

package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"meet_link_bot/internal/app"
	"meet_link_bot/internal/domain/reminder"
	"meet_link_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

const testToken = "test-token"

var msk = time.FixedZone("MSK", 3*60*60)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func intPtr(v int) *int { return &v }

type apiCall struct {
	Method string
	Params map[string]string
}

// fakeAPI is a minimal Bot API server.
type fakeAPI struct {
	mu           sync.Mutex
	calls        []apiCall
	memberStatus string
	memberFails  bool
	nextID       int
	srv          *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{memberStatus: "administrator", nextID: 100}
	api.srv = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
	raw, _ := io.ReadAll(r.Body)
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)
	params := make(map[string]string, len(decoded))
	for k, v := range decoded {
		if s, ok := v.(string); ok {
			params[k] = s
		} else {
			b, _ := json.Marshal(v)
			params[k] = string(b)
		}
	}

	a.mu.Lock()
	a.calls = append(a.calls, apiCall{Method: method, Params: params})
	a.nextID++
	id := a.nextID
	status, fails := a.memberStatus, a.memberFails
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "sendMessage":
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":0,"chat":{"id":%s,"type":"private"},"text":"ok"}}`, id, params["chat_id"])
	case "getChatMember":
		if fails {
			fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: user not found"}`)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"result":{"status":%q,"user":{"id":%s,"first_name":"x"}}}`, status, params["user_id"])
	default:
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}
}

func (a *fakeAPI) sent() []apiCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []apiCall
	for _, c := range a.calls {
		if c.Method == "sendMessage" {
			out = append(out, c)
		}
	}
	return out
}

func (a *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	msgs := a.sent()
	require.NotEmpty(t, msgs, "no message was sent")
	return msgs[len(msgs)-1].Params["text"]
}

func (a *fakeAPI) last(t *testing.T) apiCall {
	t.Helper()
	msgs := a.sent()
	require.NotEmpty(t, msgs, "no message was sent")
	return msgs[len(msgs)-1]
}

func newTestBot(t *testing.T, api *fakeAPI) *telebot.Bot {
	t.Helper()
	b, err := telebot.NewBot(telebot.Settings{
		URL:         api.srv.URL,
		Token:       testToken,
		Offline:     true,
		Synchronous: true,
	})
	require.NoError(t, err)
	return b
}

type fakeSchedules struct {
	mu      sync.Mutex
	entries map[int64][]schedule.Entry
	addErr  error
	listErr error
	removed []schedule.Entry
}

func newFakeSchedules() *fakeSchedules {
	return &fakeSchedules{entries: make(map[int64][]schedule.Entry)}
}

func (f *fakeSchedules) Add(ctx context.Context, chatID int64, entry schedule.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	for _, e := range f.entries[chatID] {
		if e.SameSlot(entry) {
			return app.ErrDuplicateEntry
		}
	}
	f.entries[chatID] = append(f.entries[chatID], entry)
	return nil
}

func (f *fakeSchedules) Remove(ctx context.Context, chatID int64, target schedule.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.entries[chatID] {
		if e.SameSlot(target) {
			f.entries[chatID] = append(f.entries[chatID][:i], f.entries[chatID][i+1:]...)
			f.removed = append(f.removed, target)
			return nil
		}
	}
	return app.ErrEntryNotFound
}

func (f *fakeSchedules) List(ctx context.Context, chatID int64, threadID *int) ([]schedule.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []schedule.Entry
	for _, e := range f.entries[chatID] {
		if e.InThread(threadID) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeReminders struct {
	mu        sync.Mutex
	items     map[int64][]reminder.Reminder
	createErr error
	nextID    int
	removed   []string
	panics    bool
}

func newFakeReminders() *fakeReminders {
	return &fakeReminders{items: make(map[int64][]reminder.Reminder)}
}

func (f *fakeReminders) Create(ctx context.Context, chatID int64, threadID *int, at time.Time, freq reminder.Frequency, text string) (reminder.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return reminder.Reminder{}, f.createErr
	}
	f.nextID++
	r := reminder.Reminder{ID: fmt.Sprintf("r%d", f.nextID), DateTime: at, Frequency: freq, Text: text, ThreadID: threadID}
	f.items[chatID] = append(f.items[chatID], r)
	return r, nil
}

func (f *fakeReminders) List(ctx context.Context, chatID int64, threadID *int) ([]reminder.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("reminder store exploded")
	}
	var out []reminder.Reminder
	for _, r := range f.items[chatID] {
		if r.InThread(threadID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReminders) Remove(ctx context.Context, chatID int64, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.items[chatID] {
		if r.ID == id {
			f.items[chatID] = append(f.items[chatID][:i], f.items[chatID][i+1:]...)
			f.removed = append(f.removed, id)
			return nil
		}
	}
	return app.ErrReminderNotFound
}

type fakeLinker struct {
	mu    sync.Mutex
	calls []*int
	err   error
}

func (f *fakeLinker) PostInstantLink(ctx context.Context, chatID int64, threadID *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, threadID)
	return f.err
}

type harness struct {
	api       *fakeAPI
	bot       *telebot.Bot
	handlers  *Handlers
	schedules *fakeSchedules
	reminders *fakeReminders
	links     *fakeLinker
	dialogs   *Conversations
	updateID  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := newFakeAPI(t)
	h := &harness{
		api:       api,
		bot:       newTestBot(t, api),
		schedules: newFakeSchedules(),
		reminders: newFakeReminders(),
		links:     &fakeLinker{},
		dialogs:   NewConversations(time.Hour),
	}
	h.handlers = NewHandlers(h.schedules, h.reminders, h.links, h.dialogs, msk, testLogger())
	h.handlers.now = func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, msk) }
	h.handlers.Register(context.Background(), h.bot)
	return h
}

const (
	privateChat int64 = 7
	groupChat   int64 = -1001
	userID      int64 = 7
)

// send delivers text as userID. A group chatID makes it a supergroup message.
func (h *harness) send(chatID int64, threadID int, text string) {
	h.updateID++
	chatType := telebot.ChatPrivate
	if chatID < 0 {
		chatType = telebot.ChatSuperGroup
	}
	h.bot.ProcessUpdate(telebot.Update{
		ID: h.updateID,
		Message: &telebot.Message{
			ID:       h.updateID,
			Chat:     &telebot.Chat{ID: chatID, Type: chatType, Title: "Team"},
			Sender:   &telebot.User{ID: userID, FirstName: "Анна"},
			Text:     text,
			ThreadID: threadID,
		},
	})
}

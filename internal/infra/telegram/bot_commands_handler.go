package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"meet_link_bot/internal/domain/reminder"
	"meet_link_bot/internal/domain/schedule"
	"meet_link_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// ScheduleRegistry is the weekly schedule API the handlers call.
type ScheduleRegistry interface {
	Add(ctx context.Context, chatID int64, entry schedule.Entry) error
	Remove(ctx context.Context, chatID int64, target schedule.Entry) error
	List(ctx context.Context, chatID int64, threadID *int) ([]schedule.Entry, error)
}

// ReminderRegistry is the reminder API the handlers call.
type ReminderRegistry interface {
	Create(ctx context.Context, chatID int64, threadID *int, at time.Time, freq reminder.Frequency, text string) (reminder.Reminder, error)
	List(ctx context.Context, chatID int64, threadID *int) ([]reminder.Reminder, error)
	Remove(ctx context.Context, chatID int64, id string) error
}

// InstantLinker posts a meeting link on demand.
type InstantLinker interface {
	PostInstantLink(ctx context.Context, chatID int64, threadID *int) error
}

type Handlers struct {
	schedules ScheduleRegistry
	reminders ReminderRegistry
	links     InstantLinker
	dialogs   *Conversations
	loc       *time.Location
	now       func() time.Time
	logger    *logrus.Entry
}

func NewHandlers(
	schedules ScheduleRegistry,
	reminders ReminderRegistry,
	links InstantLinker,
	dialogs *Conversations,
	loc *time.Location,
	baseLogger *logrus.Entry,
) *Handlers {
	return &Handlers{
		schedules: schedules,
		reminders: reminders,
		links:     links,
		dialogs:   dialogs,
		loc:       loc,
		now:       time.Now,
		logger:    baseLogger.WithField("component", "telegram_handlers"),
	}
}

type handlerFunc func(ctx context.Context, c telebot.Context) error

// Register wires every command and the free-text router onto b.
func (h *Handlers) Register(ctx context.Context, b *telebot.Bot) {
	b.Use(h.recoverErrors)

	routes := map[string]handlerFunc{
		"/start":          h.handleStart,
		"/help":           h.handleHelp,
		"/cancel":         h.handleCancel,
		"/add":            h.handleAdd,
		"/addtime":        h.handleAddTime,
		"/list":           h.handleList,
		"/delete":         h.handleDelete,
		"/deletetime":     h.handleDeleteTime,
		"/meet":           h.handleMeet,
		"/reminder":       h.handleReminder,
		"/reminders":      h.handleReminders,
		"/deletereminder": h.handleDeleteReminder,
	}
	for endpoint, fn := range routes {
		b.Handle(endpoint, bind(ctx, fn))
	}
	b.Handle(telebot.OnText, bind(ctx, h.handleText))
}

// SetCommands publishes the command menu.
func SetCommands(b *telebot.Bot) error {
	if err := b.SetCommands(Commands); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}

func bind(ctx context.Context, fn handlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return fn(ctx, c)
	}
}

// recoverErrors keeps a failing or panicking handler from reaching the poller.
func (h *Handlers) recoverErrors(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) (err error) {
		command := commandOf(c)
		metrics.Commands.WithLabelValues(command).Inc()
		logCtx := h.handlerLogger(c, command)

		defer func() {
			if r := recover(); r != nil {
				logCtx.WithField("panic", r).Error("Handler panicked")
				if sendErr := reply(c, msgGenericError); sendErr != nil {
					logCtx.WithError(sendErr).Error("Failed to report handler panic")
				}
				err = nil
			}
		}()

		if handlerErr := next(c); handlerErr != nil {
			logCtx.WithError(handlerErr).Error("Handler failed")
		}
		return nil
	}
}

func (h *Handlers) handleStart(ctx context.Context, c telebot.Context) error {
	logCtx := h.handlerLogger(c, "/start")
	logCtx.Info("Processing /start command")
	if isGroup(c.Chat()) {
		logCtx.WithField("chat_title", c.Chat().Title).Info("Bot started in group")
	}
	return reply(c, greeting(firstName(c)), mainMenu())
}

func (h *Handlers) handleHelp(ctx context.Context, c telebot.Context) error {
	h.handlerLogger(c, "/help").Info("Processing /help command")
	if isGroup(c.Chat()) {
		return reply(c, helpGroup)
	}
	return reply(c, helpPrivate)
}

func (h *Handlers) handleCancel(ctx context.Context, c telebot.Context) error {
	if !h.dialogs.Clear(keyOf(c)) {
		return reply(c, msgNothingCancel)
	}
	h.handlerLogger(c, "/cancel").Info("Dialog cancelled")
	return reply(c, msgCancelled, mainMenu())
}

// handleText continues an open dialog. Outside a dialog only private chats
// get a hint.
func (h *Handlers) handleText(ctx context.Context, c telebot.Context) error {
	key := keyOf(c)
	d, ok := h.dialogs.Get(key)
	if !ok {
		if c.Chat() != nil && c.Chat().Type == telebot.ChatPrivate {
			return reply(c, msgPrivateHint)
		}
		return nil
	}

	text := strings.TrimSpace(c.Text())
	h.handlerLogger(c, "text").WithField("step", d.Step.String()).Debug("Continuing dialog")
	switch d.Step {
	case StepAddSchedule:
		return h.continueAddSchedule(ctx, c, key, d, text)
	case StepDeleteSchedule:
		return h.continueDeleteSchedule(ctx, c, key, d, text)
	case StepReminderTime:
		return h.continueReminderTime(c, key, d, text)
	case StepReminderFrequency:
		return h.continueReminderFrequency(c, key, d, text)
	case StepReminderText:
		return h.continueReminderText(ctx, c, key, d, text)
	case StepDeleteReminder:
		return h.continueDeleteReminder(ctx, c, key, d, text)
	default:
		h.dialogs.Clear(key)
		return nil
	}
}

// ensureAdmin lets anyone through in private chats. In groups it replies with
// denied unless the sender is the creator or an administrator.
func (h *Handlers) ensureAdmin(c telebot.Context, denied string) (bool, error) {
	if !isGroup(c.Chat()) {
		return true, nil
	}
	member, err := c.Bot().ChatMemberOf(c.Chat(), c.Sender())
	if err != nil {
		h.handlerLogger(c, commandOf(c)).WithError(err).Error("Error checking admin status")
		return false, reply(c, msgAdminCheckFailure)
	}
	if member.Role != telebot.Creator && member.Role != telebot.Administrator {
		h.handlerLogger(c, commandOf(c)).WithField("role", member.Role).Warn("Unauthorized access attempt")
		return false, reply(c, denied)
	}
	return true, nil
}

func (h *Handlers) handlerLogger(c telebot.Context, handler string) *logrus.Entry {
	fields := logrus.Fields{"handler": handler}
	if c.Chat() != nil {
		fields["chat_id"] = c.Chat().ID
	}
	if c.Sender() != nil {
		fields["sender_id"] = c.Sender().ID
	}
	if tid := threadOf(c); tid != nil {
		fields["thread_id"] = *tid
	}
	return h.logger.WithFields(fields)
}

// reply answers in the topic the update came from.
func reply(c telebot.Context, text string, markup ...*telebot.ReplyMarkup) error {
	opts := &telebot.SendOptions{}
	if tid := threadOf(c); tid != nil {
		opts.ThreadID = *tid
	}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return c.Send(text, opts)
}

func threadOf(c telebot.Context) *int {
	m := c.Message()
	if m == nil || m.ThreadID == 0 {
		return nil
	}
	id := m.ThreadID
	return &id
}

func keyOf(c telebot.Context) ConversationKey {
	var key ConversationKey
	if c.Chat() != nil {
		key.ChatID = c.Chat().ID
	}
	if c.Sender() != nil {
		key.UserID = c.Sender().ID
	}
	return key
}

func isGroup(chat *telebot.Chat) bool {
	return chat != nil && (chat.Type == telebot.ChatGroup || chat.Type == telebot.ChatSuperGroup)
}

func firstName(c telebot.Context) string {
	if c.Sender() == nil {
		return ""
	}
	return c.Sender().FirstName
}

var knownCommands = func() map[string]bool {
	out := make(map[string]bool, len(Commands))
	for _, cmd := range Commands {
		out["/"+cmd.Text] = true
	}
	return out
}()

// commandOf names the command an update carries, for logs and metrics.
func commandOf(c telebot.Context) string {
	text := c.Text()
	if !strings.HasPrefix(text, "/") {
		return "text"
	}
	cmd, _, _ := strings.Cut(strings.Fields(text)[0], "@")
	if !knownCommands[cmd] {
		return "other"
	}
	return cmd
}

package telegram

import (
	"context"
	"errors"
	"strconv"

	"meet_link_bot/internal/domain/reminder"

	"gopkg.in/telebot.v3"
)

// The reminder dialog runs datetime, then frequency, then text.

func (h *Handlers) handleReminder(ctx context.Context, c telebot.Context) error {
	h.handlerLogger(c, "/reminder").Info("Command received")
	if ok, err := h.ensureAdmin(c, msgAdminAddReminder); !ok {
		return err
	}
	h.dialogs.Set(keyOf(c), Dialog{Step: StepReminderTime, ThreadID: threadOf(c)})
	return reply(c, msgReminderTimePrompt)
}

func (h *Handlers) continueReminderTime(c telebot.Context, key ConversationKey, d Dialog, text string) error {
	at, err := reminder.ParseDateTime(text, h.loc)
	if err != nil {
		return reply(c, msgReminderBadTime)
	}
	if !at.After(h.now()) {
		return reply(c, msgReminderInPast)
	}
	d.Step = StepReminderFrequency
	d.At = at
	h.dialogs.Set(key, d)
	return reply(c, msgFrequencyPrompt, frequencyMenu())
}

func (h *Handlers) continueReminderFrequency(c telebot.Context, key ConversationKey, d Dialog, text string) error {
	freq, err := reminder.ParseButton(text)
	if err != nil {
		return reply(c, msgFrequencyInvalid)
	}
	d.Step = StepReminderText
	d.Frequency = freq
	h.dialogs.Set(key, d)
	return reply(c, msgReminderTextPrompt, &telebot.ReplyMarkup{RemoveKeyboard: true})
}

func (h *Handlers) continueReminderText(ctx context.Context, c telebot.Context, key ConversationKey, d Dialog, text string) error {
	if text == "" {
		return reply(c, msgReminderEmptyText)
	}
	logCtx := h.handlerLogger(c, "reminder_text")

	created, err := h.reminders.Create(ctx, c.Chat().ID, d.ThreadID, d.At, d.Frequency, text)
	switch {
	case errors.Is(err, reminder.ErrInPast):
		// The time went by while the user was typing; ask for a new one.
		d.Step = StepReminderTime
		h.dialogs.Set(key, d)
		return reply(c, msgReminderInPast+"\n\n"+msgReminderTimePrompt)
	case err != nil:
		h.dialogs.Clear(key)
		logCtx.WithError(err).Error("Failed to create reminder")
		return reply(c, msgReminderError, mainMenu())
	}

	h.dialogs.Clear(key)
	logCtx.WithField("reminder_id", created.ID).Info("Reminder created")
	return reply(c, reminderCreatedText(created, h.loc), mainMenu())
}

func (h *Handlers) handleReminders(ctx context.Context, c telebot.Context) error {
	logCtx := h.handlerLogger(c, "/reminders")
	logCtx.Info("Command received")

	visible, empty, err := h.visibleReminders(ctx, c)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list reminders")
		return reply(c, msgGenericError)
	}
	if empty != "" {
		return reply(c, empty)
	}
	return reply(c, "Ваши напоминания:\n\n"+formatReminderItems(visible, h.loc))
}

func (h *Handlers) handleDeleteReminder(ctx context.Context, c telebot.Context) error {
	logCtx := h.handlerLogger(c, "/deletereminder")
	logCtx.Info("Command received")
	if ok, err := h.ensureAdmin(c, msgAdminDelReminder); !ok {
		return err
	}

	visible, empty, err := h.visibleReminders(ctx, c)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list reminders")
		return reply(c, msgGenericError)
	}
	if empty != "" {
		return reply(c, empty)
	}

	ids := make([]string, 0, len(visible))
	for _, r := range visible {
		ids = append(ids, r.ID)
	}
	h.dialogs.Set(keyOf(c), Dialog{Step: StepDeleteReminder, ThreadID: threadOf(c), ReminderIDs: ids})
	return reply(c, "Выберите номер напоминания для удаления:\n\n"+formatReminderItems(visible, h.loc))
}

func (h *Handlers) continueDeleteReminder(ctx context.Context, c telebot.Context, key ConversationKey, d Dialog, text string) error {
	n, err := strconv.Atoi(text)
	if err != nil {
		return reply(c, msgReminderNotNumber)
	}
	if n < 1 || n > len(d.ReminderIDs) {
		return reply(c, msgReminderBadNumber)
	}
	h.dialogs.Clear(key)

	id := d.ReminderIDs[n-1]
	logCtx := h.handlerLogger(c, "delete_reminder").WithField("reminder_id", id)
	if err := h.reminders.Remove(ctx, c.Chat().ID, id); err != nil {
		logCtx.WithError(err).Warn("Failed to delete reminder")
		return reply(c, msgReminderDelError)
	}
	logCtx.Info("Reminder deleted")
	return reply(c, msgReminderDeleted)
}

// visibleReminders returns the reminders of the current topic, or the reply
// to send when there are none.
func (h *Handlers) visibleReminders(ctx context.Context, c telebot.Context) ([]reminder.Reminder, string, error) {
	all, err := h.reminders.List(ctx, c.Chat().ID, nil)
	if err != nil {
		return nil, "", err
	}
	if len(all) == 0 {
		return nil, msgNoReminders, nil
	}
	tid := threadOf(c)
	var visible []reminder.Reminder
	for _, r := range all {
		if r.InThread(tid) {
			visible = append(visible, r)
		}
	}
	if len(visible) == 0 {
		return nil, msgNoRemindersInTopic, nil
	}
	return visible, "", nil
}

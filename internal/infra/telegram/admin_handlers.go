package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"meet_link_bot/internal/app"
	"meet_link_bot/internal/domain/schedule"

	"gopkg.in/telebot.v3"
)

var clockPattern = regexp.MustCompile(`(\d{1,2}):(\d{2})`)

// Schedule commands. Only group admins may change a group's schedule.

func (h *Handlers) handleAdd(ctx context.Context, c telebot.Context) error {
	h.handlerLogger(c, "/add").Info("Command received")
	if ok, err := h.ensureAdmin(c, msgAdminSchedules); !ok {
		return err
	}
	h.dialogs.Set(keyOf(c), Dialog{Step: StepAddSchedule, ThreadID: threadOf(c)})
	return reply(c, msgAddPrompt)
}

func (h *Handlers) handleAddTime(ctx context.Context, c telebot.Context) error {
	h.handlerLogger(c, "/addtime").Info("Command received")
	if ok, err := h.ensureAdmin(c, msgAdminSchedules); !ok {
		return err
	}
	args := c.Args()
	if len(args) < 2 {
		return reply(c, msgAddTimeUsage)
	}
	entry, errText := parseSlotArgs(args[0], args[1], threadOf(c))
	if errText != "" {
		return reply(c, errText)
	}
	return h.addEntry(ctx, c, entry)
}

func (h *Handlers) continueAddSchedule(ctx context.Context, c telebot.Context, key ConversationKey, d Dialog, text string) error {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return reply(c, msgSlotFormat)
	}
	entry, errText := parseSlotArgs(fields[0], fields[1], d.ThreadID)
	if errText != "" {
		return reply(c, errText)
	}
	h.dialogs.Clear(key)
	return h.addEntry(ctx, c, entry)
}

func (h *Handlers) addEntry(ctx context.Context, c telebot.Context, entry schedule.Entry) error {
	logCtx := h.handlerLogger(c, commandOf(c)).WithField("slot", entry.String())
	err := h.schedules.Add(ctx, c.Chat().ID, entry)
	switch {
	case errors.Is(err, app.ErrDuplicateEntry):
		logCtx.Info("Schedule already exists")
		return reply(c, msgDuplicate)
	case err != nil:
		logCtx.WithError(err).Error("Failed to add schedule")
		return reply(c, msgScheduleError)
	}
	logCtx.Info("Schedule added")
	return reply(c, "Еженедельная отправка добавлена: "+slotText(entry))
}

func (h *Handlers) handleList(ctx context.Context, c telebot.Context) error {
	logCtx := h.handlerLogger(c, "/list")
	logCtx.Info("Command received")

	all, err := h.schedules.List(ctx, c.Chat().ID, nil)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list schedules")
		return reply(c, msgGenericError)
	}
	if len(all) == 0 {
		return reply(c, msgNoSchedules)
	}

	tid := threadOf(c)
	var visible []schedule.Entry
	for _, e := range all {
		if e.InThread(tid) {
			visible = append(visible, e)
		}
	}
	if len(visible) == 0 {
		return reply(c, msgNoSchedulesInTopic)
	}
	return reply(c, formatScheduleList(visible))
}

func (h *Handlers) handleDelete(ctx context.Context, c telebot.Context) error {
	logCtx := h.handlerLogger(c, "/delete")
	logCtx.Info("Command received")
	if ok, err := h.ensureAdmin(c, msgAdminSchedules); !ok {
		return err
	}
	all, err := h.schedules.List(ctx, c.Chat().ID, nil)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list schedules")
		return reply(c, msgGenericError)
	}
	if len(all) == 0 {
		return reply(c, msgNoSchedules)
	}
	h.dialogs.Set(keyOf(c), Dialog{Step: StepDeleteSchedule, ThreadID: threadOf(c)})
	return reply(c, msgDeletePrompt)
}

func (h *Handlers) continueDeleteSchedule(ctx context.Context, c telebot.Context, key ConversationKey, d Dialog, text string) error {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return reply(c, msgSlotFormat)
	}
	entry, errText := parseSlotArgs(fields[0], fields[1], d.ThreadID)
	if errText != "" {
		return reply(c, errText)
	}
	h.dialogs.Clear(key)
	return h.removeEntry(ctx, c, entry)
}

// handleDeleteTime accepts the day and time anywhere in the payload, e.g.
// "/deletetime среда в 12:46".
func (h *Handlers) handleDeleteTime(ctx context.Context, c telebot.Context) error {
	h.handlerLogger(c, "/deletetime").Info("Command received")
	if ok, err := h.ensureAdmin(c, msgAdminSchedules); !ok {
		return err
	}
	payload := strings.ToLower(strings.TrimSpace(c.Message().Payload))
	if payload == "" {
		return reply(c, msgDeleteTimeUsage)
	}

	day := -1
	rest := payload
	for i, name := range schedule.DayNames() {
		if strings.Contains(payload, name) {
			day = i
			rest = strings.TrimSpace(strings.Replace(payload, name, "", 1))
			break
		}
	}
	if day < 0 {
		return reply(c, badDayText()+"\n"+msgDeleteTimeExample)
	}

	m := clockPattern.FindStringSubmatch(rest)
	if m == nil {
		return reply(c, msgBadTime+"\n"+msgDeleteTimeExample)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	entry, err := schedule.NewEntry(day, hour, minute, threadOf(c))
	if err != nil {
		return reply(c, msgBadTimeRange)
	}
	return h.removeEntry(ctx, c, entry)
}

func (h *Handlers) removeEntry(ctx context.Context, c telebot.Context, entry schedule.Entry) error {
	logCtx := h.handlerLogger(c, commandOf(c)).WithField("slot", entry.String())
	err := h.schedules.Remove(ctx, c.Chat().ID, entry)
	switch {
	case errors.Is(err, app.ErrEntryNotFound):
		logCtx.Info("Schedule to delete not found")
		return reply(c, fmt.Sprintf("Отправка %s не найдена", slotText(entry)))
	case err != nil:
		logCtx.WithError(err).Error("Failed to delete schedule")
		return reply(c, msgScheduleDelError)
	}
	logCtx.Info("Schedule deleted")
	return reply(c, "Еженедельная отправка удалена: "+slotText(entry))
}

// handleMeet posts an instant link. The dispatcher reports its own failures
// to the chat.
func (h *Handlers) handleMeet(ctx context.Context, c telebot.Context) error {
	logCtx := h.handlerLogger(c, "/meet")
	logCtx.Info("Command received")
	if err := h.links.PostInstantLink(ctx, c.Chat().ID, threadOf(c)); err != nil {
		logCtx.WithError(err).Error("Instant link failed")
	}
	return nil
}

// parseSlotArgs returns the entry, or the reply explaining what is wrong.
func parseSlotArgs(dayText, clockText string, threadID *int) (schedule.Entry, string) {
	day, err := schedule.ParseDay(dayText)
	if err != nil {
		return schedule.Entry{}, badDayText()
	}
	hour, minute, err := schedule.ParseClock(clockText)
	if err != nil {
		return schedule.Entry{}, msgBadTime
	}
	return schedule.Entry{Day: day, Hour: hour, Minute: minute, ThreadID: threadID}, ""
}

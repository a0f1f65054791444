package telegram

import (
	"fmt"
	"strings"
	"time"

	"meet_link_bot/internal/domain/reminder"
	"meet_link_bot/internal/domain/schedule"

	"gopkg.in/telebot.v3"
)

const (
	msgAddPrompt          = "Укажите день недели и время по Москве в формате \"день ЧЧ:ММ\"\nНапример: среда 12:46"
	msgDeletePrompt       = "Укажите день и время отправки, которую нужно удалить, в формате \"день ЧЧ:ММ\"\nНапример: среда 12:46"
	msgSlotFormat         = "Некорректный формат. Используйте точно формат \"день ЧЧ:ММ\", например: среда 12:46"
	msgBadTime            = "Некорректный формат времени. Используйте ЧЧ:ММ, например 12:46"
	msgBadTimeRange       = "Некорректное время. Часы должны быть от 0 до 23, минуты от 0 до 59."
	msgDuplicate          = "Такое расписание уже существует!"
	msgAddTimeUsage       = "Пожалуйста, укажите день недели и время в формате:\n/addtime день ЧЧ:ММ\nНапример: /addtime среда 12:46"
	msgDeleteTimeUsage    = "Пожалуйста, укажите день и время в формате: /deletetime день ЧЧ:ММ\nНапример: /deletetime среда 12:46"
	msgDeleteTimeExample  = "Например: /deletetime среда 12:46"
	msgNoSchedules        = "У вас нет запланированных еженедельных отправок."
	msgNoSchedulesInTopic = "В этой теме нет запланированных еженедельных отправок."
	msgScheduleError      = "Произошла ошибка при добавлении расписания."
	msgScheduleDelError   = "Произошла ошибка при удалении расписания."

	msgAdminSchedules    = "Только администраторы группы могут управлять расписанием."
	msgAdminAddReminder  = "Только администраторы группы могут создавать напоминания."
	msgAdminDelReminder  = "Только администраторы группы могут удалять напоминания."
	msgAdminCheckFailure = "Произошла ошибка при проверке прав администратора."

	msgReminderTimePrompt = "Укажите время напоминания по Москве в формате \"ДД.ММ.ГГГГ ЧЧ:ММ\"\nНапример: 25.12.2024 15:30"
	msgReminderBadTime    = "Некорректный формат даты и времени.\nИспользуйте формат \"ДД.ММ.ГГГГ ЧЧ:ММ\"\nНапример: 25.12.2024 15:30"
	msgReminderInPast     = "Время напоминания должно быть в будущем. Попробуйте снова."
	msgFrequencyPrompt    = "Выберите периодичность напоминания:"
	msgFrequencyInvalid   = "Пожалуйста, выберите один из предложенных вариантов."
	msgReminderTextPrompt = "Введите текст напоминания:"
	msgReminderEmptyText  = "Текст напоминания не может быть пустым. Попробуйте снова."
	msgReminderError      = "Произошла ошибка при создании напоминания."
	msgNoReminders        = "У вас нет активных напоминаний."
	msgNoRemindersInTopic = "В этой теме нет активных напоминаний."
	msgReminderBadNumber  = "Некорректный номер напоминания. Попробуйте снова или /cancel для отмены."
	msgReminderNotNumber  = "Пожалуйста, введите номер напоминания."
	msgReminderDeleted    = "Напоминание успешно удалено."
	msgReminderDelError   = "Ошибка при удалении напоминания."

	msgCancelled     = "Действие отменено."
	msgNothingCancel = "Нет активного действия для отмены."
	msgPrivateHint   = "Используйте команды меню или /help для справки"
	msgGenericError  = "Произошла ошибка. Попробуйте позже."
	previewRunes     = 50
	reminderTimeZone = "МСК"
)

const helpGroup = "Команды бота в группах:\n\n" +
	"📅 Google Meet:\n" +
	"/meet - получить мгновенную ссылку на встречу\n" +
	"/addtime день ЧЧ:ММ - добавить еженедельную отправку\n" +
	"/list - просмотреть все отправки\n" +
	"/deletetime день ЧЧ:ММ - удалить отправку\n\n" +
	"⏰ Напоминания:\n" +
	"/reminder - создать напоминание\n" +
	"/reminders - просмотреть все напоминания\n" +
	"/deletereminder - удалить напоминание\n\n" +
	"/start - начать работу с ботом\n" +
	"/help - показать эту справку\n\n" +
	"В группах управлять расписанием могут только администраторы."

const helpPrivate = "Команды бота:\n\n" +
	"📅 Google Meet:\n" +
	"/meet - получить мгновенную ссылку на встречу\n" +
	"/add - добавить еженедельную отправку\n" +
	"/list - просмотреть все отправки\n" +
	"/delete - удалить отправку\n\n" +
	"⏰ Напоминания:\n" +
	"/reminder - создать напоминание\n" +
	"/reminders - просмотреть все напоминания\n" +
	"/deletereminder - удалить напоминание\n\n" +
	"/start - начать работу с ботом\n" +
	"/help - показать эту справку"

// Commands is the menu registered with SetCommands.
var Commands = []telebot.Command{
	{Text: "start", Description: "Начать работу с ботом"},
	{Text: "help", Description: "Показать справку"},
	{Text: "add", Description: "Добавить еженедельную отправку"},
	{Text: "addtime", Description: "Добавить отправку в формате: /addtime день ЧЧ:ММ"},
	{Text: "list", Description: "Посмотреть отправки"},
	{Text: "delete", Description: "Удалить отправку"},
	{Text: "deletetime", Description: "Удалить отправку в формате: /deletetime день ЧЧ:ММ"},
	{Text: "meet", Description: "Мгновенная встреча"},
	{Text: "reminder", Description: "Создать напоминание"},
	{Text: "reminders", Description: "Посмотреть напоминания"},
	{Text: "deletereminder", Description: "Удалить напоминание"},
	{Text: "cancel", Description: "Отменить текущее действие"},
}

func greeting(firstName string) string {
	return fmt.Sprintf("Привет, %s! Я бот для создания и отправки ссылок на Google Meet и напоминаний.\n\n"+
		"Используйте команды ниже для управления.", firstName)
}

func badDayText() string {
	return "Некорректный день недели. Используйте: " + strings.Join(schedule.DayNames(), ", ")
}

func slotText(e schedule.Entry) string {
	return schedule.DayName(e.Day) + " " + schedule.FormatClock(e.Hour, e.Minute)
}

func formatScheduleList(entries []schedule.Entry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, slotText(e))
	}
	return "Ваши еженедельные отправки:\n" + strings.Join(lines, "\n")
}

// formatReminderItems numbers reminders from 1 in the given order.
func formatReminderItems(items []reminder.Reminder, loc *time.Location) string {
	parts := make([]string, 0, len(items))
	for i, r := range items {
		parts = append(parts, fmt.Sprintf("%d. %s (%s)\n   Текст: %s",
			i+1, r.DateTime.In(loc).Format(reminder.DateTimeLayout), r.Frequency.Adverb(), r.Preview(previewRunes)))
	}
	return strings.Join(parts, "\n\n")
}

func reminderCreatedText(r reminder.Reminder, loc *time.Location) string {
	return fmt.Sprintf("Напоминание создано!\nВремя: %s %s\nПериодичность: %s",
		r.DateTime.In(loc).Format(reminder.DateTimeLayout), reminderTimeZone, r.Frequency.Button())
}

func mainMenu() *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(
		menu.Row(menu.Text("/add"), menu.Text("/list")),
		menu.Row(menu.Text("/delete"), menu.Text("/meet")),
		menu.Row(menu.Text("/reminder"), menu.Text("/reminders")),
		menu.Row(menu.Text("/help")),
	)
	return menu
}

func frequencyMenu() *telebot.ReplyMarkup {
	labels := reminder.Buttons()
	menu := &telebot.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	var rows []telebot.Row
	for i := 0; i < len(labels); i += 2 {
		row := telebot.Row{menu.Text(labels[i])}
		if i+1 < len(labels) {
			row = append(row, menu.Text(labels[i+1]))
		}
		rows = append(rows, row)
	}
	menu.Reply(rows...)
	return menu
}

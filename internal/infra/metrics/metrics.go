package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meet_link_bot"

var (
	LinksSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "links_sent_total",
		Help:      "Meeting links delivered to chats.",
	}, []string{"kind"})

	LinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "link_failures_total",
		Help:      "Link deliveries that failed after all retries.",
	}, []string{"kind"})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_sent_total",
		Help:      "Reminder messages delivered.",
	})

	ReminderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminder_failures_total",
		Help:      "Reminder deliveries that failed after all retries.",
	})

	ActiveTriggers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_triggers",
		Help:      "Armed triggers by kind.",
	}, []string{"kind"})

	Reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reloads_total",
		Help:      "Full reloads from the store, by kind and result.",
	}, []string{"kind", "result"})

	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Bot commands received, by command.",
	}, []string{"command"})
)

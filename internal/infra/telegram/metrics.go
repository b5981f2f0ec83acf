package telegram

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commandsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "telegram_commands_total",
		Help: "Total number of bot commands received, by outcome",
	},
	[]string{"command", "outcome"}, // outcome: ok|no_news|bad_request|error|denied|unknown
)

func recordCommand(command, outcome string) {
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

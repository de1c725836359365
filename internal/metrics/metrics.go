// Package metrics holds the prometheus collectors of the bot.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	flowSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnstore_flow_steps_total",
			Help: "Conversation steps handled per flow and phase.",
		},
		[]string{"flow", "phase"},
	)

	flowExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnstore_flow_expired_total",
			Help: "Conversations removed by their idle timer.",
		},
		[]string{"flow"},
	)

	purchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnstore_purchases_total",
			Help: "Purchases by protocol, action and result.",
		},
		[]string{"protocol", "action", "result"},
	)

	purchaseRevenue = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vpnstore_purchase_revenue_total",
			Help: "Sum of completed purchase totals.",
		},
	)

	deposits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnstore_deposits_total",
			Help: "Deposit transitions by method and resulting status.",
		},
		[]string{"method", "status"},
	)

	broadcastMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnstore_broadcast_messages_total",
			Help: "Broadcast deliveries by result (sent/failed).",
		},
		[]string{"result"},
	)

	backups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnstore_backups_total",
			Help: "Backup operations by kind and result.",
		},
		[]string{"op", "result"},
	)

	webhooks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnstore_webhook_requests_total",
			Help: "Payment webhook calls by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpnstore_active_sessions",
			Help: "Conversations currently in progress.",
		},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			flowSteps, flowExpired,
			purchases, purchaseRevenue,
			deposits, broadcastMessages, backups,
			webhooks, activeSessions,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func result(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}

// -------- Conversation helpers --------

func IncFlowStep(flow, phase string) {
	flowSteps.WithLabelValues(norm(flow), norm(phase)).Inc()
}

func IncFlowExpired(flow string) {
	flowExpired.WithLabelValues(norm(flow)).Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// -------- Commerce helpers --------

func ObservePurchase(protocol, action string, total int64, err error) {
	purchases.WithLabelValues(norm(protocol), norm(action), result(err)).Inc()
	if err == nil {
		purchaseRevenue.Add(float64(total))
	}
}

func IncDeposit(method, status string) {
	deposits.WithLabelValues(norm(method), norm(status)).Inc()
}

func IncWebhook(source, outcome string) {
	webhooks.WithLabelValues(norm(source), norm(outcome)).Inc()
}

// -------- Admin helpers --------

func AddBroadcast(sent, failed int) {
	broadcastMessages.WithLabelValues("sent").Add(float64(sent))
	broadcastMessages.WithLabelValues("failed").Add(float64(failed))
}

func ObserveBackup(op string, err error) {
	backups.WithLabelValues(norm(op), result(err)).Inc()
}

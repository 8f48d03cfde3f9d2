// Package metrics exposes Prometheus counters for the audit-chain,
// evidence, and case subsystems. Registered against the default registerer
// at package init, scraped via handlers.Server.Metrics.
//
// Import path: aibos-vmp/core/internal/pkg/metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChainEntriesAppended counts successful chain.LogEvent appends.
	ChainEntriesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vmp_chain_entries_appended_total",
		Help: "Audit chain entries appended via chain.LogEvent.",
	})

	// EvidenceUploads counts successful evidence uploads, by evidence type.
	EvidenceUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vmp_evidence_uploads_total",
		Help: "Evidence files uploaded, labeled by evidence type.",
	}, []string{"evidence_type"})

	// CasesCreated counts cases opened, by case type.
	CasesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vmp_cases_created_total",
		Help: "Cases created, labeled by case type.",
	}, []string{"case_type"})

	// NotificationsSent counts in-app notifications delivered, by type.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vmp_notifications_sent_total",
		Help: "In-app notifications sent, labeled by notification type.",
	}, []string{"type"})
)

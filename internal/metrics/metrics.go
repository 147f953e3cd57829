package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Detection metrics
var (
	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gir_raid_verdicts_total",
		Help: "Total number of raid verdicts by kind",
	}, []string{"verdict"})

	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gir_raid_alerts_total",
		Help: "Raid alerts sent or suppressed by the cooldown",
	}, []string{"outcome"})

	ReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gir_reports_total",
		Help: "Moderator reports sent by kind",
	}, []string{"kind"})
)

// Enforcement metrics
var (
	BansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gir_raid_bans_total",
		Help: "Members banned by the raid monitor by reason",
	}, []string{"reason"})

	BanFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gir_raid_ban_failures_total",
		Help: "Ban attempts that failed at the platform",
	})

	MutesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gir_raid_mutes_total",
		Help: "Members timed out for spam",
	})
)

// AuditEntriesTotal counts audit rows by level, fed by the audit notifier.
var AuditEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gir_audit_entries_total",
	Help: "Audit log entries written by level",
}, []string{"level"})

// Lockdown metrics
var (
	ChannelsFrozenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gir_channels_frozen_total",
		Help: "Channels locked by freeze",
	})

	ChannelsUnfrozenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gir_channels_unfrozen_total",
		Help: "Channels unlocked by unfreeze",
	})
)

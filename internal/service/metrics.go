package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── 组员编辑 Prometheus 指标 ──

var (
	// crewCommits 提交结果计数
	// Labels: outcome (committed, aborted, stale, failed)
	crewCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaklub",
		Subsystem: "crew",
		Name:      "commits_total",
		Help:      "Total crew commits by outcome",
	}, []string{"outcome"})

	// crewConflictOverrides 确认冲突后仍提交或添加的次数
	// Labels: stage (add, commit)
	crewConflictOverrides = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaklub",
		Subsystem: "crew",
		Name:      "conflict_overrides_total",
		Help:      "Total confirmed conflict overrides",
	}, []string{"stage"})

	// crewMutations 草稿修改次数
	// Labels: op (add, remove, change_role), result (ok, ignored, unconfirmed, error)
	crewMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaklub",
		Subsystem: "crew",
		Name:      "mutations_total",
		Help:      "Total draft mutations",
	}, []string{"op", "result"})

	// crewEditSessions 当前活跃的编辑会话数
	crewEditSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediaklub",
		Subsystem: "crew",
		Name:      "edit_sessions",
		Help:      "Number of open editor sessions",
	})
)

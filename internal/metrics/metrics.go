// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package metrics exposes Prometheus instrumentation for the realtime
// layer: dispatched messages by action, silently dropped unknown actions,
// channel reconnects, hello replays, and queue evictions. The registry is
// served by the web-control surface at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors registered for one bridge instance.
// Constructing against an explicit registry keeps tests independent.
type Metrics struct {
	Registry *prometheus.Registry

	MessagesDispatched *prometheus.CounterVec
	UnknownActions     prometheus.Counter
	Reconnects         *prometheus.CounterVec
	HelloReplays       *prometheus.CounterVec
	QueueEvictions     *prometheus.CounterVec
	ReadyState         *prometheus.GaugeVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		MessagesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kioskbridge",
			Name:      "messages_dispatched_total",
			Help:      "Push messages routed to a store, by action.",
		}, []string{"action"}),
		UnknownActions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kioskbridge",
			Name:      "unknown_actions_total",
			Help:      "Push messages dropped because their action was not recognized.",
		}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kioskbridge",
			Name:      "channel_reconnects_total",
			Help:      "Transport reconnection attempts, by channel.",
		}, []string{"channel"}),
		HelloReplays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kioskbridge",
			Name:      "hello_replays_total",
			Help:      "Hello message replays after a transition to the open state, by channel.",
		}, []string{"channel"}),
		QueueEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kioskbridge",
			Name:      "queue_evictions_total",
			Help:      "Entries dropped from bounded queues, by queue.",
		}, []string{"queue"}),
		ReadyState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kioskbridge",
			Name:      "channel_ready_state",
			Help:      "Current ready state per channel (0 connecting, 1 open, 2 closing, 3 closed).",
		}, []string{"channel"}),
	}

	reg.MustRegister(
		m.MessagesDispatched,
		m.UnknownActions,
		m.Reconnects,
		m.HelloReplays,
		m.QueueEvictions,
		m.ReadyState,
	)
	return m
}

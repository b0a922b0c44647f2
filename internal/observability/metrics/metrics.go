package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "panikkar"

// FlowMetrics exposes counters for conversation flows and outbound messaging.
// It implements chat.Observer and the WhatsApp bot's outbound observer.
type FlowMetrics struct {
	messagesTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	completionsTotal *prometheus.CounterVec
	failuresTotal    *prometheus.CounterVec
	outboundTotal    *prometheus.CounterVec
}

func NewFlowMetrics(reg prometheus.Registerer) *FlowMetrics {
	m := &FlowMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "messages_total",
			Help:      "Inbound messages by flow and outcome",
		}, []string{"flow", "outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "transitions_total",
			Help:      "Step transitions by flow and target step",
		}, []string{"flow", "to"}),
		completionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "completions_total",
			Help:      "Completed flow runs",
		}, []string{"flow"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "failures_total",
			Help:      "Business failures and refused transitions by flow",
		}, []string{"flow", "kind"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Outbound WhatsApp sends by message kind and status",
		}, []string{"kind", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.transitionsTotal, m.completionsTotal, m.failuresTotal, m.outboundTotal)
	return m
}

func flowLabel(flow string) string {
	if flow == "" {
		return "idle"
	}
	return flow
}

func (m *FlowMetrics) ObserveMessage(flow, outcome string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(flowLabel(flow), outcome).Inc()
}

func (m *FlowMetrics) ObserveTransition(flow, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(flowLabel(flow), to).Inc()
}

func (m *FlowMetrics) ObserveCompletion(flow string) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(flowLabel(flow)).Inc()
}

func (m *FlowMetrics) ObserveFailure(flow, kind string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(flowLabel(flow), kind).Inc()
}

func (m *FlowMetrics) ObserveOutbound(kind, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

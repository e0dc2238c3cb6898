// Package metrics exposes operational counters for the runtime via
// Prometheus. All methods are nil-safe so instrumented code can run without
// a metrics instance.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the runtime's counters.
type Metrics struct {
	messagesRouted prometheus.Counter
	toolExecutions *prometheus.CounterVec
	modelCalls     *prometheus.CounterVec
	agentTasks     *prometheus.CounterVec
	livenessFaults prometheus.Counter
}

// New creates and registers the runtime counters. Registering twice on the
// same registerer panics, as usual with Prometheus collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messagesRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "actormesh",
			Name:      "messages_routed_total",
			Help:      "Messages delivered through the router.",
		}),
		toolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actormesh",
			Name:      "tool_executions_total",
			Help:      "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actormesh",
			Name:      "model_calls_total",
			Help:      "Language model calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		agentTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actormesh",
			Name:      "agent_tasks_total",
			Help:      "Completed agent tasks by agent and outcome.",
		}, []string{"agent", "outcome"}),
		livenessFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "actormesh",
			Name:      "liveness_faults_total",
			Help:      "Actors declared dead by the health monitor.",
		}),
	}
	reg.MustRegister(m.messagesRouted, m.toolExecutions, m.modelCalls, m.agentTasks, m.livenessFaults)
	return m
}

// MessageRouted counts one delivered message.
func (m *Metrics) MessageRouted() {
	if m == nil {
		return
	}
	m.messagesRouted.Inc()
}

// ToolExecuted counts one completed tool execution.
func (m *Metrics) ToolExecuted(tool string, success bool) {
	if m == nil {
		return
	}
	m.toolExecutions.WithLabelValues(tool, outcome(success)).Inc()
}

// ModelCalled counts one language model call.
func (m *Metrics) ModelCalled(provider string, success bool) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(provider, outcome(success)).Inc()
}

// AgentTaskCompleted counts one terminated agent task.
func (m *Metrics) AgentTaskCompleted(agent string, success bool) {
	if m == nil {
		return
	}
	m.agentTasks.WithLabelValues(agent, outcome(success)).Inc()
}

// LivenessFault counts one actor death.
func (m *Metrics) LivenessFault() {
	if m == nil {
		return
	}
	m.livenessFaults.Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

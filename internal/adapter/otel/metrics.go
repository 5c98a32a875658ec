package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "taskpilot"

// Metrics holds all chat pipeline metric instruments.
type Metrics struct {
	ChatRequests metric.Int64Counter
	ChatFailures metric.Int64Counter
	ToolCalls    metric.Int64Counter
	ChatDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ChatRequests, err = meter.Int64Counter("taskpilot.chat.requests",
		metric.WithDescription("Number of chat turns handled"))
	if err != nil {
		return nil, err
	}

	m.ChatFailures, err = meter.Int64Counter("taskpilot.chat.failures",
		metric.WithDescription("Number of chat turns that ended in an error"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("taskpilot.toolcalls",
		metric.WithDescription("Number of task tool invocations by the agent"))
	if err != nil {
		return nil, err
	}

	m.ChatDuration, err = meter.Float64Histogram("taskpilot.chat.duration_seconds",
		metric.WithDescription("End-to-end chat turn duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

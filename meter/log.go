package meter

import (
	"log/slog"

	"github.com/fableforge/storyforge"
)

// LogMeter logs routing events using slog.
type LogMeter struct {
	Logger *slog.Logger
}

var _ storyforge.Meter = (*LogMeter)(nil)

// NewLogMeter creates a LogMeter with the given logger.
// If logger is nil, slog.Default() is used.
func NewLogMeter(logger *slog.Logger) *LogMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMeter{Logger: logger}
}

func (m *LogMeter) OnRoute(e storyforge.RouteEvent) {
	m.Logger.Info("route",
		"provider", e.Provider,
		"kind", string(e.Kind),
		"strategy", e.Strategy,
		"reasoning", e.Reasoning,
		"attempt", e.AttemptNum,
		"units", e.Units,
		"estimated_cost", e.EstimatedCost,
	)
}

func (m *LogMeter) OnResult(e storyforge.ResultEvent) {
	if e.Success {
		m.Logger.Info("result",
			"provider", e.Provider,
			"kind", string(e.Kind),
			"strategy", e.Strategy,
			"failed_over", e.FailedOver,
			"duration_ms", e.Duration.Milliseconds(),
			"cost", e.Cost,
		)
	} else {
		m.Logger.Warn("result_error",
			"provider", e.Provider,
			"kind", string(e.Kind),
			"strategy", e.Strategy,
			"duration_ms", e.Duration.Milliseconds(),
			"error", e.Error,
		)
	}
}

package meter

import "github.com/fableforge/storyforge"

// NoopMeter is a meter that does nothing.
type NoopMeter struct{}

var _ storyforge.Meter = (*NoopMeter)(nil)

func (m *NoopMeter) OnRoute(storyforge.RouteEvent)   {}
func (m *NoopMeter) OnResult(storyforge.ResultEvent) {}

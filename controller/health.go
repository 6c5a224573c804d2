package controller

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gluonch/carrot2/health"
)

// Health reports the controller state with one sub-status per pooled
// component. A component with no idle instances and at least as many
// borrowed instances as the idle capacity is reported as degraded.
func (c *Controller) Health() health.Status {
	stats := c.pool.Stats()

	subs := make([]health.Status, 0, len(stats))
	for _, id := range slices.Sorted(maps.Keys(stats)) {
		s := stats[id]
		message := fmt.Sprintf("idle=%d active=%d created=%d discarded=%d", s.Idle, s.Active, s.Created, s.Discarded)
		if s.Active > 0 && s.Idle == 0 && s.Active >= c.pool.MaxIdle() {
			subs = append(subs, health.NewDegraded(id, message))
			continue
		}
		subs = append(subs, health.NewHealthy(id, message))
	}

	status := health.Aggregate("controller", subs)
	status.Message = fmt.Sprintf("%s; processes=%d factories=%d autoload=%t",
		status.Message, len(c.ProcessIDs()), len(c.registry.IDs()), c.Autoload())
	return status
}

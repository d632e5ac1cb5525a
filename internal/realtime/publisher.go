package realtime

import (
	"time"

	"go.uber.org/zap"

	"github.com/aegisshield/case-dashboard/internal/analytics"
	"github.com/aegisshield/case-dashboard/internal/workingset"
)

// StatsUpdate is pushed on the stats topic after every refresh
type StatsUpdate struct {
	Stats     analytics.GlobalStats `json:"stats"`
	ThisMonth int                   `json:"this_month"`
	Records   int                   `json:"records"`
	FetchedAt time.Time             `json:"fetched_at"`
	FromCache bool                  `json:"from_cache"`
}

// PublishSnapshot broadcasts the headline counters of a fresh working set.
// It has the workingset.Listener signature.
func (h *Hub) PublishSnapshot(snapshot workingset.Snapshot) {
	now := time.Now().In(h.loc)

	update := StatsUpdate{
		Stats:     analytics.ComputeGlobalStats(snapshot.Records),
		ThisMonth: analytics.ThisMonthCount(snapshot.Records, now),
		Records:   len(snapshot.Records),
		FetchedAt: snapshot.FetchedAt,
		FromCache: snapshot.FromCache,
	}

	if err := h.BroadcastToTopic(TopicStats, update); err != nil {
		h.logger.Warn("Failed to publish stats", zap.Error(err))
	}
	if err := h.BroadcastToTopic(TopicRefresh, map[string]interface{}{
		"records":    update.Records,
		"fetched_at": update.FetchedAt,
	}); err != nil {
		h.logger.Warn("Failed to publish refresh notice", zap.Error(err))
	}
}

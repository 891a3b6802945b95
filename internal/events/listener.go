package events

import (
	"context"
	"encoding/json"
	"log/slog"
)

// RebuildFunc handles one rebuild request.
type RebuildFunc func(ctx context.Context, req RebuildRequested) error

// ListenRebuildRequests calls fn for every request on TopicRebuildRequested
// until ctx is done. A payload that does not decode is served as a request
// from "nats"; errors from fn are logged.
func ListenRebuildRequests(ctx context.Context, sub Subscriber, fn RebuildFunc, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	unsubscribe, err := sub.Subscribe(TopicRebuildRequested, func(data []byte) {
		if ctx.Err() != nil {
			return
		}
		var req RebuildRequested
		if err := json.Unmarshal(data, &req); err != nil {
			logger.Warn("malformed rebuild request", "err", err)
		}
		if req.RequestedBy == "" {
			req.RequestedBy = "nats"
		}
		if err := fn(ctx, req); err != nil {
			logger.Warn("rebuild request not served", "requested_by", req.RequestedBy, "err", err)
		}
	})
	if err != nil {
		return err
	}
	context.AfterFunc(ctx, unsubscribe)
	return nil
}

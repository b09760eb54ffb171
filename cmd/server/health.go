package main

import (
	"context"
	"net/http"
	"time"

	"proctor/internal/platform/kafka"
	"proctor/pkg/platform/httputil"
)

const healthTimeout = 2 * time.Second

type sessionCounter interface {
	ActiveCount() int
}

type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// health reports 503 when any configured backing service is unreachable.
type health struct {
	sessions sessionCounter
	checks   []healthCheck
}

func newHealth(sessions sessionCounter, deps *infra) *health {
	h := &health{sessions: sessions}
	if deps == nil {
		return h
	}
	if deps.db != nil {
		h.checks = append(h.checks, healthCheck{"postgres", deps.db.PingContext})
	}
	if deps.redis != nil {
		h.checks = append(h.checks, healthCheck{"redis", deps.redis.Health})
	}
	if deps.kafka != nil {
		client := deps.kafka
		h.checks = append(h.checks, healthCheck{"kafka", func(ctx context.Context) error {
			return kafka.Health(ctx, client)
		}})
	}
	return h
}

type healthResponse struct {
	Status         string            `json:"status"`
	ActiveSessions int               `json:"active_sessions"`
	Checks         map[string]string `json:"checks,omitempty"`
}

func (h *health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", ActiveSessions: h.sessions.ActiveCount()}
	status := http.StatusOK
	for _, c := range h.checks {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(h.checks))
		}
		if err := c.check(ctx); err != nil {
			resp.Checks[c.name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}

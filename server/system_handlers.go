package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const healthPingTimeout = 2 * time.Second

type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	StoreReachable bool   `json:"store_reachable"`
}

// Health reports the version and whether the store answers a ping.
func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		resp := HealthResponse{Status: "ok", Version: s.version, StoreReachable: true}
		if err := s.store.Ping(ctx); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("store ping failed")
			resp.Status = "degraded"
			resp.StoreReachable = false
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, resp)
	}
}

// Package api 是推荐引擎的 HTTP 适配层。
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rushteam/svcrec/pkg/logging"
	"github.com/rushteam/svcrec/recommender"
)

type Handler struct {
	engine *recommender.Engine
	// neighbors POST /train 使用的 k
	neighbors int
	log       zerolog.Logger
}

func NewHandler(engine *recommender.Engine, neighbors int) *Handler {
	return &Handler{
		engine:    engine,
		neighbors: neighbors,
		log:       logging.Component("http"),
	}
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoverMiddleware)
	r.Use(h.loggingMiddleware)

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/train", h.train)
	r.Get("/recommend/{userID}", h.recommend)
	r.Get("/popular", h.popular)
	r.Get("/evaluate", h.evaluate)

	r.Post("/rules/mine", h.mineRules)
	r.Get("/recommendations", h.related)
	return r
}

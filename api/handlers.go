package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/rushteam/svcrec/core"
)

type serviceView struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

func toViews(services []core.Service) []serviceView {
	out := make([]serviceView, 0, len(services))
	for i := range services {
		out = append(out, serviceView{
			ID:       services[i].ID,
			Title:    services[i].Title,
			Category: services[i].CategoryID,
		})
	}
	return out
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Status())
}

func (h *Handler) train(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Train(r.Context(), h.neighbors); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Model trained successfully!"})
}

func (h *Handler) recommend(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	n, err := intQuery(r, "n")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	services, err := h.engine.RecommendForUser(r.Context(), userID, n)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toViews(services))
}

func (h *Handler) popular(w http.ResponseWriter, r *http.Request) {
	n, err := intQuery(r, "n")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	services, err := h.engine.PopularServices(r.Context(), n)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toViews(services))
}

// evaluate 抽样前 users 个用户计算 Precision@k，默认 10 个用户、k=5。
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	users, err := intQuery(r, "users")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	k, err := intQuery(r, "k")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if k <= 0 {
		k = 5
	}
	score, err := h.engine.EvaluateSample(r.Context(), users, k)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"precision@" + strconv.Itoa(k): score})
}

func (h *Handler) mineRules(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.MineAssociationRules(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) related(w http.ResponseWriter, r *http.Request) {
	service := strings.TrimSpace(r.URL.Query().Get("service"))
	if service == "" {
		writeError(w, http.StatusBadRequest, "Missing `service` query parameter")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":         service,
		"recommendations": h.engine.RelatedItems(service),
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotTrained):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

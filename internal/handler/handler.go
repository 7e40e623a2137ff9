// Package handler содержит HTTP-обработчики инспекционного API конвейера.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/lottery-pipeline/internal/middleware"
	"github.com/mmeshcher/lottery-pipeline/internal/model"
	"github.com/mmeshcher/lottery-pipeline/internal/repository"
	"github.com/mmeshcher/lottery-pipeline/internal/state"
)

// Repository определяет контракт чтения данных игроков.
type Repository interface {
	GetPlayer(ctx context.Context, mobile string) (*model.Player, error)
	GetPlayerMetrics(ctx context.Context, mobile string) ([]model.MetricEntry, error)
}

// StatusProvider определяет контракт получения сводки состояния конвейера.
type StatusProvider interface {
	Snapshot() state.Snapshot
}

// Handler реализует HTTP-обработчики инспекционного API.
type Handler struct {
	repo   Repository
	status StatusProvider
	logger *zap.Logger
	auth   *middleware.APIKeyMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(repo Repository, status StatusProvider, logger *zap.Logger, auth *middleware.APIKeyMiddleware) *Handler {
	return &Handler{
		repo:   repo,
		status: status,
		logger: logger,
		auth:   auth,
	}
}

type playerResponse struct {
	Mobile             string `json:"mobile"`
	LastName           string `json:"last_name"`
	OtherNames         string `json:"other_names"`
	PromotionalConsent string `json:"promotional_consent"`
	CreatedAt          string `json:"created_at"`
}

// GetPlayer возвращает запись игрока по номеру телефона.
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	mobile := chi.URLParam(r, "mobile")

	p, err := h.repo.GetPlayer(r.Context(), mobile)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get player error", zap.Error(err), zap.String("mobile", mobile))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := playerResponse{
		Mobile:             p.Mobile,
		LastName:           p.LastName,
		OtherNames:         p.OtherNames,
		PromotionalConsent: p.PromotionalConsent,
		CreatedAt:          p.CreatedAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type metricResponse struct {
	DrawNumber   int    `json:"draw_number"`
	TicketsCount int    `json:"tickets_count"`
	EScore       int    `json:"e_score"`
	Segment      string `json:"segment"`
	Gear         int    `json:"gear"`
	UpdatedAt    string `json:"updated_at"`
}

// GetPlayerMetrics возвращает записи метрик игрока.
func (h *Handler) GetPlayerMetrics(w http.ResponseWriter, r *http.Request) {
	mobile := chi.URLParam(r, "mobile")

	metrics, err := h.repo.GetPlayerMetrics(r.Context(), mobile)
	if err != nil {
		h.logger.Error("get player metrics error", zap.Error(err), zap.String("mobile", mobile))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(metrics) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]metricResponse, 0, len(metrics))
	for _, m := range metrics {
		resp = append(resp, metricResponse{
			DrawNumber:   m.DrawNumber,
			TicketsCount: m.TicketsCount,
			EScore:       m.EScore,
			Segment:      string(m.Segment),
			Gear:         m.Gear,
			UpdatedAt:    m.UpdatedAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// GetStatus возвращает сводку текущего состояния конвейера.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.status.Snapshot()); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

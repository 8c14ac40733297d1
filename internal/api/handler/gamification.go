package handler

import (
	"net/http"

	"github.com/lucasmontegu/outly/internal/api/models"
	"github.com/lucasmontegu/outly/internal/api/response"
	"github.com/lucasmontegu/outly/internal/gamification"
)

// GamificationHandler handles stats and badge endpoints.
type GamificationHandler struct {
	game *gamification.Service
}

// NewGamificationHandler creates a new GamificationHandler.
func NewGamificationHandler(game *gamification.Service) *GamificationHandler {
	return &GamificationHandler{game: game}
}

// GetMyStats handles GET /v1/me/stats - the caller's ledger.
func (h *GamificationHandler) GetMyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.game.GetStats(r.Context(), GetUserID(r.Context()))
	if err != nil {
		response.InternalError(w, r, "failed to load stats")
		return
	}

	response.JSON(w, r, http.StatusOK, models.UserStats{
		TotalPoints:         stats.TotalPoints,
		Level:               stats.Level,
		TotalVotes:          stats.TotalVotes,
		CorrectVotes:        stats.CorrectVotes,
		AccuracyPercent:     stats.AccuracyPercent,
		CurrentStreak:       stats.CurrentStreak,
		LongestStreak:       stats.LongestStreak,
		VotesThisWeek:       stats.VotesThisWeek,
		WeatherVotes:        stats.WeatherVotes,
		TrafficVotes:        stats.TrafficVotes,
		FirstResponderCount: stats.FirstResponderCount,
		PercentileRank:      stats.PercentileRank,
		LastVoteDate:        stats.LastVoteDate,
	})
}

// GetMyBadges handles GET /v1/me/badges - badges the caller has earned.
func (h *GamificationHandler) GetMyBadges(w http.ResponseWriter, r *http.Request) {
	earned, err := h.game.GetBadges(r.Context(), GetUserID(r.Context()))
	if err != nil {
		response.InternalError(w, r, "failed to load badges")
		return
	}

	list := models.EarnedBadgeList{Items: make([]models.EarnedBadge, 0, len(earned))}
	for _, e := range earned {
		list.Items = append(list.Items, models.EarnedBadge{
			Badge:    toAPIBadge(e.Badge),
			EarnedAt: models.Timestamp(e.EarnedAt),
		})
	}
	response.JSON(w, r, http.StatusOK, list)
}

// ListBadges handles GET /v1/badges - the public badge catalog.
func (h *GamificationHandler) ListBadges(w http.ResponseWriter, r *http.Request) {
	catalog := h.game.AllBadges()

	list := models.BadgeCatalog{Items: make([]models.Badge, 0, len(catalog))}
	for _, b := range catalog {
		list.Items = append(list.Items, toAPIBadge(b))
	}
	response.JSON(w, r, http.StatusOK, list)
}

func toAPIBadge(b gamification.Badge) models.Badge {
	return models.Badge{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		BonusPoints: b.BonusPoints,
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"tablesafe/backend/internal/consent"
	"tablesafe/backend/internal/hub"
	"tablesafe/backend/internal/models"
	"tablesafe/backend/internal/store"

	"github.com/gin-gonic/gin"
)

const eventKeepAlive = 25 * time.Second

// AggregateResponse is the DM's view of the table's combined comfort levels.
// Report is empty until CanDisclose is true.
type AggregateResponse struct {
	GameID                uint             `json:"game_id" example:"1"`
	CanDisclose           bool             `json:"can_disclose"`
	MeetsMinimumThreshold bool             `json:"meets_minimum_threshold"`
	Progress              consent.Progress `json:"progress"`
	Report                consent.Report   `json:"report" swaggertype:"object"`
}

// ActivityResponse is one entry of a game's audit log.
type ActivityResponse struct {
	ID        uint                 `json:"id" example:"1"`
	Type      models.GameEventType `json:"type" example:"form_shared"`
	UserID    *uint                `json:"user_id,omitempty" example:"2"`
	Payload   json.RawMessage      `json:"payload" swaggertype:"object"`
	CreatedAt time.Time            `json:"created_at"`
}

// gameFromContext returns the game loaded by GameDMMiddleware.
func gameFromContext(c *gin.Context) *models.Game {
	game, _ := c.MustGet("game").(*models.Game)
	return game
}

// GetAggregate godoc
// @Summary      Get the aggregated consent report
// @Description  Combines every shared form into per-topic verdicts. The report stays empty until every joined player has shared and the minimum is met. DM only.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Game ID"
// @Success      200  {object}  AggregateResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse "Storage unavailable, retry"
// @Router       /games/{id}/aggregate [get]
func GetAggregate(c *gin.Context) {
	game := gameFromContext(c)

	// The gate is re-evaluated from a fresh snapshot on every request.
	_, snap, err := dataStore().LoadSnapshot(c.Request.Context(), game.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
			return
		}
		log.Printf("aggregate: load snapshot for game %d: %v", game.ID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Consent data is temporarily unavailable, please retry"})
		return
	}

	result := consent.Evaluate(snap)
	c.JSON(http.StatusOK, AggregateResponse{
		GameID:                game.ID,
		CanDisclose:           result.CanDisclose,
		MeetsMinimumThreshold: result.MeetsMinimumThreshold,
		Progress:              result.Progress,
		Report:                result.Report,
	})
}

// StreamGameEvents godoc
// @Summary      Stream roster progress
// @Description  Server-sent events for joins, shares and departures. Events carry share progress only. DM only.
// @Tags         games
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id   path      int  true  "Game ID"
// @Success      200  {string}  string "event stream"
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /games/{id}/events [get]
func StreamGameEvents(c *gin.Context) {
	game := gameFromContext(c)
	ctx := c.Request.Context()

	_, snap, err := dataStore().LoadSnapshot(ctx, game.ID)
	if err != nil {
		respondStoreError(c, err, "Game not found")
		return
	}
	initial, err := json.Marshal(hub.Event{
		Type:    "progress",
		Payload: gin.H{"progress": consent.ShareProgress(snap.Roster, snap.MinimumPlayers)},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode progress"})
		return
	}

	client := make(hub.Client, 16)
	hub.GlobalHub.Subscribe(game.ID, client)
	defer hub.GlobalHub.Unsubscribe(game.ID, client)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("roster", string(initial))
	c.Writer.Flush()

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("roster", string(msg))
			return true
		case <-ticker.C:
			c.SSEvent("ping", "")
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// GetGameActivity godoc
// @Summary      Get a game's activity log
// @Description  Joins, invites, shares and departures, newest first. Entries carry share progress, never ratings. DM only.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int  true   "Game ID"
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page" default(10)
// @Success      200   {object}  PaginatedResponse[ActivityResponse]
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /games/{id}/activity [get]
func GetGameActivity(c *gin.Context) {
	game := gameFromContext(c)
	page, limit := pageParams(c)

	events, total, err := dataStore().ListEvents(c.Request.Context(), game.ID, page, limit)
	if err != nil {
		respondStoreError(c, err, "Game not found")
		return
	}

	activity := make([]ActivityResponse, 0, len(events))
	for _, e := range events {
		activity = append(activity, ActivityResponse{
			ID:        e.ID,
			Type:      e.Type,
			UserID:    e.UserID,
			Payload:   json.RawMessage(e.Payload),
			CreatedAt: e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(activity, total, page, limit))
}

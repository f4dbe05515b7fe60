package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"tablesafe/backend/internal/cache"
	"tablesafe/backend/internal/database"
	"tablesafe/backend/internal/hub"
	"tablesafe/backend/internal/store"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// MessageResponse represents a plain confirmation.
type MessageResponse struct {
	Message string `json:"message" example:"Done"`
}

var joinLimiter cache.JoinLimiter = cache.NewNoopJoinLimiter()

// SetJoinLimiter replaces the limiter used by JoinGame.
func SetJoinLimiter(l cache.JoinLimiter) {
	joinLimiter = l
}

func dataStore() *store.Store {
	return store.New(database.DB)
}

// currentUserID returns the principal set by AuthMiddleware.
func currentUserID(c *gin.Context) uint {
	userID, _ := c.Get("userID")
	id, _ := userID.(uint)
	return id
}

// optionalUserID returns the principal set by OptionalAuthMiddleware, if any.
func optionalUserID(c *gin.Context) (uint, bool) {
	userID, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

func parseID(c *gin.Context, param, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID"})
		return 0, false
	}
	return uint(id), true
}

// respondStoreError maps store sentinels to HTTP statuses. Anything unrecognized is
// treated as a transient storage failure.
func respondStoreError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, store.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this resource"})
	case errors.Is(err, store.ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this game"})
	case errors.Is(err, store.ErrOwnGame):
		c.JSON(http.StatusBadRequest, gin.H{"error": "You are the DM of this game"})
	case errors.Is(err, store.ErrGameClosed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "This game is not accepting players"})
	case errors.Is(err, store.ErrDuplicateTopic):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Resource already exists"})
	default:
		log.Printf("store error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage is temporarily unavailable, please retry"})
	}
}

// publish forwards a committed roster change to the game's live subscribers.
func publish(change *store.RosterChange) {
	if change == nil || !change.Changed {
		return
	}
	hub.GlobalHub.Broadcast(change.GameID, hub.Event{
		Type:    string(change.Event),
		Payload: gin.H{"progress": change.Progress},
	})
}

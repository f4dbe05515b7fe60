package auth

import (
	"errors"
	"net/http"
	"strconv"

	"tablesafe/backend/internal/database"
	"tablesafe/backend/internal/store"

	"github.com/gin-gonic/gin"
)

// GameDMMiddleware loads the game named by the :id path parameter and allows the request
// only if the caller is its DM. The game is stored under "game".
// It must be used AFTER the standard AuthMiddleware.
func GameDMMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			// This should not happen if AuthMiddleware is used before it
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		gameID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid game ID"})
			return
		}

		game, err := store.New(database.DB).GetGame(c.Request.Context(), uint(gameID))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Game not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Game is temporarily unavailable"})
			return
		}

		if game.DMUserID != userID.(uint) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Only the DM can access this game"})
			return
		}

		c.Set("game", game)
		c.Next()
	}
}

package handler

import (
	"tablesafe/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the /api/v1 routes on router.
func RegisterRoutes(router *gin.Engine) {
	RegisterValidators()

	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", RegisterUser)
			authRoutes.POST("/login", LoginUser)
		}

		apiV1.GET("/topics", GetTopics)

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("/me", GetMe)
		}

		// Consent form routes (owner only)
		formRoutes := apiV1.Group("/consent-forms")
		formRoutes.Use(auth.AuthMiddleware())
		{
			formRoutes.GET("", ListConsentForms)
			formRoutes.POST("", CreateConsentForm)
			formRoutes.GET("/:id", GetConsentForm)
			formRoutes.PUT("/:id", UpdateConsentForm)
			formRoutes.DELETE("/:id", DeleteConsentForm)
		}

		// Public routes (optional auth)
		publicRoutes := apiV1.Group("/public")
		publicRoutes.Use(auth.OptionalAuthMiddleware())
		{
			publicRoutes.GET("/u/:username", GetPublicProfile)
			publicRoutes.GET("/u/:username/consent-forms/:formId", GetPublicConsentForm)
			publicRoutes.GET("/shared/:token", GetSharedConsentForm)
		}

		// Game routes (protected)
		gameRoutes := apiV1.Group("/games")
		gameRoutes.Use(auth.AuthMiddleware())
		{
			gameRoutes.GET("", GetMyGames)
			gameRoutes.POST("", CreateGame)
			gameRoutes.POST("/join", JoinGame) // Must be before /:id
			gameRoutes.GET("/:id", GetGameByID)
			gameRoutes.PUT("/:id", UpdateGame)
			gameRoutes.DELETE("/:id", DeleteGame)
			gameRoutes.POST("/:id/invite", InvitePlayer)
			gameRoutes.POST("/:id/share", ShareConsentForm)
			gameRoutes.DELETE("/:id/share", UnshareConsentForm)
			gameRoutes.POST("/:id/leave", LeaveGame)

			// DM-only views
			dmRoutes := gameRoutes.Group("/:id")
			dmRoutes.Use(auth.GameDMMiddleware())
			{
				dmRoutes.GET("/aggregate", GetAggregate)
				dmRoutes.GET("/events", StreamGameEvents)
				dmRoutes.GET("/activity", GetGameActivity)
			}
		}
	}
}

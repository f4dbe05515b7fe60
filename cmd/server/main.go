package main

import (
	"fmt"
	"log"
	"net/http"

	"tablesafe/backend/internal/cache"
	"tablesafe/backend/internal/config"
	"tablesafe/backend/internal/database"
	"tablesafe/backend/internal/handler"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	// Swagger imports
	_ "tablesafe/backend/docs" // registers the generated docs with swag

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           TableSafe API
// @version         1.0
// @description     Consent forms and table-wide comfort reports for tabletop RPG groups.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.AppConfig

	// Connect to the database
	database.Connect(cfg)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		handler.SetJoinLimiter(cache.NewJoinLimiter(client, cfg.JoinAttemptsPerMinute))
		log.Println("Join attempts are rate limited through Redis")
	}

	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	handler.RegisterRoutes(router)

	addr := ":" + cfg.Port
	fmt.Printf("Server is running on %s\n", addr)
	fmt.Printf("Swagger UI is available at http://localhost%s/swagger/index.html\n", addr)
	log.Fatal(router.Run(addr))
}

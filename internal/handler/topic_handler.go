package handler

import (
	"net/http"

	"tablesafe/backend/internal/consent"

	"github.com/gin-gonic/gin"
)

// CategoryResponse is one category of the predefined topic catalog.
type CategoryResponse struct {
	Name   string   `json:"name" example:"Horror"`
	Topics []string `json:"topics"`
}

// TopicCatalogResponse lists the predefined topics and the allowed movie ratings.
type TopicCatalogResponse struct {
	Categories    []CategoryResponse `json:"categories"`
	MovieRatings  []string           `json:"movie_ratings"`
	ComfortLevels []consent.Rating   `json:"comfort_levels"`
}

// GetTopics godoc
// @Summary      List predefined topics
// @Description  Returns the topic catalog used to build consent forms. Forms may also carry custom topics.
// @Tags         topics
// @Produce      json
// @Success      200  {object}  TopicCatalogResponse
// @Router       /topics [get]
func GetTopics(c *gin.Context) {
	catalog := consent.Catalog()
	categories := make([]CategoryResponse, 0, len(catalog))
	for _, category := range catalog {
		categories = append(categories, CategoryResponse{
			Name:   category.Name,
			Topics: category.Topics,
		})
	}

	c.JSON(http.StatusOK, TopicCatalogResponse{
		Categories:    categories,
		MovieRatings:  append([]string(nil), consent.MovieRatings...),
		ComfortLevels: []consent.Rating{consent.RatingGreen, consent.RatingYellow, consent.RatingRed},
	})
}

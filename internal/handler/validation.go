package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"tablesafe/backend/internal/consent"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const maxTopicLength = 255

var (
	validatorOnce   sync.Once
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)
)

// RegisterValidators adds the custom binding tags used by the DTOs. Safe to call more
// than once.
func RegisterValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("comfort", func(fl validator.FieldLevel) bool {
			return consent.Rating(fl.Field().String()).Valid()
		})
		_ = engine.RegisterValidation("topic", func(fl validator.FieldLevel) bool {
			return validTopic(fl.Field().String())
		})
		_ = engine.RegisterValidation("movierating", func(fl validator.FieldLevel) bool {
			return consent.ValidMovieRating(fl.Field().String())
		})
		_ = engine.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
	})
}

func validTopic(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || len(trimmed) > maxTopicLength {
		return false
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

type bindMessages map[string]map[string]string

func bindJSON(c *gin.Context, req any, messages bindMessages, fallback string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": resolveBindError(err, messages, fallback)})
		return false
	}
	return true
}

func resolveBindError(err error, messages bindMessages, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if fieldMsgs, ok := messages[verr.Field()]; ok {
				if msg, ok := fieldMsgs[verr.Tag()]; ok {
					return msg
				}
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return "invalid request"
}

package handler

import (
	"net/http"
	"strings"
	"time"

	"tablesafe/backend/internal/consent"
	"tablesafe/backend/internal/models"
	"tablesafe/backend/internal/store"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// TopicRatingInput is one rated topic in a consent form payload.
type TopicRatingInput struct {
	Category     string         `json:"category" binding:"required,topic" example:"Horror"`
	TopicName    string         `json:"topic_name" binding:"required,topic" example:"Gore"`
	ComfortLevel consent.Rating `json:"comfort_level" binding:"required,comfort" example:"yellow"`
	IsCustom     bool           `json:"is_custom"`
}

// ConsentFormInput is the full content of a consent form. On update, Responses replace
// every response the form held before.
type ConsentFormInput struct {
	Name             string             `json:"name" binding:"required,max=255" example:"Default"`
	IsPublic         bool               `json:"is_public"`
	MovieRating      *string            `json:"movie_rating" binding:"omitempty,movierating" example:"PG-13"`
	MovieRatingOther *string            `json:"movie_rating_other" binding:"omitempty,max=255"`
	FollowUpResponse *string            `json:"follow_up_response" binding:"omitempty,max=5000"`
	Responses        []TopicRatingInput `json:"responses" binding:"dive"`
}

// TopicRatingResponse is one rated topic of a stored form.
type TopicRatingResponse struct {
	TopicName    string         `json:"topic_name" example:"Gore"`
	ComfortLevel consent.Rating `json:"comfort_level" example:"yellow"`
	IsCustom     bool           `json:"is_custom"`
}

// ConsentFormResponse is a full form as seen by its owner.
type ConsentFormResponse struct {
	ID                  uint                             `json:"id" example:"1"`
	Name                string                           `json:"name" example:"Default"`
	IsPublic            bool                             `json:"is_public"`
	MovieRating         *string                          `json:"movie_rating,omitempty" example:"PG-13"`
	MovieRatingOther    *string                          `json:"movie_rating_other,omitempty"`
	FollowUpResponse    *string                          `json:"follow_up_response,omitempty"`
	ShareToken          string                           `json:"share_token,omitempty"`
	ResponsesByCategory map[string][]TopicRatingResponse `json:"responses_by_category"`
	CreatedAt           time.Time                        `json:"created_at"`
	UpdatedAt           time.Time                        `json:"updated_at"`
}

// ConsentFormSummary is a form in a listing.
type ConsentFormSummary struct {
	ID             uint      `json:"id" example:"1"`
	Name           string    `json:"name" example:"Default"`
	IsPublic       bool      `json:"is_public"`
	MovieRating    *string   `json:"movie_rating,omitempty" example:"PG-13"`
	ResponsesCount int64     `json:"responses_count" example:"12"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

var consentFormMessages = bindMessages{
	"Name": {
		"required": "Form name is required",
		"max":      "Form name must be 255 characters or fewer",
	},
	"MovieRating": {
		"movierating": "Movie rating must be one of G, PG, PG-13, R, NC-17, Other",
	},
	"Category": {
		"required": "Every response needs a category",
		"topic":    "Categories must be 1-255 printable characters",
	},
	"TopicName": {
		"required": "Every response needs a topic name",
		"topic":    "Topic names must be 1-255 printable characters",
	},
	"ComfortLevel": {
		"required": "Every response needs a comfort level",
		"comfort":  "Comfort level must be green, yellow or red",
	},
}

// toStoreInput trims topic strings at entry. Case is preserved.
func (in ConsentFormInput) toStoreInput() store.FormInput {
	responses := make([]consent.Response, 0, len(in.Responses))
	for _, r := range in.Responses {
		responses = append(responses, consent.Response{
			Category:  strings.TrimSpace(r.Category),
			TopicName: strings.TrimSpace(r.TopicName),
			Rating:    r.ComfortLevel,
			IsCustom:  r.IsCustom,
		})
	}

	other := in.MovieRatingOther
	if in.MovieRating == nil || *in.MovieRating != "Other" {
		other = nil
	}
	return store.FormInput{
		Name:             strings.TrimSpace(in.Name),
		IsPublic:         in.IsPublic,
		MovieRating:      in.MovieRating,
		MovieRatingOther: other,
		FollowUpResponse: in.FollowUpResponse,
		Responses:        responses,
	}
}

func groupResponses(rows []models.ConsentResponse) map[string][]TopicRatingResponse {
	grouped := make(map[string][]TopicRatingResponse)
	for _, r := range rows {
		grouped[r.TopicCategory] = append(grouped[r.TopicCategory], TopicRatingResponse{
			TopicName:    r.TopicName,
			ComfortLevel: r.ComfortLevel,
			IsCustom:     r.IsCustom,
		})
	}
	return grouped
}

func newConsentFormResponse(form models.ConsentForm, includeToken bool) ConsentFormResponse {
	resp := ConsentFormResponse{
		ID:                  form.ID,
		Name:                form.Name,
		IsPublic:            form.IsPublic,
		MovieRating:         form.MovieRating,
		MovieRatingOther:    form.MovieRatingOther,
		FollowUpResponse:    form.FollowUpResponse,
		ResponsesByCategory: groupResponses(form.Responses),
		CreatedAt:           form.CreatedAt,
		UpdatedAt:           form.UpdatedAt,
	}
	if includeToken {
		resp.ShareToken = form.ShareToken
	}
	return resp
}

// endregion

// region --- Consent Form Handlers ---

// ListConsentForms godoc
// @Summary      List my consent forms
// @Description  Returns the caller's consent forms, newest first.
// @Tags         consent-forms
// @Produce      json
// @Security     BearerAuth
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(10)
// @Success      200   {object}  PaginatedResponse[ConsentFormSummary]
// @Failure      401   {object}  ErrorResponse
// @Failure      503   {object}  ErrorResponse
// @Router       /consent-forms [get]
func ListConsentForms(c *gin.Context) {
	page, limit := pageParams(c)

	forms, total, err := dataStore().ListForms(c.Request.Context(), currentUserID(c), page, limit)
	if err != nil {
		respondStoreError(c, err, "Consent form not found")
		return
	}

	summaries := make([]ConsentFormSummary, 0, len(forms))
	for _, f := range forms {
		summaries = append(summaries, ConsentFormSummary{
			ID:             f.ID,
			Name:           f.Name,
			IsPublic:       f.IsPublic,
			MovieRating:    f.MovieRating,
			ResponsesCount: f.ResponsesCount,
			CreatedAt:      f.CreatedAt,
			UpdatedAt:      f.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(summaries, total, page, limit))
}

// CreateConsentForm godoc
// @Summary      Create a consent form
// @Description  Creates a consent form with its topic ratings. A (category, topic) pair may appear once.
// @Tags         consent-forms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body ConsentFormInput true "Consent form"
// @Success      201  {object}  ConsentFormResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /consent-forms [post]
func CreateConsentForm(c *gin.Context) {
	var input ConsentFormInput
	if !bindJSON(c, &input, consentFormMessages, "Invalid consent form") {
		return
	}

	form, err := dataStore().CreateForm(c.Request.Context(), currentUserID(c), input.toStoreInput())
	if err != nil {
		respondStoreError(c, err, "Consent form not found")
		return
	}

	c.JSON(http.StatusCreated, newConsentFormResponse(*form, true))
}

// GetConsentForm godoc
// @Summary      Get one of my consent forms
// @Tags         consent-forms
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Consent form ID"
// @Success      200  {object}  ConsentFormResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /consent-forms/{id} [get]
func GetConsentForm(c *gin.Context) {
	formID, ok := parseID(c, "id", "consent form")
	if !ok {
		return
	}

	form, err := dataStore().GetOwnedForm(c.Request.Context(), currentUserID(c), formID)
	if err != nil {
		respondStoreError(c, err, "Consent form not found")
		return
	}

	c.JSON(http.StatusOK, newConsentFormResponse(*form, true))
}

// UpdateConsentForm godoc
// @Summary      Replace a consent form
// @Description  Replaces the form's fields and all of its responses in one transaction.
// @Tags         consent-forms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int               true  "Consent form ID"
// @Param        input body      ConsentFormInput  true  "Consent form"
// @Success      200   {object}  ConsentFormResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /consent-forms/{id} [put]
func UpdateConsentForm(c *gin.Context) {
	formID, ok := parseID(c, "id", "consent form")
	if !ok {
		return
	}

	var input ConsentFormInput
	if !bindJSON(c, &input, consentFormMessages, "Invalid consent form") {
		return
	}

	form, err := dataStore().UpdateForm(c.Request.Context(), currentUserID(c), formID, input.toStoreInput())
	if err != nil {
		respondStoreError(c, err, "Consent form not found")
		return
	}

	c.JSON(http.StatusOK, newConsentFormResponse(*form, true))
}

// DeleteConsentForm godoc
// @Summary      Delete a consent form
// @Description  Deletes the form. Games it was shared with see it as unshared from then on.
// @Tags         consent-forms
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Consent form ID"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /consent-forms/{id} [delete]
func DeleteConsentForm(c *gin.Context) {
	formID, ok := parseID(c, "id", "consent form")
	if !ok {
		return
	}

	changes, err := dataStore().DeleteForm(c.Request.Context(), currentUserID(c), formID)
	if err != nil {
		respondStoreError(c, err, "Consent form not found")
		return
	}
	for i := range changes {
		publish(&changes[i])
	}

	c.Status(http.StatusNoContent)
}

// endregion

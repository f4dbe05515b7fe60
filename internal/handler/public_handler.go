package handler

import (
	"net/http"

	"tablesafe/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// PublicProfileResponse lists a user's public consent forms.
type PublicProfileResponse struct {
	User    PublicUserResponse    `json:"user"`
	IsOwner bool                  `json:"is_owner"`
	Forms   []ConsentFormResponse `json:"forms"`
}

// PublicFormResponse is a single form shown outside the owner's account.
type PublicFormResponse struct {
	Owner   PublicUserResponse  `json:"owner"`
	IsOwner bool                `json:"is_owner"`
	Form    ConsentFormResponse `json:"form"`
}

func isViewer(c *gin.Context, user models.User) bool {
	viewerID, ok := optionalUserID(c)
	return ok && viewerID == user.ID
}

// GetPublicProfile godoc
// @Summary      List a user's public consent forms
// @Tags         public
// @Produce      json
// @Param        username path      string  true  "Username"
// @Success      200      {object}  PublicProfileResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /public/u/{username} [get]
func GetPublicProfile(c *gin.Context) {
	user, forms, err := dataStore().PublicForms(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondStoreError(c, err, "User not found")
		return
	}

	responses := make([]ConsentFormResponse, 0, len(forms))
	for _, f := range forms {
		responses = append(responses, newConsentFormResponse(f, false))
	}
	c.JSON(http.StatusOK, PublicProfileResponse{
		User:    buildPublicUserResponse(*user),
		IsOwner: isViewer(c, *user),
		Forms:   responses,
	})
}

// GetPublicConsentForm godoc
// @Summary      Get one public consent form
// @Tags         public
// @Produce      json
// @Param        username path      string  true  "Username"
// @Param        formId   path      int     true  "Consent form ID"
// @Success      200      {object}  PublicFormResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /public/u/{username}/consent-forms/{formId} [get]
func GetPublicConsentForm(c *gin.Context) {
	formID, ok := parseID(c, "formId", "consent form")
	if !ok {
		return
	}

	user, form, err := dataStore().PublicForm(c.Request.Context(), c.Param("username"), formID)
	if err != nil {
		respondStoreError(c, err, "Consent form not found")
		return
	}

	c.JSON(http.StatusOK, PublicFormResponse{
		Owner:   buildPublicUserResponse(*user),
		IsOwner: isViewer(c, *user),
		Form:    newConsentFormResponse(*form, false),
	})
}

// GetSharedConsentForm godoc
// @Summary      Get a consent form by share link
// @Description  Anyone holding the share token may read the form, public or not.
// @Tags         public
// @Produce      json
// @Param        token path      string  true  "Share token"
// @Success      200   {object}  PublicFormResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /public/shared/{token} [get]
func GetSharedConsentForm(c *gin.Context) {
	form, err := dataStore().FormByShareToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondStoreError(c, err, "Consent form not found")
		return
	}

	c.JSON(http.StatusOK, PublicFormResponse{
		Owner:   buildPublicUserResponse(form.User),
		IsOwner: isViewer(c, form.User),
		Form:    newConsentFormResponse(*form, false),
	})
}

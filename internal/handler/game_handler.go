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

// CreateGameInput is the payload for creating a game.
type CreateGameInput struct {
	Name           string `json:"name" binding:"required,max=255" example:"Curse of Strahd"`
	Description    string `json:"description" binding:"max=5000"`
	MinimumPlayers int    `json:"minimum_players" binding:"required,min=1,max=100" example:"3"`
}

// UpdateGameInput is the payload for editing a game.
type UpdateGameInput struct {
	Name           string `json:"name" binding:"required,max=255" example:"Curse of Strahd"`
	Description    string `json:"description" binding:"max=5000"`
	Status         string `json:"status" binding:"required,oneof=active completed archived" example:"active"`
	MinimumPlayers int    `json:"minimum_players" binding:"required,min=1,max=100" example:"3"`
}

// JoinGameInput carries a game code typed by a player.
type JoinGameInput struct {
	GameCode string `json:"game_code" binding:"required,max=32" example:"K3FQ9Z-WB2M7D"`
}

// InvitePlayerInput names the user to invite.
type InvitePlayerInput struct {
	Username string `json:"username" binding:"required" example:"testuser"`
}

// ShareFormInput names the caller's form to share with a game.
type ShareFormInput struct {
	ConsentFormID uint `json:"consent_form_id" binding:"required" example:"1"`
}

// GameResponse is a game as seen by its DM.
type GameResponse struct {
	ID             uint              `json:"id" example:"1"`
	Name           string            `json:"name" example:"Curse of Strahd"`
	Description    string            `json:"description"`
	GameCode       string            `json:"game_code" example:"K3FQ9Z-WB2M7D"`
	Status         models.GameStatus `json:"status" example:"active"`
	MinimumPlayers int               `json:"minimum_players" example:"3"`
	PlayerCount    *int64            `json:"player_count,omitempty" example:"4"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// MembershipResponse is one of the caller's roster entries.
type MembershipResponse struct {
	Game         GameResponse             `json:"game"`
	Status       consent.MembershipStatus `json:"status" example:"joined"`
	SharedFormID *uint                    `json:"shared_form_id,omitempty" example:"1"`
	SharedForm   string                   `json:"shared_form_name,omitempty" example:"Default"`
	JoinedAt     time.Time                `json:"joined_at"`
}

// MyGamesResponse splits the caller's games by role.
type MyGamesResponse struct {
	AsDM     []GameResponse       `json:"as_dm"`
	AsPlayer []MembershipResponse `json:"as_player"`
}

// PlayerResponse is one roster entry in a game view. HasShared is only filled for the DM.
type PlayerResponse struct {
	UserID    uint                     `json:"user_id" example:"2"`
	Username  string                   `json:"username" example:"testuser"`
	Status    consent.MembershipStatus `json:"status" example:"joined"`
	HasShared *bool                    `json:"has_shared,omitempty"`
	JoinedAt  time.Time                `json:"joined_at"`
}

// GameDetailResponse is the game view shared by the DM and the roster.
type GameDetailResponse struct {
	Game                  GameResponse     `json:"game"`
	IsDM                  bool             `json:"is_dm"`
	Players               []PlayerResponse `json:"players"`
	Progress              consent.Progress `json:"progress"`
	CanDisclose           bool             `json:"can_disclose"`
	MeetsMinimumThreshold bool             `json:"meets_minimum_threshold"`
	MySharedFormID        *uint            `json:"my_shared_form_id,omitempty"`
}

// RosterChangeResponse reports the outcome of a roster action.
type RosterChangeResponse struct {
	Message  string           `json:"message" example:"Joined game"`
	GameID   uint             `json:"game_id" example:"1"`
	Changed  bool             `json:"changed" example:"true"`
	Progress consent.Progress `json:"progress"`
}

var gameMessages = bindMessages{
	"Name": {
		"required": "Game name is required",
		"max":      "Game name must be 255 characters or fewer",
	},
	"Description": {
		"max": "Description must be 5000 characters or fewer",
	},
	"Status": {
		"required": "Status is required",
		"oneof":    "Status must be active, completed or archived",
	},
	"MinimumPlayers": {
		"required": "Minimum players must be between 1 and 100",
		"min":      "Minimum players must be between 1 and 100",
		"max":      "Minimum players must be between 1 and 100",
	},
}

func newGameResponse(game models.Game, includeCode bool) GameResponse {
	resp := GameResponse{
		ID:             game.ID,
		Name:           game.Name,
		Description:    game.Description,
		Status:         game.Status,
		MinimumPlayers: game.MinimumPlayers,
		CreatedAt:      game.CreatedAt,
		UpdatedAt:      game.UpdatedAt,
	}
	if includeCode {
		resp.GameCode = game.GameCode
	}
	return resp
}

func newRosterChangeResponse(message string, gameID uint, change *store.RosterChange) RosterChangeResponse {
	return RosterChangeResponse{
		Message:  message,
		GameID:   gameID,
		Changed:  change.Changed,
		Progress: change.Progress,
	}
}

// endregion

// region --- Game Handlers ---

// GetMyGames godoc
// @Summary      List my games
// @Description  Returns the games the caller runs as DM and the games they are on the roster of.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  MyGamesResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /games [get]
func GetMyGames(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)
	s := dataStore()

	dmGames, err := s.ListGamesAsDM(ctx, userID)
	if err != nil {
		respondStoreError(c, err, "Game not found")
		return
	}
	entries, err := s.ListMemberships(ctx, userID)
	if err != nil {
		respondStoreError(c, err, "Game not found")
		return
	}
	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.GameID)
	}
	games, err := s.GamesByID(ctx, ids)
	if err != nil {
		respondStoreError(c, err, "Game not found")
		return
	}

	resp := MyGamesResponse{
		AsDM:     make([]GameResponse, 0, len(dmGames)),
		AsPlayer: make([]MembershipResponse, 0, len(entries)),
	}
	for _, g := range dmGames {
		gr := newGameResponse(g.Game, true)
		count := g.PlayerCount
		gr.PlayerCount = &count
		resp.AsDM = append(resp.AsDM, gr)
	}
	for _, e := range entries {
		game, ok := games[e.GameID]
		if !ok {
			continue
		}
		m := MembershipResponse{
			Game:         newGameResponse(game, e.Status == consent.MembershipJoined),
			Status:       e.Status,
			SharedFormID: e.ConsentFormID,
			JoinedAt:     e.JoinedAt,
		}
		if e.ConsentForm != nil {
			m.SharedForm = e.ConsentForm.Name
		}
		resp.AsPlayer = append(resp.AsPlayer, m)
	}
	c.JSON(http.StatusOK, resp)
}

// CreateGame godoc
// @Summary      Create a game
// @Description  Creates a game run by the caller and generates its join code.
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body CreateGameInput true "Game Info"
// @Success      201  {object}  GameResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /games [post]
func CreateGame(c *gin.Context) {
	var input CreateGameInput
	if !bindJSON(c, &input, gameMessages, "Invalid game data") {
		return
	}

	game, err := dataStore().CreateGame(c.Request.Context(), currentUserID(c), store.GameInput{
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		MinimumPlayers: input.MinimumPlayers,
	})
	if err != nil {
		respondStoreError(c, err, "Game not found")
		return
	}

	c.JSON(http.StatusCreated, newGameResponse(*game, true))
}

// GetGameByID godoc
// @Summary      Get a game
// @Description  Returns the game, its roster and share progress. Visible to the DM and to roster members.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Game ID"
// @Success      200  {object}  GameDetailResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /games/{id} [get]
func GetGameByID(c *gin.Context) {
	gameID, ok := parseID(c, "id", "game")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	userID := currentUserID(c)
	s := dataStore()

	game, snap, err := s.LoadSnapshot(ctx, gameID)
	if err != nil {
		respondStoreError(c, err, "Game not found")
		return
	}
	roster, err := s.Roster(ctx, gameID)
	if err != nil {
		respondStoreError(c, err, "Game not found")
		return
	}

	isDM := game.DMUserID == userID
	var mine *models.GamePlayer
	for i := range roster {
		if roster[i].UserID == userID {
			mine = &roster[i]
		}
	}
	if !isDM && mine == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this game"})
		return
	}

	shared := make(map[uint]bool, len(snap.Roster))
	for _, entry := range snap.Roster {
		shared[entry.PlayerID] = entry.HasShared()
	}
	players := make([]PlayerResponse, 0, len(roster))
	for _, p := range roster {
		pr := PlayerResponse{
			UserID:   p.UserID,
			Username: p.User.Username,
			Status:   p.Status,
			JoinedAt: p.JoinedAt,
		}
		if isDM {
			hasShared := shared[p.UserID]
			pr.HasShared = &hasShared
		}
		players = append(players, pr)
	}

	result := consent.Evaluate(snap)
	resp := GameDetailResponse{
		Game:                  newGameResponse(*game, isDM || mine.Status == consent.MembershipJoined),
		IsDM:                  isDM,
		Players:               players,
		Progress:              result.Progress,
		CanDisclose:           result.CanDisclose,
		MeetsMinimumThreshold: result.MeetsMinimumThreshold,
	}
	if mine != nil {
		resp.MySharedFormID = mine.ConsentFormID
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateGame godoc
// @Summary      Update a game
// @Description  Changes the game's name, description, status and minimum players. DM only.
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int              true  "Game ID"
// @Param        input body      UpdateGameInput  true  "New Game Info"
// @Success      200   {object}  GameResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /games/{id} [put]
func UpdateGame(c *gin.Context) {
	gameID, ok := parseID(c, "id", "game")
	if !ok {
		return
	}

	var input UpdateGameInput
	if !bindJSON(c, &input, gameMessages, "Invalid game data") {
		return
	}

	change, game, err := dataStore().UpdateGame(c.Request.Context(), currentUserID(c), gameID, store.GameInput{
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		Status:         models.GameStatus(input.Status),
		MinimumPlayers: input.MinimumPlayers,
	})
	if err != nil {
		respondStoreError(c, err, "Game not found")
		return
	}
	publish(change)

	c.JSON(http.StatusOK, newGameResponse(*game, true))
}

// DeleteGame godoc
// @Summary      Delete a game
// @Description  Deletes the game with its roster and activity log. DM only.
// @Tags         games
// @Security     BearerAuth
// @Param        id   path      int  true  "Game ID"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /games/{id} [delete]
func DeleteGame(c *gin.Context) {
	gameID, ok := parseID(c, "id", "game")
	if !ok {
		return
	}

	if err := dataStore().DeleteGame(c.Request.Context(), currentUserID(c), gameID); err != nil {
		respondStoreError(c, err, "Game not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// JoinGame godoc
// @Summary      Join a game with its code
// @Description  Adds the caller to the game's roster. Joining twice is harmless; invited or departed players become joined.
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body JoinGameInput true "Game code"
// @Success      200  {object}  RosterChangeResponse
// @Failure      400  {object}  ErrorResponse "Own game or game not active"
// @Failure      404  {object}  ErrorResponse "Invalid game code"
// @Failure      429  {object}  ErrorResponse "Too many attempts"
// @Router       /games/join [post]
func JoinGame(c *gin.Context) {
	var input JoinGameInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Game code is required"})
		return
	}

	userID := currentUserID(c)
	if !joinLimiter.Allow(c.Request.Context(), userID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many join attempts, try again in a minute"})
		return
	}

	game, change, err := dataStore().JoinGame(c.Request.Context(), userID, input.GameCode)
	if err != nil {
		respondStoreError(c, err, "Invalid game code")
		return
	}
	publish(change)

	message := "Joined game"
	if !change.Changed {
		message = "You are already a member of this game"
	}
	c.JSON(http.StatusOK, newRosterChangeResponse(message, game.ID, change))
}

// InvitePlayer godoc
// @Summary      Invite a player
// @Description  Adds a user to the roster as invited. DM only. Inviting someone already on the roster does nothing.
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "Game ID"
// @Param        input body      InvitePlayerInput  true  "Invitee"
// @Success      200   {object}  RosterChangeResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /games/{id}/invite [post]
func InvitePlayer(c *gin.Context) {
	gameID, ok := parseID(c, "id", "game")
	if !ok {
		return
	}

	var input InvitePlayerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required"})
		return
	}

	change, err := dataStore().InvitePlayer(c.Request.Context(), currentUserID(c), gameID, strings.TrimSpace(input.Username))
	if err != nil {
		respondStoreError(c, err, "User or game not found")
		return
	}
	publish(change)

	message := "Player invited"
	if !change.Changed {
		message = "Player is already on the roster"
	}
	c.JSON(http.StatusOK, newRosterChangeResponse(message, gameID, change))
}

// ShareConsentForm godoc
// @Summary      Share a consent form with a game
// @Description  Points the caller's roster entry at one of their own forms, replacing any earlier choice.
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int             true  "Game ID"
// @Param        input body      ShareFormInput  true  "Form to share"
// @Success      200   {object}  RosterChangeResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /games/{id}/share [post]
func ShareConsentForm(c *gin.Context) {
	gameID, ok := parseID(c, "id", "game")
	if !ok {
		return
	}

	var input ShareFormInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "consent_form_id is required"})
		return
	}

	change, err := dataStore().ShareForm(c.Request.Context(), currentUserID(c), gameID, input.ConsentFormID)
	if err != nil {
		respondStoreError(c, err, "Consent form not found")
		return
	}
	publish(change)

	c.JSON(http.StatusOK, newRosterChangeResponse("Consent form shared", gameID, change))
}

// UnshareConsentForm godoc
// @Summary      Withdraw a shared consent form
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Game ID"
// @Success      200  {object}  RosterChangeResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /games/{id}/share [delete]
func UnshareConsentForm(c *gin.Context) {
	gameID, ok := parseID(c, "id", "game")
	if !ok {
		return
	}

	change, err := dataStore().UnshareForm(c.Request.Context(), currentUserID(c), gameID)
	if err != nil {
		respondStoreError(c, err, "Game not found")
		return
	}
	publish(change)

	c.JSON(http.StatusOK, newRosterChangeResponse("Consent form withdrawn", gameID, change))
}

// LeaveGame godoc
// @Summary      Leave a game
// @Description  Marks the caller as left and withdraws their shared form.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Game ID"
// @Success      200  {object}  RosterChangeResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /games/{id}/leave [post]
func LeaveGame(c *gin.Context) {
	gameID, ok := parseID(c, "id", "game")
	if !ok {
		return
	}

	change, err := dataStore().LeaveGame(c.Request.Context(), currentUserID(c), gameID)
	if err != nil {
		respondStoreError(c, err, "Game not found")
		return
	}
	publish(change)

	c.JSON(http.StatusOK, newRosterChangeResponse("Left game", gameID, change))
}

// endregion

package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tablesafe/backend/internal/cache"
	"tablesafe/backend/internal/config"
	"tablesafe/backend/internal/consent"
	"tablesafe/backend/internal/database"

	"github.com/gin-gonic/gin"
)

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, uint) bool { return false }

// newTestRouter wires the API against a fresh in-memory SQLite database.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Dialector("sqlite://:memory:"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	prevDB, prevCfg := database.DB, config.AppConfig
	database.DB = db
	config.AppConfig = &config.Config{JWTSecret: "test-secret", JWTTTLHours: 1}
	t.Cleanup(func() {
		database.DB, config.AppConfig = prevDB, prevCfg
		SetJoinLimiter(cache.NewNoopJoinLimiter())
		sqlDB.Close()
	})

	r := gin.New()
	RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

func register(t *testing.T, r http.Handler, username string) string {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	expectStatus(t, w, http.StatusCreated)
	return decode[TokenResponse](t, w).Token
}

func createFormFor(t *testing.T, r http.Handler, token string, responses ...gin.H) uint {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/api/v1/consent-forms", token, gin.H{
		"name":      "Default",
		"responses": responses,
	})
	expectStatus(t, w, http.StatusCreated)
	return decode[ConsentFormResponse](t, w).ID
}

func createGameFor(t *testing.T, r http.Handler, token string, minimumPlayers int) GameResponse {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/api/v1/games", token, gin.H{
		"name":            "Curse of Strahd",
		"minimum_players": minimumPlayers,
	})
	expectStatus(t, w, http.StatusCreated)
	return decode[GameResponse](t, w)
}

func rating(category, topic, level string) gin.H {
	return gin.H{"category": category, "topic_name": topic, "comfort_level": level}
}

func TestRegisterAndLogin(t *testing.T) {
	r := newTestRouter(t)
	token := register(t, r, "Mira")

	w := doRequest(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "mira", "email": "other@example.com", "password": "password123",
	})
	expectStatus(t, w, http.StatusConflict)

	w = doRequest(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "a b", "email": "ab@example.com", "password": "password123",
	})
	expectStatus(t, w, http.StatusBadRequest)
	if msg := decode[ErrorResponse](t, w).Error; !strings.Contains(msg, "Username") {
		t.Errorf("error = %q, want a username message", msg)
	}

	w = doRequest(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": "mira@example.com", "password": "password123"})
	expectStatus(t, w, http.StatusOK)
	w = doRequest(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": "mira", "password": "wrong-password"})
	expectStatus(t, w, http.StatusUnauthorized)
	w = doRequest(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": "ghost", "password": "password123"})
	expectStatus(t, w, http.StatusUnauthorized)

	w = doRequest(t, r, http.MethodGet, "/api/v1/users/me", token, nil)
	expectStatus(t, w, http.StatusOK)
	if me := decode[PrivateUserResponse](t, w); me.Username != "mira" {
		t.Errorf("username = %q, want mira", me.Username)
	}

	w = doRequest(t, r, http.MethodGet, "/api/v1/users/me", "", nil)
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestConsentFormLifecycle(t *testing.T) {
	r := newTestRouter(t)
	alice := register(t, r, "alice")
	bob := register(t, r, "bob")

	w := doRequest(t, r, http.MethodPost, "/api/v1/consent-forms", alice, gin.H{
		"name":         "Campaign",
		"movie_rating": "PG-13",
		"responses": []gin.H{
			rating(" Horror ", " Gore ", "yellow"),
			{"category": "Custom", "topic_name": "Clowns", "comfort_level": "red", "is_custom": true},
		},
	})
	expectStatus(t, w, http.StatusCreated)
	form := decode[ConsentFormResponse](t, w)
	if form.ShareToken == "" {
		t.Error("owner should see the share token")
	}
	gore := form.ResponsesByCategory["Horror"]
	if len(gore) != 1 || gore[0].TopicName != "Gore" || gore[0].ComfortLevel != consent.RatingYellow {
		t.Errorf("Horror responses = %+v, topic strings should be trimmed", gore)
	}

	w = doRequest(t, r, http.MethodPost, "/api/v1/consent-forms", alice, gin.H{
		"name":      "Dup",
		"responses": []gin.H{rating("Horror", "Gore", "green"), rating("Horror", " Gore", "red")},
	})
	expectStatus(t, w, http.StatusBadRequest)

	w = doRequest(t, r, http.MethodPost, "/api/v1/consent-forms", alice, gin.H{
		"name":      "Bad",
		"responses": []gin.H{rating("Horror", "Gore", "purple")},
	})
	expectStatus(t, w, http.StatusBadRequest)
	if msg := decode[ErrorResponse](t, w).Error; msg != "Comfort level must be green, yellow or red" {
		t.Errorf("error = %q", msg)
	}

	w = doRequest(t, r, http.MethodPost, "/api/v1/consent-forms", alice, gin.H{"name": "Bad", "movie_rating": "X"})
	expectStatus(t, w, http.StatusBadRequest)

	path := fmt.Sprintf("/api/v1/consent-forms/%d", form.ID)
	expectStatus(t, doRequest(t, r, http.MethodGet, path, bob, nil), http.StatusForbidden)
	expectStatus(t, doRequest(t, r, http.MethodGet, path, alice, nil), http.StatusOK)

	w = doRequest(t, r, http.MethodPut, path, alice, gin.H{
		"name":      "Campaign v2",
		"responses": []gin.H{rating("Relationships", "Romance", "green")},
	})
	expectStatus(t, w, http.StatusOK)
	updated := decode[ConsentFormResponse](t, w)
	if updated.Name != "Campaign v2" || len(updated.ResponsesByCategory) != 1 {
		t.Errorf("updated = %+v, responses should be fully replaced", updated)
	}
	if updated.MovieRating != nil {
		t.Errorf("movie rating = %v, want cleared", *updated.MovieRating)
	}

	w = doRequest(t, r, http.MethodGet, "/api/v1/consent-forms?page=1&limit=5", alice, nil)
	expectStatus(t, w, http.StatusOK)
	list := decode[PaginatedResponse[ConsentFormSummary]](t, w)
	if list.Meta.TotalItems != 1 || list.Data[0].ResponsesCount != 1 {
		t.Errorf("list = %+v", list)
	}

	expectStatus(t, doRequest(t, r, http.MethodDelete, path, bob, nil), http.StatusForbidden)
	expectStatus(t, doRequest(t, r, http.MethodDelete, path, alice, nil), http.StatusNoContent)
	expectStatus(t, doRequest(t, r, http.MethodGet, path, alice, nil), http.StatusNotFound)
	expectStatus(t, doRequest(t, r, http.MethodGet, "/api/v1/consent-forms/abc", alice, nil), http.StatusBadRequest)
}

func TestAggregateStaysSealedUntilEveryoneShares(t *testing.T) {
	r := newTestRouter(t)
	dm := register(t, r, "dm")
	alice := register(t, r, "alice")
	bob := register(t, r, "bob")

	aliceForm := createFormFor(t, r, alice,
		rating("Horror", "Gore", "green"),
		rating("Relationships", "Romance", "yellow"),
	)
	bobForm := createFormFor(t, r, bob, rating("Horror", "Gore", "red"))
	game := createGameFor(t, r, dm, 2)

	for _, token := range []string{alice, bob} {
		w := doRequest(t, r, http.MethodPost, "/api/v1/games/join", token, gin.H{"game_code": game.GameCode})
		expectStatus(t, w, http.StatusOK)
	}

	aggregatePath := fmt.Sprintf("/api/v1/games/%d/aggregate", game.ID)
	w := doRequest(t, r, http.MethodGet, aggregatePath, dm, nil)
	expectStatus(t, w, http.StatusOK)
	if body := w.Body.String(); !strings.Contains(body, `"report":{}`) {
		t.Errorf("sealed report should serialize as {}: %s", body)
	}
	agg := decode[AggregateResponse](t, w)
	if agg.CanDisclose || agg.Progress.Joined != 2 || agg.Progress.Shared != 0 {
		t.Errorf("aggregate = %+v", agg)
	}

	sharePath := fmt.Sprintf("/api/v1/games/%d/share", game.ID)
	w = doRequest(t, r, http.MethodPost, sharePath, alice, gin.H{"consent_form_id": bobForm})
	expectStatus(t, w, http.StatusForbidden)
	w = doRequest(t, r, http.MethodPost, sharePath, alice, gin.H{"consent_form_id": aliceForm})
	expectStatus(t, w, http.StatusOK)
	if p := decode[RosterChangeResponse](t, w).Progress; p.Shared != 1 || p.Joined != 2 {
		t.Errorf("progress = %+v", p)
	}

	agg = decode[AggregateResponse](t, doRequest(t, r, http.MethodGet, aggregatePath, dm, nil))
	if agg.CanDisclose || len(agg.Report) != 0 {
		t.Fatalf("one of two shared must not disclose anything: %+v", agg)
	}
	if agg.MeetsMinimumThreshold {
		t.Errorf("one shared form does not meet a minimum of two: %+v", agg)
	}

	expectStatus(t, doRequest(t, r, http.MethodGet, aggregatePath, alice, nil), http.StatusForbidden)

	w = doRequest(t, r, http.MethodPost, sharePath, bob, gin.H{"consent_form_id": bobForm})
	expectStatus(t, w, http.StatusOK)

	agg = decode[AggregateResponse](t, doRequest(t, r, http.MethodGet, aggregatePath, dm, nil))
	if !agg.CanDisclose {
		t.Fatalf("aggregate = %+v, want disclosed", agg)
	}
	gore := agg.Report["Horror"]["Gore"]
	if gore.Status != consent.StatusForbidden || gore.RedCount != 1 || gore.GreenCount != 1 || gore.TotalCount != 2 {
		t.Errorf("Horror/Gore = %+v", gore)
	}
	if romance := agg.Report["Relationships"]["Romance"]; romance.Status != consent.StatusDiscuss {
		t.Errorf("Relationships/Romance = %+v", romance)
	}

	// Withdrawing one form seals the report again.
	expectStatus(t, doRequest(t, r, http.MethodDelete, sharePath, bob, nil), http.StatusOK)
	agg = decode[AggregateResponse](t, doRequest(t, r, http.MethodGet, aggregatePath, dm, nil))
	if agg.CanDisclose || len(agg.Report) != 0 {
		t.Errorf("aggregate after unshare = %+v", agg)
	}
}

func TestGameDetailHidesSharingFromPlayers(t *testing.T) {
	r := newTestRouter(t)
	dm := register(t, r, "dm")
	alice := register(t, r, "alice")
	outsider := register(t, r, "outsider")
	game := createGameFor(t, r, dm, 1)
	expectStatus(t, doRequest(t, r, http.MethodPost, "/api/v1/games/join", alice, gin.H{"game_code": game.GameCode}), http.StatusOK)

	path := fmt.Sprintf("/api/v1/games/%d", game.ID)
	w := doRequest(t, r, http.MethodGet, path, dm, nil)
	expectStatus(t, w, http.StatusOK)
	detail := decode[GameDetailResponse](t, w)
	if !detail.IsDM || len(detail.Players) != 1 || detail.Players[0].HasShared == nil {
		t.Errorf("DM view = %+v", detail)
	}

	w = doRequest(t, r, http.MethodGet, path, alice, nil)
	expectStatus(t, w, http.StatusOK)
	detail = decode[GameDetailResponse](t, w)
	if detail.IsDM || detail.Players[0].HasShared != nil {
		t.Errorf("player view = %+v", detail)
	}
	if detail.Progress.Joined != 1 {
		t.Errorf("progress = %+v", detail.Progress)
	}

	expectStatus(t, doRequest(t, r, http.MethodGet, path, outsider, nil), http.StatusForbidden)

	w = doRequest(t, r, http.MethodGet, "/api/v1/games", alice, nil)
	expectStatus(t, w, http.StatusOK)
	mine := decode[MyGamesResponse](t, w)
	if len(mine.AsDM) != 0 || len(mine.AsPlayer) != 1 || mine.AsPlayer[0].Status != consent.MembershipJoined {
		t.Errorf("alice's games = %+v", mine)
	}
}

func TestJoinGameErrors(t *testing.T) {
	r := newTestRouter(t)
	dm := register(t, r, "dm")
	alice := register(t, r, "alice")
	game := createGameFor(t, r, dm, 1)

	w := doRequest(t, r, http.MethodPost, "/api/v1/games/join", dm, gin.H{"game_code": game.GameCode})
	expectStatus(t, w, http.StatusBadRequest)
	w = doRequest(t, r, http.MethodPost, "/api/v1/games/join", alice, gin.H{"game_code": "NOPE00-NOPE00"})
	expectStatus(t, w, http.StatusNotFound)
	w = doRequest(t, r, http.MethodPost, "/api/v1/games/join", alice, gin.H{})
	expectStatus(t, w, http.StatusBadRequest)

	code := strings.ToLower(game.GameCode)
	expectStatus(t, doRequest(t, r, http.MethodPost, "/api/v1/games/join", alice, gin.H{"game_code": code}), http.StatusOK)
	w = doRequest(t, r, http.MethodPost, "/api/v1/games/join", alice, gin.H{"game_code": code})
	expectStatus(t, w, http.StatusOK)
	again := decode[RosterChangeResponse](t, w)
	if again.Message != "You are already a member of this game" || again.Changed {
		t.Errorf("rejoin = %+v, want unchanged", again)
	}
	if again.Progress.Joined != 1 {
		t.Errorf("rejoin progress = %+v, want 1 joined", again.Progress)
	}

	SetJoinLimiter(denyLimiter{})
	w = doRequest(t, r, http.MethodPost, "/api/v1/games/join", alice, gin.H{"game_code": code})
	expectStatus(t, w, http.StatusTooManyRequests)
}

func TestUpdateAndDeleteGame(t *testing.T) {
	r := newTestRouter(t)
	dm := register(t, r, "dm")
	alice := register(t, r, "alice")
	game := createGameFor(t, r, dm, 1)
	path := fmt.Sprintf("/api/v1/games/%d", game.ID)

	update := gin.H{"name": "Tomb of Annihilation", "status": "completed", "minimum_players": 4}
	expectStatus(t, doRequest(t, r, http.MethodPut, path, alice, update), http.StatusForbidden)

	w := doRequest(t, r, http.MethodPut, path, dm, gin.H{"name": "x", "status": "paused", "minimum_players": 1})
	expectStatus(t, w, http.StatusBadRequest)
	w = doRequest(t, r, http.MethodPut, path, dm, gin.H{"name": "x", "status": "active", "minimum_players": 0})
	expectStatus(t, w, http.StatusBadRequest)

	w = doRequest(t, r, http.MethodPut, path, dm, update)
	expectStatus(t, w, http.StatusOK)
	updated := decode[GameResponse](t, w)
	if updated.Status != "completed" || updated.MinimumPlayers != 4 || updated.GameCode != game.GameCode {
		t.Errorf("updated = %+v", updated)
	}

	w = doRequest(t, r, http.MethodPost, "/api/v1/games/join", alice, gin.H{"game_code": game.GameCode})
	expectStatus(t, w, http.StatusBadRequest)

	expectStatus(t, doRequest(t, r, http.MethodDelete, path, alice, nil), http.StatusForbidden)
	expectStatus(t, doRequest(t, r, http.MethodDelete, path, dm, nil), http.StatusNoContent)
	expectStatus(t, doRequest(t, r, http.MethodGet, path+"/aggregate", dm, nil), http.StatusNotFound)
}

func TestInviteAndLeave(t *testing.T) {
	r := newTestRouter(t)
	dm := register(t, r, "dm")
	alice := register(t, r, "alice")
	game := createGameFor(t, r, dm, 1)
	base := fmt.Sprintf("/api/v1/games/%d", game.ID)

	expectStatus(t, doRequest(t, r, http.MethodPost, base+"/invite", alice, gin.H{"username": "dm"}), http.StatusForbidden)
	expectStatus(t, doRequest(t, r, http.MethodPost, base+"/invite", dm, gin.H{"username": "ghost"}), http.StatusNotFound)

	w := doRequest(t, r, http.MethodPost, base+"/invite", dm, gin.H{"username": "alice"})
	expectStatus(t, w, http.StatusOK)
	if p := decode[RosterChangeResponse](t, w).Progress; p.Joined != 0 {
		t.Errorf("invited players are not joined: %+v", p)
	}

	// Invited players cannot share until they join.
	formID := createFormFor(t, r, alice, rating("Horror", "Gore", "green"))
	expectStatus(t, doRequest(t, r, http.MethodPost, base+"/share", alice, gin.H{"consent_form_id": formID}), http.StatusForbidden)

	expectStatus(t, doRequest(t, r, http.MethodPost, "/api/v1/games/join", alice, gin.H{"game_code": game.GameCode}), http.StatusOK)
	expectStatus(t, doRequest(t, r, http.MethodPost, base+"/share", alice, gin.H{"consent_form_id": formID}), http.StatusOK)

	agg := decode[AggregateResponse](t, doRequest(t, r, http.MethodGet, base+"/aggregate", dm, nil))
	if !agg.CanDisclose {
		t.Fatalf("aggregate = %+v", agg)
	}

	w = doRequest(t, r, http.MethodPost, base+"/leave", alice, nil)
	expectStatus(t, w, http.StatusOK)
	if p := decode[RosterChangeResponse](t, w).Progress; p.Joined != 0 || p.Shared != 0 {
		t.Errorf("progress after leave = %+v", p)
	}
	agg = decode[AggregateResponse](t, doRequest(t, r, http.MethodGet, base+"/aggregate", dm, nil))
	if agg.CanDisclose || len(agg.Report) != 0 {
		t.Errorf("empty roster must not disclose: %+v", agg)
	}
	expectStatus(t, doRequest(t, r, http.MethodPost, base+"/leave", alice, nil), http.StatusForbidden)
}

func TestGameActivityLog(t *testing.T) {
	r := newTestRouter(t)
	dm := register(t, r, "dm")
	alice := register(t, r, "alice")
	game := createGameFor(t, r, dm, 1)
	formID := createFormFor(t, r, alice, rating("Horror", "Gore", "red"))
	base := fmt.Sprintf("/api/v1/games/%d", game.ID)

	expectStatus(t, doRequest(t, r, http.MethodPost, "/api/v1/games/join", alice, gin.H{"game_code": game.GameCode}), http.StatusOK)
	expectStatus(t, doRequest(t, r, http.MethodPost, base+"/share", alice, gin.H{"consent_form_id": formID}), http.StatusOK)

	expectStatus(t, doRequest(t, r, http.MethodGet, base+"/activity", alice, nil), http.StatusForbidden)

	w := doRequest(t, r, http.MethodGet, base+"/activity?limit=1", dm, nil)
	expectStatus(t, w, http.StatusOK)
	page := decode[PaginatedResponse[ActivityResponse]](t, w)
	if page.Meta.TotalItems != 2 || page.Meta.TotalPages != 2 || len(page.Data) != 1 {
		t.Fatalf("activity = %+v", page)
	}
	if page.Data[0].Type != "form_shared" {
		t.Errorf("newest event = %q", page.Data[0].Type)
	}
	if strings.Contains(string(page.Data[0].Payload), "red") {
		t.Errorf("activity payload leaks ratings: %s", page.Data[0].Payload)
	}
}

func TestPublicViews(t *testing.T) {
	r := newTestRouter(t)
	alice := register(t, r, "alice")
	bob := register(t, r, "bob")

	w := doRequest(t, r, http.MethodPost, "/api/v1/consent-forms", alice, gin.H{
		"name": "Open", "is_public": true, "responses": []gin.H{rating("Horror", "Gore", "green")},
	})
	expectStatus(t, w, http.StatusCreated)
	publicForm := decode[ConsentFormResponse](t, w)
	privateID := createFormFor(t, r, alice)

	w = doRequest(t, r, http.MethodGet, "/api/v1/public/u/alice", bob, nil)
	expectStatus(t, w, http.StatusOK)
	profile := decode[PublicProfileResponse](t, w)
	if profile.IsOwner || len(profile.Forms) != 1 || profile.Forms[0].ShareToken != "" {
		t.Errorf("profile as bob = %+v", profile)
	}

	w = doRequest(t, r, http.MethodGet, "/api/v1/public/u/alice", alice, nil)
	if !decode[PublicProfileResponse](t, w).IsOwner {
		t.Error("alice should be marked as owner")
	}

	expectStatus(t, doRequest(t, r, http.MethodGet, "/api/v1/public/u/ghost", "", nil), http.StatusNotFound)
	expectStatus(t, doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/v1/public/u/alice/consent-forms/%d", publicForm.ID), "", nil), http.StatusOK)
	expectStatus(t, doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/v1/public/u/alice/consent-forms/%d", privateID), "", nil), http.StatusNotFound)

	w = doRequest(t, r, http.MethodGet, "/api/v1/public/shared/"+publicForm.ShareToken, "", nil)
	expectStatus(t, w, http.StatusOK)
	if shared := decode[PublicFormResponse](t, w); shared.Owner.Username != "alice" || shared.Form.ID != publicForm.ID {
		t.Errorf("shared = %+v", shared)
	}
	expectStatus(t, doRequest(t, r, http.MethodGet, "/api/v1/public/shared/nope", "", nil), http.StatusNotFound)
}

func TestGetTopics(t *testing.T) {
	r := newTestRouter(t)
	w := doRequest(t, r, http.MethodGet, "/api/v1/topics", "", nil)
	expectStatus(t, w, http.StatusOK)
	catalog := decode[TopicCatalogResponse](t, w)
	if len(catalog.Categories) == 0 || catalog.Categories[0].Name != "Horror" {
		t.Errorf("categories = %+v", catalog.Categories)
	}
	if len(catalog.MovieRatings) != 6 {
		t.Errorf("movie ratings = %v", catalog.MovieRatings)
	}
}

func TestStreamGameEvents(t *testing.T) {
	r := newTestRouter(t)
	dm := register(t, r, "dm")
	alice := register(t, r, "alice")
	game := createGameFor(t, r, dm, 1)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/v1/games/%d/events", ts.URL, game.ID), nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+dm)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	lines := bufio.NewScanner(resp.Body)
	nextData := func() map[string]any {
		t.Helper()
		for lines.Scan() {
			line := lines.Text()
			if data, ok := strings.CutPrefix(line, "data:"); ok && data != "" {
				var ev map[string]any
				if err := json.Unmarshal([]byte(data), &ev); err != nil {
					t.Fatalf("decode event %q: %v", data, err)
				}
				return ev
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return nil
	}

	if ev := nextData(); ev["type"] != "progress" {
		t.Fatalf("first event = %v, want progress", ev)
	}

	expectStatus(t, doRequest(t, r, http.MethodPost, "/api/v1/games/join", alice, gin.H{"game_code": game.GameCode}), http.StatusOK)

	ev := nextData()
	if ev["type"] != "player_joined" {
		t.Fatalf("event = %v, want player_joined", ev)
	}
	payload, _ := ev["payload"].(map[string]any)
	progress, _ := payload["progress"].(map[string]any)
	if progress["joined"] != float64(1) {
		t.Errorf("progress = %v", progress)
	}
}

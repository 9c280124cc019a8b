package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gamepicker/internal/cache"
	"gamepicker/internal/model"
	"gamepicker/internal/selection"
	"gamepicker/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type api struct {
	t      *testing.T
	mr     *miniredis.Miniredis
	router http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	roomCache := cache.NewRoomCache(client, time.Hour)
	sessionCache := cache.NewSessionCache(client)
	itemCache := cache.NewItemCache(client)
	historyCache := cache.NewHistoryCache(client)

	authSvc := service.NewAuthService(cache.NewCredentialCache(client), "test-secret", time.Hour)
	c := &Container{
		AuthService:     authSvc,
		RoomService:     service.NewRoomService(roomCache, authSvc),
		ItemService:     service.NewItemService(itemCache, historyCache, roomCache),
		PickService:     service.NewPickService(sessionCache, itemCache, roomCache, selection.NewSelector(nil), time.Minute),
		VoteService:     service.NewVoteService(sessionCache, itemCache, historyCache, roomCache, nil),
		PresenceService: service.NewPresenceService(roomCache, cache.NewPresenceCache(client, time.Hour), time.Minute, time.Minute),
		Ping:            func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
	return &api{t: t, mr: mr, router: NewRouter(c)}
}

func (a *api) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *api) login() string {
	rec := a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"password": "hunter2"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[model.LoginResponse](a.t, rec).Token
}

func (a *api) createRoom(creatorToken, username string) model.JoinResponse {
	rec := a.do(http.MethodPost, "/v1/rooms", creatorToken, map[string]string{"username": username})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.JoinResponse](a.t, rec)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	a.mr.SetError("server down")
	rec = a.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogin(t *testing.T) {
	a := newAPI(t)
	a.login()

	rec := a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatorRoutesRequireToken(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/v1/rooms", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	host := a.createRoom(a.login(), "Alice")
	rec = a.do(http.MethodGet, "/v1/rooms", host.Token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "member token is not a creator token")
}

func TestMemberRoutesCheckRoom(t *testing.T) {
	a := newAPI(t)
	creator := a.login()
	first := a.createRoom(creator, "Alice")
	second := a.createRoom(creator, "Bob")

	rec := a.do(http.MethodGet, "/v1/rooms/"+first.Room.Code+"/items", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodGet, "/v1/rooms/"+first.Room.Code+"/items", second.Token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodGet, "/v1/rooms/"+first.Room.Code+"/items", first.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRoundTrip(t *testing.T) {
	a := newAPI(t)
	host := a.createRoom(a.login(), "Alice")
	code := host.Room.Code
	require.True(t, host.Room.IsHost)

	for _, name := range []string{"Catan", "Azul"} {
		rec := a.do(http.MethodPost, "/v1/rooms/"+code+"/items", host.Token, map[string]string{"name": name, "length": "short"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := a.do(http.MethodPost, "/v1/rooms/"+code+"/join", "", map[string]string{"username": "Alice"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/join", "", map[string]string{"username": "Bob"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	guest := decode[model.JoinResponse](t, rec)
	require.False(t, guest.Room.IsHost)
	require.Equal(t, 2, guest.Room.MemberCount)

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/session/pick", guest.Token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/session/pick", host.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	picked := decode[struct {
		Session model.Session `json:"session"`
	}](t, rec).Session
	require.Equal(t, model.StatusActive, picked.Status)
	require.NotNil(t, picked.ItemID)
	itemID := *picked.ItemID

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/session/pick", host.Token, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/session/vote", guest.Token, map[string]string{"itemId": "g_other", "choice": "confirm"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/session/vote", guest.Token, map[string]string{"itemId": itemID, "choice": "maybe"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/session/vote", guest.Token, map[string]string{"itemId": itemID, "choice": "confirm"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[service.VoteResult](t, rec)
	require.False(t, first.Finalized)
	require.Equal(t, 2, first.MemberCount)

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/session/vote", host.Token, map[string]string{"itemId": itemID, "choice": "confirm"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[service.VoteResult](t, rec)
	require.True(t, second.Finalized)
	require.Equal(t, model.OutcomePlayed, second.Outcome)

	rec = a.do(http.MethodGet, "/v1/rooms/"+code+"/session", guest.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"session":null}`, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/session/vote", guest.Token, map[string]string{"itemId": itemID, "choice": "confirm"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodGet, "/v1/rooms/"+code+"/history", guest.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[struct {
		History []model.HistoryEntry `json:"history"`
	}](t, rec).History
	require.Len(t, history, 1)
	require.Equal(t, itemID, history[0].ItemID)
	require.Equal(t, model.OutcomePlayed, history[0].Status)

	rec = a.do(http.MethodGet, "/v1/rooms/"+code+"/rounds", guest.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"rounds":[]}`, rec.Body.String())
}

func TestHostActions(t *testing.T) {
	a := newAPI(t)
	creator := a.login()
	host := a.createRoom(creator, "Alice")
	code := host.Room.Code

	rec := a.do(http.MethodPost, "/v1/rooms/"+code+"/join", "", map[string]string{"username": "Bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	guest := decode[model.JoinResponse](t, rec)

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/host/claim", guest.Token, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/kick", host.Token, map[string]string{"userId": host.MemberID})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/stats/reset", guest.Token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/host/transfer", host.Token, map[string]string{"userId": guest.MemberID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	room := decode[model.Room](t, rec)
	require.Equal(t, guest.MemberID, room.HostID)

	rec = a.do(http.MethodPost, "/v1/rooms/"+code+"/kick", guest.Token, map[string]string{"userId": host.MemberID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	room = decode[model.Room](t, rec)
	require.Len(t, room.Members, 1)

	rec = a.do(http.MethodPut, "/v1/rooms/"+code+"/name", creator, map[string]string{"name": "Friday"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Friday", decode[model.Room](t, rec).Name)

	rec = a.do(http.MethodDelete, "/v1/rooms/"+code, creator, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/v1/rooms/"+code, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogAndClone(t *testing.T) {
	a := newAPI(t)
	creator := a.login()

	rec := a.do(http.MethodPost, "/v1/catalog/items", creator, map[string]string{"name": "Root", "length": "long"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	host := a.createRoom(creator, "Alice")
	rec = a.do(http.MethodPost, "/v1/rooms/"+host.Room.Code+"/clone", creator, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[service.CloneResult](t, rec)
	require.Equal(t, 1, result.ItemsCloned)

	rec = a.do(http.MethodGet, "/v1/rooms/"+host.Room.Code+"/items", host.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[struct {
		Games []model.Item `json:"games"`
	}](t, rec).Games
	require.Len(t, items, 1)
	require.Equal(t, "Root", items[0].Name)
	require.Equal(t, 1.0, items[0].Weight)

	rec = a.do(http.MethodPost, "/v1/rooms/NOPE99/clone", creator, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	a := newAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/rooms", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

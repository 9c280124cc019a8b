package app

import (
	"gamepicker/internal/cache"
	"gamepicker/internal/config"
	"gamepicker/internal/repository"
	"gamepicker/internal/selection"
	"gamepicker/internal/service"

	"github.com/redis/go-redis/v9"
)

// App holds the caches and services of one process, wired from config
type App struct {
	Rooms       cache.RoomCache
	Sessions    cache.SessionCache
	Items       cache.ItemCache
	History     cache.HistoryCache
	Presence    cache.PresenceCache
	Credentials cache.CredentialCache
	Rounds      repository.RoundRepo // nil when the archive is disabled

	AuthService     *service.AuthService
	RoomService     *service.RoomService
	ItemService     *service.ItemService
	PickService     *service.PickService
	VoteService     *service.VoteService
	PresenceService *service.PresenceService
}

// New builds every cache on rdb and every service on top of them. rounds may be nil.
func New(cfg *config.Config, rdb *redis.Client, rounds repository.RoundRepo) *App {
	a := &App{
		Rooms:       cache.NewRoomCache(rdb, cfg.Room.TTL),
		Sessions:    cache.NewSessionCache(rdb),
		Items:       cache.NewItemCache(rdb),
		History:     cache.NewHistoryCache(rdb),
		Presence:    cache.NewPresenceCache(rdb, cfg.Presence.TTL),
		Credentials: cache.NewCredentialCache(rdb),
		Rounds:      rounds,
	}

	a.AuthService = service.NewAuthService(a.Credentials, cfg.Auth.JWTSecret, cfg.Auth.MemberTokenTTL)
	a.RoomService = service.NewRoomService(a.Rooms, a.AuthService)
	a.ItemService = service.NewItemService(a.Items, a.History, a.Rooms)
	a.PickService = service.NewPickService(a.Sessions, a.Items, a.Rooms, selection.NewSelector(nil), cfg.Session.TTL)
	a.VoteService = service.NewVoteService(a.Sessions, a.Items, a.History, a.Rooms, rounds)
	a.PresenceService = service.NewPresenceService(a.Rooms, a.Presence, cfg.Presence.Grace, cfg.Presence.StaleAfter)
	if rounds != nil {
		a.RoomService.SetRoundArchive(rounds)
	}
	return a
}

// SetBroadcaster routes the realtime events of every service to b
func (a *App) SetBroadcaster(b service.Broadcaster) {
	a.RoomService.SetBroadcaster(b)
	a.PickService.SetBroadcaster(b)
	a.VoteService.SetBroadcaster(b)
	a.PresenceService.SetBroadcaster(b)
}

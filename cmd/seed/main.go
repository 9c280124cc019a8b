package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gamepicker/internal/app"
	"gamepicker/internal/config"
	"gamepicker/internal/model"
	"gamepicker/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

type seedItem struct {
	Name   string
	Length model.Length
}

var defaultCatalog = []seedItem{
	{"Love Letter", model.LengthShort},
	{"Sushi Go!", model.LengthShort},
	{"The Mind", model.LengthShort},
	{"Codenames", model.LengthShort},
	{"Azul", model.LengthMedium},
	{"Carcassonne", model.LengthMedium},
	{"Ticket to Ride", model.LengthMedium},
	{"Splendor", model.LengthMedium},
	{"Catan", model.LengthLong},
	{"Terraforming Mars", model.LengthLong},
	{"Root", model.LengthLong},
}

func main() {
	room := pflag.StringP("room", "r", "", "room code to seed; empty seeds the global catalog")
	reset := pflag.Bool("reset-stats", false, "zero the pick/play/skip counters after seeding")
	pflag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	redisOpts, err := cfg.Redis.Options()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid redis address")
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping Redis")
	}

	items := app.New(cfg, rdb, nil).ItemService
	scope := model.NormalizeRoomCode(*room)

	added, err := seed(ctx, items, scope, defaultCatalog)
	if err != nil {
		log.Fatal().Err(err).Str("room", scope).Msg("seeding failed")
	}
	if *reset {
		if _, err := items.ResetStats(ctx, scope); err != nil {
			log.Fatal().Err(err).Msg("failed to reset stats")
		}
	}

	target := "global catalog"
	if scope != "" {
		target = "room " + scope
	}
	fmt.Printf("Seeded %d new items into the %s (%d already present)\n", added, target, len(defaultCatalog)-added)
}

// seed adds every catalog entry whose name is not in scope yet
func seed(ctx context.Context, items *service.ItemService, scope string, catalog []seedItem) (int, error) {
	existing, err := items.List(ctx, scope)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, it := range existing {
		have[strings.ToLower(it.Name)] = true
	}

	added := 0
	for _, s := range catalog {
		if have[strings.ToLower(s.Name)] {
			continue
		}
		if _, err := items.Add(ctx, scope, s.Name, string(s.Length)); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

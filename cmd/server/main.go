package main

import (
	"log"
	"net/http"

	"matchplay/internal/config"
	"matchplay/internal/game"
	"matchplay/internal/game/rps"
	"matchplay/internal/server"
	"matchplay/internal/session"
	"matchplay/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	registry := game.NewRegistry()
	registry.Register(rps.Rules{})

	hub := server.NewHub()
	mgr := session.NewManager(registry, store, hub, session.Defaults{
		RuleSet:       cfg.DefaultRuleSet,
		BestOf:        cfg.DefaultBestOf,
		RoundTimeout:  cfg.RoundTimeout,
		MatchTimeout:  cfg.MatchTimeout,
		TimeoutPolicy: session.TimeoutPolicy(cfg.RoundTimeoutPolicy),
	})
	go mgr.CleanupLoop(cfg.CleanupInterval, cfg.SessionRetention)

	srv := server.New(registry, mgr, hub)

	log.Printf("listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv); err != nil {
		log.Fatalf("server: %v", err)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"

	"github.com/focusnest/gamification-engine/internal/auth"
	"github.com/focusnest/gamification-engine/internal/config"
	"github.com/focusnest/gamification-engine/internal/httpapi"
	"github.com/focusnest/gamification-engine/internal/logging"
	"github.com/focusnest/gamification-engine/internal/server"
	firestorestore "github.com/focusnest/gamification-engine/internal/store/firestore"
	"github.com/focusnest/gamification-engine/internal/streak"
	"github.com/focusnest/gamification-engine/internal/xp"
)

// rootCollection is the top-level Firestore collection all per-user
// gamification documents are rooted under (spec §6 bit-exact layout).
const rootCollection = "gamification"

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.New("gamification-engine")

	client, err := firestore.NewClientWithDatabase(ctx, cfg.GCPProjectID, cfg.Firestore.Database)
	if err != nil {
		panic(fmt.Errorf("firestore client: %w", err))
	}
	defer client.Close()

	streakRepo := firestorestore.NewStreakRepository(client, rootCollection)
	xpRepo := firestorestore.NewXPRepository(client, rootCollection)
	progressRepo := firestorestore.NewProgressRepository(client, rootCollection)

	streakOrch, err := streak.NewOrchestrator(streakRepo, streak.NewSystemClock(), streak.NewUUIDGenerator())
	if err != nil {
		panic(fmt.Errorf("streak orchestrator: %w", err))
	}
	xpOrch, err := xp.NewOrchestrator(xpRepo, xp.NewSystemClock())
	if err != nil {
		panic(fmt.Errorf("xp orchestrator: %w", err))
	}

	verifier, err := auth.NewVerifier(auth.Config{
		Mode:     auth.Mode(cfg.Auth.Mode),
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
		CacheTTL: cfg.Auth.JWKSCacheTTL,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	router := httpapi.NewRouter("gamification-engine", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier))

			httpapi.RegisterStreakRoutes(r, streakOrch, rootCollection)
			httpapi.RegisterXPRoutes(r, xpOrch, rootCollection)
			httpapi.RegisterProgressRoutes(r, progressRepo)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := server.Run(ctx, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

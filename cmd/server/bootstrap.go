package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/anonto42/nano-community/backend/internal/router"
	"github.com/anonto42/nano-community/backend/pkg/config"
	"github.com/anonto42/nano-community/backend/pkg/firebase"
)

// app holds the opened connections and wired services of one process.
type app struct {
	db       *config.DB
	services *router.Services
}

func (a *app) Close() { a.db.Close() }

// bootstrap opens the stores, migrates them and wires the services. Firebase
// is optional: without credentials Firebase login and story uploads report
// unavailable.
func bootstrap(ctx context.Context, cfg config.Config, ext router.Externals) (*app, error) {
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := router.Migrate(ctx, db.SQL, db.Docs); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.FirebaseCredentialsPath != "" {
		fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseStorageBucket)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("firebase: %w", err)
		}
		ext.Verifier = firebase.NewIDTokenVerifier(fb.AuthClient)
		if cfg.FirebaseStorageBucket != "" {
			store, err := fb.NewBucketStore(ctx)
			if err != nil {
				db.Close()
				return nil, fmt.Errorf("firebase storage: %w", err)
			}
			ext.Media = store
		}
	} else {
		log.Warn().Msg("FIREBASE_CREDENTIALS_PATH not set; firebase login and story uploads disabled")
	}

	return &app{db: db, services: router.BuildServices(cfg, db.SQL, db.Docs, ext)}, nil
}

// Command devtoken mints an access token for local development and smoke
// tests, and can store the user's rights level at the same time.
//
//	devtoken -user 5f0c... -rights everything
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/phrazzld/moderation-api/internal/config"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/platform/logger"
	"github.com/phrazzld/moderation-api/internal/platform/postgres"
	"github.com/phrazzld/moderation-api/internal/service/auth"
)

type options struct {
	userID uuid.UUID
	rights *domain.RightsLevel
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("devtoken", flag.ContinueOnError)
	fs.SetOutput(stderr)
	user := fs.String("user", "", "user UUID to mint the token for (random when empty)")
	rights := fs.String("rights", "", "store this rights level for the user: normal, content_moderator or everything")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{userID: uuid.New()}
	if *user != "" {
		id, err := uuid.Parse(*user)
		if err != nil {
			return options{}, fmt.Errorf("invalid -user: %w", err)
		}
		opts.userID = id
	}
	if *rights != "" {
		level, err := domain.ParseRightsLevel(*rights)
		if err != nil {
			return options{}, fmt.Errorf("invalid -rights: %w", err)
		}
		opts.rights = &level
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	appLogger := logger.New(os.Stderr, cfg.Server.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if opts.rights != nil {
		db, err := sql.Open("pgx", cfg.Database.URL)
		if err != nil {
			log.Fatalf("failed to open database connection: %v", err)
		}
		defer func() { _ = db.Close() }()

		principals := postgres.NewPostgresPrincipalStore(db, appLogger)
		if err := principals.Upsert(ctx, &domain.Principal{UserID: opts.userID, RightsLevel: *opts.rights}); err != nil {
			log.Fatalf("failed to store rights: %v", err)
		}
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		log.Fatalf("failed to initialize JWT service: %v", err)
	}
	token, err := jwtService.GenerateToken(ctx, opts.userID)
	if err != nil {
		log.Fatalf("failed to mint token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "user_id: %s\n", opts.userID)
	fmt.Println(token)
}

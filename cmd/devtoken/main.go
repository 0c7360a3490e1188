// cmd/devtoken — mints a bearer token for local development and manual API testing.
// Usage: go run ./cmd/devtoken -org <uuid> -role manager
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/config"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/middleware"

	"github.com/google/uuid"
)

func main() {
	org := flag.String("org", "", "organization id (defaults to the seed organization)")
	user := flag.String("user", "", "user id (random when empty)")
	role := flag.String("role", middleware.RoleManager, "picker | sales | manager | admin")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.IsProduction() {
		fmt.Fprintln(os.Stderr, "refusing to mint tokens with APP_ENV=production")
		os.Exit(1)
	}

	orgID := seedOrgID
	if *org != "" {
		if orgID, err = uuid.Parse(*org); err != nil {
			fmt.Fprintln(os.Stderr, "invalid -org:", err)
			os.Exit(1)
		}
	}
	userID := uuid.New()
	if *user != "" {
		if userID, err = uuid.Parse(*user); err != nil {
			fmt.Fprintln(os.Stderr, "invalid -user:", err)
			os.Exit(1)
		}
	}

	tok, err := middleware.SignToken(cfg.JWTSecret, orgID, userID, *role, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

// seedOrgID matches the organization created by cmd/seed.
var seedOrgID = uuid.MustParse("00000000-0000-4000-8000-000000000001")

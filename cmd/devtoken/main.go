// Command devtoken prints an application JWT for local testing against the
// protected routes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"crm-connect/internal/auth"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/config"
)

func main() {
	userID := flag.String("user", "1", "CRM user id")
	username := flag.String("name", "dev", "CRM username")
	isDefault := flag.Bool("default", false, "act on the shared default credential")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	if len(cfg.JWTSecret) < 32 {
		fmt.Fprintln(os.Stderr, "JWT_SECRET must be set and at least 32 characters")
		os.Exit(1)
	}
	if *isDefault && !cfg.DefaultCredentialEnabled {
		fmt.Fprintln(os.Stderr, "warning: DEFAULT_CREDENTIAL_ENABLED is false; the server will treat this token as a regular user")
	}

	a := auth.New(cfg, nil, logging.NewNopLogger())
	token, err := a.GenerateJWT(*userID, *username, *isDefault)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}

// migrate applies DB migrations from embedded SQL; run inside the app
// container with go run ./cmd/migrate (or the compiled binary).
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/gostarter/keycloak-webapp/config"
	"github.com/gostarter/keycloak-webapp/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := migrate.Run(cfg.Database.URL(), *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			// Already at target version; success.
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

// Command token issues dashboard access tokens signed with auth.jwt_secret.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gravitas-games/sekaiscout/internal/config"
	"github.com/gravitas-games/sekaiscout/internal/server"
)

func main() {
	subject := flag.String("sub", "viewer", "token subject")
	accounts := flag.String("accounts", "", "comma-separated account ids the token may read (empty: all)")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/sekaiscout.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal("failed to load configuration", "path", configPath, "err", err)
	}

	tokens, err := server.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		log.Fatal("auth.jwt_secret is not configured", "err", err)
	}

	var allowed []string
	for _, a := range strings.Split(*accounts, ",") {
		if a = strings.TrimSpace(a); a != "" {
			allowed = append(allowed, a)
		}
	}

	token, err := tokens.Issue(*subject, allowed, *ttl)
	if err != nil {
		log.Fatal("failed to issue token", "err", err)
	}
	fmt.Println(token)
}

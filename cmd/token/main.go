// Package main выпускает сервисный токен для клиента внутреннего API.
//
//	CONFIG_PATH=./config/local.yaml go run ./cmd/token -service bot
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/magabrotheeeer/progress-engine/internal/config"
	"github.com/magabrotheeeer/progress-engine/internal/lib/jwt"
)

func main() {
	service := flag.String("service", "bot", "имя клиента API")
	ttl := flag.Duration("ttl", 0, "время жизни токена, по умолчанию из конфига")
	flag.Parse()

	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	cfg := config.MustLoad()
	if cfg.JWTSecretKey == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	lifetime := cfg.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := jwt.NewJWTMaker(cfg.JWTSecretKey, lifetime).GenerateToken(*service)
	if err != nil {
		log.Fatalf("failed to generate token: %s", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", time.Now().Add(lifetime).Format(time.RFC3339))
}

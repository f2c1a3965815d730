package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/internal/shared/config"
	"github.com/radieske/chance-engine/internal/shared/logger"
)

func rp(to string) *httputil.ReverseProxy {
	u, _ := url.Parse(to)
	return httputil.NewSingleHostReverseProxy(u)
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer log.Sync()

	chance := rp(cfg.ChanceURL)
	wallet := rp(cfg.WalletURL)

	mux := http.NewServeMux()

	// jogos (ex.: /api/chance/v1/games/crash/bets -> chance-service), inclui o upgrade do /ws
	mux.Handle("/api/chance/", http.StripPrefix("/api/chance", chance))

	// wallet (ex.: /api/wallet/* -> wallet-service)
	mux.Handle("/api/wallet/", http.StripPrefix("/api/wallet", wallet))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening",
		zap.String("addr", addr),
		zap.String("chance", cfg.ChanceURL),
		zap.String("wallet", cfg.WalletURL),
	)
	if err := http.ListenAndServe(addr, withCORS(cfg.CORSOrigin, mux)); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

// withCORS libera o front-end nas origens de CORS_ORIGIN
func withCORS(origin string, h http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return cors.New(cors.Options{
		AllowedOrigins: strings.Split(origin, ","),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(h)
}

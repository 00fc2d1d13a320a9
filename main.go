package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/financoor/backend/src/commitment"
	"github.com/financoor/backend/src/config"
	"github.com/financoor/backend/src/database"
	"github.com/financoor/backend/src/handlers"
	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/prover"
	"github.com/financoor/backend/src/registry"
	"github.com/financoor/backend/src/security"
	"github.com/financoor/backend/src/services"
	"github.com/financoor/backend/src/taxengine"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func maxBytesMiddleware(limit int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Financoor backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	logger.L.Info("Loading tax rate schedule...", "path", config.Cfg.TaxRatesPath)
	schedule, err := taxengine.LoadSchedule(config.Cfg.TaxRatesPath)
	if err != nil {
		logger.L.Warn("Failed to load tax rate schedule, using built-in defaults", "error", err)
		schedule = taxengine.DefaultSchedule()
	}

	var jobStore services.JobStore
	if config.Cfg.JobStore == "sqlite" {
		logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
		database.InitDB(config.Cfg.DatabasePath)
		logger.L.Info("Database initialized successfully.")
		jobStore = services.NewSQLiteJobStore(database.DB)
	} else {
		jobStore = services.NewMemoryJobStore()
	}

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	engine := taxengine.New(schedule)
	encoder := commitment.NewEncoder(engine)

	var (
		backend  prover.Backend
		verifier registry.Verifier
	)
	switch config.Cfg.ProverMode {
	case "http":
		logger.L.Info("Using external proving backend", "url", config.Cfg.ProverURL)
		backend = prover.NewHTTPBackend(config.Cfg.ProverURL)
		// The authoritative registry for externally generated proofs is the
		// on-chain contract. The in-process one stays read-only here.
		verifier = &registry.UnavailableVerifier{
			Reason: "proofs from the external backend are verified on chain",
		}
	default:
		logger.L.Info("Setting up local Groth16 proving backend...")
		local, err := prover.NewLocalBackend()
		if err != nil {
			logger.L.Error("Failed to set up local proving backend", "error", err)
			os.Exit(1)
		}
		g16, err := prover.NewGroth16Verifier(local.VerifyingKeyBytes())
		if err != nil {
			logger.L.Error("Failed to construct verifier", "error", err)
			os.Exit(1)
		}
		backend = local
		verifier = g16
		logger.L.Info("Local proving backend ready", "vkeyHash", g16.VKeyHash().Hex())
	}

	vkCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	vkHashStr, err := backend.VKeyHash(vkCtx)
	cancel()
	if err != nil {
		logger.L.Error("Failed to fetch verification key hash from backend", "error", err)
		os.Exit(1)
	}
	reg := registry.NewRegistry(verifier, common.HexToHash(vkHashStr))

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	taxService := services.NewTaxService(engine, reportCache)
	proofService := services.NewProofService(
		encoder, backend, jobStore,
		config.Cfg.ProofWorkers, config.Cfg.ProofQueueSize, config.Cfg.ProverTimeout,
	)
	defer proofService.Close()

	authHandler := handlers.NewAuthHandler(authService)
	taxHandler := handlers.NewTaxHandler(taxService)
	proofHandler := handlers.NewProofHandler(proofService)
	registryHandler := handlers.NewRegistryHandler(reg)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "proverMode": config.Cfg.ProverMode})
	})
	apiRouter.HandleFunc("POST /api/auth/token", authHandler.HandleToken)
	apiRouter.HandleFunc("GET /api/registry/vkey", registryHandler.HandleVKey)
	apiRouter.HandleFunc("GET /api/registry/records/{commitment}", registryHandler.HandleRecord)

	requireAuth := handlers.RequireAuth(authService)
	apiRouter.Handle("POST /api/tax/compute", requireAuth(http.HandlerFunc(taxHandler.HandleCompute)))
	apiRouter.Handle("POST /api/proofs", requireAuth(http.HandlerFunc(proofHandler.HandleSubmit)))
	apiRouter.Handle("GET /api/proofs/{id}", requireAuth(http.HandlerFunc(proofHandler.HandleStatus)))
	apiRouter.Handle("POST /api/registry/verify", requireAuth(http.HandlerFunc(registryHandler.HandleVerify)))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Financoor backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(maxBytesMiddleware(config.Cfg.MaxRequestBytes, rootMux)))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}

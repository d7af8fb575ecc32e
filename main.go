package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lucas12072/clinica-backend/internal/api"
	"github.com/lucas12072/clinica-backend/internal/cache"
	"github.com/lucas12072/clinica-backend/internal/config"
	"github.com/lucas12072/clinica-backend/internal/middleware"
	"github.com/lucas12072/clinica-backend/internal/migrate"
	"github.com/lucas12072/clinica-backend/internal/seed"
)

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("config postgres")
		}
		if cfg.DBMaxConns > 0 {
			poolConfig.MaxConns = int32(cfg.DBMaxConns)
		}
		if cfg.DBMinConns > 0 {
			poolConfig.MinConns = int32(cfg.DBMinConns)
		}
		pool, err = pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("conexão postgres")
		}
		defer pool.Close()
		if err := pool.Ping(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("ping postgres")
		}
		if err := migrate.Run(context.Background(), pool, "migrations"); err != nil {
			log.Fatal().Err(err).Msg("migrations")
		}
		if err := seed.Run(context.Background(), pool); err != nil {
			log.Warn().Err(err).Msg("seed")
		}
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if pool == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no database"}`))
			return
		}
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"db unhealthy"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	h := &api.Handler{Pool: pool, Cfg: cfg, Cache: cache.New(30 * time.Second)}

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuthMiddleware(cfg.JWTSecret))
	protected.HandleFunc("/me", h.Me).Methods(http.MethodGet)

	protected.Handle("/users/", middleware.RequireAdmin(http.HandlerFunc(h.ListUsers))).Methods(http.MethodGet)
	protected.Handle("/users/", middleware.RequireAdmin(http.HandlerFunc(h.CreateUser))).Methods(http.MethodPost)
	protected.HandleFunc("/users/buscar", h.BuscarPorEmail).Methods(http.MethodGet)
	protected.HandleFunc("/users/me/alterar-senha", h.AlterarSenha).Methods(http.MethodPost)
	protected.HandleFunc("/users/{id}", h.UpdateUser).Methods(http.MethodPut)
	protected.Handle("/users/{id}", middleware.RequireAdmin(http.HandlerFunc(h.DeleteUser))).Methods(http.MethodDelete)
	protected.Handle("/users/{id}/reset-senha", middleware.RequireAdmin(http.HandlerFunc(h.ResetSenha))).Methods(http.MethodPost)

	protected.HandleFunc("/patients/", h.ListPatients).Methods(http.MethodGet)
	protected.HandleFunc("/patients/", h.CreatePatient).Methods(http.MethodPost)
	protected.HandleFunc("/patients/{id}", h.GetPatient).Methods(http.MethodGet)
	protected.HandleFunc("/patients/{id}", h.UpdatePatient).Methods(http.MethodPut)
	protected.HandleFunc("/patients/{id}", h.DeletePatient).Methods(http.MethodDelete)

	protected.HandleFunc("/procedures/", h.ListProcedures).Methods(http.MethodGet)
	protected.Handle("/procedures/", middleware.RequireAdmin(http.HandlerFunc(h.CreateProcedure))).Methods(http.MethodPost)
	protected.HandleFunc("/procedures/{id}", h.GetProcedure).Methods(http.MethodGet)
	protected.Handle("/procedures/{id}", middleware.RequireAdmin(http.HandlerFunc(h.UpdateProcedure))).Methods(http.MethodPut)
	protected.Handle("/procedures/{id}", middleware.RequireAdmin(http.HandlerFunc(h.DeleteProcedure))).Methods(http.MethodDelete)

	protected.HandleFunc("/appointments/", h.ListAppointments).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/", h.CreateAppointment).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/between", h.ListAppointmentsBetween).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}", h.GetAppointment).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}", h.UpdateAppointment).Methods(http.MethodPut)
	protected.HandleFunc("/appointments/{id}", h.DeleteAppointment).Methods(http.MethodDelete)
	protected.HandleFunc("/appointments/{id}/recibo", h.AppointmentReceipt).Methods(http.MethodGet)

	chain := middleware.Recover(middleware.RequestID(middleware.Timeout(cfg.RequestTimeoutSec)(middleware.CORS(cfg.CORSOrigins)(middleware.Gzip(r)))))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("backend listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("server stopped")
}

package api

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucas12072/clinica-backend/internal/cache"
	"github.com/lucas12072/clinica-backend/internal/config"
)

// Handler agrupa as dependências compartilhadas pelos handlers HTTP.
type Handler struct {
	Pool  *pgxpool.Pool
	Cfg   *config.Config
	Cache *cache.TTL
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

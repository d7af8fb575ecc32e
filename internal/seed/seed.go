package seed

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/lucas12072/clinica-backend/internal/auth"
)

// Run cria o primeiro usuário admin e alguns procedimentos de exemplo.
// Idempotente: não faz nada quando já existem usuários.
func Run(ctx context.Context, pool *pgxpool.Pool) error {
	var n int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM usuarios").Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		log.Info().Msg("seed: usuários existem, nada a fazer")
		return nil
	}

	adminHash, err := auth.HashPassword("Admin123!")
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO usuarios (email, nome, tipo, senha_hash)
		VALUES ($1, $2, $3, $4)
	`, "admin@clinica.local", "Administrador", auth.TipoAdmin, adminHash)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO procedimentos (nome, descricao, valor_plano, valor_particular)
		VALUES ('Consulta', 'Consulta clínica geral', 80, 150),
		       ('Limpeza', 'Profilaxia e limpeza', 60, 120),
		       ('Avaliação', 'Avaliação inicial', 0, 100)
		ON CONFLICT (nome) DO NOTHING
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("seed: admin e procedimentos iniciais criados")
	return nil
}

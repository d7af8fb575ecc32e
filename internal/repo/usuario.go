package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Usuario struct {
	ID        int64
	Email     string
	Nome      string
	Tipo      string
	SenhaHash string
}

func UsuarioByEmail(ctx context.Context, pool *pgxpool.Pool, email string) (*Usuario, error) {
	var u Usuario
	err := pool.QueryRow(ctx, `
		SELECT id, email, nome, tipo, senha_hash
		FROM usuarios WHERE lower(email) = lower($1)
	`, email).Scan(&u.ID, &u.Email, &u.Nome, &u.Tipo, &u.SenhaHash)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func UsuarioByID(ctx context.Context, pool *pgxpool.Pool, id int64) (*Usuario, error) {
	var u Usuario
	err := pool.QueryRow(ctx, `
		SELECT id, email, nome, tipo, senha_hash
		FROM usuarios WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Nome, &u.Tipo, &u.SenhaHash)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func CreateUsuario(ctx context.Context, pool *pgxpool.Pool, email, nome, tipo, senhaHash string) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO usuarios (email, nome, tipo, senha_hash)
		VALUES ($1, $2, $3, $4) RETURNING id
	`, email, nome, tipo, senhaHash).Scan(&id)
	return id, err
}

func UpdateUsuario(ctx context.Context, pool *pgxpool.Pool, id int64, nome, email string) error {
	result, err := pool.Exec(ctx, `
		UPDATE usuarios SET nome = $1, email = $2, updated_at = now() WHERE id = $3
	`, nome, email, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func UpdateUsuarioSenha(ctx context.Context, pool *pgxpool.Pool, id int64, senhaHash string) error {
	result, err := pool.Exec(ctx, `
		UPDATE usuarios SET senha_hash = $1, updated_at = now() WHERE id = $2
	`, senhaHash, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func DeleteUsuario(ctx context.Context, pool *pgxpool.Pool, id int64) error {
	result, err := pool.Exec(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListUsuarios returns users ordered by id. limit 0 means no limit.
func ListUsuarios(ctx context.Context, pool *pgxpool.Pool, limit, offset int) ([]Usuario, error) {
	q := `SELECT id, email, nome, tipo, senha_hash FROM usuarios ORDER BY id`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}
	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Usuario
	for rows.Next() {
		var u Usuario
		if err := rows.Scan(&u.ID, &u.Email, &u.Nome, &u.Tipo, &u.SenhaHash); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func CountUsuarios(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM usuarios`).Scan(&n)
	return n, err
}

package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Procedimento struct {
	ID              int64
	Nome            string
	Descricao       string
	ValorPlano      float64
	ValorParticular float64
}

func ProcedimentoByID(ctx context.Context, pool *pgxpool.Pool, id int64) (*Procedimento, error) {
	var p Procedimento
	err := pool.QueryRow(ctx, `
		SELECT id, nome, descricao, valor_plano, valor_particular
		FROM procedimentos WHERE id = $1
	`, id).Scan(&p.ID, &p.Nome, &p.Descricao, &p.ValorPlano, &p.ValorParticular)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func ProcedimentoByNome(ctx context.Context, pool *pgxpool.Pool, nome string) (*Procedimento, error) {
	var p Procedimento
	err := pool.QueryRow(ctx, `
		SELECT id, nome, descricao, valor_plano, valor_particular
		FROM procedimentos WHERE nome = $1
	`, nome).Scan(&p.ID, &p.Nome, &p.Descricao, &p.ValorPlano, &p.ValorParticular)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func CreateProcedimento(ctx context.Context, pool *pgxpool.Pool, nome, descricao string, valorPlano, valorParticular float64) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO procedimentos (nome, descricao, valor_plano, valor_particular)
		VALUES ($1, $2, $3, $4) RETURNING id
	`, nome, descricao, valorPlano, valorParticular).Scan(&id)
	return id, err
}

func UpdateProcedimento(ctx context.Context, pool *pgxpool.Pool, p *Procedimento) error {
	result, err := pool.Exec(ctx, `
		UPDATE procedimentos
		SET nome = $1, descricao = $2, valor_plano = $3, valor_particular = $4, updated_at = now()
		WHERE id = $5
	`, p.Nome, p.Descricao, p.ValorPlano, p.ValorParticular, p.ID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func DeleteProcedimento(ctx context.Context, pool *pgxpool.Pool, id int64) error {
	result, err := pool.Exec(ctx, `DELETE FROM procedimentos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListProcedimentos returns procedures ordered by id. limit 0 means no limit.
func ListProcedimentos(ctx context.Context, pool *pgxpool.Pool, limit, offset int) ([]Procedimento, error) {
	q := `SELECT id, nome, descricao, valor_plano, valor_particular FROM procedimentos ORDER BY id`
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
	var list []Procedimento
	for rows.Next() {
		var p Procedimento
		if err := rows.Scan(&p.ID, &p.Nome, &p.Descricao, &p.ValorPlano, &p.ValorParticular); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func CountProcedimentos(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM procedimentos`).Scan(&n)
	return n, err
}

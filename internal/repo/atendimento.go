package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Atendimento struct {
	ID             int64
	DataHora       time.Time
	Tipo           string
	NumeroCarteira *string
	ValorTotal     float64
	UsuarioID      int64
	PacienteID     int64
}

const atendimentoCols = `id, data_hora, tipo, numero_carteira, valor_total, usuario_id, paciente_id`

func scanAtendimento(row pgx.Row) (*Atendimento, error) {
	var a Atendimento
	err := row.Scan(&a.ID, &a.DataHora, &a.Tipo, &a.NumeroCarteira, &a.ValorTotal, &a.UsuarioID, &a.PacienteID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func AtendimentoByID(ctx context.Context, pool *pgxpool.Pool, id int64) (*Atendimento, error) {
	return scanAtendimento(pool.QueryRow(ctx, `
		SELECT `+atendimentoCols+` FROM atendimentos WHERE id = $1
	`, id))
}

// CreateAtendimento insere o atendimento e seus vínculos de procedimento em
// uma única transação.
func CreateAtendimento(ctx context.Context, pool *pgxpool.Pool, a *Atendimento, procIDs []int64) (int64, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO atendimentos (data_hora, tipo, numero_carteira, valor_total, usuario_id, paciente_id)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id
	`, a.DataHora, a.Tipo, a.NumeroCarteira, a.ValorTotal, a.UsuarioID, a.PacienteID).Scan(&id)
	if err != nil {
		return 0, err
	}

	if err := insertVinculos(ctx, tx, id, procIDs); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateAtendimento grava a linha do atendimento; quando replaceProcs é true,
// os vínculos atuais são removidos e reinseridos a partir de procIDs.
func UpdateAtendimento(ctx context.Context, pool *pgxpool.Pool, a *Atendimento, replaceProcs bool, procIDs []int64) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE atendimentos
		SET data_hora = $1, tipo = $2, numero_carteira = $3, valor_total = $4, paciente_id = $5, updated_at = now()
		WHERE id = $6
	`, a.DataHora, a.Tipo, a.NumeroCarteira, a.ValorTotal, a.PacienteID, a.ID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if replaceProcs {
		if _, err := tx.Exec(ctx, `DELETE FROM atendimento_procedimentos WHERE atendimento_id = $1`, a.ID); err != nil {
			return err
		}
		if err := insertVinculos(ctx, tx, a.ID, procIDs); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func DeleteAtendimento(ctx context.Context, pool *pgxpool.Pool, id int64) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM atendimento_procedimentos WHERE atendimento_id = $1`, id); err != nil {
		return err
	}
	result, err := tx.Exec(ctx, `DELETE FROM atendimentos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func insertVinculos(ctx context.Context, tx pgx.Tx, atendimentoID int64, procIDs []int64) error {
	if len(procIDs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO atendimento_procedimentos (atendimento_id, procedimento_id) VALUES `)
	args := make([]interface{}, 0, len(procIDs)+1)
	args = append(args, atendimentoID)
	for i, pid := range procIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("($1, $%d)", i+2))
		args = append(args, pid)
	}
	_, err := tx.Exec(ctx, sb.String(), args...)
	return err
}

// ListAtendimentos pagina pelos ids. limit 0 lista tudo.
func ListAtendimentos(ctx context.Context, pool *pgxpool.Pool, limit, offset int) ([]Atendimento, error) {
	q := `SELECT ` + atendimentoCols + ` FROM atendimentos ORDER BY id`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}
	return queryAtendimentos(ctx, pool, q, args...)
}

func CountAtendimentos(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM atendimentos`).Scan(&n)
	return n, err
}

// ListAtendimentosEntre retorna atendimentos no intervalo fechado
// [inicio, fim], ordenados pela data.
func ListAtendimentosEntre(ctx context.Context, pool *pgxpool.Pool, inicio, fim time.Time, limit, offset int) ([]Atendimento, error) {
	q := `SELECT ` + atendimentoCols + ` FROM atendimentos WHERE data_hora >= $1 AND data_hora <= $2 ORDER BY data_hora, id`
	args := []interface{}{inicio, fim}
	if limit > 0 {
		q += ` LIMIT $3 OFFSET $4`
		args = append(args, limit, offset)
	}
	return queryAtendimentos(ctx, pool, q, args...)
}

func CountAtendimentosEntre(ctx context.Context, pool *pgxpool.Pool, inicio, fim time.Time) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM atendimentos WHERE data_hora >= $1 AND data_hora <= $2`, inicio, fim).Scan(&n)
	return n, err
}

func queryAtendimentos(ctx context.Context, pool *pgxpool.Pool, q string, args ...interface{}) ([]Atendimento, error) {
	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Atendimento
	for rows.Next() {
		var a Atendimento
		if err := rows.Scan(&a.ID, &a.DataHora, &a.Tipo, &a.NumeroCarteira, &a.ValorTotal, &a.UsuarioID, &a.PacienteID); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// ProcedimentosByAtendimento carrega os procedimentos vinculados, na ordem de id.
func ProcedimentosByAtendimento(ctx context.Context, pool *pgxpool.Pool, atendimentoID int64) ([]Procedimento, error) {
	rows, err := pool.Query(ctx, `
		SELECT p.id, p.nome, p.descricao, p.valor_plano, p.valor_particular
		FROM procedimentos p
		JOIN atendimento_procedimentos ap ON ap.procedimento_id = p.id
		WHERE ap.atendimento_id = $1
		ORDER BY p.id
	`, atendimentoID)
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

func CountAtendimentosByPaciente(ctx context.Context, pool *pgxpool.Pool, pacienteID int64) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM atendimentos WHERE paciente_id = $1`, pacienteID).Scan(&n)
	return n, err
}

func CountAtendimentosByUsuario(ctx context.Context, pool *pgxpool.Pool, usuarioID int64) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM atendimentos WHERE usuario_id = $1`, usuarioID).Scan(&n)
	return n, err
}

// CountVinculosByProcedimento conta quantos atendimentos referenciam o
// procedimento, usado como guarda de exclusão.
func CountVinculosByProcedimento(ctx context.Context, pool *pgxpool.Pool, procedimentoID int64) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM atendimento_procedimentos WHERE procedimento_id = $1`, procedimentoID).Scan(&n)
	return n, err
}

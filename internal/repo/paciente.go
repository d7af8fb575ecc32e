package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Paciente carrega os dados cadastrais e, opcionalmente, o responsável
// (resp_*). Os cinco campos resp_* andam juntos: ou todos preenchidos, ou
// todos nulos.
type Paciente struct {
	ID                 int64
	CPF                string
	Nome               string
	Email              string
	Telefone           string
	DataNascimento     time.Time
	Estado             string
	Cidade             string
	Bairro             string
	CEP                string
	Rua                string
	Numero             string
	RespCPF            *string
	RespNome           *string
	RespDataNascimento *time.Time
	RespEmail          *string
	RespTelefone       *string
}

const pacienteCols = `id, cpf, nome, email, telefone, data_nascimento,
	estado, cidade, bairro, cep, rua, numero,
	resp_cpf, resp_nome, resp_data_nascimento, resp_email, resp_telefone`

func scanPaciente(row pgx.Row) (*Paciente, error) {
	var p Paciente
	err := row.Scan(&p.ID, &p.CPF, &p.Nome, &p.Email, &p.Telefone, &p.DataNascimento,
		&p.Estado, &p.Cidade, &p.Bairro, &p.CEP, &p.Rua, &p.Numero,
		&p.RespCPF, &p.RespNome, &p.RespDataNascimento, &p.RespEmail, &p.RespTelefone)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func PacienteByID(ctx context.Context, pool *pgxpool.Pool, id int64) (*Paciente, error) {
	return scanPaciente(pool.QueryRow(ctx, `SELECT `+pacienteCols+` FROM pacientes WHERE id = $1`, id))
}

func PacienteByCPF(ctx context.Context, pool *pgxpool.Pool, cpf string) (*Paciente, error) {
	return scanPaciente(pool.QueryRow(ctx, `SELECT `+pacienteCols+` FROM pacientes WHERE cpf = $1`, cpf))
}

func PacienteByEmail(ctx context.Context, pool *pgxpool.Pool, email string) (*Paciente, error) {
	return scanPaciente(pool.QueryRow(ctx, `SELECT `+pacienteCols+` FROM pacientes WHERE lower(email) = lower($1)`, email))
}

func CreatePaciente(ctx context.Context, pool *pgxpool.Pool, p *Paciente) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO pacientes (cpf, nome, email, telefone, data_nascimento,
			estado, cidade, bairro, cep, rua, numero,
			resp_cpf, resp_nome, resp_data_nascimento, resp_email, resp_telefone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`, p.CPF, p.Nome, p.Email, p.Telefone, p.DataNascimento,
		p.Estado, p.Cidade, p.Bairro, p.CEP, p.Rua, p.Numero,
		p.RespCPF, p.RespNome, p.RespDataNascimento, p.RespEmail, p.RespTelefone).Scan(&id)
	return id, err
}

// UpdatePaciente grava o estado final da linha (o handler monta o Paciente
// já com os campos atualizados, incluindo os resp_*).
func UpdatePaciente(ctx context.Context, pool *pgxpool.Pool, p *Paciente) error {
	result, err := pool.Exec(ctx, `
		UPDATE pacientes
		SET cpf = $1, nome = $2, email = $3, telefone = $4, data_nascimento = $5,
		    estado = $6, cidade = $7, bairro = $8, cep = $9, rua = $10, numero = $11,
		    resp_cpf = $12, resp_nome = $13, resp_data_nascimento = $14,
		    resp_email = $15, resp_telefone = $16,
		    updated_at = now()
		WHERE id = $17
	`, p.CPF, p.Nome, p.Email, p.Telefone, p.DataNascimento,
		p.Estado, p.Cidade, p.Bairro, p.CEP, p.Rua, p.Numero,
		p.RespCPF, p.RespNome, p.RespDataNascimento, p.RespEmail, p.RespTelefone, p.ID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func DeletePaciente(ctx context.Context, pool *pgxpool.Pool, id int64) error {
	result, err := pool.Exec(ctx, `DELETE FROM pacientes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListPacientes returns patients ordered by id. limit 0 means no limit.
func ListPacientes(ctx context.Context, pool *pgxpool.Pool, limit, offset int) ([]Paciente, error) {
	q := `SELECT ` + pacienteCols + ` FROM pacientes ORDER BY id`
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
	var list []Paciente
	for rows.Next() {
		var p Paciente
		if err := rows.Scan(&p.ID, &p.CPF, &p.Nome, &p.Email, &p.Telefone, &p.DataNascimento,
			&p.Estado, &p.Cidade, &p.Bairro, &p.CEP, &p.Rua, &p.Numero,
			&p.RespCPF, &p.RespNome, &p.RespDataNascimento, &p.RespEmail, &p.RespTelefone); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func CountPacientes(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM pacientes`).Scan(&n)
	return n, err
}

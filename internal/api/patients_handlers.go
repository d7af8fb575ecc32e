package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lucas12072/clinica-backend/internal/repo"
)

type CreatePatientRequest struct {
	CPF            string `json:"cpf"`
	Nome           string `json:"nome"`
	Email          string `json:"email"`
	Telefone       string `json:"telefone"`
	DataNascimento string `json:"data_nascimento"`
	Estado         string `json:"estado"`
	Cidade         string `json:"cidade"`
	Bairro         string `json:"bairro"`
	CEP            string `json:"cep"`
	Rua            string `json:"rua"`
	Numero         string `json:"numero"`

	RespCPF            string `json:"resp_cpf"`
	RespNome           string `json:"resp_nome"`
	RespDataNascimento string `json:"resp_data_nascimento"`
	RespEmail          string `json:"resp_email"`
	RespTelefone       string `json:"resp_telefone"`
}

type PacienteResp struct {
	ID             int64  `json:"id"`
	CPF            string `json:"cpf"`
	Nome           string `json:"nome"`
	Email          string `json:"email"`
	Telefone       string `json:"telefone"`
	DataNascimento string `json:"data_nascimento"`
	Estado         string `json:"estado"`
	Cidade         string `json:"cidade"`
	Bairro         string `json:"bairro"`
	CEP            string `json:"cep"`
	Rua            string `json:"rua"`
	Numero         string `json:"numero"`

	RespCPF            *string `json:"resp_cpf"`
	RespNome           *string `json:"resp_nome"`
	RespDataNascimento *string `json:"resp_data_nascimento"`
	RespEmail          *string `json:"resp_email"`
	RespTelefone       *string `json:"resp_telefone"`
}

func pacienteResp(p *repo.Paciente) PacienteResp {
	out := PacienteResp{
		ID:             p.ID,
		CPF:            p.CPF,
		Nome:           p.Nome,
		Email:          p.Email,
		Telefone:       p.Telefone,
		DataNascimento: p.DataNascimento.Format("2006-01-02"),
		Estado:         p.Estado,
		Cidade:         p.Cidade,
		Bairro:         p.Bairro,
		CEP:            p.CEP,
		Rua:            p.Rua,
		Numero:         p.Numero,
		RespCPF:        p.RespCPF,
		RespNome:       p.RespNome,
		RespEmail:      p.RespEmail,
		RespTelefone:   p.RespTelefone,
	}
	if p.RespDataNascimento != nil {
		s := p.RespDataNascimento.Format("2006-01-02")
		out.RespDataNascimento = &s
	}
	return out
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"erro":"corpo inválido"}`, http.StatusBadRequest)
		return
	}
	required := []string{req.CPF, req.Nome, req.Email, req.Telefone, req.DataNascimento,
		req.Estado, req.Cidade, req.Bairro, req.CEP, req.Rua, req.Numero}
	for _, v := range required {
		if !validString(v) {
			http.Error(w, `{"erro":"campos obrigatórios ausentes"}`, http.StatusBadRequest)
			return
		}
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailRegex.MatchString(email) {
		http.Error(w, `{"erro":"email inválido"}`, http.StatusBadRequest)
		return
	}
	nascimento, err := parseDateOnly(req.DataNascimento)
	if err != nil {
		http.Error(w, `{"erro":"data_nascimento inválida"}`, http.StatusBadRequest)
		return
	}
	if _, err := repo.PacienteByCPF(r.Context(), h.Pool, strings.TrimSpace(req.CPF)); err == nil {
		http.Error(w, `{"erro":"cpf já cadastrado"}`, http.StatusBadRequest)
		return
	}
	if _, err := repo.PacienteByEmail(r.Context(), h.Pool, email); err == nil {
		http.Error(w, `{"erro":"email já cadastrado"}`, http.StatusBadRequest)
		return
	}
	p := &repo.Paciente{
		CPF:            strings.TrimSpace(req.CPF),
		Nome:           strings.TrimSpace(req.Nome),
		Email:          email,
		Telefone:       strings.TrimSpace(req.Telefone),
		DataNascimento: nascimento,
		Estado:         strings.TrimSpace(req.Estado),
		Cidade:         strings.TrimSpace(req.Cidade),
		Bairro:         strings.TrimSpace(req.Bairro),
		CEP:            strings.TrimSpace(req.CEP),
		Rua:            strings.TrimSpace(req.Rua),
		Numero:         strings.TrimSpace(req.Numero),
	}
	if idadeEmAnos(nascimento, time.Now()) < 18 {
		if !validString(req.RespCPF) || !validString(req.RespNome) || !validString(req.RespDataNascimento) ||
			!validString(req.RespEmail) || !validString(req.RespTelefone) {
			http.Error(w, `{"erro":"paciente menor de idade exige os dados do responsável"}`, http.StatusBadRequest)
			return
		}
		respNasc, err := parseDateOnly(req.RespDataNascimento)
		if err != nil {
			http.Error(w, `{"erro":"resp_data_nascimento inválida"}`, http.StatusBadRequest)
			return
		}
		if idadeEmAnos(respNasc, time.Now()) < 18 {
			http.Error(w, `{"erro":"responsável deve ser maior de idade"}`, http.StatusBadRequest)
			return
		}
		respCPF := strings.TrimSpace(req.RespCPF)
		respNome := strings.TrimSpace(req.RespNome)
		respEmail := strings.ToLower(strings.TrimSpace(req.RespEmail))
		respTel := strings.TrimSpace(req.RespTelefone)
		p.RespCPF = &respCPF
		p.RespNome = &respNome
		p.RespDataNascimento = &respNasc
		p.RespEmail = &respEmail
		p.RespTelefone = &respTel
	}
	id, err := repo.CreatePaciente(r.Context(), h.Pool, p)
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, `{"erro":"cpf ou email já cadastrado"}`, http.StatusBadRequest)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	p.ID = id
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(pacienteResp(p))
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	p, err := repo.PacienteByID(r.Context(), h.Pool, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"paciente não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pacienteResp(p))
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	page, perPage := ParsePage(r)
	total, err := repo.CountPacientes(r.Context(), h.Pool)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	list, err := repo.ListPacientes(r.Context(), h.Pool, perPage, (page-1)*perPage)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	out := make([]PacienteResp, len(list))
	for i := range list {
		out[i] = pacienteResp(&list[i])
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"pacientes": out,
		"page":      page,
		"per_page":  perPage,
		"total":     total,
	})
}

type UpdatePatientRequest struct {
	CPF            *string `json:"cpf"`
	Nome           *string `json:"nome"`
	Email          *string `json:"email"`
	Telefone       *string `json:"telefone"`
	DataNascimento *string `json:"data_nascimento"`
	Estado         *string `json:"estado"`
	Cidade         *string `json:"cidade"`
	Bairro         *string `json:"bairro"`
	CEP            *string `json:"cep"`
	Rua            *string `json:"rua"`
	Numero         *string `json:"numero"`

	RespCPF            *string `json:"resp_cpf"`
	RespNome           *string `json:"resp_nome"`
	RespDataNascimento *string `json:"resp_data_nascimento"`
	RespEmail          *string `json:"resp_email"`
	RespTelefone       *string `json:"resp_telefone"`

	RemoveResponsavel bool `json:"remove_responsavel"`
}

// UpdatePatient aplica atualização parcial campo a campo. Campo presente mas
// vazio é rejeitado; remove_responsavel só vale para paciente maior de idade
// após a atualização.
func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"erro":"corpo inválido"}`, http.StatusBadRequest)
		return
	}
	p, err := repo.PacienteByID(r.Context(), h.Pool, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"paciente não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}

	setTrimmed := func(dst *string, src *string, erro string) bool {
		if src == nil {
			return true
		}
		if !validString(*src) {
			http.Error(w, `{"erro":"`+erro+`"}`, http.StatusBadRequest)
			return false
		}
		*dst = strings.TrimSpace(*src)
		return true
	}
	if req.CPF != nil {
		cpf := strings.TrimSpace(*req.CPF)
		if cpf == "" {
			http.Error(w, `{"erro":"cpf não pode ser vazio"}`, http.StatusBadRequest)
			return
		}
		if cpf != p.CPF {
			if other, err := repo.PacienteByCPF(r.Context(), h.Pool, cpf); err == nil && other.ID != p.ID {
				http.Error(w, `{"erro":"cpf já cadastrado"}`, http.StatusBadRequest)
				return
			}
		}
		p.CPF = cpf
	}
	if !setTrimmed(&p.Nome, req.Nome, "nome não pode ser vazio") ||
		!setTrimmed(&p.Telefone, req.Telefone, "telefone não pode ser vazio") ||
		!setTrimmed(&p.Estado, req.Estado, "estado não pode ser vazio") ||
		!setTrimmed(&p.Cidade, req.Cidade, "cidade não pode ser vazia") ||
		!setTrimmed(&p.Bairro, req.Bairro, "bairro não pode ser vazio") ||
		!setTrimmed(&p.CEP, req.CEP, "cep não pode ser vazio") ||
		!setTrimmed(&p.Rua, req.Rua, "rua não pode ser vazia") ||
		!setTrimmed(&p.Numero, req.Numero, "numero não pode ser vazio") {
		return
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" || !emailRegex.MatchString(email) {
			http.Error(w, `{"erro":"email inválido"}`, http.StatusBadRequest)
			return
		}
		if email != p.Email {
			if other, err := repo.PacienteByEmail(r.Context(), h.Pool, email); err == nil && other.ID != p.ID {
				http.Error(w, `{"erro":"email já cadastrado"}`, http.StatusBadRequest)
				return
			}
		}
		p.Email = email
	}
	if req.DataNascimento != nil {
		nasc, err := parseDateOnly(*req.DataNascimento)
		if err != nil {
			http.Error(w, `{"erro":"data_nascimento inválida"}`, http.StatusBadRequest)
			return
		}
		p.DataNascimento = nasc
	}

	setResp := func(dst **string, src *string, erro string) bool {
		if src == nil {
			return true
		}
		if !validString(*src) {
			http.Error(w, `{"erro":"`+erro+`"}`, http.StatusBadRequest)
			return false
		}
		v := strings.TrimSpace(*src)
		*dst = &v
		return true
	}
	if !setResp(&p.RespCPF, req.RespCPF, "resp_cpf não pode ser vazio") ||
		!setResp(&p.RespNome, req.RespNome, "resp_nome não pode ser vazio") ||
		!setResp(&p.RespEmail, req.RespEmail, "resp_email não pode ser vazio") ||
		!setResp(&p.RespTelefone, req.RespTelefone, "resp_telefone não pode ser vazio") {
		return
	}
	if req.RespDataNascimento != nil {
		respNasc, err := parseDateOnly(*req.RespDataNascimento)
		if err != nil {
			http.Error(w, `{"erro":"resp_data_nascimento inválida"}`, http.StatusBadRequest)
			return
		}
		if idadeEmAnos(respNasc, time.Now()) < 18 {
			http.Error(w, `{"erro":"responsável deve ser maior de idade"}`, http.StatusBadRequest)
			return
		}
		p.RespDataNascimento = &respNasc
	}

	if req.RemoveResponsavel {
		if idadeEmAnos(p.DataNascimento, time.Now()) < 18 {
			http.Error(w, `{"erro":"paciente menor de idade não pode ficar sem responsável"}`, http.StatusBadRequest)
			return
		}
		p.RespCPF = nil
		p.RespNome = nil
		p.RespDataNascimento = nil
		p.RespEmail = nil
		p.RespTelefone = nil
	}

	if err := repo.UpdatePaciente(r.Context(), h.Pool, p); err != nil {
		if isUniqueViolation(err) {
			http.Error(w, `{"erro":"cpf ou email já cadastrado"}`, http.StatusBadRequest)
			return
		}
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"paciente não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pacienteResp(p))
}

// DeletePatient remove o paciente, desde que não existam atendimentos dele.
func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	n, err := repo.CountAtendimentosByPaciente(r.Context(), h.Pool, id)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if n > 0 {
		http.Error(w, `{"erro":"paciente possui atendimentos vinculados"}`, http.StatusBadRequest)
		return
	}
	if err := repo.DeletePaciente(r.Context(), h.Pool, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"paciente não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"mensagem": "paciente removido"})
}

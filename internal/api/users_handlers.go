package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/lucas12072/clinica-backend/internal/auth"
	"github.com/lucas12072/clinica-backend/internal/repo"
)

// parseIDVar lê o path param {id} como int64.
func parseIDVar(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := ParsePage(r)
	total, err := repo.CountUsuarios(r.Context(), h.Pool)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	list, err := repo.ListUsuarios(r.Context(), h.Pool, perPage, (page-1)*perPage)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	out := make([]UsuarioResp, len(list))
	for i := range list {
		out[i] = usuarioResp(&list[i])
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"usuarios": out,
		"page":     page,
		"per_page": perPage,
		"total":    total,
	})
}

type CreateUserRequest struct {
	Email string `json:"email"`
	Nome  string `json:"nome"`
	Tipo  string `json:"tipo"`
	Senha string `json:"senha"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"erro":"corpo inválido"}`, http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Nome = strings.TrimSpace(req.Nome)
	req.Tipo = strings.TrimSpace(req.Tipo)
	if req.Tipo == "" {
		req.Tipo = auth.TipoDefault
	}
	if req.Email == "" || req.Nome == "" || !validString(req.Senha) {
		http.Error(w, `{"erro":"email, nome e senha são obrigatórios"}`, http.StatusBadRequest)
		return
	}
	if !emailRegex.MatchString(req.Email) {
		http.Error(w, `{"erro":"email inválido"}`, http.StatusBadRequest)
		return
	}
	if !auth.ValidTipo(req.Tipo) {
		http.Error(w, `{"erro":"tipo inválido"}`, http.StatusBadRequest)
		return
	}
	hash, err := auth.HashPassword(req.Senha)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	id, err := repo.CreateUsuario(r.Context(), h.Pool, req.Email, req.Nome, req.Tipo, hash)
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, `{"erro":"email já cadastrado"}`, http.StatusBadRequest)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(UsuarioResp{ID: id, Email: req.Email, Nome: req.Nome, Tipo: req.Tipo})
}

type UpdateUserRequest struct {
	Nome  *string `json:"nome"`
	Email *string `json:"email"`
}

// UpdateUser permite ao próprio usuário ou a um admin alterar nome e email.
// Campo presente mas vazio é rejeitado.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	if !auth.IsAdmin(r.Context()) && auth.UserIDFrom(r.Context()) != id {
		http.Error(w, `{"erro":"acesso negado"}`, http.StatusForbidden)
		return
	}
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"erro":"corpo inválido"}`, http.StatusBadRequest)
		return
	}
	u, err := repo.UsuarioByID(r.Context(), h.Pool, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"usuário não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if req.Nome != nil {
		if !validString(*req.Nome) {
			http.Error(w, `{"erro":"nome não pode ser vazio"}`, http.StatusBadRequest)
			return
		}
		u.Nome = strings.TrimSpace(*req.Nome)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" || !emailRegex.MatchString(email) {
			http.Error(w, `{"erro":"email inválido"}`, http.StatusBadRequest)
			return
		}
		u.Email = email
	}
	if err := repo.UpdateUsuario(r.Context(), h.Pool, u.ID, u.Nome, u.Email); err != nil {
		if isUniqueViolation(err) {
			http.Error(w, `{"erro":"email já cadastrado"}`, http.StatusBadRequest)
			return
		}
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"usuário não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(usuarioResp(u))
}

// DeleteUser remove o usuário, desde que nenhum atendimento o referencie.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	n, err := repo.CountAtendimentosByUsuario(r.Context(), h.Pool, id)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if n > 0 {
		http.Error(w, `{"erro":"usuário possui atendimentos vinculados"}`, http.StatusBadRequest)
		return
	}
	if err := repo.DeleteUsuario(r.Context(), h.Pool, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"usuário não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"mensagem": "usuário removido"})
}

type ResetSenhaRequest struct {
	Senha string `json:"senha"`
}

// ResetSenha troca a senha de qualquer usuário. Rota restrita a admin.
func (h *Handler) ResetSenha(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	var req ResetSenhaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"erro":"corpo inválido"}`, http.StatusBadRequest)
		return
	}
	if !validString(req.Senha) {
		http.Error(w, `{"erro":"senha é obrigatória"}`, http.StatusBadRequest)
		return
	}
	hash, err := auth.HashPassword(req.Senha)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if err := repo.UpdateUsuarioSenha(r.Context(), h.Pool, id, hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"usuário não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"mensagem": "senha redefinida"})
}

type AlterarSenhaRequest struct {
	SenhaAntiga string `json:"senha_antiga"`
	SenhaNova   string `json:"senha_nova"`
}

// AlterarSenha troca a senha do usuário autenticado após conferir a atual.
func (h *Handler) AlterarSenha(w http.ResponseWriter, r *http.Request) {
	var req AlterarSenhaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"erro":"corpo inválido"}`, http.StatusBadRequest)
		return
	}
	if !validString(req.SenhaAntiga) || !validString(req.SenhaNova) {
		http.Error(w, `{"erro":"senha_antiga e senha_nova são obrigatórias"}`, http.StatusBadRequest)
		return
	}
	u, err := repo.UsuarioByID(r.Context(), h.Pool, auth.UserIDFrom(r.Context()))
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if !auth.CheckPassword(u.SenhaHash, req.SenhaAntiga) {
		http.Error(w, `{"erro":"senha antiga incorreta"}`, http.StatusBadRequest)
		return
	}
	hash, err := auth.HashPassword(req.SenhaNova)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if err := repo.UpdateUsuarioSenha(r.Context(), h.Pool, u.ID, hash); err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"mensagem": "senha alterada"})
}

// BuscarPorEmail localiza um usuário pelo e-mail. Admin vê qualquer um;
// usuário comum só a si mesmo.
func (h *Handler) BuscarPorEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	if email == "" {
		http.Error(w, `{"erro":"email é obrigatório"}`, http.StatusBadRequest)
		return
	}
	u, err := repo.UsuarioByEmail(r.Context(), h.Pool, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"usuário não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if !auth.IsAdmin(r.Context()) && auth.UserIDFrom(r.Context()) != u.ID {
		http.Error(w, `{"erro":"acesso negado"}`, http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(usuarioResp(u))
}

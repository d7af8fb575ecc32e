package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lucas12072/clinica-backend/internal/auth"
	"github.com/lucas12072/clinica-backend/internal/repo"
)

type RegisterRequest struct {
	Email string `json:"email"`
	Nome  string `json:"nome"`
	Tipo  string `json:"tipo"`
	Senha string `json:"senha"`
}

type LoginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Usuario   UsuarioResp `json:"usuario"`
}

// UsuarioResp é a forma serializada de um usuário. senha_hash nunca sai daqui.
type UsuarioResp struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Nome  string `json:"nome"`
	Tipo  string `json:"tipo"`
}

func usuarioResp(u *repo.Usuario) UsuarioResp {
	return UsuarioResp{ID: u.ID, Email: u.Email, Nome: u.Nome, Tipo: u.Tipo}
}

func genericLoginError(w http.ResponseWriter) {
	http.Error(w, `{"erro":"credenciais inválidas"}`, http.StatusUnauthorized)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"erro":"corpo inválido"}`, http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Nome = strings.TrimSpace(req.Nome)
	req.Tipo = strings.TrimSpace(req.Tipo)
	if req.Email == "" || req.Nome == "" || req.Tipo == "" || !validString(req.Senha) {
		http.Error(w, `{"erro":"email, nome, tipo e senha são obrigatórios"}`, http.StatusBadRequest)
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

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"erro":"corpo inválido"}`, http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Senha == "" {
		http.Error(w, `{"erro":"email e senha são obrigatórios"}`, http.StatusBadRequest)
		return
	}
	u, err := repo.UsuarioByEmail(r.Context(), h.Pool, req.Email)
	if err != nil {
		// Resposta genérica também para erros de banco, por segurança.
		genericLoginError(w)
		return
	}
	if !auth.CheckPassword(u.SenhaHash, req.Senha) {
		genericLoginError(w)
		return
	}
	ttl := time.Duration(h.Cfg.TokenTTLHours) * time.Hour
	tok, err := auth.BuildJWT(h.Cfg.JWTSecret, u.ID, u.Tipo, ttl)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(LoginResponse{
		Token:     tok,
		ExpiresAt: time.Now().Add(ttl),
		Usuario:   usuarioResp(u),
	})
}

// Me devolve o usuário autenticado pelo token da requisição.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := repo.UsuarioByID(r.Context(), h.Pool, auth.UserIDFrom(r.Context()))
	if err != nil {
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

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/lucas12072/clinica-backend/internal/repo"
)

const procListCachePrefix = "procedimentos:list:"

type CreateProcedureRequest struct {
	Nome            string     `json:"nome"`
	Descricao       string     `json:"descricao"`
	ValorPlano      *FlexFloat `json:"valor_plano"`
	ValorParticular *FlexFloat `json:"valor_particular"`
}

type ProcedimentoResp struct {
	ID              int64   `json:"id"`
	Nome            string  `json:"nome"`
	Descricao       string  `json:"descricao"`
	ValorPlano      float64 `json:"valor_plano"`
	ValorParticular float64 `json:"valor_particular"`
}

func procedimentoResp(p *repo.Procedimento) ProcedimentoResp {
	return ProcedimentoResp{
		ID:              p.ID,
		Nome:            p.Nome,
		Descricao:       p.Descricao,
		ValorPlano:      p.ValorPlano,
		ValorParticular: p.ValorParticular,
	}
}

func (h *Handler) CreateProcedure(w http.ResponseWriter, r *http.Request) {
	var req CreateProcedureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"erro":"corpo inválido"}`, http.StatusBadRequest)
		return
	}
	if !validString(req.Nome) || !validString(req.Descricao) {
		http.Error(w, `{"erro":"nome e descricao são obrigatórios"}`, http.StatusBadRequest)
		return
	}
	if req.ValorPlano == nil || req.ValorParticular == nil {
		http.Error(w, `{"erro":"valor_plano e valor_particular são obrigatórios"}`, http.StatusBadRequest)
		return
	}
	if _, err := repo.ProcedimentoByNome(r.Context(), h.Pool, strings.TrimSpace(req.Nome)); err == nil {
		http.Error(w, `{"erro":"procedimento já cadastrado"}`, http.StatusBadRequest)
		return
	}
	id, err := repo.CreateProcedimento(r.Context(), h.Pool,
		strings.TrimSpace(req.Nome), strings.TrimSpace(req.Descricao),
		float64(*req.ValorPlano), float64(*req.ValorParticular))
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, `{"erro":"procedimento já cadastrado"}`, http.StatusBadRequest)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if h.Cache != nil {
		h.Cache.DeletePrefix(procListCachePrefix)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(ProcedimentoResp{
		ID:              id,
		Nome:            strings.TrimSpace(req.Nome),
		Descricao:       strings.TrimSpace(req.Descricao),
		ValorPlano:      float64(*req.ValorPlano),
		ValorParticular: float64(*req.ValorParticular),
	})
}

func (h *Handler) GetProcedure(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	p, err := repo.ProcedimentoByID(r.Context(), h.Pool, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"procedimento não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(procedimentoResp(p))
}

// ListProcedures serve a página do cache quando possível; a chave inclui a
// paginação e o cache inteiro é invalidado em qualquer mutação.
func (h *Handler) ListProcedures(w http.ResponseWriter, r *http.Request) {
	page, perPage := ParsePage(r)
	key := fmt.Sprintf("%spage=%d:per=%d", procListCachePrefix, page, perPage)
	if h.Cache != nil {
		if b := h.Cache.Get(key); b != nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(b)
			return
		}
	}
	total, err := repo.CountProcedimentos(r.Context(), h.Pool)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	list, err := repo.ListProcedimentos(r.Context(), h.Pool, perPage, (page-1)*perPage)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	out := make([]ProcedimentoResp, len(list))
	for i := range list {
		out[i] = procedimentoResp(&list[i])
	}
	body, err := json.Marshal(map[string]interface{}{
		"procedimentos": out,
		"page":          page,
		"per_page":      perPage,
		"total":         total,
	})
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if h.Cache != nil {
		h.Cache.Set(key, body)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

type UpdateProcedureRequest struct {
	Nome            *string    `json:"nome"`
	Descricao       *string    `json:"descricao"`
	ValorPlano      *FlexFloat `json:"valor_plano"`
	ValorParticular *FlexFloat `json:"valor_particular"`
}

func (h *Handler) UpdateProcedure(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	var req UpdateProcedureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"erro":"corpo inválido"}`, http.StatusBadRequest)
		return
	}
	p, err := repo.ProcedimentoByID(r.Context(), h.Pool, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"procedimento não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if req.Nome != nil {
		nome := strings.TrimSpace(*req.Nome)
		if nome == "" {
			http.Error(w, `{"erro":"nome não pode ser vazio"}`, http.StatusBadRequest)
			return
		}
		if nome != p.Nome {
			if other, err := repo.ProcedimentoByNome(r.Context(), h.Pool, nome); err == nil && other.ID != p.ID {
				http.Error(w, `{"erro":"procedimento já cadastrado"}`, http.StatusBadRequest)
				return
			}
		}
		p.Nome = nome
	}
	if req.Descricao != nil {
		if !validString(*req.Descricao) {
			http.Error(w, `{"erro":"descricao não pode ser vazia"}`, http.StatusBadRequest)
			return
		}
		p.Descricao = strings.TrimSpace(*req.Descricao)
	}
	if req.ValorPlano != nil {
		p.ValorPlano = float64(*req.ValorPlano)
	}
	if req.ValorParticular != nil {
		p.ValorParticular = float64(*req.ValorParticular)
	}
	if err := repo.UpdateProcedimento(r.Context(), h.Pool, p); err != nil {
		if isUniqueViolation(err) {
			http.Error(w, `{"erro":"procedimento já cadastrado"}`, http.StatusBadRequest)
			return
		}
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"procedimento não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if h.Cache != nil {
		h.Cache.DeletePrefix(procListCachePrefix)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(procedimentoResp(p))
}

// DeleteProcedure remove o procedimento, desde que nenhum atendimento o use.
func (h *Handler) DeleteProcedure(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	n, err := repo.CountVinculosByProcedimento(r.Context(), h.Pool, id)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if n > 0 {
		http.Error(w, `{"erro":"procedimento vinculado a atendimentos"}`, http.StatusBadRequest)
		return
	}
	if err := repo.DeleteProcedimento(r.Context(), h.Pool, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"procedimento não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if h.Cache != nil {
		h.Cache.DeletePrefix(procListCachePrefix)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"mensagem": "procedimento removido"})
}

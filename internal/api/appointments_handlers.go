package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lucas12072/clinica-backend/internal/auth"
	"github.com/lucas12072/clinica-backend/internal/pdf"
	"github.com/lucas12072/clinica-backend/internal/repo"
)

const (
	TipoPlano      = "plano"
	TipoParticular = "particular"
)

func validTipoAtendimento(tipo string) bool {
	return tipo == TipoPlano || tipo == TipoParticular
}

// valorTotal soma o preço dos procedimentos conforme o tipo do atendimento.
func valorTotal(tipo string, procs []repo.Procedimento) float64 {
	var total float64
	for _, p := range procs {
		if tipo == TipoPlano {
			total += p.ValorPlano
		} else {
			total += p.ValorParticular
		}
	}
	return total
}

type CreateAppointmentRequest struct {
	DataHora       *string    `json:"data_hora"`
	PacienteID     *FlexInt   `json:"paciente_id"`
	Procedimentos  *[]FlexInt `json:"procedimentos"`
	Tipo           *string    `json:"tipo"`
	NumeroCarteira *string    `json:"numero_carteira"`
}

type AtendimentoResp struct {
	ID             int64              `json:"id"`
	DataHora       string             `json:"data_hora"`
	Tipo           string             `json:"tipo"`
	NumeroCarteira *string            `json:"numero_carteira"`
	ValorTotal     float64            `json:"valor_total"`
	UsuarioID      int64              `json:"usuario_id"`
	PacienteID     int64              `json:"paciente_id"`
	Procedimentos  []ProcedimentoResp `json:"procedimentos"`
}

func atendimentoResp(a *repo.Atendimento, procs []repo.Procedimento) AtendimentoResp {
	out := AtendimentoResp{
		ID:             a.ID,
		DataHora:       a.DataHora.Format(time.RFC3339),
		Tipo:           a.Tipo,
		NumeroCarteira: a.NumeroCarteira,
		ValorTotal:     a.ValorTotal,
		UsuarioID:      a.UsuarioID,
		PacienteID:     a.PacienteID,
		Procedimentos:  make([]ProcedimentoResp, len(procs)),
	}
	for i := range procs {
		out.Procedimentos[i] = procedimentoResp(&procs[i])
	}
	return out
}

// resolveProcedimentos carrega cada id informado. Lista vazia e id inexistente
// são erros distintos (400 e 404) e já são respondidos aqui.
func (h *Handler) resolveProcedimentos(w http.ResponseWriter, r *http.Request, ids []FlexInt) ([]repo.Procedimento, bool) {
	if len(ids) == 0 {
		http.Error(w, `{"erro":"procedimentos não pode ser vazio"}`, http.StatusBadRequest)
		return nil, false
	}
	procs := make([]repo.Procedimento, 0, len(ids))
	for _, fid := range ids {
		p, err := repo.ProcedimentoByID(r.Context(), h.Pool, int64(fid))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				http.Error(w, `{"erro":"procedimento não encontrado"}`, http.StatusNotFound)
				return nil, false
			}
			http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
			return nil, false
		}
		procs = append(procs, *p)
	}
	return procs, true
}

func procIDs(procs []repo.Procedimento) []int64 {
	ids := make([]int64, len(procs))
	for i := range procs {
		ids[i] = procs[i].ID
	}
	return ids
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"erro":"corpo inválido"}`, http.StatusBadRequest)
		return
	}
	if req.DataHora == nil || req.PacienteID == nil || req.Procedimentos == nil || req.Tipo == nil {
		http.Error(w, `{"erro":"data_hora, paciente_id, procedimentos e tipo são obrigatórios"}`, http.StatusBadRequest)
		return
	}
	tipo := strings.TrimSpace(*req.Tipo)
	if !validTipoAtendimento(tipo) {
		http.Error(w, `{"erro":"tipo deve ser plano ou particular"}`, http.StatusBadRequest)
		return
	}
	dataHora, err := parseDateTime(*req.DataHora)
	if err != nil {
		http.Error(w, `{"erro":"data_hora inválida"}`, http.StatusBadRequest)
		return
	}
	if _, err := repo.PacienteByID(r.Context(), h.Pool, int64(*req.PacienteID)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"paciente não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	procs, ok := h.resolveProcedimentos(w, r, *req.Procedimentos)
	if !ok {
		return
	}
	var carteira *string
	if tipo == TipoPlano {
		if req.NumeroCarteira == nil || !validString(*req.NumeroCarteira) {
			http.Error(w, `{"erro":"numero_carteira é obrigatório para atendimento de plano"}`, http.StatusBadRequest)
			return
		}
		v := strings.TrimSpace(*req.NumeroCarteira)
		carteira = &v
	}
	a := &repo.Atendimento{
		DataHora:       dataHora,
		Tipo:           tipo,
		NumeroCarteira: carteira,
		ValorTotal:     valorTotal(tipo, procs),
		UsuarioID:      auth.UserIDFrom(r.Context()),
		PacienteID:     int64(*req.PacienteID),
	}
	id, err := repo.CreateAtendimento(r.Context(), h.Pool, a, procIDs(procs))
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	a.ID = id
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(atendimentoResp(a, procs))
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	a, err := repo.AtendimentoByID(r.Context(), h.Pool, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"atendimento não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	procs, err := repo.ProcedimentosByAtendimento(r.Context(), h.Pool, a.ID)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(atendimentoResp(a, procs))
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	page, perPage := ParsePage(r)
	total, err := repo.CountAtendimentos(r.Context(), h.Pool)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	list, err := repo.ListAtendimentos(r.Context(), h.Pool, perPage, (page-1)*perPage)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	h.writeAppointmentsPage(w, r, list, page, perPage, total)
}

// ListAppointmentsBetween retorna os atendimentos no intervalo fechado
// [start, end]. Um end só-data vale até 23:59:59 do dia.
func (h *Handler) ListAppointmentsBetween(w http.ResponseWriter, r *http.Request) {
	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if !validString(startRaw) || !validString(endRaw) {
		http.Error(w, `{"erro":"start e end são obrigatórios"}`, http.StatusBadRequest)
		return
	}
	start, err := parseDateTime(startRaw)
	if err != nil {
		http.Error(w, `{"erro":"start inválido"}`, http.StatusBadRequest)
		return
	}
	end, err := parseDateTime(endRaw)
	if err != nil {
		http.Error(w, `{"erro":"end inválido"}`, http.StatusBadRequest)
		return
	}
	end = endOfDayIfDateOnly(endRaw, end)
	page, perPage := ParsePage(r)
	total, err := repo.CountAtendimentosEntre(r.Context(), h.Pool, start, end)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	list, err := repo.ListAtendimentosEntre(r.Context(), h.Pool, start, end, perPage, (page-1)*perPage)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	h.writeAppointmentsPage(w, r, list, page, perPage, total)
}

func (h *Handler) writeAppointmentsPage(w http.ResponseWriter, r *http.Request, list []repo.Atendimento, page, perPage, total int) {
	out := make([]AtendimentoResp, len(list))
	for i := range list {
		procs, err := repo.ProcedimentosByAtendimento(r.Context(), h.Pool, list[i].ID)
		if err != nil {
			http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
			return
		}
		out[i] = atendimentoResp(&list[i], procs)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"atendimentos": out,
		"page":         page,
		"per_page":     perPage,
		"total":        total,
	})
}

type UpdateAppointmentRequest struct {
	DataHora       *string    `json:"data_hora"`
	PacienteID     *FlexInt   `json:"paciente_id"`
	Procedimentos  *[]FlexInt `json:"procedimentos"`
	Tipo           *string    `json:"tipo"`
	NumeroCarteira *string    `json:"numero_carteira"`
}

// UpdateAppointment aplica atualização parcial. Só o criador ou um admin pode
// alterar. numero_carteira presente mas vazio limpa o campo; após aplicar
// tudo, atendimento de plano sem carteira é rejeitado. valor_total é
// recalculado quando os procedimentos foram trocados ou o tipo veio no corpo.
func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	a, err := repo.AtendimentoByID(r.Context(), h.Pool, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"atendimento não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if !auth.IsAdmin(r.Context()) && a.UsuarioID != auth.UserIDFrom(r.Context()) {
		http.Error(w, `{"erro":"acesso negado"}`, http.StatusForbidden)
		return
	}
	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"erro":"corpo inválido"}`, http.StatusBadRequest)
		return
	}

	if req.DataHora != nil {
		if !validString(*req.DataHora) {
			http.Error(w, `{"erro":"data_hora não pode ser vazia"}`, http.StatusBadRequest)
			return
		}
		t, err := parseDateTime(*req.DataHora)
		if err != nil {
			http.Error(w, `{"erro":"data_hora inválida"}`, http.StatusBadRequest)
			return
		}
		a.DataHora = t
	}
	if req.PacienteID != nil {
		if _, err := repo.PacienteByID(r.Context(), h.Pool, int64(*req.PacienteID)); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				http.Error(w, `{"erro":"paciente não encontrado"}`, http.StatusNotFound)
				return
			}
			http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
			return
		}
		a.PacienteID = int64(*req.PacienteID)
	}
	replaceProcs := false
	var procs []repo.Procedimento
	if req.Procedimentos != nil {
		var ok bool
		procs, ok = h.resolveProcedimentos(w, r, *req.Procedimentos)
		if !ok {
			return
		}
		replaceProcs = true
	}
	tipoPresente := req.Tipo != nil
	if tipoPresente {
		tipo := strings.TrimSpace(*req.Tipo)
		if !validTipoAtendimento(tipo) {
			http.Error(w, `{"erro":"tipo deve ser plano ou particular"}`, http.StatusBadRequest)
			return
		}
		a.Tipo = tipo
	}
	if req.NumeroCarteira != nil {
		if validString(*req.NumeroCarteira) {
			v := strings.TrimSpace(*req.NumeroCarteira)
			a.NumeroCarteira = &v
		} else {
			a.NumeroCarteira = nil
		}
	}
	// Checagem pós-aplicação, independente dos campos presentes no corpo.
	if a.Tipo == TipoPlano && (a.NumeroCarteira == nil || *a.NumeroCarteira == "") {
		http.Error(w, `{"erro":"numero_carteira é obrigatório para atendimento de plano"}`, http.StatusBadRequest)
		return
	}
	if replaceProcs || tipoPresente {
		if !replaceProcs {
			procs, err = repo.ProcedimentosByAtendimento(r.Context(), h.Pool, a.ID)
			if err != nil {
				http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
				return
			}
		}
		a.ValorTotal = valorTotal(a.Tipo, procs)
	}
	if err := repo.UpdateAtendimento(r.Context(), h.Pool, a, replaceProcs, procIDs(procs)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"atendimento não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if procs == nil {
		procs, err = repo.ProcedimentosByAtendimento(r.Context(), h.Pool, a.ID)
		if err != nil {
			http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(atendimentoResp(a, procs))
}

// DeleteAppointment remove o atendimento e seus vínculos. Só criador ou admin.
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	a, err := repo.AtendimentoByID(r.Context(), h.Pool, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"atendimento não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	if !auth.IsAdmin(r.Context()) && a.UsuarioID != auth.UserIDFrom(r.Context()) {
		http.Error(w, `{"erro":"acesso negado"}`, http.StatusForbidden)
		return
	}
	if err := repo.DeleteAtendimento(r.Context(), h.Pool, id); err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"mensagem": "atendimento removido"})
}

// AppointmentReceipt gera o recibo do atendimento em PDF.
func (h *Handler) AppointmentReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r)
	if err != nil {
		http.Error(w, `{"erro":"id inválido"}`, http.StatusBadRequest)
		return
	}
	a, err := repo.AtendimentoByID(r.Context(), h.Pool, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"erro":"atendimento não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	p, err := repo.PacienteByID(r.Context(), h.Pool, a.PacienteID)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	procs, err := repo.ProcedimentosByAtendimento(r.Context(), h.Pool, a.ID)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	items := make([]pdf.ReciboItem, len(procs))
	for i := range procs {
		valor := procs[i].ValorParticular
		if a.Tipo == TipoPlano {
			valor = procs[i].ValorPlano
		}
		items[i] = pdf.ReciboItem{Nome: procs[i].Nome, Valor: valor}
	}
	data := pdf.ReciboData{
		AtendimentoID: a.ID,
		PacienteNome:  p.Nome,
		PacienteCPF:   p.CPF,
		DataHora:      a.DataHora,
		Tipo:          a.Tipo,
		Itens:         items,
		ValorTotal:    a.ValorTotal,
	}
	if h.Cfg.AppPublicURL != "" {
		data.VerifyURL = fmt.Sprintf("%s/api/appointments/%d", strings.TrimRight(h.Cfg.AppPublicURL, "/"), a.ID)
	}
	out, err := pdf.GerarRecibo(data)
	if err != nil {
		http.Error(w, `{"erro":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="recibo-%d.pdf"`, a.ID))
	_, _ = w.Write(out)
}

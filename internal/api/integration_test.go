//go:build integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucas12072/clinica-backend/internal/cache"
	"github.com/lucas12072/clinica-backend/internal/config"
	"github.com/lucas12072/clinica-backend/internal/middleware"
	"github.com/lucas12072/clinica-backend/internal/testutil"
)

func newTestRouter(h *Handler, jwtSecret []byte) http.Handler {
	r := mux.NewRouter()
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuthMiddleware(jwtSecret))
	protected.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	protected.Handle("/users/", middleware.RequireAdmin(http.HandlerFunc(h.ListUsers))).Methods(http.MethodGet)
	protected.HandleFunc("/users/buscar", h.BuscarPorEmail).Methods(http.MethodGet)
	protected.HandleFunc("/users/me/alterar-senha", h.AlterarSenha).Methods(http.MethodPost)
	protected.HandleFunc("/users/{id}", h.UpdateUser).Methods(http.MethodPut)
	protected.Handle("/users/{id}", middleware.RequireAdmin(http.HandlerFunc(h.DeleteUser))).Methods(http.MethodDelete)
	protected.HandleFunc("/patients/", h.ListPatients).Methods(http.MethodGet)
	protected.HandleFunc("/patients/", h.CreatePatient).Methods(http.MethodPost)
	protected.HandleFunc("/patients/{id}", h.GetPatient).Methods(http.MethodGet)
	protected.HandleFunc("/patients/{id}", h.UpdatePatient).Methods(http.MethodPut)
	protected.HandleFunc("/patients/{id}", h.DeletePatient).Methods(http.MethodDelete)
	protected.HandleFunc("/procedures/", h.ListProcedures).Methods(http.MethodGet)
	protected.Handle("/procedures/", middleware.RequireAdmin(http.HandlerFunc(h.CreateProcedure))).Methods(http.MethodPost)
	protected.Handle("/procedures/{id}", middleware.RequireAdmin(http.HandlerFunc(h.UpdateProcedure))).Methods(http.MethodPut)
	protected.Handle("/procedures/{id}", middleware.RequireAdmin(http.HandlerFunc(h.DeleteProcedure))).Methods(http.MethodDelete)
	protected.HandleFunc("/appointments/", h.ListAppointments).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/", h.CreateAppointment).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/between", h.ListAppointmentsBetween).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}", h.GetAppointment).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}", h.UpdateAppointment).Methods(http.MethodPut)
	protected.HandleFunc("/appointments/{id}", h.DeleteAppointment).Methods(http.MethodDelete)
	protected.HandleFunc("/appointments/{id}/recibo", h.AppointmentReceipt).Methods(http.MethodGet)
	return middleware.RequestID(r)
}

type testEnv struct {
	pool   *pgxpool.Pool
	router http.Handler
	h      *Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	pool, _ := testutil.OpenPool(ctx)
	if pool == nil {
		t.Skip("DATABASE_URL not set for integration tests")
		return nil
	}
	t.Cleanup(pool.Close)
	if err := testutil.MustMigrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Load()
	cfg.JWTSecret = []byte("test-jwt-secret-min-32-chars-xxxxxxxxxxxx")
	h := &Handler{Pool: pool, Cfg: cfg, Cache: cache.New(time.Second)}
	return &testEnv{pool: pool, router: newTestRouter(h, cfg.JWTSecret), h: h}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return m
}

// registerAndLogin cria um usuário via API e devolve (token, id).
func (e *testEnv) registerAndLogin(t *testing.T, tipo string) (string, int64) {
	t.Helper()
	email := fmt.Sprintf("u-%s@teste.local", uuid.NewString()[:8])
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "nome": "Usuário Teste", "tipo": tipo, "senha": "Senha123!",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status=%d body=%s", rec.Code, rec.Body.String())
	}
	id := int64(decodeBody(t, rec)["id"].(float64))
	rec = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "senha": "Senha123!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status=%d body=%s", rec.Code, rec.Body.String())
	}
	return decodeBody(t, rec)["token"].(string), id
}

func adultPatientBody() map[string]interface{} {
	suffix := uuid.NewString()[:8]
	return map[string]interface{}{
		"cpf":             "cpf-" + suffix,
		"nome":            "Paciente Adulto",
		"email":           "p-" + suffix + "@teste.local",
		"telefone":        "47999990000",
		"data_nascimento": "1990-05-01",
		"estado":          "SC",
		"cidade":          "Joinville",
		"bairro":          "Centro",
		"cep":             "89200000",
		"rua":             "Rua Um",
		"numero":          "100",
	}
}

func (e *testEnv) createPatient(t *testing.T, token string, body map[string]interface{}) int64 {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/patients/", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create patient: status=%d body=%s", rec.Code, rec.Body.String())
	}
	return int64(decodeBody(t, rec)["id"].(float64))
}

func (e *testEnv) createProcedure(t *testing.T, token, nome string, plano, particular float64) int64 {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/procedures/", token, map[string]interface{}{
		"nome": nome, "descricao": "desc", "valor_plano": plano, "valor_particular": particular,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create procedure: status=%d body=%s", rec.Code, rec.Body.String())
	}
	return int64(decodeBody(t, rec)["id"].(float64))
}

func TestIntegration_AuthFlow(t *testing.T) {
	e := newTestEnv(t)

	email := fmt.Sprintf("auth-%s@teste.local", uuid.NewString()[:8])
	body := map[string]string{"email": email, "nome": "Fulano", "tipo": "default", "senha": "Senha123!"}
	if rec := e.do(t, http.MethodPost, "/api/auth/register", "", body); rec.Code != http.StatusCreated {
		t.Fatalf("register: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := e.do(t, http.MethodPost, "/api/auth/register", "", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("register duplicado: status=%d", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "senha": "errada"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("login senha errada: status=%d", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nao-existe@teste.local", "senha": "x"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("login desconhecido: status=%d", rec.Code)
	}
	rec := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "senha": "Senha123!"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status=%d body=%s", rec.Code, rec.Body.String())
	}
	token := decodeBody(t, rec)["token"].(string)

	rec = e.do(t, http.MethodGet, "/api/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status=%d", rec.Code)
	}
	if got := decodeBody(t, rec)["email"]; got != email {
		t.Fatalf("me email=%v want=%s", got, email)
	}
	if rec := e.do(t, http.MethodGet, "/api/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me sem token: status=%d", rec.Code)
	}
}

func TestIntegration_PatientGuardianRules(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.registerAndLogin(t, "default")

	// menor sem responsável
	minor := adultPatientBody()
	minor["data_nascimento"] = time.Now().AddDate(-10, 0, 0).Format("2006-01-02")
	if rec := e.do(t, http.MethodPost, "/api/patients/", token, minor); rec.Code != http.StatusBadRequest {
		t.Fatalf("menor sem responsável: status=%d body=%s", rec.Code, rec.Body.String())
	}

	// responsável também menor
	minor["resp_cpf"] = "resp-" + uuid.NewString()[:8]
	minor["resp_nome"] = "Responsável"
	minor["resp_data_nascimento"] = time.Now().AddDate(-15, 0, 0).Format("2006-01-02")
	minor["resp_email"] = "resp@teste.local"
	minor["resp_telefone"] = "47988887777"
	if rec := e.do(t, http.MethodPost, "/api/patients/", token, minor); rec.Code != http.StatusBadRequest {
		t.Fatalf("responsável menor: status=%d", rec.Code)
	}

	// responsável maior de idade
	minor["resp_data_nascimento"] = "1980-01-01"
	id := e.createPatient(t, token, minor)

	// menor não pode ficar sem responsável
	rec := e.do(t, http.MethodPut, fmt.Sprintf("/api/patients/%d", id), token, map[string]interface{}{"remove_responsavel": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("remove_responsavel em menor: status=%d", rec.Code)
	}

	// vira adulto, aí pode
	rec = e.do(t, http.MethodPut, fmt.Sprintf("/api/patients/%d", id), token, map[string]interface{}{
		"data_nascimento": "1995-01-01", "remove_responsavel": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("remove_responsavel em adulto: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["resp_cpf"]; got != nil {
		t.Fatalf("resp_cpf deveria ser nulo, got=%v", got)
	}

	// campo presente mas vazio
	rec = e.do(t, http.MethodPut, fmt.Sprintf("/api/patients/%d", id), token, map[string]interface{}{"nome": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("nome vazio: status=%d", rec.Code)
	}

	if rec := e.do(t, http.MethodDelete, fmt.Sprintf("/api/patients/%d", id), token, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete paciente: status=%d", rec.Code)
	}
}

func TestIntegration_ProcedureRBAC(t *testing.T) {
	e := newTestEnv(t)
	adminToken, _ := e.registerAndLogin(t, "admin")
	userToken, _ := e.registerAndLogin(t, "default")

	nome := "Proc-" + uuid.NewString()[:8]
	if rec := e.do(t, http.MethodPost, "/api/procedures/", userToken, map[string]interface{}{
		"nome": nome, "descricao": "d", "valor_plano": 10, "valor_particular": 20,
	}); rec.Code != http.StatusForbidden {
		t.Fatalf("create por usuário comum: status=%d", rec.Code)
	}

	id := e.createProcedure(t, adminToken, nome, 10, 20)

	if rec := e.do(t, http.MethodPost, "/api/procedures/", adminToken, map[string]interface{}{
		"nome": nome, "descricao": "d", "valor_plano": 10, "valor_particular": 20,
	}); rec.Code != http.StatusBadRequest {
		t.Fatalf("nome duplicado: status=%d", rec.Code)
	}

	// valores aceitam string numérica
	rec := e.do(t, http.MethodPut, fmt.Sprintf("/api/procedures/%d", id), adminToken, map[string]interface{}{
		"valor_particular": "35.5",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["valor_particular"].(float64); got != 35.5 {
		t.Fatalf("valor_particular=%v want=35.5", got)
	}

	if rec := e.do(t, http.MethodGet, "/api/procedures/", userToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("list por usuário comum: status=%d", rec.Code)
	}

	if rec := e.do(t, http.MethodDelete, fmt.Sprintf("/api/procedures/%d", id), adminToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: status=%d", rec.Code)
	}
}

func TestIntegration_AppointmentLifecycle(t *testing.T) {
	e := newTestEnv(t)
	adminToken, _ := e.registerAndLogin(t, "admin")
	userToken, _ := e.registerAndLogin(t, "default")

	patientID := e.createPatient(t, userToken, adultPatientBody())
	procA := e.createProcedure(t, adminToken, "A-"+uuid.NewString()[:8], 80, 150)
	procB := e.createProcedure(t, adminToken, "B-"+uuid.NewString()[:8], 60, 120)

	// plano sem carteira
	rec := e.do(t, http.MethodPost, "/api/appointments/", userToken, map[string]interface{}{
		"data_hora": "2026-04-01T10:00:00", "paciente_id": patientID,
		"procedimentos": []int64{procA, procB}, "tipo": "plano",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("plano sem carteira: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, "/api/appointments/", userToken, map[string]interface{}{
		"data_hora": "2026-04-01T10:00:00", "paciente_id": patientID,
		"procedimentos": []interface{}{procA, fmt.Sprint(procB)}, "tipo": "plano",
		"numero_carteira": "CART-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	atendID := int64(body["id"].(float64))
	if got := body["valor_total"].(float64); got != 140 {
		t.Fatalf("valor_total=%v want=140 (plano)", got)
	}

	// paciente com atendimento não pode ser removido
	if rec := e.do(t, http.MethodDelete, fmt.Sprintf("/api/patients/%d", patientID), userToken, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("delete paciente com atendimento: status=%d", rec.Code)
	}
	// nem o procedimento vinculado
	if rec := e.do(t, http.MethodDelete, fmt.Sprintf("/api/procedures/%d", procA), adminToken, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("delete procedimento vinculado: status=%d", rec.Code)
	}

	// outro usuário comum não pode alterar
	otherToken, _ := e.registerAndLogin(t, "default")
	if rec := e.do(t, http.MethodPut, fmt.Sprintf("/api/appointments/%d", atendID), otherToken, map[string]interface{}{"tipo": "particular"}); rec.Code != http.StatusForbidden {
		t.Fatalf("update por terceiro: status=%d", rec.Code)
	}

	// carteira vazia limpa o campo, mas plano exige carteira
	rec = e.do(t, http.MethodPut, fmt.Sprintf("/api/appointments/%d", atendID), userToken, map[string]interface{}{"numero_carteira": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("plano sem carteira pós-update: status=%d body=%s", rec.Code, rec.Body.String())
	}

	// tipo particular limpa a exigência e recalcula o total
	rec = e.do(t, http.MethodPut, fmt.Sprintf("/api/appointments/%d", atendID), userToken, map[string]interface{}{
		"tipo": "particular", "numero_carteira": "",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update tipo: status=%d body=%s", rec.Code, rec.Body.String())
	}
	body = decodeBody(t, rec)
	if got := body["valor_total"].(float64); got != 270 {
		t.Fatalf("valor_total=%v want=270 (particular)", got)
	}
	if body["numero_carteira"] != nil {
		t.Fatalf("numero_carteira deveria ser nulo, got=%v", body["numero_carteira"])
	}

	// trocar procedimentos recalcula de novo
	rec = e.do(t, http.MethodPut, fmt.Sprintf("/api/appointments/%d", atendID), userToken, map[string]interface{}{
		"procedimentos": []int64{procA},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update procedimentos: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["valor_total"].(float64); got != 150 {
		t.Fatalf("valor_total=%v want=150", got)
	}

	// admin pode alterar atendimento de outro usuário
	if rec := e.do(t, http.MethodPut, fmt.Sprintf("/api/appointments/%d", atendID), adminToken, map[string]interface{}{
		"data_hora": "2026-04-02T09:00:00",
	}); rec.Code != http.StatusOK {
		t.Fatalf("update por admin: status=%d", rec.Code)
	}

	// intervalo com end só-data inclui o dia inteiro
	rec = e.do(t, http.MethodGet, "/api/appointments/between?start=2026-04-01&end=2026-04-02", userToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("between: status=%d body=%s", rec.Code, rec.Body.String())
	}
	found := false
	for _, it := range decodeBody(t, rec)["atendimentos"].([]interface{}) {
		if int64(it.(map[string]interface{})["id"].(float64)) == atendID {
			found = true
		}
	}
	if !found {
		t.Fatalf("atendimento %d fora do intervalo", atendID)
	}

	if rec := e.do(t, http.MethodGet, "/api/appointments/between?start=2026-04-01", userToken, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("between sem end: status=%d", rec.Code)
	}

	// recibo em PDF
	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/appointments/%d/recibo", atendID), userToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recibo: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("recibo content-type=%s", ct)
	}

	if rec := e.do(t, http.MethodDelete, fmt.Sprintf("/api/appointments/%d", atendID), userToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete atendimento: status=%d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, fmt.Sprintf("/api/appointments/%d", atendID), userToken, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get após delete: status=%d", rec.Code)
	}
	// agora o paciente pode sair
	if rec := e.do(t, http.MethodDelete, fmt.Sprintf("/api/patients/%d", patientID), userToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete paciente: status=%d", rec.Code)
	}
}

func TestIntegration_UserDeleteGuard(t *testing.T) {
	e := newTestEnv(t)
	adminToken, _ := e.registerAndLogin(t, "admin")
	userToken, userID := e.registerAndLogin(t, "default")

	patientID := e.createPatient(t, userToken, adultPatientBody())
	procID := e.createProcedure(t, adminToken, "G-"+uuid.NewString()[:8], 50, 90)

	rec := e.do(t, http.MethodPost, "/api/appointments/", userToken, map[string]interface{}{
		"data_hora": "2026-05-01T08:00:00", "paciente_id": patientID,
		"procedimentos": []int64{procID}, "tipo": "particular",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create atendimento: status=%d body=%s", rec.Code, rec.Body.String())
	}
	atendID := int64(decodeBody(t, rec)["id"].(float64))

	if rec := e.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", userID), adminToken, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("delete usuário com atendimentos: status=%d", rec.Code)
	}

	if rec := e.do(t, http.MethodDelete, fmt.Sprintf("/api/appointments/%d", atendID), userToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete atendimento: status=%d", rec.Code)
	}
	if rec := e.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", userID), adminToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete usuário: status=%d", rec.Code)
	}
	_ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/patients/%d", patientID), adminToken, nil)
}

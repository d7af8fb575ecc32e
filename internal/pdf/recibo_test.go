package pdf

import (
	"bytes"
	"testing"
	"time"
)

func TestGerarRecibo(t *testing.T) {
	out, err := GerarRecibo(ReciboData{
		AtendimentoID: 42,
		PacienteNome:  "Maria Silva",
		PacienteCPF:   "12345678901",
		DataHora:      time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
		Tipo:          "particular",
		Itens: []ReciboItem{
			{Nome: "Consulta", Valor: 150},
			{Nome: "Limpeza", Valor: 120},
		},
		ValorTotal: 270,
		VerifyURL:  "http://localhost:8080/api/appointments/42",
	})
	if err != nil {
		t.Fatalf("gerar recibo: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("saída não parece um PDF: %q", out[:8])
	}
}

func TestGerarReciboSemQR(t *testing.T) {
	out, err := GerarRecibo(ReciboData{
		AtendimentoID: 1,
		PacienteNome:  "João",
		PacienteCPF:   "00000000000",
		DataHora:      time.Now(),
		Tipo:          "plano",
		Itens:         []ReciboItem{{Nome: "Avaliação", Valor: 0}},
	})
	if err != nil {
		t.Fatalf("gerar recibo: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("pdf vazio")
	}
}

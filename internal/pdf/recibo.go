package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

// ReciboItem é uma linha do recibo: procedimento e valor cobrado.
type ReciboItem struct {
	Nome  string
	Valor float64
}

// ReciboData dados do recibo de atendimento.
type ReciboData struct {
	AtendimentoID int64
	PacienteNome  string
	PacienteCPF   string
	DataHora      time.Time
	Tipo          string
	Itens         []ReciboItem
	ValorTotal    float64
	VerifyURL     string // quando presente, vira QR code no rodapé
}

// GerarRecibo gera o recibo do atendimento em PDF.
func GerarRecibo(d ReciboData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Recibo de Atendimento #%d", d.AtendimentoID), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Paciente: "+d.PacienteNome, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "CPF: "+d.PacienteCPF, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Data/hora: "+d.DataHora.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Tipo: "+d.Tipo, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(140, 7, "Procedimento", "B", 0, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Valor", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, it := range d.Itens {
		pdf.CellFormat(140, 7, it.Nome, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("R$ %.2f", it.Valor), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(140, 8, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("R$ %.2f", d.ValorTotal), "T", 1, "R", false, 0, "")
	pdf.Ln(6)

	if d.VerifyURL != "" {
		qrPNG, err := qrcode.Encode(d.VerifyURL, qrcode.Medium, 128)
		if err == nil {
			alias := "reciboqr"
			if pdf.RegisterImageReader(alias, "PNG", bytes.NewReader(qrPNG)) != nil {
				pdf.Image(alias, 15, pdf.GetY(), 30, 30, false, "", 0, "")
				pdf.SetY(pdf.GetY() + 32)
				pdf.SetFont("Helvetica", "", 8)
				pdf.CellFormat(0, 5, "Confira este atendimento em: "+d.VerifyURL, "", 1, "L", false, 0, "")
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Renderer produces printable documents in memory.
type Renderer interface {
	RenderOrderAcknowledgement(data OrderAckData) ([]byte, error)
}

// DocumentGenerator renders with a UTF-8 TTF font when FontPath is set and
// with the built-in Helvetica otherwise.
type DocumentGenerator struct {
	FontPath string
	Company  string
	fontName string
}

type OrderAckData struct {
	DisplayID        string
	OpportunityID    string
	OpportunityTitle string
	Amount           float64
	Currency         string
	PONumber         string
	PODate           string
	QuotationID      string
	CreatedAt        time.Time
}

func NewDocumentGenerator(fontPath, company string) *DocumentGenerator {
	g := &DocumentGenerator{FontPath: fontPath, Company: company, fontName: "Helvetica"}
	if fontPath != "" {
		g.fontName = "DejaVu"
	}
	if g.Company == "" {
		g.Company = "Sales Pipeline"
	}
	return g
}

func (g *DocumentGenerator) RenderOrderAcknowledgement(data OrderAckData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Order Acknowledgement "+data.DisplayID, false)
	pdf.SetAuthor(g.Company, false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	g.addUTF8Font(pdf)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, "ORDER ACKNOWLEDGEMENT", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 12)
	pdf.CellFormat(0, 7, fmt.Sprintf("%s  dated  %s", data.DisplayID, data.CreatedAt.Format("02.01.2006")), "", 1, "C", false, 0, "")
	g.hr(pdf)
	pdf.Ln(3)

	g.sectionTitle(pdf, "Opportunity")
	g.kvLine(pdf, "Reference", data.OpportunityID)
	g.kvLine(pdf, "Title", data.OpportunityTitle)
	if data.QuotationID != "" {
		g.kvLine(pdf, "Quotation", data.QuotationID)
	}
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, "Order")
	if data.PONumber != "" {
		g.kvLine(pdf, "PO number", data.PONumber)
	}
	if data.PODate != "" {
		g.kvLine(pdf, "PO date", data.PODate)
	}
	g.kvLine(pdf, "Amount", fmt.Sprintf("%.2f %s", data.Amount, data.Currency))
	pdf.Ln(2)
	g.hr(pdf)

	pdf.SetFont(g.fontName, "", 11)
	pdf.MultiCell(0, 6, "We acknowledge receipt of the order referenced above. "+
		"Delivery schedule and payment terms follow the accepted quotation.", "", "L", false)

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s  |  page %d/{nb}", g.Company, pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render order acknowledgement %s: %w", data.DisplayID, err)
	}
	return buf.Bytes(), nil
}

func (g *DocumentGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *DocumentGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *DocumentGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func (g *DocumentGenerator) addUTF8Font(pdf *gofpdf.Fpdf) {
	if g.FontPath == "" {
		return
	}
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
}

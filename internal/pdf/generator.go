package pdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/giga-contracts/internal/model"
)

// Generator renders a single contract sheet with the built-in Helvetica font.
type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) Generate(sheet model.ContractSheet) ([]byte, error) {
	contract := sheet.Contract

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, tr(contract.Name), "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s", contract.Status), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	lines := []string{
		fmt.Sprintf("Country: %s", safeValue(contract.CountryName)),
		fmt.Sprintf("ISP: %s", safeValue(contract.ISPName)),
		fmt.Sprintf("LTA: %s", safeValue(derefString(contract.LTAName))),
		fmt.Sprintf("Period: %s - %s", formatDate(contract.StartDate), formatDate(contract.EndDate)),
		fmt.Sprintf("Budget: %s %s (%s)", contract.Budget, contract.CurrencyCode, safeValue(contract.FrequencyName)),
		fmt.Sprintf("Spent: %.2f %s (%d%%)", sheet.Spent, contract.CurrencyCode, sheet.SpentShare),
		fmt.Sprintf("Government behalf: %t", contract.GovernmentBehalf),
	}
	for _, line := range lines {
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}
	pdf.Ln(4)

	section(pdf, g.fontName, "Expected metrics")
	widths := []float64{90, 45, 45}
	drawTableRow(pdf, g.fontName, tr, []string{"Metric", "Target", "Unit"}, widths, true)
	for _, metric := range contract.ExpectedMetrics {
		drawTableRow(pdf, g.fontName, tr, []string{
			metric.MetricName,
			formatAmount(metric.Value, 2),
			metric.MetricUnit,
		}, widths, false)
	}
	pdf.Ln(4)

	section(pdf, g.fontName, fmt.Sprintf("Schools (%d)", len(contract.Schools)))
	widths = []float64{130, 50}
	drawTableRow(pdf, g.fontName, tr, []string{"School", "External ID"}, widths, true)
	for _, school := range contract.Schools {
		drawTableRow(pdf, g.fontName, tr, []string{school.Name, safeValue(school.ExternalID)}, widths, false)
	}
	pdf.Ln(4)

	section(pdf, g.fontName, "Status history")
	widths = []float64{50, 40, 40, 50}
	drawTableRow(pdf, g.fontName, tr, []string{"Date", "From", "To", "Note"}, widths, true)
	for _, transition := range contract.Transitions {
		drawTableRow(pdf, g.fontName, tr, []string{
			transition.CreatedAt.UTC().Format("02.01.2006 15:04"),
			transition.InitialStatus.String(),
			transition.FinalStatus.String(),
			transitionNote(transition),
		}, widths, false)
	}

	if pdf.Err() {
		return nil, pdf.Error()
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, fontName, title string) {
	pdf.SetFont(fontName, "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 && !header {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func transitionNote(transition model.StatusTransition) string {
	if len(transition.Data) == 0 {
		return ""
	}
	var promotion model.DraftPromotion
	if err := json.Unmarshal(transition.Data, &promotion); err != nil || promotion.DraftID == uuid.Nil {
		return ""
	}
	return "from draft " + formatDate(promotion.DraftCreation)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatAmount(value float64, precision int) string {
	format := fmt.Sprintf("%%.%df", precision)
	return fmt.Sprintf(format, value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}

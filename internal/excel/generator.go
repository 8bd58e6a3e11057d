package excel

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/giga-contracts/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

var itemHeaders = []string{
	"Name",
	"Type",
	"Status",
	"ISP",
	"Country",
	"Schools",
	"Without connection, %",
	"Below expected, %",
	"At or above expected, %",
	"Budget spent, %",
}

// Generate writes the unassigned entries to a summary sheet and every LTA
// bucket to its own sheet.
func (g *Generator) Generate(view model.ContractListView) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	summarySheet := "Contracts"
	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := writeItems(file, summarySheet, view.Items); err != nil {
		return nil, err
	}

	usedNames := map[string]struct{}{summarySheet: {}}
	for _, group := range view.LTAs {
		sheetName := buildSheetName(group.Name, group.ID, usedNames)
		usedNames[sheetName] = struct{}{}

		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, err
		}
		if err := writeItems(file, sheetName, group.Items); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeItems(file *excelize.File, sheet string, items []model.ContractListItem) error {
	for i, header := range itemHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}

	for i, item := range items {
		country := ""
		if item.Country != nil {
			country = item.Country.Name
		}
		var spent interface{} = ""
		if item.BudgetSpent != nil {
			spent = *item.BudgetSpent
		}
		row := []interface{}{
			item.Name,
			string(item.Kind),
			item.Status,
			item.ISP,
			country,
			item.NumberOfSchools,
			item.Connectivity.WithoutConnection,
			item.Connectivity.AtLeastOneBelowAverage,
			item.Connectivity.AllEqualOrAboveAverage,
			spent,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	_ = file.SetColWidth(sheet, "A", "A", 40)
	_ = file.SetColWidth(sheet, "B", "E", 16)
	_ = file.SetColWidth(sheet, "F", "J", 14)
	return nil
}

// buildSheetName keeps sheet names within Excel's 31 character limit, free of
// forbidden characters and unique within the workbook.
func buildSheetName(name string, id uuid.UUID, used map[string]struct{}) string {
	base := sanitizeSheetName(name)
	if base == "" {
		base = "LTA " + id.String()[:8]
	}
	base = truncateRunes(base, 31)

	candidate := base
	for i := 2; ; i++ {
		if _, ok := used[candidate]; !ok {
			return candidate
		}
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = truncateRunes(base, 31-len(suffix)) + suffix
	}
}

func sanitizeSheetName(name string) string {
	result := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			result = append(result, ' ')
		default:
			result = append(result, r)
		}
	}
	return string(result)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

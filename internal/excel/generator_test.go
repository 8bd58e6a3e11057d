package excel

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/giga-contracts/internal/model"
)

func TestGenerate(t *testing.T) {
	spent := 40
	view := model.ContractListView{
		Items: []model.ContractListItem{
			{
				ID:              uuid.New(),
				Kind:            model.ListItemContract,
				Name:            "Contract 1",
				Status:          "Sent",
				ISP:             "FastNet",
				Country:         &model.CountrySummary{Name: "Botswana"},
				NumberOfSchools: 3,
				BudgetSpent:     &spent,
			},
		},
		LTAs: []model.LTAGroup{
			{ID: uuid.New(), Name: "North/Region", Items: []model.ContractListItem{}},
		},
	}

	content, err := NewGenerator().Generate(view)
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, []string{"Contracts", "North Region"}, file.GetSheetList())

	name, err := file.GetCellValue("Contracts", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Contract 1", name)

	budget, err := file.GetCellValue("Contracts", "J2")
	require.NoError(t, err)
	assert.Equal(t, "40", budget)
}

func TestBuildSheetName(t *testing.T) {
	used := map[string]struct{}{"Contracts": {}}
	id := uuid.New()

	first := buildSheetName("Contracts", id, used)
	assert.Equal(t, "Contracts (2)", first)

	long := buildSheetName(strings.Repeat("x", 40), id, used)
	assert.Len(t, []rune(long), 31)

	used[long] = struct{}{}
	again := buildSheetName(strings.Repeat("x", 40), id, used)
	assert.Len(t, []rune(again), 31)
	assert.True(t, strings.HasSuffix(again, " (2)"))

	assert.Equal(t, "LTA "+id.String()[:8], buildSheetName("", id, used))
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/giga-contracts/internal/connectivity"
	"github.com/nurpe/giga-contracts/internal/model"
)

type ExcelGenerator interface {
	Generate(view model.ContractListView) ([]byte, error)
}

type PDFGenerator interface {
	Generate(sheet model.ContractSheet) ([]byte, error)
}

// ExportService renders the list view and single contracts as files.
type ExportService struct {
	views     *ViewService
	contracts *ContractService
	excel     ExcelGenerator
	pdf       PDFGenerator
	now       func() time.Time
}

type ExportResult struct {
	FileName string
	Content  []byte
}

func NewExportService(views *ViewService, contracts *ContractService, excel ExcelGenerator, pdf PDFGenerator) *ExportService {
	return &ExportService{
		views:     views,
		contracts: contracts,
		excel:     excel,
		pdf:       pdf,
		now:       time.Now,
	}
}

func (s *ExportService) ExportList(ctx context.Context, principal model.Principal) (*ExportResult, error) {
	view, err := s.views.List(ctx, principal)
	if err != nil {
		return nil, err
	}
	content, err := s.excel.Generate(*view)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: fmt.Sprintf("contracts-%s.xlsx", s.now().UTC().Format("20060102")),
		Content:  content,
	}, nil
}

func (s *ExportService) ExportSheet(ctx context.Context, principal model.Principal, contractID uuid.UUID) (*ExportResult, error) {
	contract, err := s.contracts.Get(ctx, principal, contractID)
	if err != nil {
		return nil, err
	}
	spent, err := s.views.Spend(ctx, contractID)
	if err != nil {
		return nil, err
	}

	sheet := model.ContractSheet{
		Contract:   *contract,
		Spent:      spent,
		SpentShare: connectivity.Percentage(budgetAmount(contract.Budget), spent),
	}
	content, err := s.pdf.Generate(sheet)
	if err != nil {
		return nil, err
	}

	name := sanitizeFileName(contract.Name)
	if name == "" {
		name = contract.ID.String()
	}
	return &ExportResult{
		FileName: fmt.Sprintf("contract-%s.pdf", name),
		Content:  content,
	}, nil
}

func budgetAmount(raw string) float64 {
	amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return amount
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}

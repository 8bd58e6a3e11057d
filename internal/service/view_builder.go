package service

import (
	"sort"

	"github.com/google/uuid"

	"github.com/nurpe/giga-contracts/internal/connectivity"
	"github.com/nurpe/giga-contracts/internal/model"
)

// listData is everything the list view is assembled from. All lookups are
// keyed by id; names are only read when an entry is produced.
type listData struct {
	contracts []model.ContractSummary
	drafts    []model.DraftSummary
	ltas      []model.LTA
	schools   map[uuid.UUID][]uuid.UUID
	expected  map[uuid.UUID][]model.ExpectedMetric
	spend     map[uuid.UUID]float64
	averages  map[uuid.UUID]map[uuid.UUID]float64
}

func buildListView(data listData) model.ContractListView {
	view := model.ContractListView{
		Items: []model.ContractListItem{},
		LTAs:  []model.LTAGroup{},
	}

	groups := make(map[uuid.UUID]*model.LTAGroup, len(data.ltas))
	var order []uuid.UUID
	addGroup := func(id uuid.UUID, name string) *model.LTAGroup {
		group := &model.LTAGroup{ID: id, Name: name, Items: []model.ContractListItem{}}
		groups[id] = group
		order = append(order, id)
		return group
	}
	for _, lta := range data.ltas {
		if _, ok := groups[lta.ID]; !ok {
			addGroup(lta.ID, lta.Name)
		}
	}

	place := func(ltaID *uuid.UUID, ltaName *string, item model.ContractListItem) {
		if ltaID == nil {
			view.Items = append(view.Items, item)
			return
		}
		group, ok := groups[*ltaID]
		if !ok {
			group = addGroup(*ltaID, stringValue(ltaName))
		}
		group.Items = append(group.Items, item)
	}

	for _, draft := range data.drafts {
		place(draft.LTAID, draft.LTAName, draftItem(draft))
	}
	for _, contract := range data.contracts {
		place(contract.LTAID, contract.LTAName, contractItem(contract, data))
	}

	for _, id := range order {
		view.LTAs = append(view.LTAs, *groups[id])
	}
	sort.SliceStable(view.LTAs, func(i, j int) bool {
		return view.LTAs[i].Name < view.LTAs[j].Name
	})
	return view
}

func draftItem(draft model.DraftSummary) model.ContractListItem {
	item := model.ContractListItem{
		ID:              draft.ID,
		Kind:            model.ListItemDraft,
		Name:            draft.Name,
		ISP:             stringValue(draft.ISPName),
		Status:          model.ContractStatusDraft.String(),
		NumberOfSchools: draft.SchoolCount,
	}
	if draft.CountryID != nil {
		item.Country = &model.CountrySummary{
			ID:      *draft.CountryID,
			Name:    stringValue(draft.CountryName),
			Code:    stringValue(draft.CountryCode),
			FlagURL: stringValue(draft.CountryFlagURL),
		}
	}
	return item
}

func contractItem(contract model.ContractSummary, data listData) model.ContractListItem {
	schools := data.schools[contract.ID]
	expected := data.expected[contract.ID]

	var tally connectivity.Tally
	for _, schoolID := range schools {
		tally.Add(connectivity.Classify(data.averages[schoolID], expected))
	}

	spent := connectivity.Percentage(contract.BudgetAmount, data.spend[contract.ID])
	return model.ContractListItem{
		ID:     contract.ID,
		Kind:   model.ListItemContract,
		Name:   contract.Name,
		ISP:    contract.ISPName,
		Status: contract.Status.String(),
		Country: &model.CountrySummary{
			ID:      contract.CountryID,
			Name:    contract.CountryName,
			Code:    contract.CountryCode,
			FlagURL: contract.CountryFlagURL,
		},
		NumberOfSchools: len(schools),
		Connectivity:    tally.Share(),
		BudgetSpent:     &spent,
	}
}

// buildCountView groups contracts by status and reports drafts under the
// Draft bucket. Total is every contract plus every draft.
func buildCountView(byStatus map[model.ContractStatus]int, drafts int) model.ContractCountView {
	view := model.ContractCountView{Counts: make([]model.StatusCount, 0, len(byStatus)+1)}
	for _, status := range model.ContractStatuses() {
		count := byStatus[status]
		if status == model.ContractStatusDraft {
			count += drafts
		}
		view.Counts = append(view.Counts, model.StatusCount{Status: status.String(), Count: count})
		view.Total += count
	}

	var unknown []model.ContractStatus
	for status := range byStatus {
		if !status.Valid() {
			unknown = append(unknown, status)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	for _, status := range unknown {
		view.Counts = append(view.Counts, model.StatusCount{Status: status.String(), Count: byStatus[status]})
		view.Total += byStatus[status]
	}
	return view
}

func uniqueSchoolIDs(byContract map[uuid.UUID][]uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	result := make([]uuid.UUID, 0)
	for _, schools := range byContract {
		for _, id := range schools {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			result = append(result, id)
		}
	}
	return result
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

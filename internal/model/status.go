package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ContractStatus is the ordered lifecycle of a contract. A contract only ever
// moves to Next().
type ContractStatus int

const (
	ContractStatusDraft ContractStatus = iota
	ContractStatusSent
	ContractStatusConfirmed
	ContractStatusOngoing
	ContractStatusExpired
	ContractStatusCompleted
)

var contractStatusLabels = [...]string{
	ContractStatusDraft:     "Draft",
	ContractStatusSent:      "Sent",
	ContractStatusConfirmed: "Confirmed",
	ContractStatusOngoing:   "Ongoing",
	ContractStatusExpired:   "Expired",
	ContractStatusCompleted: "Completed",
}

// ContractStatuses lists every status in lifecycle order.
func ContractStatuses() []ContractStatus {
	result := make([]ContractStatus, 0, len(contractStatusLabels))
	for i := range contractStatusLabels {
		result = append(result, ContractStatus(i))
	}
	return result
}

func (s ContractStatus) Valid() bool {
	return s >= ContractStatusDraft && int(s) < len(contractStatusLabels)
}

// Next returns the status that follows s. ok is false for the terminal status.
func (s ContractStatus) Next() (next ContractStatus, ok bool) {
	next = s + 1
	if !s.Valid() || !next.Valid() {
		return s, false
	}
	return next, true
}

// CanAdvanceTo reports whether target is exactly the status after s.
func (s ContractStatus) CanAdvanceTo(target ContractStatus) bool {
	next, ok := s.Next()
	return ok && target.Valid() && next == target
}

func (s ContractStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("ContractStatus(%d)", int(s))
	}
	return contractStatusLabels[s]
}

// ParseContractStatus accepts a label ("Confirmed") case-insensitively.
func ParseContractStatus(raw string) (ContractStatus, error) {
	raw = strings.TrimSpace(raw)
	for i, label := range contractStatusLabels {
		if strings.EqualFold(label, raw) {
			return ContractStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown contract status %q", raw)
}

func (s ContractStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *ContractStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*s = ContractStatus(v)
	case int32:
		*s = ContractStatus(v)
	case int16:
		*s = ContractStatus(v)
	case nil:
		*s = ContractStatusDraft
	default:
		return fmt.Errorf("cannot scan %T into ContractStatus", src)
	}
	return nil
}

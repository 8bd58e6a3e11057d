// Package scope narrows which contracts, drafts and LTAs a principal may see.
package scope

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/giga-contracts/internal/model"
)

// Predicate is the conjunction of visibility restrictions for one principal.
// The zero value restricts to the nil country and therefore matches nothing.
// MatchNone short-circuits every check and is set for an isp principal with
// no name, since rows are matched against the isp name.
type Predicate struct {
	Unrestricted   bool
	MatchNone      bool
	CountryID      uuid.UUID
	GovernmentOnly bool
	ISPName        string
}

// Resolve builds the predicate for p. Admins see every row; everyone else is
// pinned to their country, and the government and isp roles add restrictions.
func Resolve(p model.Principal) Predicate {
	if p.IsAdmin() {
		return Predicate{Unrestricted: true}
	}
	pred := Predicate{CountryID: p.CountryID}
	if p.IsGovernment() {
		pred.GovernmentOnly = true
	}
	if p.IsISP() {
		if strings.TrimSpace(p.Name) == "" {
			return Predicate{MatchNone: true, CountryID: p.CountryID}
		}
		pred.ISPName = p.Name
	}
	return pred
}

// Row is the visibility-relevant projection of a contract, draft or LTA.
// Contracts and drafts carry at most one ISP name; LTAs carry their ISP set.
type Row struct {
	CountryID        uuid.UUID
	GovernmentBehalf bool
	ISPNames         []string
}

// Allows evaluates the predicate in memory.
func (p Predicate) Allows(row Row) bool {
	if p.Unrestricted {
		return true
	}
	if p.MatchNone {
		return false
	}
	if row.CountryID != p.CountryID {
		return false
	}
	if p.GovernmentOnly && !row.GovernmentBehalf {
		return false
	}
	if p.ISPName != "" {
		for _, name := range row.ISPNames {
			if name == p.ISPName {
				return true
			}
		}
		return false
	}
	return true
}

// Contracts returns a gorm scope for a contracts (or drafts) table aliased as alias.
// Both tables carry country_id, government_behalf and isp_id.
func (p Predicate) Contracts(alias string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Unrestricted {
			return db
		}
		if p.MatchNone {
			return db.Where("FALSE")
		}
		db = db.Where(alias+".country_id = ?", p.CountryID)
		if p.GovernmentOnly {
			db = db.Where(alias + ".government_behalf = TRUE")
		}
		if p.ISPName != "" {
			db = db.Where("EXISTS (SELECT 1 FROM isps scope_isp WHERE scope_isp.id = "+alias+".isp_id AND scope_isp.name = ?)", p.ISPName)
		}
		return db
	}
}

// Drafts is an alias of Contracts kept for readability at call sites.
func (p Predicate) Drafts(alias string) func(*gorm.DB) *gorm.DB {
	return p.Contracts(alias)
}

// LTAs returns a gorm scope for the ltas table aliased as alias.
func (p Predicate) LTAs(alias string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Unrestricted {
			return db
		}
		if p.MatchNone {
			return db.Where("FALSE")
		}
		db = db.Where(alias+".country_id = ?", p.CountryID)
		if p.GovernmentOnly {
			db = db.Where(alias + ".government_behalf = TRUE")
		}
		if p.ISPName != "" {
			db = db.Where(`EXISTS (
				SELECT 1 FROM lta_isps scope_li
				JOIN isps scope_isp ON scope_isp.id = scope_li.isp_id
				WHERE scope_li.lta_id = `+alias+`.id AND scope_isp.name = ?)`, p.ISPName)
		}
		return db
	}
}

// MarshalZerologObject lets the effective predicate be logged for auditing.
func (p Predicate) MarshalZerologObject(e *zerolog.Event) {
	if p.Unrestricted {
		e.Bool("unrestricted", true)
		return
	}
	if p.MatchNone {
		e.Bool("match_none", true)
		return
	}
	e.Str("country_id", p.CountryID.String())
	e.Bool("government_only", p.GovernmentOnly)
	if p.ISPName != "" {
		e.Str("isp_name", p.ISPName)
	}
}

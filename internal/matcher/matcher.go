package matcher

import (
	"strings"

	"github.com/Iamcalix/quickbooksupload/internal/extractor"
	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

// Tier records which key produced a match. Lower tiers take priority.
type Tier int

const (
	TierNone Tier = iota
	TierMemberID
	TierReferenceID
	TierAccountNumber
	TierMemberCode
)

func (t Tier) String() string {
	switch t {
	case TierMemberID:
		return "member_id"
	case TierReferenceID:
		return "reference_id"
	case TierAccountNumber:
		return "account_number"
	case TierMemberCode:
		return "member_code"
	default:
		return "none"
	}
}

// Resolution is the mapping chosen for a transaction
type Resolution struct {
	Mapping statement.CustomerMapping
	Tier    Tier
}

// Resolver overlays known customer identity onto parsed transactions
type Resolver struct {
	mappings []statement.CustomerMapping
}

// NewResolver creates a Resolver. The slice is not copied and must not be
// modified while the Resolver is in use.
func NewResolver(mappings []statement.CustomerMapping) *Resolver {
	return &Resolver{mappings: mappings}
}

// Resolve finds the mapping for tx. Tiers are tried in order: member id,
// reference id, account number, then a member code embedded in the raw line.
// Within a tier the first mapping in list order wins.
func (r *Resolver) Resolve(tx statement.Transaction) (Resolution, bool) {
	if !tx.IsValid {
		return Resolution{}, false
	}

	tiers := []struct {
		tier  Tier
		match func(m statement.CustomerMapping) bool
	}{
		{TierMemberID, func(m statement.CustomerMapping) bool {
			return equal(m.MemberID, tx.AccountOrUserID)
		}},
		{TierReferenceID, func(m statement.CustomerMapping) bool {
			return equal(m.ReferenceID, tx.ReferenceID)
		}},
		{TierAccountNumber, func(m statement.CustomerMapping) bool {
			return equal(m.AccountNumber, tx.AccountOrUserID) || equal(m.AccountNumber, tx.ReferenceID)
		}},
	}

	for _, t := range tiers {
		if m, ok := r.find(t.match); ok {
			return Resolution{Mapping: m, Tier: t.tier}, true
		}
	}

	// Member codes are sometimes only present inside free text
	if code, ok := extractor.MemberCode(tx.RawLine); ok {
		if m, ok := r.find(func(m statement.CustomerMapping) bool {
			return m.MemberID != "" && strings.EqualFold(strings.TrimSpace(m.MemberID), code)
		}); ok {
			return Resolution{Mapping: m, Tier: TierMemberCode}, true
		}
	}

	return Resolution{}, false
}

// Apply resolves every valid transaction in place and returns how many matched
func (r *Resolver) Apply(txns []statement.Transaction) int {
	resolved := 0
	for i := range txns {
		res, ok := r.Resolve(txns[i])
		if !ok {
			continue
		}
		Overlay(&txns[i], res.Mapping)
		resolved++
	}
	return resolved
}

// Overlay copies identity fields from m onto tx. Fields that are empty on the
// mapping leave the transaction untouched.
func Overlay(tx *statement.Transaction, m statement.CustomerMapping) {
	if m.CustomerName != "" {
		tx.CustomerName = m.CustomerName
	}
	if m.MemberID != "" {
		tx.MemberID = m.MemberID
	}
	if m.ProductLabel != "" {
		tx.ProductLabel = m.ProductLabel
	}
	if m.NationalID != "" {
		tx.NationalID = m.NationalID
	}
}

func (r *Resolver) find(match func(statement.CustomerMapping) bool) (statement.CustomerMapping, bool) {
	for _, m := range r.mappings {
		if match(m) {
			return m, true
		}
	}
	return statement.CustomerMapping{}, false
}

// equal compares identifiers exactly, ignoring surrounding whitespace.
// Empty values never match.
func equal(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && a == b
}

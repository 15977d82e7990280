package extractor

import (
	"regexp"
	"strings"
)

// IdentifierType represents the type of identifier extracted
type IdentifierType string

const (
	TypeMemberCode    IdentifierType = "member_code"
	TypeUserID        IdentifierType = "user_id"
	TypeReference     IdentifierType = "reference"
	TypeAccountNumber IdentifierType = "account_number"
)

// Identifier represents an extracted identifier from a statement line
type Identifier struct {
	Type  IdentifierType
	Value string
}

type pattern struct {
	idType IdentifierType
	re     *regexp.Regexp
	upper  bool
}

// Patterns are evaluated in order; identifiers keep that order in the output.
var patterns = []pattern{
	// Member code: MC + 3 digits + 3 letters, often glued to other text (e.g. 963330000141MC012ABC)
	{idType: TypeMemberCode, re: regexp.MustCompile(`(?i)(MC\d{3}[A-Z]{3})`), upper: true},

	// NMB agency user id: @22410063786@
	{idType: TypeUserID, re: regexp.MustCompile(`@(\d+)@`)},

	// NMB description number: Description 963330000141
	{idType: TypeReference, re: regexp.MustCompile(`Description\s+(\d+)`)},

	// CRDB reference: REF:19bdb0f42ad57818
	{idType: TypeReference, re: regexp.MustCompile(`REF:([A-Za-z0-9]+)`)},

	// CRDB account after the counterpart name: :963330000396<space>
	{idType: TypeAccountNumber, re: regexp.MustCompile(`:(\d{10,14})(?:\s|$)`)},

	// Explicit account markers: A/C 0150123456789, ACC NO. 0150123456
	{idType: TypeAccountNumber, re: regexp.MustCompile(`(?i)(?:A/C|ACC(?:OUNT)?)\s*(?:NO\.?|#)?\s*(\d{10,14})`)},
}

// Extract extracts all identifiers from a raw statement line
func Extract(line string) []Identifier {
	var identifiers []Identifier
	seen := make(map[string]bool)

	for _, p := range patterns {
		for _, match := range p.re.FindAllStringSubmatch(line, -1) {
			if len(match) < 2 {
				continue
			}
			value := match[1]
			if p.upper {
				value = strings.ToUpper(value)
			}
			key := string(p.idType) + ":" + value
			if seen[key] {
				continue
			}
			seen[key] = true
			identifiers = append(identifiers, Identifier{Type: p.idType, Value: value})
		}
	}

	return identifiers
}

// ExtractValues extracts all identifier values as a flat string slice
func ExtractValues(line string) []string {
	identifiers := Extract(line)
	values := make([]string, len(identifiers))
	for i, id := range identifiers {
		values[i] = id.Value
	}
	return values
}

// ExtractByType extracts identifiers of a specific type
func ExtractByType(line string, idType IdentifierType) []string {
	var values []string
	for _, id := range Extract(line) {
		if id.Type == idType {
			values = append(values, id.Value)
		}
	}
	return values
}

// MemberCode returns the first member code embedded in line, upper-cased
func MemberCode(line string) (string, bool) {
	codes := ExtractByType(line, TypeMemberCode)
	if len(codes) == 0 {
		return "", false
	}
	return codes[0], true
}

package resolver

import (
	"strings"

	"github.com/wonny/bondlab/internal/contracts"
)

// IdentifierKind is the structural type of a coded identifier.
type IdentifierKind string

const (
	KindISIN   IdentifierKind = "isin"
	KindCUSIP  IdentifierKind = "cusip"
	KindOpaque IdentifierKind = "opaque"
)

// IdentifierInfo is everything the identifier structure alone tells us.
type IdentifierInfo struct {
	Normalized string
	Kind       IdentifierKind
	Valid      bool
	Country    string
	// IssuerPrefixes are issuer patterns to try, most specific first.
	IssuerPrefixes []string
	AssetClass     contracts.AssetClass
}

// Prefixes of government issuers, by identifier (CUSIP or ISIN) start.
var sovereignPrefixes = []string{"912", "US912", "DE0001", "DE000BU", "IT0005", "IT0004", "JP1"}

// NormalizeIdentifier strips whitespace and upper-cases.
func NormalizeIdentifier(id string) string {
	return strings.ToUpper(strings.Join(strings.Fields(id), ""))
}

// Inspect infers structure from an identifier. Identifiers failing their
// check digit are opaque: no country, issuer or asset class is inferred.
func Inspect(id string) IdentifierInfo {
	n := NormalizeIdentifier(id)
	info := IdentifierInfo{Normalized: n, Kind: KindOpaque}

	switch {
	case ValidISIN(n):
		info.Kind = KindISIN
		info.Valid = true
		info.Country = n[:2]
		if info.Country == "US" || info.Country == "CA" {
			// NSIN is the CUSIP: issuer number is its first six characters.
			info.IssuerPrefixes = []string{n[:8], n[2:8]}
		} else {
			info.IssuerPrefixes = []string{n[:8], n[:7], n[:6], n[:3]}
		}
	case ValidCUSIP(n):
		info.Kind = KindCUSIP
		info.Valid = true
		info.Country = "US"
		info.IssuerPrefixes = []string{n[:6]}
	default:
		return info
	}

	info.AssetClass = contracts.AssetClassCorporate
	for _, p := range sovereignPrefixes {
		if strings.HasPrefix(n, p) {
			info.AssetClass = contracts.AssetClassSovereign
			break
		}
	}
	return info
}

// ValidISIN checks length, country letters and the Luhn check digit computed
// over the letter-expanded string (A=10 ... Z=35).
func ValidISIN(s string) bool {
	if len(s) != 12 || !isLetter(s[0]) || !isLetter(s[1]) || !isDigit(s[11]) {
		return false
	}

	var digits []int
	for i := 0; i < 11; i++ {
		c := s[i]
		switch {
		case isDigit(c):
			digits = append(digits, int(c-'0'))
		case isLetter(c):
			v := int(c-'A') + 10
			digits = append(digits, v/10, v%10)
		default:
			return false
		}
	}

	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		// Rightmost digit of the payload is doubled.
		if (len(digits)-1-i)%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return (10-sum%10)%10 == int(s[11]-'0')
}

// ValidCUSIP checks the modulus 10 double-add-double check digit.
func ValidCUSIP(s string) bool {
	if len(s) != 9 || !isDigit(s[8]) {
		return false
	}

	sum := 0
	for i := 0; i < 8; i++ {
		c := s[i]
		var v int
		switch {
		case isDigit(c):
			v = int(c - '0')
		case isLetter(c):
			v = int(c-'A') + 10
		case c == '*':
			v = 36
		case c == '@':
			v = 37
		case c == '#':
			v = 38
		default:
			return false
		}
		if i%2 == 1 {
			v *= 2
		}
		sum += v/10 + v%10
	}
	return (10-sum%10)%10 == int(s[8]-'0')
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'A' && c <= 'Z' }

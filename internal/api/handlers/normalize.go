package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/bondlab/internal/contracts"
)

// Upstream callers spell the same field several ways. Every accepted
// spelling is listed here; the engine only ever sees the canonical shape.
// ⭐ SSOT: field-name tolerance lives here and nowhere else
var fieldAliases = map[string][]string{
	"identifier":  {"identifier", "isin", "cusip", "id", "security_id", "securityid", "bond_id"},
	"description": {"description", "desc", "bond_description", "security_description", "name", "security_name"},
	"clean_price": {"clean_price", "cleanprice", "price", "px", "px_clean", "price_clean", "quote"},
	"yield":       {"yield", "ytm", "yield_to_maturity"},
	"settlement":  {"settlement", "settlement_date", "settlementdate", "settle", "settle_date", "value_date"},
	"weight":      {"weight", "wt", "position_weight", "notional"},
	"depth":       {"depth"},
	"spec":        {"spec", "specification"},
}

// canonicalOf maps every lower-cased alias onto its canonical field.
var canonicalOf = func() map[string]string {
	out := make(map[string]string)
	for canonical, aliases := range fieldAliases {
		for _, a := range aliases {
			out[a] = canonical
		}
	}
	return out
}()

// canonicalize folds a raw JSON object onto canonical field names. Unknown
// fields are ignored. Two spellings of one field with different values are
// rejected.
func canonicalize(raw map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(raw))
	from := make(map[string]string, len(raw))
	for key, value := range raw {
		canonical, ok := canonicalOf[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}
		if prev, seen := out[canonical]; seen && string(prev) != string(value) {
			return nil, fmt.Errorf("%w: %q and %q both set %s with different values", contracts.ErrInvalidInput, from[canonical], key, canonical)
		}
		out[canonical] = value
		from[canonical] = key
	}
	return out, nil
}

// BondInput is the canonical shape of one bond in a request.
type BondInput struct {
	Identifier  string
	Description string
	Spec        *contracts.BondSpecification
	CleanPrice  *float64
	Yield       *float64
	Settlement  time.Time
	Weight      *float64
	Depth       contracts.Depth
}

// normalizeBond decodes one bond object. A missing settlement date defaults
// to today's date from now.
func normalizeBond(raw map[string]json.RawMessage, now func() time.Time) (*BondInput, error) {
	fields, err := canonicalize(raw)
	if err != nil {
		return nil, err
	}

	in := &BondInput{}
	if in.Identifier, err = stringField(fields, "identifier"); err != nil {
		return nil, err
	}
	if in.Description, err = stringField(fields, "description"); err != nil {
		return nil, err
	}
	if in.CleanPrice, err = numberField(fields, "clean_price"); err != nil {
		return nil, err
	}
	if in.Yield, err = numberField(fields, "yield"); err != nil {
		return nil, err
	}
	if in.Weight, err = numberField(fields, "weight"); err != nil {
		return nil, err
	}

	depth, err := stringField(fields, "depth")
	if err != nil {
		return nil, err
	}
	if in.Depth, err = contracts.ParseDepth(strings.ToLower(depth)); err != nil {
		return nil, err
	}

	settlement, err := stringField(fields, "settlement")
	if err != nil {
		return nil, err
	}
	if settlement == "" {
		in.Settlement = contracts.Midnight(now())
	} else if in.Settlement, err = contracts.ParseDate(settlement); err != nil {
		return nil, err
	}

	if specRaw, ok := fields["spec"]; ok && string(specRaw) != "null" {
		var spec contracts.BondSpecification
		if err := json.Unmarshal(specRaw, &spec); err != nil {
			return nil, fmt.Errorf("%w: spec: %v", contracts.ErrInvalidInput, err)
		}
		if spec.FaceValue == 0 {
			spec.FaceValue = contracts.DefaultFaceValue
		}
		if spec.BusinessDay == "" {
			spec.BusinessDay = contracts.Unadjusted
		}
		in.Spec = &spec
	}

	return in, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", contracts.ErrInvalidInput, name)
	}
	return strings.TrimSpace(s), nil
}

// numberField accepts a JSON number or a numeric string.
func numberField(fields map[string]json.RawMessage, name string) (*float64, error) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return nil, nil
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil, fmt.Errorf("%w: %s must be a number", contracts.ErrInvalidInput, name)
		}
		v, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q is not a number", contracts.ErrInvalidInput, name, s)
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s must be finite", contracts.ErrInvalidInput, name)
	}
	return &v, nil
}

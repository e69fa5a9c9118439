package conventions

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonny/bondlab/internal/contracts"
)

// File is the YAML convention seed.
type File struct {
	Issuers     []IssuerEntry     `yaml:"issuers"`
	Identifiers []IdentifierEntry `yaml:"identifiers"`
}

// IssuerEntry is an issuer level convention set.
type IssuerEntry struct {
	Key         string   `yaml:"key"`
	Aliases     []string `yaml:"aliases"`
	Issuer      string   `yaml:"issuer"`
	AssetClass  string   `yaml:"asset_class"`
	DayCount    string   `yaml:"day_count"`
	BusinessDay string   `yaml:"business_day"`
	Frequency   string   `yaml:"frequency"`
	Calendar    string   `yaml:"calendar"`
}

// IdentifierEntry describes one bond. Missing conventions are inherited from
// the issuer entry named by Issuer.
type IdentifierEntry struct {
	Identifier  string   `yaml:"identifier"`
	Issuer      string   `yaml:"issuer"`
	AssetClass  string   `yaml:"asset_class"`
	DayCount    string   `yaml:"day_count"`
	BusinessDay string   `yaml:"business_day"`
	Frequency   string   `yaml:"frequency"`
	Calendar    string   `yaml:"calendar"`
	Coupon      *float64 `yaml:"coupon"`
	Maturity    string   `yaml:"maturity"`
	IssueDate   string   `yaml:"issue_date"`
}

// LoadFile reads a YAML seed into store.
// Unknown fields are rejected so typos fail loudly.
func LoadFile(path string, store *MemoryStore) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read conventions file: %w", err)
	}
	return Load(data, store)
}

// Load decodes YAML seed data into store.
func Load(data []byte, store *MemoryStore) error {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return fmt.Errorf("decode conventions: %w", err)
	}

	for i, e := range f.Issuers {
		rec, err := e.record()
		if err != nil {
			return fmt.Errorf("issuers[%d] %q: %w", i, e.Key, err)
		}
		store.AddIssuer(rec, e.Aliases...)
	}

	for i, e := range f.Identifiers {
		var base *contracts.ConventionRecord
		if e.Issuer != "" {
			if inherited, err := store.LookupIssuer(context.Background(), e.Issuer); err == nil {
				base = inherited
			}
		}
		rec, err := e.record(base)
		if err != nil {
			return fmt.Errorf("identifiers[%d] %q: %w", i, e.Identifier, err)
		}
		store.AddIdentifier(rec)
	}

	return nil
}

func (e IssuerEntry) record() (contracts.ConventionRecord, error) {
	if strings.TrimSpace(e.Key) == "" {
		return contracts.ConventionRecord{}, fmt.Errorf("%w: key is required", contracts.ErrInvalidInput)
	}
	rec := contracts.ConventionRecord{Key: e.Key, Issuer: e.Issuer}
	if rec.Issuer == "" {
		rec.Issuer = e.Key
	}
	if err := applyConventions(&rec, e.AssetClass, e.DayCount, e.BusinessDay, e.Frequency, e.Calendar); err != nil {
		return rec, err
	}
	err := requireConventions(&rec)
	return rec, err
}

func (e IdentifierEntry) record(base *contracts.ConventionRecord) (contracts.ConventionRecord, error) {
	if strings.TrimSpace(e.Identifier) == "" {
		return contracts.ConventionRecord{}, fmt.Errorf("%w: identifier is required", contracts.ErrInvalidInput)
	}

	var rec contracts.ConventionRecord
	if base != nil {
		rec = *base
	}
	rec.Key = e.Identifier
	if e.Issuer != "" && base == nil {
		rec.Issuer = e.Issuer
	}
	if err := applyConventions(&rec, e.AssetClass, e.DayCount, e.BusinessDay, e.Frequency, e.Calendar); err != nil {
		return rec, err
	}

	if e.Coupon != nil {
		c := *e.Coupon
		if c < 0 || c >= 1 {
			return rec, fmt.Errorf("%w: coupon must be a decimal in [0, 1), got %v", contracts.ErrInvalidInput, c)
		}
		rec.CouponRate = &c
	}
	if e.Maturity != "" {
		m, err := contracts.ParseDate(e.Maturity)
		if err != nil {
			return rec, err
		}
		rec.Maturity = &m
	}
	if e.IssueDate != "" {
		d, err := contracts.ParseDate(e.IssueDate)
		if err != nil {
			return rec, err
		}
		rec.IssueDate = &d
	}
	if rec.Maturity != nil && rec.IssueDate != nil && !rec.Maturity.After(*rec.IssueDate) {
		return rec, fmt.Errorf("%w: maturity must be after issue date", contracts.ErrInvalidInput)
	}
	err := requireConventions(&rec)
	return rec, err
}

func applyConventions(rec *contracts.ConventionRecord, assetClass, dayCount, bdc, freq, cal string) error {
	if assetClass != "" {
		switch contracts.AssetClass(strings.ToLower(assetClass)) {
		case contracts.AssetClassSovereign:
			rec.AssetClass = contracts.AssetClassSovereign
		case contracts.AssetClassCorporate:
			rec.AssetClass = contracts.AssetClassCorporate
		default:
			return fmt.Errorf("%w: unknown asset class %q", contracts.ErrInvalidInput, assetClass)
		}
	}
	if dayCount != "" {
		dc, err := contracts.ParseDayCount(dayCount)
		if err != nil {
			return err
		}
		rec.DayCount = dc
	}
	if bdc != "" {
		b, err := contracts.ParseBusinessDayConvention(bdc)
		if err != nil {
			return err
		}
		rec.BusinessDay = b
	}
	if freq != "" {
		f, err := contracts.ParseFrequency(freq)
		if err != nil {
			return err
		}
		rec.Frequency = f
	}
	if cal != "" {
		rec.Calendar = strings.ToUpper(cal)
	}
	return nil
}

func requireConventions(rec *contracts.ConventionRecord) error {
	if !rec.DayCount.Valid() || !rec.Frequency.Valid() {
		return fmt.Errorf("%w: day_count and frequency are required", contracts.ErrInvalidInput)
	}
	if rec.BusinessDay == "" {
		rec.BusinessDay = contracts.Unadjusted
	}
	if rec.AssetClass == "" {
		rec.AssetClass = contracts.AssetClassCorporate
	}
	return nil
}

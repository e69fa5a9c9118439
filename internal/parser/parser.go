// Package parser extracts bond terms from free-text descriptions such as
// "T 3 15/08/52", "UKT 4¼ 07-Dec-2055" or "DBR 2.6% 2033-08-15 annual".
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/bondlab/internal/contracts"
)

// Description is what could be read from the text.
type Description struct {
	Raw        string              `json:"raw"`
	Issuer     string              `json:"issuer"`
	CouponRate float64             `json:"coupon_rate"` // decimal
	Maturity   time.Time           `json:"maturity"`
	Frequency  contracts.Frequency `json:"frequency,omitempty"` // zero when the text has no hint
}

var vulgarFractions = strings.NewReplacer(
	"½", " 1/2", "¼", " 1/4", "¾", " 3/4",
	"⅛", " 1/8", "⅜", " 3/8", "⅝", " 5/8", "⅞", " 7/8",
	"⅓", " 1/3", "⅔", " 2/3",
	"⅕", " 1/5", "⅖", " 2/5", "⅗", " 3/5", "⅘", " 4/5",
	"⅙", " 1/6", "⅚", " 5/6",
	"⁄", "/",
)

var (
	reFrequency = regexp.MustCompile(`(?i)\b(semi-?annual(?:ly)?|semi|s/a|annual(?:ly)?|quarterly|qtrly|monthly)\b`)

	reISODate   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	reDayMonY   = regexp.MustCompile(`\b(\d{1,2})[- ]([A-Za-z]{3,9})[- ](\d{2,4})\b`)
	reMonDayY   = regexp.MustCompile(`\b([A-Za-z]{3,9})[- ](\d{1,2}),?[- ](\d{2,4})\b`)
	reYearTail  = regexp.MustCompile(`^[-/,]\s*\d`)
	reSlashDate = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})\b`)
	reDotDate   = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{2}|\d{4})\b`)

	rePercent  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	reMixed    = regexp.MustCompile(`\b(\d{1,2})(?:\s+|-)(\d{1,2})/(\d{1,3})\b`)
	reFraction = regexp.MustCompile(`(?:^|\s)(\d{1,2})/(\d{1,3})\b`)
	reDecimal  = regexp.MustCompile(`(?:^|\s)(\d{1,2}(?:\.\d+)?)(?:\s|$)`)

	reWord = regexp.MustCompile(`[A-Za-z][A-Za-z.&']*`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// Parse extracts issuer, coupon, maturity and an optional frequency hint.
// A description without a usable coupon or maturity is an ErrResolution.
func Parse(text string) (*Description, error) {
	desc := &Description{Raw: text}

	work := " " + strings.Join(strings.Fields(vulgarFractions.Replace(text)), " ") + " "
	if strings.TrimSpace(work) == "" {
		return nil, fmt.Errorf("%w: empty description", contracts.ErrResolution)
	}

	if loc := reFrequency.FindStringSubmatchIndex(work); loc != nil {
		desc.Frequency = frequencyHint(work[loc[2]:loc[3]])
		work = cut(work, loc[0], loc[1])
	}

	maturity, work, err := extractDate(work)
	if err != nil {
		return nil, err
	}
	desc.Maturity = maturity

	coupon, issuerEnd, err := extractCoupon(work)
	if err != nil {
		return nil, err
	}
	desc.CouponRate = coupon
	desc.Issuer = extractIssuer(work, issuerEnd)

	return desc, nil
}

func cut(s string, from, to int) string {
	return s[:from] + " " + s[to:]
}

func frequencyHint(word string) contracts.Frequency {
	w := strings.ToLower(word)
	switch {
	case strings.HasPrefix(w, "semi"), w == "s/a":
		return contracts.FrequencySemiannual
	case strings.HasPrefix(w, "annual"):
		return contracts.FrequencyAnnual
	case w == "quarterly", w == "qtrly":
		return contracts.FrequencyQuarterly
	case w == "monthly":
		return contracts.FrequencyMonthly
	}
	return 0
}

// extractDate finds the maturity and returns the text with it removed.
func extractDate(work string) (time.Time, string, error) {
	if m := reISODate.FindStringSubmatchIndex(work); m != nil {
		y, mo, d := atoi(work, m, 1), atoi(work, m, 2), atoi(work, m, 3)
		t, err := makeDate(y, mo, d)
		return t, cut(work, m[0], m[1]), err
	}
	// "3 Aug-15-2052" is Mon-DD-YYYY after a coupon, not DD-Mon-YY.
	if m := reDayMonY.FindStringSubmatchIndex(work); m != nil && !reYearTail.MatchString(work[m[1]:]) {
		if mo, ok := monthOf(work[m[4]:m[5]]); ok {
			t, err := makeDate(expandYear(atoi(work, m, 3)), int(mo), atoi(work, m, 1))
			return t, cut(work, m[0], m[1]), err
		}
	}
	if m := reMonDayY.FindStringSubmatchIndex(work); m != nil {
		if mo, ok := monthOf(work[m[2]:m[3]]); ok {
			t, err := makeDate(expandYear(atoi(work, m, 3)), int(mo), atoi(work, m, 2))
			return t, cut(work, m[0], m[1]), err
		}
	}
	for _, re := range []*regexp.Regexp{reSlashDate, reDotDate} {
		if m := re.FindStringSubmatchIndex(work); m != nil {
			first, second := atoi(work, m, 1), atoi(work, m, 2)
			day, month := first, second
			// US style (MM/DD) only when the second field cannot be a month.
			if second > 12 {
				day, month = second, first
			}
			t, err := makeDate(expandYear(atoi(work, m, 3)), month, day)
			return t, cut(work, m[0], m[1]), err
		}
	}
	return time.Time{}, work, fmt.Errorf("%w: no maturity date in description", contracts.ErrResolution)
}

// extractCoupon returns the coupon as a decimal and the offset where it starts.
func extractCoupon(work string) (float64, int, error) {
	if m := rePercent.FindStringSubmatchIndex(work); m != nil {
		v, _ := strconv.ParseFloat(work[m[2]:m[3]], 64)
		return couponResult(v, m[0])
	}
	if m := reMixed.FindStringSubmatchIndex(work); m != nil {
		whole := float64(atoi(work, m, 1))
		num, den := atoi(work, m, 2), atoi(work, m, 3)
		if den > 0 && num < den {
			return couponResult(whole+float64(num)/float64(den), m[0])
		}
	}
	if m := reFraction.FindStringSubmatchIndex(work); m != nil {
		num, den := atoi(work, m, 1), atoi(work, m, 2)
		if den > 0 && num < den {
			return couponResult(float64(num)/float64(den), m[2])
		}
	}
	if m := reDecimal.FindStringSubmatchIndex(work); m != nil {
		v, _ := strconv.ParseFloat(work[m[2]:m[3]], 64)
		return couponResult(v, m[2])
	}
	return 0, 0, fmt.Errorf("%w: no coupon rate in description", contracts.ErrResolution)
}

func couponResult(percent float64, at int) (float64, int, error) {
	if percent < 0 || percent >= 30 {
		return 0, 0, fmt.Errorf("%w: implausible coupon %v%%", contracts.ErrResolution, percent)
	}
	return percent / 100, at, nil
}

func extractIssuer(work string, end int) string {
	if issuer := strings.TrimSpace(work[:end]); issuer != "" {
		return issuer
	}
	if w := reWord.FindString(work); w != "" {
		return w
	}
	return ""
}

func atoi(s string, m []int, group int) int {
	v, _ := strconv.Atoi(s[m[2*group]:m[2*group+1]])
	return v
}

func monthOf(name string) (time.Month, bool) {
	if len(name) < 3 {
		return 0, false
	}
	lower := strings.ToLower(name)
	mo, ok := months[lower[:3]]
	if !ok {
		return 0, false
	}
	// Longer words must be a prefix of the month name ("March", "Sept").
	if len(lower) > 3 && !strings.HasPrefix(strings.ToLower(mo.String()), lower) {
		return 0, false
	}
	return mo, true
}

// expandYear maps two-digit years: 80-99 → 1980-1999, 00-79 → 2000-2079.
func expandYear(y int) int {
	if y >= 100 {
		return y
	}
	if y >= 80 {
		return 1900 + y
	}
	return 2000 + y
}

func makeDate(year, month, day int) (time.Time, error) {
	if year < 1900 || year > 2200 || month < 1 || month > 12 || day < 1 {
		return time.Time{}, fmt.Errorf("%w: invalid maturity date %04d-%02d-%02d", contracts.ErrResolution, year, month, day)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: invalid maturity date %04d-%02d-%02d", contracts.ErrResolution, year, month, day)
	}
	return t, nil
}

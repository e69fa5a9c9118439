package treasury

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/pkg/httputil"
	"github.com/wonny/bondlab/pkg/logger"
	"github.com/wonny/bondlab/pkg/redis"
)

// TextViewSourceName identifies curves read from the Treasury text view.
const TextViewSourceName = "us-treasury-par"

// TextViewSource reads the US Treasury daily par yield curve from the
// monthly HTML text view. One request serves every date of a month.
// ⭐ SSOT: Treasury curve scraping lives here
type TextViewSource struct {
	client  *httputil.Client
	baseURL string
	months  *expirable.LRU[string, map[string]*Curve]
	logger  *logger.Logger
}

// NewTextViewSource creates the source. Month pages are kept for ttl.
func NewTextViewSource(client *httputil.Client, baseURL string, ttl time.Duration, log *logger.Logger) *TextViewSource {
	if ttl <= 0 {
		ttl = redis.TTLCurve
	}
	return &TextViewSource{
		client:  client,
		baseURL: baseURL,
		months:  expirable.NewLRU[string, map[string]*Curve](24, nil, ttl),
		logger:  log.WithComponent("treasury.textview"),
	}
}

// Name implements Source.
func (s *TextViewSource) Name() string { return TextViewSourceName }

// Curve implements Source.
func (s *TextViewSource) Curve(ctx context.Context, date time.Time) (*Curve, error) {
	month := date.Format("200601")
	curves, ok := s.months.Get(month)
	if !ok {
		var err error
		curves, err = s.fetchMonth(ctx, month)
		if err != nil {
			return nil, err
		}
		s.months.Add(month, curves)
	}

	c, ok := curves[date.Format(contracts.DateLayout)]
	if !ok {
		return nil, fmt.Errorf("%w: no treasury curve on %s", contracts.ErrNotFound, date.Format(contracts.DateLayout))
	}
	return c, nil
}

func (s *TextViewSource) fetchMonth(ctx context.Context, month string) (map[string]*Curve, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid treasury base url: %w", err)
	}
	q := u.Query()
	q.Set("type", "daily_treasury_yield_curve")
	q.Set("field_tdr_date_value_month", month)
	u.RawQuery = q.Encode()

	body, err := s.client.GetBody(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("fetch treasury month %s: %w", month, err)
	}

	curves, err := ParseTextView(body)
	if err != nil {
		return nil, fmt.Errorf("parse treasury month %s: %w", month, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"month":  month,
		"curves": len(curves),
	}).Debug("Fetched treasury month")
	return curves, nil
}

var tenorRe = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(mo|mos|month|months|yr|yrs|year|years)$`)

// parseTenor converts a column header such as "3 Mo" or "10 Yr" into years.
func parseTenor(header string) (float64, bool) {
	m := tenorRe.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if strings.HasPrefix(strings.ToLower(m[2]), "mo") {
		return n / 12, true
	}
	return n, true
}

// ParseTextView extracts every daily curve from a text view page, keyed by
// ISO date. Cells that are empty or "N/A" are skipped.
func ParseTextView(page []byte) (map[string]*Curve, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var table *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(t.Find("th").First().Text()), "Date") {
			table = t
			return false
		}
		return true
	})
	if table == nil {
		return nil, fmt.Errorf("%w: no yield curve table in page", contracts.ErrBenchmarkUnavailable)
	}

	// Column index -> tenor; non-tenor columns are absent.
	tenors := make(map[int]float64)
	table.Find("th").Each(func(i int, th *goquery.Selection) {
		if tenor, ok := parseTenor(th.Text()); ok {
			tenors[i] = tenor
		}
	})
	if len(tenors) == 0 {
		return nil, fmt.Errorf("%w: yield curve table has no tenor columns", contracts.ErrBenchmarkUnavailable)
	}

	curves := make(map[string]*Curve)
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		day, err := time.Parse("01/02/2006", strings.TrimSpace(cells.Eq(0).Text()))
		if err != nil {
			return
		}

		var points []Point
		cells.Each(func(i int, td *goquery.Selection) {
			tenor, ok := tenors[i]
			if !ok {
				return
			}
			text := strings.TrimSpace(td.Text())
			if text == "" || strings.EqualFold(text, "N/A") {
				return
			}
			pct, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return
			}
			points = append(points, Point{Tenor: tenor, Rate: pct / 100})
		})
		if len(points) > 0 {
			curves[day.Format(contracts.DateLayout)] = NewCurve(day, TextViewSourceName, points)
		}
	})

	return curves, nil
}

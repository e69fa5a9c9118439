package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/bondlab/internal/cache"
	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/engine"
	"github.com/wonny/bondlab/pkg/logger"
)

// Engine is the subset of engine.Engine the HTTP layer calls.
type Engine interface {
	AnalyzeSingleBond(ctx context.Context, req engine.Request) (*contracts.AnalyticsResult, error)
	AnalyzeSpec(ctx context.Context, spec contracts.BondSpecification, cleanPrice float64, settlement time.Time, depth contracts.Depth) (*contracts.AnalyticsResult, error)
	AnalyzePortfolio(ctx context.Context, entries []contracts.PortfolioEntry) (*contracts.PortfolioResult, error)
	PriceFromYield(ctx context.Context, req engine.PriceRequest) (*engine.Quote, error)
	CacheStats() cache.Stats
}

// BondHandler handles single-bond endpoints
// ⭐ SSOT: single-bond HTTP handlers live on this struct
type BondHandler struct {
	engine Engine
	now    func() time.Time
	logger *logger.Logger
}

// NewBondHandler creates a new bond handler. now supplies the default
// settlement date; nil means time.Now.
func NewBondHandler(e Engine, now func() time.Time, log *logger.Logger) *BondHandler {
	if now == nil {
		now = time.Now
	}
	return &BondHandler{engine: e, now: now, logger: log.WithComponent("api.bonds")}
}

// Analyze resolves and analyzes one bond. Analysis failures are results and
// answer 200; only malformed requests answer 400.
// POST /api/bonds/analyze
func (h *BondHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	in, err := h.decode(w, r)
	if err != nil {
		respondFailure(w, err)
		return
	}
	if in.CleanPrice == nil {
		respondFailure(w, fmt.Errorf("%w: clean_price is required", contracts.ErrInvalidInput))
		return
	}

	var res *contracts.AnalyticsResult
	if in.Spec != nil {
		res, err = h.engine.AnalyzeSpec(r.Context(), *in.Spec, *in.CleanPrice, in.Settlement, in.Depth)
	} else {
		res, err = h.engine.AnalyzeSingleBond(r.Context(), engine.Request{
			Identifier:  in.Identifier,
			Description: in.Description,
			CleanPrice:  *in.CleanPrice,
			Settlement:  in.Settlement,
			Depth:       in.Depth,
		})
	}
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// Price returns clean and dirty price at a given yield.
// POST /api/bonds/price
func (h *BondHandler) Price(w http.ResponseWriter, r *http.Request) {
	in, err := h.decode(w, r)
	if err != nil {
		respondFailure(w, err)
		return
	}
	if in.Yield == nil {
		respondFailure(w, fmt.Errorf("%w: yield is required", contracts.ErrInvalidInput))
		return
	}

	quote, err := h.engine.PriceFromYield(r.Context(), engine.PriceRequest{
		Identifier:  in.Identifier,
		Description: in.Description,
		Spec:        in.Spec,
		Yield:       *in.Yield,
		Settlement:  in.Settlement,
	})
	if err != nil {
		h.logger.WithError(err).Debug("Price from yield failed")
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

func (h *BondHandler) decode(w http.ResponseWriter, r *http.Request) (*BondInput, error) {
	body, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	raw, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	return normalizeBond(raw, h.now)
}

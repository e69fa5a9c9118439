package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/pkg/logger"
)

// RunStore persists portfolio runs. portfolio.Repository implements it.
type RunStore interface {
	SaveRun(ctx context.Context, res *contracts.PortfolioResult) error
	GetRun(ctx context.Context, runID string) (*contracts.PortfolioResult, error)
}

// listKeys are the accepted names of the holdings array in an object body.
var listKeys = []string{"bonds", "positions", "holdings", "entries", "portfolio"}

// PortfolioHandler handles portfolio endpoints
type PortfolioHandler struct {
	engine Engine
	runs   RunStore
	now    func() time.Time
	logger *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler. runs may be nil, in
// which case runs are never saved and lookups answer 404.
func NewPortfolioHandler(e Engine, runs RunStore, now func() time.Time, log *logger.Logger) *PortfolioHandler {
	if now == nil {
		now = time.Now
	}
	return &PortfolioHandler{engine: e, runs: runs, now: now, logger: log.WithComponent("api.portfolio")}
}

// Analyze analyzes every holding and aggregates the successful ones.
// POST /api/portfolio/analyze?save=true
func (h *PortfolioHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.decode(w, r)
	if err != nil {
		respondFailure(w, err)
		return
	}

	res, err := h.engine.AnalyzePortfolio(ctx, entries)
	if err != nil {
		respondFailure(w, err)
		return
	}

	if save, _ := strconv.ParseBool(r.URL.Query().Get("save")); save && h.runs != nil {
		if err := h.runs.SaveRun(ctx, res); err != nil {
			// The run is still returned; persistence is best effort.
			h.logger.WithError(err).WithField("run_id", res.RunID).Error("Failed to save portfolio run")
		}
	}

	respondJSON(w, http.StatusOK, res)
}

// GetRun returns a previously saved run.
// GET /api/portfolio/runs/{id}
func (h *PortfolioHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if h.runs == nil {
		respondError(w, http.StatusNotFound, "Run storage is not configured")
		return
	}

	res, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// decode accepts a bare array of holdings or an object holding the array
// under one of listKeys. A top-level settlement applies to holdings that
// carry none; a missing weight counts as 1.
func (h *PortfolioHandler) decode(w http.ResponseWriter, r *http.Request) ([]contracts.PortfolioEntry, error) {
	body, err := readBody(w, r)
	if err != nil {
		return nil, err
	}

	var (
		items    []map[string]json.RawMessage
		defaults = h.now
	)
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: holdings must be JSON objects: %v", contracts.ErrInvalidInput, err)
		}
	} else {
		obj, err := decodeObject(body)
		if err != nil {
			return nil, err
		}
		if items, err = holdings(obj); err != nil {
			return nil, err
		}
		top, err := canonicalize(obj)
		if err != nil {
			return nil, err
		}
		settlement, err := stringField(top, "settlement")
		if err != nil {
			return nil, err
		}
		if settlement != "" {
			d, err := contracts.ParseDate(settlement)
			if err != nil {
				return nil, err
			}
			defaults = func() time.Time { return d }
		}
	}

	entries := make([]contracts.PortfolioEntry, 0, len(items))
	for i, item := range items {
		in, err := normalizeBond(item, defaults)
		if err != nil {
			return nil, fmt.Errorf("holding %d: %w", i, err)
		}
		if in.CleanPrice == nil {
			return nil, fmt.Errorf("%w: holding %d: clean_price is required", contracts.ErrInvalidInput, i)
		}
		weight := 1.0
		if in.Weight != nil {
			weight = *in.Weight
		}
		entries = append(entries, contracts.PortfolioEntry{
			Identifier:  in.Identifier,
			Description: in.Description,
			Spec:        in.Spec,
			CleanPrice:  *in.CleanPrice,
			Weight:      weight,
			Settlement:  in.Settlement,
		})
	}
	return entries, nil
}

func holdings(obj map[string]json.RawMessage) ([]map[string]json.RawMessage, error) {
	for key, value := range obj {
		for _, name := range listKeys {
			if !strings.EqualFold(key, name) {
				continue
			}
			var items []map[string]json.RawMessage
			if err := json.Unmarshal(value, &items); err != nil {
				return nil, fmt.Errorf("%w: %s must be an array of objects: %v", contracts.ErrInvalidInput, key, err)
			}
			return items, nil
		}
	}
	return nil, fmt.Errorf("%w: body needs one of %s", contracts.ErrInvalidInput, strings.Join(listKeys, ", "))
}

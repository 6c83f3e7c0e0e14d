// Package handlers provides HTTP handlers for the price-series store.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/pairlab/internal/modules/prices"
	"github.com/rs/zerolog"
)

// maxImportBytes caps the size of an uploaded CSV
const maxImportBytes = 32 << 20

// Handler handles price data HTTP requests
type Handler struct {
	historyDB *prices.HistoryDB
	log       zerolog.Logger
}

// NewHandler creates a new price data handler
func NewHandler(historyDB *prices.HistoryDB, log zerolog.Logger) *Handler {
	return &Handler{
		historyDB: historyDB,
		log:       log.With().Str("handler", "prices").Logger(),
	}
}

// HandleGetSymbols handles GET /api/prices/symbols
func (h *Handler) HandleGetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.historyDB.Symbols(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list symbols")
		http.Error(w, "Failed to list symbols", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbols": symbols,
			"count":   len(symbols),
		},
		"metadata": metadata(),
	})
}

// HandleGetDailyPrices handles GET /api/prices/daily/{symbol}.
// With ?limit=N only the last N bars are returned.
func (h *Handler) HandleGetDailyPrices(w http.ResponseWriter, r *http.Request, symbol string) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	bars, err := h.historyDB.GetDailyPrices(r.Context(), symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get daily prices")
		http.Error(w, "Failed to get daily prices", http.StatusInternalServerError)
		return
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": symbol,
			"prices": bars,
			"count":  len(bars),
		},
		"metadata": metadata(),
	})
}

// HandleImportCSV handles POST /api/prices/import/{symbol} with a CSV body
func (h *Handler) HandleImportCSV(w http.ResponseWriter, r *http.Request, symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		http.Error(w, "Symbol is required", http.StatusBadRequest)
		return
	}

	bars, err := prices.ParseCSV(http.MaxBytesReader(w, r.Body, maxImportBytes), symbol)
	if err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("Rejected CSV import")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.historyDB.SaveDailyPrices(r.Context(), symbol, bars); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to save imported prices")
		http.Error(w, "Failed to save prices", http.StatusInternalServerError)
		return
	}

	h.log.Info().Str("symbol", symbol).Int("bars", len(bars)).Msg("Imported daily prices")

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol":   symbol,
			"imported": len(bars),
		},
		"metadata": metadata(),
	})
}

func metadata() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

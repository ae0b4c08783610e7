package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"tickpipe/internal/alert"
	"tickpipe/internal/analytics"
	"tickpipe/internal/collector"
	"tickpipe/internal/domain"
)

// tickResponse is the wire shape of a tick.
type tickResponse struct {
	Symbol       string  `json:"symbol"`
	Timestamp    int64   `json:"timestamp"`
	Price        float64 `json:"price"`
	Size         float64 `json:"size"`
	TradeID      *int64  `json:"trade_id,omitempty"`
	IsBuyerMaker *bool   `json:"is_buyer_maker,omitempty"`
}

// barResponse is the wire shape of an OHLC bar.
type barResponse struct {
	Symbol      string  `json:"symbol"`
	Timeframe   string  `json:"timeframe"`
	BucketStart int64   `json:"bucket_start"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	TradeCount  int     `json:"trade_count"`
	Filled      bool    `json:"filled"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running":       s.collector.Running(),
		"pending_ticks": s.collector.PendingCount(),
		"dropped_ticks": s.collector.Dropped(),
		"active_rules":  len(s.alerts.Rules()),
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	tickCount, err := s.ticks.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	barCount, err := s.bars.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"ticks": tickCount,
		"bars":  barCount,
	})
}

func (s *Server) startCollector(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbols []string `json:"symbols"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err := s.collector.Start(req.Symbols)
	switch {
	case errors.Is(err, collector.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, collector.ErrNoSymbols):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"started": req.Symbols})
	}
}

func (s *Server) stopCollector(w http.ResponseWriter, _ *http.Request) {
	s.collector.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) listSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.ticks.ListSymbols(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"symbols": symbols})
}

func (s *Server) getTicks(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	from, to, err := timeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit := intQuery(r, "limit", 1000)

	ticks, err := s.ticks.QueryByTimeRange(r.Context(), symbol, from, to, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]tickResponse, len(ticks))
	for i, t := range ticks {
		out[i] = tickResponse{
			Symbol:       t.Symbol,
			Timestamp:    t.Timestamp.UnixMilli(),
			Price:        t.Price,
			Size:         t.Size,
			TradeID:      t.TradeID,
			IsBuyerMaker: t.IsBuyerMaker,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getOHLC(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	tf, err := timeframeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	from, to, err := timeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit := intQuery(r, "limit", 0)

	bars, err := s.bars.QueryByTimeRange(r.Context(), symbol, tf, from, to, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]barResponse, len(bars))
	for i, b := range bars {
		out[i] = barResponse{
			Symbol:      b.Symbol,
			Timeframe:   b.Timeframe.String(),
			BucketStart: b.BucketStart.UnixMilli(),
			Open:        b.Open,
			High:        b.High,
			Low:         b.Low,
			Close:       b.Close,
			Volume:      b.Volume,
			TradeCount:  b.TradeCount,
			Filled:      b.Filled(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAnalytics(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	tf, err := timeframeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	from, to, err := timeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	window := intQuery(r, "window", s.window)

	bars, err := s.bars.QueryByTimeRange(r.Context(), symbol, tf, from, to, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, analytics.BuildSnapshot(symbol, tf, bars, window))
}

func (s *Server) addAlert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Condition string `json:"condition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Condition == "" {
		writeError(w, http.StatusBadRequest, errors.New("condition is required"))
		return
	}

	id, err := s.alerts.AddRule(req.Condition)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "condition": req.Condition})
}

func (s *Server) listAlerts(w http.ResponseWriter, _ *http.Request) {
	rules := s.alerts.Rules()
	if rules == nil {
		rules = []alert.Rule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

func (s *Server) alertHistory(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 100)
	history := s.alerts.History(limit)
	if history == nil {
		history = []alert.Event{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) removeAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.alerts.RemoveRule(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"removed": id})
}

func (s *Server) resetAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.alerts.Reset(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reset": id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// timeRange parses optional start/end query params (RFC3339 or Unix
// milliseconds). Defaults to the trailing hour.
func timeRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.Add(-time.Hour)
	to := now

	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := parseTime(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := parseTime(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	return from, to, nil
}

func parseTime(raw string) (time.Time, error) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func timeframeQuery(r *http.Request) (domain.Timeframe, error) {
	raw := r.URL.Query().Get("timeframe")
	if raw == "" {
		return domain.Timeframe1m, nil
	}
	return domain.ParseTimeframe(raw)
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

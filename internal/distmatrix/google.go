package distmatrix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"routeplan/internal/config"
	"routeplan/internal/metrics"
	"routeplan/internal/model"
)

// Google queries the Distance Matrix JSON API, one request per origin row.
type Google struct {
	BaseURL         string
	APIKey          string
	Mode            string
	Metric          string
	UnreachableCost int64
	Strict          bool
	MaxDestinations int
	Concurrency     int

	Client  *http.Client
	Limiter *rate.Limiter
	Log     *zap.Logger
}

func NewGoogle(cfg config.Distance, log *zap.Logger) *Google {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Google{
		BaseURL:         cfg.BaseURL,
		APIKey:          cfg.APIKey,
		Mode:            cfg.Mode,
		Metric:          cfg.Metric,
		UnreachableCost: cfg.UnreachableCost,
		Strict:          cfg.Strict,
		MaxDestinations: cfg.MaxDestinations,
		Concurrency:     cfg.Concurrency,
		Client:          &http.Client{Timeout: cfg.Timeout},
		Limiter:         rate.NewLimiter(limit, cfg.Burst),
		Log:             log,
	}
}

func (g *Google) Name() string { return "google" }

// Profile covers every setting that changes the returned costs.
func (g *Google) Profile() string {
	return fmt.Sprintf("google|%s|%s|%s|%d|%t", g.BaseURL, g.Mode, g.Metric, g.UnreachableCost, g.Strict)
}

type dmResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message"`
	Rows         []dmRow `json:"rows"`
}

type dmRow struct {
	Elements []dmElement `json:"elements"`
}

type dmElement struct {
	Status   string   `json:"status"`
	Duration *dmValue `json:"duration"`
	Distance *dmValue `json:"distance"`
}

type dmValue struct {
	Value int64  `json:"value"`
	Text  string `json:"text"`
}

func (g *Google) Matrix(ctx context.Context, locs []model.Location) (model.Matrix, error) {
	if g.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	n := len(locs)
	m := make(model.Matrix, n)
	grp, ctx := errgroup.WithContext(ctx)
	if g.Concurrency > 0 {
		grp.SetLimit(g.Concurrency)
	}
	for i := range locs {
		grp.Go(func() error {
			row, err := g.row(ctx, locs, i)
			if err != nil {
				return fmt.Errorf("origin %d (%s): %w", i, locs[i].Name, err)
			}
			m[i] = row
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

func (g *Google) row(ctx context.Context, locs []model.Location, origin int) ([]int64, error) {
	n := len(locs)
	batch := g.MaxDestinations
	if batch <= 0 || batch > n {
		batch = n
	}
	row := make([]int64, n)
	for start := 0; start < n; start += batch {
		end := min(start+batch, n)
		dests := make([]string, 0, end-start)
		for _, l := range locs[start:end] {
			dests = append(dests, queryValue(l))
		}
		elems, err := g.fetch(ctx, queryValue(locs[origin]), dests)
		if err != nil {
			return nil, err
		}
		for j, el := range elems {
			dest := start + j
			cost, ok := g.cost(el)
			if !ok {
				if g.Strict && dest != origin {
					return nil, fmt.Errorf("%w: to %d (%s): element status %q", ErrUnreachable, dest, locs[dest].Name, el.Status)
				}
				metrics.DistanceFallbacks.Inc()
				g.Log.Warn("distance element unavailable, using fallback cost",
					zap.Int("origin", origin), zap.Int("destination", dest),
					zap.String("status", el.Status), zap.Int64("cost", g.UnreachableCost))
				cost = g.UnreachableCost
			}
			row[dest] = cost
		}
	}
	row[origin] = 0
	return row, nil
}

func (g *Google) cost(el dmElement) (int64, bool) {
	if el.Status != "OK" {
		return 0, false
	}
	v := el.Duration
	if g.Metric == "distance" {
		v = el.Distance
	}
	if v == nil {
		return 0, false
	}
	return v.Value, true
}

func (g *Google) fetch(ctx context.Context, origin string, dests []string) ([]dmElement, error) {
	if err := g.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("origins", origin)
	q.Set("destinations", strings.Join(dests, "|"))
	if g.Mode != "" {
		q.Set("mode", g.Mode)
	}
	q.Set("key", g.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.Client.Do(req)
	metrics.DistanceLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DistanceRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		metrics.DistanceRequests.WithLabelValues(fmt.Sprintf("http_%d", resp.StatusCode)).Inc()
		return nil, fmt.Errorf("distance matrix: http status %d", resp.StatusCode)
	}
	var body dmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.DistanceRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if body.Status != "OK" {
		metrics.DistanceRequests.WithLabelValues(strings.ToLower(body.Status)).Inc()
		return nil, &APIError{Status: body.Status, Message: body.ErrorMessage}
	}
	if len(body.Rows) != 1 || len(body.Rows[0].Elements) != len(dests) {
		metrics.DistanceRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: got %d rows, want 1 row of %d elements", ErrMalformedReply, len(body.Rows), len(dests))
	}
	metrics.DistanceRequests.WithLabelValues("ok").Inc()
	return body.Rows[0].Elements, nil
}

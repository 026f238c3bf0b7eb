package tickers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Mode selects where scan codes come from.
type Mode string

const (
	ModeCodes    Mode = "codes"
	ModeIndustry Mode = "industry"
	ModeAll      Mode = "all"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeCodes, ModeIndustry, ModeAll:
		return m, nil
	case "":
		return ModeCodes, nil
	}
	return "", fmt.Errorf("unknown mode %q (want codes, industry or all)", s)
}

// Stages that can answer a request.
const (
	SourceInput    = "input"
	SourceRegistry = "registry"
	SourceFallback = "fallback"
)

// DefaultMinScrapeRows is the registry row count below which the scrape is
// considered broken.
const DefaultMinScrapeRows = 100

// ErrNoCodes is returned when a request resolves to nothing.
var ErrNoCodes = errors.New("no ticker codes to scan")

// Request describes what the user asked to scan.
type Request struct {
	Mode       Mode
	Input      string
	Industries []string
}

// Resolution is the resolved code list and how it was produced.
type Resolution struct {
	Codes  []string
	Source string
	Errors []error
}

// Chain resolves requests: explicit codes, then the registry scrape, then the
// fallback list.
type Chain struct {
	Registry      Lister
	Fallback      *FallbackList
	MinScrapeRows int
	CacheTTL      time.Duration
	Logger        *zap.Logger

	mu       sync.Mutex
	cached   []Listing
	cachedAt time.Time
	now      func() time.Time
}

// NewChain builds a Chain. registry may be nil to go straight to the fallback.
func NewChain(registry Lister, fallback *FallbackList, minScrapeRows int, logger *zap.Logger) *Chain {
	if minScrapeRows <= 0 {
		minScrapeRows = DefaultMinScrapeRows
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		Registry:      registry,
		Fallback:      fallback,
		MinScrapeRows: minScrapeRows,
		CacheTTL:      12 * time.Hour,
		Logger:        logger,
		now:           time.Now,
	}
}

// Industries lists the known industries.
func (c *Chain) Industries() []string {
	if c.Fallback == nil {
		return nil
	}
	return c.Fallback.Names()
}

// Resolve turns req into codes. Stage failures are logged and recorded in
// Resolution.Errors; only an empty result is an error.
func (c *Chain) Resolve(ctx context.Context, req Request) (Resolution, error) {
	explicit := ParseCodes(req.Input)
	res := Resolution{Codes: explicit, Source: SourceInput}

	switch req.Mode {
	case ModeCodes, "":
	case ModeIndustry:
		if len(req.Industries) == 0 {
			return res, fmt.Errorf("industry mode needs at least one industry")
		}
		codes, source, errs := c.industryCodes(ctx, req.Industries)
		res.Errors = append(res.Errors, errs...)
		if len(codes) > 0 {
			res.Codes = dedupe(append(explicit, codes...))
			res.Source = source
		}
	case ModeAll:
		if c.Fallback != nil {
			res.Codes = dedupe(append(explicit, c.Fallback.Codes()...))
			res.Source = SourceFallback
		}
	default:
		return res, fmt.Errorf("unknown mode %q", req.Mode)
	}

	if len(res.Codes) == 0 {
		return res, ErrNoCodes
	}
	return res, nil
}

func (c *Chain) industryCodes(ctx context.Context, industries []string) ([]string, string, []error) {
	var errs []error
	listings, err := c.listings(ctx)
	switch {
	case err != nil:
		c.Logger.Warn("registry scrape failed, using fallback list", zap.Error(err))
		errs = append(errs, err)
	case len(listings) < c.MinScrapeRows:
		err := fmt.Errorf("registry returned %d rows, want at least %d", len(listings), c.MinScrapeRows)
		c.Logger.Warn("registry scrape too small, using fallback list", zap.Error(err))
		errs = append(errs, err)
	default:
		want := make(map[string]bool, len(industries))
		for _, ind := range industries {
			want[ind] = true
		}
		var codes []string
		for _, l := range listings {
			if want[l.Industry] {
				codes = append(codes, l.Symbol)
			}
		}
		if len(codes) > 0 {
			return dedupe(codes), SourceRegistry, errs
		}
		c.Logger.Info("no registry rows for industries, using fallback list", zap.Strings("industries", industries))
	}

	if c.Fallback == nil {
		return nil, "", append(errs, errors.New("no fallback list configured"))
	}
	return c.Fallback.Codes(industries...), SourceFallback, errs
}

// listings scrapes the registry, reusing a recent successful scrape.
func (c *Chain) listings(ctx context.Context) ([]Listing, error) {
	if c.Registry == nil {
		return nil, errors.New("no registry configured")
	}
	c.mu.Lock()
	if c.cached != nil && c.now().Sub(c.cachedAt) < c.CacheTTL {
		rows := c.cached
		c.mu.Unlock()
		return rows, nil
	}
	c.mu.Unlock()

	rows, err := c.Registry.Listings(ctx)
	if err != nil && len(rows) == 0 {
		return nil, err
	}
	if err != nil {
		c.Logger.Warn("partial registry scrape", zap.Int("rows", len(rows)), zap.Error(err))
	}
	if len(rows) >= c.MinScrapeRows {
		c.mu.Lock()
		c.cached, c.cachedAt = rows, c.now()
		c.mu.Unlock()
	}
	return rows, nil
}

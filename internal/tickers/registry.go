package tickers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultRegistryURL is the exchange ISIN registry listing page.
const DefaultRegistryURL = "https://isin.twse.com.tw/isin/C_public.jsp"

// Market is one registry page and the symbol suffix its codes trade under.
type Market struct {
	Mode   int
	Suffix string
}

// Markets scraped by default: listed (mode 2) and OTC (mode 4).
var Markets = []Market{
	{Mode: 2, Suffix: ".TW"},
	{Mode: 4, Suffix: ".TWO"},
}

// Listing is one registry row.
type Listing struct {
	Code     string
	Name     string
	Industry string
	Symbol   string
}

// Lister returns the current exchange listings.
type Lister interface {
	Listings(ctx context.Context) ([]Listing, error)
}

// RegistryScraper reads the exchange registry HTML pages.
type RegistryScraper struct {
	BaseURL string
	Markets []Market
	// Charset is used when the response does not declare one.
	Charset string
	client  *resty.Client
}

// NewRegistryScraper creates a scraper with optional proxy support.
func NewRegistryScraper(baseURL, proxyURL string, timeout time.Duration) *RegistryScraper {
	if baseURL == "" {
		baseURL = DefaultRegistryURL
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &RegistryScraper{BaseURL: baseURL, Markets: Markets, Charset: "big5", client: client}
}

// Listings scrapes every market. A failing market is reported in the joined
// error while the other markets' rows are still returned.
func (s *RegistryScraper) Listings(ctx context.Context) ([]Listing, error) {
	var (
		all  []Listing
		errs []error
	)
	for _, m := range s.Markets {
		rows, err := s.fetchMarket(ctx, m)
		if err != nil {
			errs = append(errs, fmt.Errorf("registry mode %d: %w", m.Mode, err))
			continue
		}
		all = append(all, rows...)
	}
	return all, errors.Join(errs...)
}

func (s *RegistryScraper) fetchMarket(ctx context.Context, m Market) ([]Listing, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("strMode", strconv.Itoa(m.Mode)).
		Get(s.BaseURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}
	body, err := decodeBody(resp.Body(), resp.Header().Get("Content-Type"), s.Charset)
	if err != nil {
		return nil, err
	}
	return ParseRegistry(body, m.Suffix)
}

// decodeBody converts body to UTF-8 using the charset declared in the
// Content-Type header, else fallback. Bodies that are already valid UTF-8
// with no declaration are left alone.
func decodeBody(body []byte, contentType, fallback string) ([]byte, error) {
	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = params["charset"]
	}
	if label == "" {
		if utf8.Valid(body) {
			return body, nil
		}
		label = fallback
	}
	if label == "" || strings.EqualFold(label, "utf-8") {
		return body, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", label, err)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", label, err)
	}
	return out, nil
}

// ParseRegistry extracts stock rows from a UTF-8 registry page. Column 0
// holds "code<U+3000>name" and column 4 the industry. Only four-digit codes
// are kept.
func ParseRegistry(page []byte, suffix string) ([]Listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	var out []Listing
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}
		first := strings.TrimSpace(cells.Eq(0).Text())
		code, name, _ := strings.Cut(first, "　")
		code = strings.TrimSpace(code)
		if !isStockCode(code) {
			return
		}
		out = append(out, Listing{
			Code:     code,
			Name:     strings.TrimSpace(name),
			Industry: strings.TrimSpace(cells.Eq(4).Text()),
			Symbol:   code + suffix,
		})
	})
	return out, nil
}

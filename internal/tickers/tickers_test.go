package tickers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/traditionalchinese"
)

func TestParseCodes(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"2330 2317\n2454", []string{"2330", "2317", "2454"}},
		{"  2330  2330 2317 ", []string{"2330", "2317"}},
		{"2330,8069.two\taapl", []string{"2330", "8069.TWO", "AAPL"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		if got := ParseCodes(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseCodes(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFallback_Embedded(t *testing.T) {
	f, err := LoadFallback("")
	if err != nil {
		t.Fatalf("embedded list should load: %v", err)
	}
	names := f.Names()
	if len(names) == 0 || names[0] != "半導體業" {
		t.Fatalf("unexpected industries: %v", names)
	}
	semi := f.Codes("半導體業")
	if len(semi) == 0 || semi[0] != "2330" {
		t.Errorf("unexpected semiconductor codes: %v", semi)
	}
	if len(f.Codes()) <= len(semi) {
		t.Error("all codes should include every industry")
	}
	if got := f.Codes("no such industry"); len(got) != 0 {
		t.Errorf("expected no codes, got %v", got)
	}
}

func TestParseFallback_Invalid(t *testing.T) {
	for _, doc := range []string{"industries: []", "industries:\n  - codes: [\"1\"]", ":::"} {
		if _, err := ParseFallback([]byte(doc)); err == nil {
			t.Errorf("expected error for %q", doc)
		}
	}
	f, err := ParseFallback([]byte("industries:\n  - name: A\n    codes: [\"1101\", \"1101\", \"1102\"]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Codes("A"); !reflect.DeepEqual(got, []string{"1101", "1102"}) {
		t.Errorf("expected de-duplicated codes, got %v", got)
	}
}

func registryPage(rows ...[5]string) string {
	var b strings.Builder
	b.WriteString("<html><body><table class='h4'>")
	b.WriteString("<tr><td>有價證券代號及名稱</td><td>國際證券辨識號碼</td><td>上市日</td><td>市場別</td><td>產業別</td><td>CFICode</td></tr>")
	b.WriteString("<tr><td colspan=7><b> 股票 <b></td></tr>")
	for _, r := range rows {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>ESVUFR</td></tr>", r[0], r[1], r[2], r[3], r[4])
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func TestParseRegistry(t *testing.T) {
	page := registryPage(
		[5]string{"2330　台積電", "TW0002330008", "1994/09/05", "上市", "半導體業"},
		[5]string{"2603　長榮", "TW0002603008", "1987/09/21", "上市", "航運業"},
		[5]string{"00878　國泰永續高股息", "TW00000878", "2020/07/20", "上市", ""},
		[5]string{"030001　權證", "TW000030001", "2020/07/20", "上市", ""},
	)
	rows, err := ParseRegistry([]byte(page), ".TW")
	if err != nil {
		t.Fatal(err)
	}
	want := []Listing{
		{Code: "2330", Name: "台積電", Industry: "半導體業", Symbol: "2330.TW"},
		{Code: "2603", Name: "長榮", Industry: "航運業", Symbol: "2603.TW"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("got %+v, want %+v", rows, want)
	}
}

func big5(t *testing.T, s string) []byte {
	t.Helper()
	out, err := traditionalchinese.Big5.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("encode big5: %v", err)
	}
	return []byte(out)
}

func TestRegistryScraper_DecodesBig5(t *testing.T) {
	listed := big5(t, registryPage([5]string{"2330　台積電", "TW0002330008", "1994/09/05", "上市", "半導體業"}))
	otc := big5(t, registryPage([5]string{"8069　元太", "TW0008069006", "2004/01/01", "上櫃", "光電業"}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("strMode") {
		case "2":
			w.Header().Set("Content-Type", "text/html; charset=big5")
			_, _ = w.Write(listed)
		case "4":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write(otc)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	s := NewRegistryScraper(srv.URL, "", 5*time.Second)
	rows, err := s.Listings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", rows)
	}
	if rows[0].Symbol != "2330.TW" || rows[0].Industry != "半導體業" {
		t.Errorf("unexpected listed row: %+v", rows[0])
	}
	if rows[1].Symbol != "8069.TWO" || rows[1].Name != "元太" {
		t.Errorf("unexpected OTC row: %+v", rows[1])
	}
}

func TestRegistryScraper_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("strMode") == "4" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(registryPage([5]string{"2330　台積電", "", "", "上市", "半導體業"})))
	}))
	defer srv.Close()

	rows, err := NewRegistryScraper(srv.URL, "", 5*time.Second).Listings(context.Background())
	if err == nil {
		t.Error("expected an error for the failing market")
	}
	if len(rows) != 1 {
		t.Errorf("expected the healthy market's rows, got %d", len(rows))
	}
}

type stubLister struct {
	rows  []Listing
	err   error
	calls int
}

func (s *stubLister) Listings(context.Context) ([]Listing, error) {
	s.calls++
	return s.rows, s.err
}

func manyListings(n int, industry string) []Listing {
	out := make([]Listing, n)
	for i := range out {
		code := fmt.Sprintf("%04d", 1000+i)
		out[i] = Listing{Code: code, Industry: industry, Symbol: code + ".TW"}
	}
	return out
}

func testFallback(t *testing.T) *FallbackList {
	t.Helper()
	f, err := ParseFallback([]byte("industries:\n  - name: 航運業\n    codes: [\"2603\", \"2609\"]\n  - name: 半導體業\n    codes: [\"2330\"]\n"))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestChain_Codes(t *testing.T) {
	c := NewChain(nil, testFallback(t), 0, nil)
	res, err := c.Resolve(context.Background(), Request{Mode: ModeCodes, Input: "2330 2317 2330"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceInput || !reflect.DeepEqual(res.Codes, []string{"2330", "2317"}) {
		t.Errorf("unexpected resolution %+v", res)
	}
	if _, err := c.Resolve(context.Background(), Request{Mode: ModeCodes, Input: "  "}); !errors.Is(err, ErrNoCodes) {
		t.Errorf("expected ErrNoCodes, got %v", err)
	}
}

func TestChain_IndustryFromRegistry(t *testing.T) {
	rows := append(manyListings(120, "其他業"), Listing{Code: "2603", Industry: "航運業", Symbol: "2603.TW"})
	reg := &stubLister{rows: rows}
	c := NewChain(reg, testFallback(t), 100, nil)

	for i := 0; i < 2; i++ {
		res, err := c.Resolve(context.Background(), Request{Mode: ModeIndustry, Industries: []string{"航運業"}})
		if err != nil {
			t.Fatal(err)
		}
		if res.Source != SourceRegistry || !reflect.DeepEqual(res.Codes, []string{"2603.TW"}) {
			t.Errorf("unexpected resolution %+v", res)
		}
	}
	if reg.calls != 1 {
		t.Errorf("expected the scrape to be reused, got %d calls", reg.calls)
	}
}

func TestChain_IndustryFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		reg     Lister
		errs    int
		explain string
	}{
		{"scrape error", &stubLister{err: errors.New("timeout")}, 1, "errors fall back"},
		{"too few rows", &stubLister{rows: manyListings(3, "航運業")}, 1, "small scrapes fall back"},
		{"no matching rows", &stubLister{rows: manyListings(150, "其他業")}, 0, "unknown industries fall back"},
		{"no registry", nil, 1, "missing registry falls back"},
	}
	for _, tt := range tests {
		c := NewChain(tt.reg, testFallback(t), 100, nil)
		res, err := c.Resolve(context.Background(), Request{Mode: ModeIndustry, Input: "2330", Industries: []string{"航運業"}})
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if res.Source != SourceFallback {
			t.Errorf("%s: %s, got source %q", tt.name, tt.explain, res.Source)
		}
		if !reflect.DeepEqual(res.Codes, []string{"2330", "2603", "2609"}) {
			t.Errorf("%s: unexpected codes %v", tt.name, res.Codes)
		}
		if len(res.Errors) != tt.errs {
			t.Errorf("%s: expected %d recorded errors, got %v", tt.name, tt.errs, res.Errors)
		}
	}
}

func TestChain_AllAndModes(t *testing.T) {
	c := NewChain(nil, testFallback(t), 0, nil)
	res, err := c.Resolve(context.Background(), Request{Mode: ModeAll})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Codes) != 3 || res.Source != SourceFallback {
		t.Errorf("unexpected all-mode resolution %+v", res)
	}
	if _, err := c.Resolve(context.Background(), Request{Mode: ModeIndustry}); err == nil {
		t.Error("industry mode without industries should fail")
	}
	if _, err := ParseMode("sector"); err == nil {
		t.Error("expected unknown mode error")
	}
	if m, _ := ParseMode(""); m != ModeCodes {
		t.Errorf("empty mode should default to codes, got %q", m)
	}
	if got := c.Industries(); !reflect.DeepEqual(got, []string{"航運業", "半導體業"}) {
		t.Errorf("unexpected industries %v", got)
	}
}

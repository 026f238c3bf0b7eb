package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TickerScope/internal/model"
)

// FormatScanSummary formats the top n results of a scan into a Telegram message.
func FormatScanSummary(rep *model.Report, n int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>TickerScope scan</b> | %s\n", rep.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Scored %d of %d codes in %s\n\n",
		len(rep.Results), len(rep.Requested), rep.Duration.Round(100*time.Millisecond)))

	if len(rep.Results) == 0 {
		b.WriteString("❌ No data found. Check the codes.\n")
		return b.String()
	}

	b.WriteString("🏆 <b>Top picks:</b>\n")
	for i, r := range rep.Top(n) {
		tag := ""
		if r.SpecialTag != "" {
			tag = " 🔥"
		}
		b.WriteString(fmt.Sprintf("%d. <code>%s</code> %.2f  <b>%d</b>%s\n",
			i+1, html.EscapeString(r.ID), r.Price, r.Score, tag))
		b.WriteString(fmt.Sprintf("   MA10 %+.2f%% | MA20 %+.2f%% | MACD %s | KD %s | est %+.1f%%\n",
			r.Technical.MA10Slope, r.Technical.MA20Slope, r.Technical.MACD, r.Technical.KD, r.Display.EstimatedMove))
	}

	if len(rep.Excluded) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ Skipped %d: %s\n", len(rep.Excluded), excludedCodes(rep.Excluded, 15)))
	}
	return b.String()
}

// FormatRunList formats recorded runs, newest first.
func FormatRunList(runs []model.RunSummary) string {
	if len(runs) == 0 {
		return "📭 No scans recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent scans</b>\n\n")
	for _, r := range runs {
		top := "-"
		if r.TopSymbol != "" {
			top = fmt.Sprintf("%s (%d)", html.EscapeString(r.TopSymbol), r.TopScore)
		}
		b.WriteString(fmt.Sprintf("%s  %s  %d/%d scored  top %s\n",
			r.StartedAt.Format("01-02 15:04"), r.Mode, r.Scored, r.Requested, top))
	}
	return b.String()
}

func excludedCodes(ex []model.Exclusion, limit int) string {
	codes := make([]string, 0, limit)
	for i, e := range ex {
		if i == limit {
			codes = append(codes, fmt.Sprintf("+%d more", len(ex)-limit))
			break
		}
		codes = append(codes, html.EscapeString(e.Code))
	}
	return strings.Join(codes, " ")
}

// Package display renders scan results for the terminal.
package display

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"TickerScope/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	strongStyle = cellStyle.
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	mutedStyle = cellStyle.
			Foreground(lipgloss.Color("#6B7280"))

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4B5563"))
)

// Banner is the heading printed before a scan.
func Banner(text string) string { return titleStyle.Render(text) }

// Success is a positive status line.
func Success(text string) string { return successStyle.Render("✅ " + text) }

// Failure is an error status line.
func Failure(text string) string { return errorStyle.Render("❌ " + text) }

// RankingHeaders are the ranking table columns.
var RankingHeaders = []string{"#", "ID", "Price", "Score", "Trend", "MA10 Slope", "Est.%"}

// RankingRows flattens results into table cells.
func RankingRows(results []*model.AnalysisResult) [][]string {
	rows := make([][]string, len(results))
	for i, r := range results {
		d := r.Display
		rows[i] = []string{
			strconv.Itoa(i + 1),
			d.ID,
			num(d.Price, 2),
			strconv.Itoa(d.Score),
			d.Trend,
			num(d.MA10Slope, 2),
			num(d.EstimatedMove, 1),
		}
	}
	return rows
}

// RenderRanking draws the ranking table.
func RenderRanking(results []*model.AnalysisResult) string {
	rows := RankingRows(results)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(RankingHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(results) && results[row].Trend == model.TrendStrong {
				return strongStyle
			}
			return cellStyle
		})
	return t.String()
}

// DetailHeaders are the history table columns.
var DetailHeaders = []string{"Date", "Open", "High", "Low", "Close", "Volume", "MA5", "MA10", "MA20", "MA60", "K", "D"}

// DetailRows returns the last n chart rows, newest first. n <= 0 means all.
func DetailRows(res *model.AnalysisResult, n int) [][]string {
	rows := res.Chart
	if n > 0 && n < len(rows) {
		rows = rows[len(rows)-n:]
	}
	out := make([][]string, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		out = append(out, []string{
			r.Time.Format("2006-01-02"),
			num(r.Open, 2), num(r.High, 2), num(r.Low, 2), num(r.Close, 2),
			strconv.FormatFloat(r.Volume, 'f', 0, 64),
			num(r.MA5, 2), num(r.MA10, 2), num(r.MA20, 2), num(r.MA60, 2),
			num(r.K, 1), num(r.D, 1),
		})
	}
	return out
}

// RenderDetail draws the history table for one symbol.
func RenderDetail(res *model.AnalysisResult, n int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  score %d  %s", res.ID, res.Score, res.Trend)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("MA20 slope %.2f  MA10 slope %.2f  MACD %s  KD %s\n",
		res.Technical.MA20Slope, res.Technical.MA10Slope, res.Technical.MACD, res.Technical.KD))
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(DetailHeaders...).
		Rows(DetailRows(res, n)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return mutedStyle
			}
			return cellStyle
		})
	b.WriteString(t.String())
	return b.String()
}

// RenderExclusions lists skipped codes grouped by reason.
func RenderExclusions(ex []model.Exclusion) string {
	if len(ex) == 0 {
		return ""
	}
	byReason := map[string][]string{}
	var order []string
	for _, e := range ex {
		if _, ok := byReason[e.Reason]; !ok {
			order = append(order, e.Reason)
		}
		byReason[e.Reason] = append(byReason[e.Reason], e.Code)
	}
	var b strings.Builder
	for _, reason := range order {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("skipped (%s): %s", reason, strings.Join(byReason[reason], " "))))
		b.WriteString("\n")
	}
	return b.String()
}

func num(v float64, places int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', places, 64)
}

// RenderRuns draws recorded scans, newest first.
func RenderRuns(runs []model.RunSummary) string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		top := "-"
		if r.TopSymbol != "" {
			top = fmt.Sprintf("%s (%d)", r.TopSymbol, r.TopScore)
		}
		rows[i] = []string{
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Mode,
			strconv.Itoa(r.Requested),
			strconv.Itoa(r.Scored),
			strconv.Itoa(r.Excluded),
			top,
			r.Duration.Round(time.Second).String(),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("Started", "Mode", "Codes", "Scored", "Skipped", "Top", "Took").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

// Package export builds the JSON data pack and the prompt text that wraps it.
package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/tidwall/pretty"

	"TickerScope/internal/model"
)

// Artifact file names.
const (
	DataFileName   = "Stock_Data.json"
	PromptFileName = "AI_Prompt.txt"
)

// DefaultLogic labels the scoring rules in the document metadata.
const DefaultLogic = "MA-Stack_Slope_MACD_KD"

//go:embed prompt.tmpl
var defaultPrompt string

// Meta describes the data pack.
type Meta struct {
	Timestamp string `json:"Timestamp"`
	Logic     string `json:"Logic"`
	RunID     string `json:"Run_ID,omitempty"`
}

// Document is the exported data pack.
type Document struct {
	Meta      Meta                    `json:"Meta"`
	StockData []*model.AnalysisResult `json:"Stock_Data"`
}

// BuildDocument wraps ranked results with metadata. Display and chart data
// are never serialised.
func BuildDocument(results []*model.AnalysisResult, now time.Time, logic string) Document {
	if results == nil {
		results = []*model.AnalysisResult{}
	}
	return Document{
		Meta:      Meta{Timestamp: now.Format("2006-01-02 15:04"), Logic: logic},
		StockData: results,
	}
}

// MarshalDocument renders doc as indented JSON with non-ASCII text and HTML
// characters left as-is.
func MarshalDocument(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return pretty.PrettyOptions(buf.Bytes(), &pretty.Options{Width: 80, Indent: "  "}), nil
}

// PromptData is what prompt templates can reference.
type PromptData struct {
	JSON      string
	Logic     string
	Timestamp string
	Count     int
	Lookback  int
}

// RenderPrompt executes tmpl, or the bundled template when tmpl is empty.
func RenderPrompt(data PromptData, tmpl string) (string, error) {
	if tmpl == "" {
		tmpl = defaultPrompt
	}
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// Artifacts are the files written for one report.
type Artifacts struct {
	DataPath   string
	PromptPath string
}

// Exporter writes data packs with a fixed logic label and prompt template.
type Exporter struct {
	Logic    string
	Template string
	now      func() time.Time
}

// New creates an Exporter. templatePath may be empty for the bundled prompt.
func New(logic, templatePath string) (*Exporter, error) {
	if logic == "" {
		logic = DefaultLogic
	}
	e := &Exporter{Logic: logic, now: time.Now}
	if templatePath != "" {
		b, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("read prompt template: %w", err)
		}
		e.Template = string(b)
	}
	return e, nil
}

// Render builds the JSON document and prompt text for a report.
func (e *Exporter) Render(rep *model.Report) (data []byte, prompt string, err error) {
	doc := BuildDocument(rep.Results, e.now(), e.Logic)
	doc.Meta.RunID = rep.RunID
	data, err = MarshalDocument(doc)
	if err != nil {
		return nil, "", err
	}
	lookback := 0
	if len(rep.Results) > 0 {
		lookback = len(rep.Results[0].History.Dates)
	}
	prompt, err = RenderPrompt(PromptData{
		JSON:      string(data),
		Logic:     e.Logic,
		Timestamp: doc.Meta.Timestamp,
		Count:     len(rep.Results),
		Lookback:  lookback,
	}, e.Template)
	if err != nil {
		return nil, "", err
	}
	return data, prompt, nil
}

// WriteArtifacts writes Stock_Data.json and AI_Prompt.txt into dir.
func (e *Exporter) WriteArtifacts(dir string, rep *model.Report) (Artifacts, error) {
	data, prompt, err := e.Render(rep)
	if err != nil {
		return Artifacts{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("create export dir: %w", err)
	}
	a := Artifacts{
		DataPath:   filepath.Join(dir, DataFileName),
		PromptPath: filepath.Join(dir, PromptFileName),
	}
	if err := os.WriteFile(a.DataPath, data, 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("write %s: %w", DataFileName, err)
	}
	if err := os.WriteFile(a.PromptPath, []byte(prompt), 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("write %s: %w", PromptFileName, err)
	}
	return a, nil
}

package diag

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Report formats accepted by Write.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

var ValidFormats = []string{FormatText, FormatJSON, FormatSARIF}

// Write renders all diagnostics in the given format.
func (r *Reporter) Write(w io.Writer, format, tool, version string) error {
	switch format {
	case FormatText:
		return r.writeText(w)
	case FormatJSON:
		return r.writeJSON(w)
	case FormatSARIF:
		return r.writeSARIF(w, tool, version)
	}
	return fmt.Errorf("unknown report format %q", format)
}

func (r *Reporter) writeText(w io.Writer) error {
	for _, d := range r.Diags {
		if _, err := fmt.Fprintln(w, d.Error()); err != nil {
			return err
		}
	}
	if r.errors > 0 || r.warnings > 0 {
		_, err := fmt.Fprintf(w, "%d error(s), %d warning(s)\n", r.errors, r.warnings)
		return err
	}
	return nil
}

type jsonDiag struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
}

type jsonReport struct {
	Errors      int        `json:"errors"`
	Warnings    int        `json:"warnings"`
	Diagnostics []jsonDiag `json:"diagnostics"`
}

func (r *Reporter) writeJSON(w io.Writer) error {
	rep := jsonReport{Errors: r.errors, Warnings: r.warnings, Diagnostics: []jsonDiag{}}
	for _, d := range r.Diags {
		rep.Diagnostics = append(rep.Diagnostics, jsonDiag{
			Severity: d.Severity.String(),
			Code:     string(d.Code),
			File:     d.Pos.File,
			Line:     d.Pos.Line,
			Column:   d.Pos.Column,
			Message:  d.Message,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// SARIF 2.1.0 subset.
type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool     `json:"tool"`
	AutomationDetails sarifAutoID   `json:"automationDetails"`
	Results           []sarifResult `json:"results"`
}

type sarifAutoID struct {
	GUID string `json:"guid"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
}

const sarifSchema = "https://json.schemastore.org/sarif-2.1.0.json"

func (r *Reporter) writeSARIF(w io.Writer, tool, version string) error {
	run := sarifRun{
		Tool:              sarifTool{Driver: sarifDriver{Name: tool, Version: version}},
		AutomationDetails: sarifAutoID{GUID: uuid.Must(uuid.NewV7()).String()},
		Results:           []sarifResult{},
	}
	for _, d := range r.Diags {
		run.Results = append(run.Results, sarifResult{
			RuleID:  string(d.Code),
			Level:   d.Severity.String(),
			Message: sarifMessage{Text: d.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysical{
					ArtifactLocation: sarifArtifact{URI: d.Pos.File},
					Region:           sarifRegion{StartLine: max(d.Pos.Line, 1), StartColumn: d.Pos.Column},
				},
			}},
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarifLog{Schema: sarifSchema, Version: "2.1.0", Runs: []sarifRun{run}})
}

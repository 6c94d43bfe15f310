package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/reconlens/reconlens/internal/recon"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Analysis produced findings that need attention
	ExitCommandError = 2 // Command error (bad flags, missing database, load failures)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Returns ExitFailure
// when the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool

	printer *message.Printer
}

// NewFormatter builds a formatter for the given format and writer.
func NewFormatter(format string, w io.Writer, verbose bool) *OutputFormatter {
	return &OutputFormatter{
		Format:  format,
		Writer:  w,
		Verbose: verbose,
		printer: message.NewPrinter(language.English),
	}
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string `json:"status"` // "ok" or "error"
	RunID  string `json:"run_id,omitempty"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(runID string, data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", RunID: runID, Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// findingView is the JSON projection of a finding.
type findingView struct {
	RecordID   string         `json:"record_id"`
	Scenario   string         `json:"scenario"`
	Issue      string         `json:"issue,omitempty"`
	State      string         `json:"state"`
	Internal   string         `json:"internal_state,omitempty"`
	Rule       string         `json:"matched_rule,omitempty"`
	Evidence   []evidenceView `json:"evidence,omitempty"`
	Remark     string         `json:"remark,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
	Confidence string         `json:"confidence"`
}

type evidenceView struct {
	Expr     string `json:"expr"`
	Internal string `json:"internal,omitempty"`
	MIS      string `json:"mis,omitempty"`
	Matched  bool   `json:"matched"`
	Absent   string `json:"absent_side,omitempty"`
}

func viewOf(f recon.Finding) findingView {
	v := findingView{
		RecordID:   f.RecordID,
		Scenario:   f.Scenario,
		Issue:      f.Issue,
		State:      f.State.Name,
		Remark:     f.Remark,
		Suggestion: f.Suggestion,
		Confidence: f.Confidence.String(),
	}
	if f.InternalState != nil {
		v.Internal = f.InternalState.Name
	}
	if f.Matched != nil {
		v.Rule = f.Matched.Expression
	}
	for _, ev := range f.Evidence {
		ew := evidenceView{Expr: ev.Expr, Internal: ev.Internal.Display(), MIS: ev.MIS.Display(), Matched: ev.Matched}
		if ev.Absent != recon.AbsentNone {
			ew.Absent = ev.Absent.String()
		}
		v.Evidence = append(v.Evidence, ew)
	}
	return v
}

// Findings outputs a finding list in the configured format.
func (f *OutputFormatter) Findings(runID string, findings []recon.Finding) error {
	if f.Format == "json" {
		views := make([]findingView, 0, len(findings))
		for _, finding := range findings {
			views = append(views, viewOf(finding))
		}
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", RunID: runID, Data: views})
	}

	if len(findings) == 0 {
		fmt.Fprintln(f.Writer, "No findings.")
		return nil
	}
	for i, finding := range findings {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		f.renderFinding(finding)
	}
	fmt.Fprintf(f.Writer, "\n%d finding(s), run %s\n", len(findings), runID)
	return nil
}

func (f *OutputFormatter) renderFinding(finding recon.Finding) {
	fmt.Fprintf(f.Writer, "Record %s [%s]\n", finding.RecordID, finding.Scenario)
	fmt.Fprintf(f.Writer, "  State: %s", finding.State.Name)
	if finding.InternalState != nil {
		fmt.Fprintf(f.Writer, " (via internal state %s)", finding.InternalState.Name)
	}
	fmt.Fprintf(f.Writer, "  Confidence: %s\n", finding.Confidence)
	if finding.Issue != "" {
		fmt.Fprintf(f.Writer, "  Issue: %s\n", finding.Issue)
	}
	if finding.Matched != nil {
		fmt.Fprintf(f.Writer, "  Rule: %s\n", finding.Matched.Expression)
	}
	for _, ev := range finding.Evidence {
		mark := "ok"
		if !ev.Matched {
			mark = "MISMATCH"
		}
		if ev.Absent != recon.AbsentNone {
			mark = fmt.Sprintf("ABSENT (%s)", ev.Absent)
		}
		fmt.Fprintf(f.Writer, "    %-10s %s: internal=%s mis=%s\n",
			mark, ev.Expr, f.displayValue(ev.Internal), f.displayValue(ev.MIS))
	}
	if finding.Remark != "" {
		fmt.Fprintf(f.Writer, "  Remark: %s\n", finding.Remark)
	}
	if finding.Suggestion != "" {
		fmt.Fprintf(f.Writer, "  Suggestion: %s\n", finding.Suggestion)
	}
}

// displayValue renders an evidence value for humans. Numbers get
// locale-aware grouping so large amounts stay readable.
func (f *OutputFormatter) displayValue(v recon.Value) string {
	if n, ok := v.(recon.Number); ok {
		return f.printer.Sprintf("%v", float64(n))
	}
	return v.Display()
}

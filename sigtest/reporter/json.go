package reporter

import (
	"encoding/json"
	"time"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

	"github.com/joshuapare/sigmatest/internal/logging"
	"github.com/joshuapare/sigmatest/sigtest"
)

const jsonTimestamp = "2006-01-02 15:04:05"

type jsonReport struct {
	RunID     string      `json:"run_id"`
	TestSet   string      `json:"test_set"`
	Timestamp string      `json:"timestamp"`
	Tests     []jsonCase  `json:"tests"`
	Errors    []jsonError `json:"errors,omitempty"`
	Summary   jsonSummary `json:"summary"`
}

type jsonCase struct {
	Test       string  `json:"test"`
	Status     string  `json:"status"`
	DurationUS float64 `json:"duration_us"`
	Message    string  `json:"message"`
}

type jsonError struct {
	Test    string `json:"test"`
	Message string `json:"message"`
}

type jsonSummary struct {
	Total        int    `json:"total"`
	Passed       int    `json:"passed"`
	Failed       int    `json:"failed"`
	Skipped      int    `json:"skipped"`
	TotalMallocs uint64 `json:"total_mallocs"`
	TotalFrees   uint64 `json:"total_frees"`
}

// JSON writes one JSON document per suite once its allocation totals are known.
type JSON struct {
	opts   Options
	report jsonReport
	table  *sigtest.HookTable
}

// NewJSON returns a JSON reporter.
func NewJSON(opts Options) *JSON {
	j := &JSON{opts: opts.withDefaults()}
	j.table = &sigtest.HookTable{
		Name:           string(FormatJSON),
		BeforeSuite:    j.beforeSuite,
		AfterSuite:     func(*sigtest.SuiteInfo, *sigtest.ExecContext) {},
		CaseStart:      quiet,
		OnError:        j.onError,
		OnResult:       j.onResult,
		OnSuiteSummary: j.onSummary,
		Context:        j,
	}
	return j
}

// Hooks returns the reporter's hook table.
func (j *JSON) Hooks() *sigtest.HookTable { return j.table }

func (j *JSON) beforeSuite(info *sigtest.SuiteInfo, ctx *sigtest.ExecContext) {
	j.report = jsonReport{
		RunID:     j.opts.RunID,
		TestSet:   info.Name,
		Timestamp: ctx.Now().Format(jsonTimestamp),
		Tests:     []jsonCase{},
	}
}

func (j *JSON) onError(msg string, ctx *sigtest.ExecContext) {
	if !j.opts.Verbose || ctx.Case == nil {
		return
	}
	j.report.Errors = append(j.report.Errors, jsonError{Test: ctx.Case.Name, Message: msg})
}

func (j *JSON) onResult(info *sigtest.CaseInfo, _ *sigtest.ExecContext) {
	j.report.Tests = append(j.report.Tests, jsonCase{
		Test:       info.Name,
		Status:     info.Result.State.String(),
		DurationUS: float64(info.Elapsed) / float64(time.Microsecond),
		Message:    truncate(info.Result.Message, j.opts.MaxMessage),
	})
}

func (j *JSON) onSummary(info *sigtest.SuiteInfo, ctx *sigtest.ExecContext, s sigtest.Summary) {
	j.report.Summary = jsonSummary{
		Total:        s.Totals.Total,
		Passed:       s.Totals.Passed,
		Failed:       s.Totals.Failed,
		Skipped:      s.Totals.Skipped,
		TotalMallocs: s.Allocs.Allocs,
		TotalFrees:   s.Allocs.Frees,
	}

	out, err := j.encode()
	if err != nil {
		logging.Error("json report encode failed", "suite", info.Name, "error", err)
		return
	}
	if err := writeDoc(ctx.Logger, out); err != nil {
		logging.Error("json report write failed", "suite", info.Name, "error", err)
	}
}

func (j *JSON) encode() ([]byte, error) {
	if !j.opts.Canonical {
		return json.MarshalIndent(j.report, "", "  ")
	}
	raw, err := json.Marshal(j.report)
	if err != nil {
		return nil, err
	}
	return jsoncanonicalizer.Transform(raw)
}

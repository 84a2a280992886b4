package reporter

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/joshuapare/sigmatest/internal/logging"
	"github.com/joshuapare/sigmatest/internal/term"
	"github.com/joshuapare/sigmatest/sigtest"
)

const junitTimestamp = "2006-01-02T15:04:05"

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
)

type junitSuites struct {
	XMLName xml.Name     `xml:"testsuites"`
	ID      string       `xml:"id,attr,omitempty"`
	Suites  []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name      string      `xml:"name,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	Hostname  string      `xml:"hostname,attr"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Skipped   int         `xml:"skipped,attr"`
	Time      string      `xml:"time,attr"`
	Cases     []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
}

type junitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnit writes one JUnit XML document per suite.
type JUnit struct {
	opts    Options
	color   bool
	suite   junitSuite
	elapsed time.Duration
	table   *sigtest.HookTable
}

// NewJUnit returns a JUnit reporter.
func NewJUnit(opts Options) *JUnit {
	opts = opts.withDefaults()
	j := &JUnit{opts: opts, color: term.IsTerminal(opts.Echo)}
	j.table = &sigtest.HookTable{
		Name:           string(FormatJUnit),
		BeforeSuite:    j.beforeSuite,
		AfterSuite:     j.afterSuite,
		CaseStart:      quiet,
		OnError:        func(string, *sigtest.ExecContext) {},
		OnResult:       j.onResult,
		OnSuiteSummary: quietSummary,
		Context:        j,
	}
	return j
}

// Hooks returns the reporter's hook table.
func (j *JUnit) Hooks() *sigtest.HookTable { return j.table }

func (j *JUnit) beforeSuite(info *sigtest.SuiteInfo, ctx *sigtest.ExecContext) {
	j.suite = junitSuite{
		Name:      info.Name,
		Timestamp: ctx.Now().Format(junitTimestamp),
		Hostname:  j.opts.Hostname,
	}
	j.elapsed = 0
}

func (j *JUnit) onResult(info *sigtest.CaseInfo, _ *sigtest.ExecContext) {
	if j.opts.Verbose {
		j.echo(info)
	}

	c := junitCase{
		Name:      info.Name,
		Classname: info.Suite,
		Time:      seconds(info.Elapsed),
	}
	switch info.Result.State {
	case sigtest.Fail:
		msg := info.Result.Message
		if msg == "" {
			msg = "Unknown failure"
		}
		c.Failure = &junitFailure{Message: truncate(msg, j.opts.MaxMessage)}
		j.suite.Failures++
	case sigtest.Skip:
		c.Skipped = &junitSkipped{Message: truncate(info.Result.Message, j.opts.MaxMessage)}
		j.suite.Skipped++
	}
	j.suite.Tests++
	j.elapsed += info.Elapsed
	j.suite.Cases = append(j.suite.Cases, c)
}

func (j *JUnit) afterSuite(info *sigtest.SuiteInfo, ctx *sigtest.ExecContext) {
	j.suite.Time = seconds(j.elapsed)
	doc := junitSuites{ID: j.opts.RunID, Suites: []junitSuite{j.suite}}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		logging.Error("junit marshal failed", "suite", info.Name, "error", err)
		return
	}
	if err := writeDoc(ctx.Logger, []byte(xml.Header), out); err != nil {
		logging.Error("junit write failed", "suite", info.Name, "error", err)
	}
}

func (j *JUnit) echo(info *sigtest.CaseInfo) {
	tag := "[" + info.Result.State.String() + "]"
	if j.color {
		switch info.Result.State {
		case sigtest.Pass:
			tag = passStyle.Render(tag)
		case sigtest.Fail:
			tag = failStyle.Render(tag)
		case sigtest.Skip:
			tag = skipStyle.Render(tag)
		}
	}
	fmt.Fprintf(j.opts.Echo, "%s %s\n", tag, info.Name)
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func writeDoc(w io.Writer, parts ...[]byte) error {
	for _, p := range parts {
		if _, err := w.Write(p); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

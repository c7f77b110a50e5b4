package rules

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"example.com/aioforge/internal/aio"
)

type Severity string

const (
	ERROR Severity = "ERROR"
	WARN  Severity = "WARN"
	INFO  Severity = "INFO"
)

type Rule struct {
	RuleId    string         `json:"ruleId"`
	Name      string         `json:"name,omitempty"`
	Scope     string         `json:"scope"` // image|summary|entry
	Severity  Severity       `json:"severity"`
	CheckFunc string         `json:"checkFunction,omitempty"`
	Refs      []string       `json:"refs"`
	Params    map[string]any `json:"params,omitempty"`
	Message   string         `json:"message"`
}

type RulePack struct {
	RulePackId string `json:"rulePackId"`
	Version    string `json:"version"`
	Profile    string `json:"profile"`
	Rules      []Rule `json:"rules"`
}

type Diagnostic struct {
	Ts         time.Time `json:"ts"`
	File       string    `json:"file"`
	EntryIndex int       `json:"entryIndex,omitempty"`
	Offset     string    `json:"offset,omitempty"`
	RuleId     string    `json:"ruleId"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Refs       []string  `json:"refs"`
}

// GateResult is one row of the acceptance gate matrix: the verdict of a
// single rule over the whole image.
type GateResult struct {
	RuleId   string   `json:"ruleId"`
	Stage    string   `json:"stage"`
	Name     string   `json:"name,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Pass     bool     `json:"pass"`
}

type AcceptanceReport struct {
	Summary struct {
		Total    int  `json:"total"`
		Errors   int  `json:"errors"`
		Warnings int  `json:"warnings"`
		Pass     bool `json:"pass"`
	} `json:"summary"`
	GateMatrix []GateResult `json:"gateMatrix"`
	Findings   []Diagnostic `json:"findings,omitempty"`
}

// Context carries the image under verification. Image may be supplied
// directly or loaded lazily from InputFile.
type Context struct {
	InputFile   string
	Image       []byte
	ProfileName string
	Profile     aio.DeviceProfile

	Inspection *aio.Inspection

	inspected  bool
	inspectErr error
}

func (ctx *Context) EnsureImage() error {
	if ctx == nil {
		return errors.New("nil context")
	}
	if ctx.Image != nil {
		return nil
	}
	if ctx.InputFile == "" {
		return errors.New("no image supplied")
	}
	data, err := os.ReadFile(ctx.InputFile)
	if err != nil {
		return err
	}
	ctx.Image = data
	return nil
}

// EnsureInspection decodes the header region once and caches the result.
// The decode error is cached as well so every entry-scope rule sees the
// same failure instead of re-parsing.
func (ctx *Context) EnsureInspection() error {
	if ctx == nil {
		return errors.New("nil context")
	}
	if ctx.inspected {
		return ctx.inspectErr
	}
	if err := ctx.EnsureImage(); err != nil {
		return err
	}
	ctx.inspected = true
	ctx.Inspection, ctx.inspectErr = aio.Inspect(ctx.Image)
	return ctx.inspectErr
}

type Engine struct {
	rulePack    RulePack
	registry    map[string]CheckFunc
	diagnostics []Diagnostic
}

func NewEngine(rp RulePack) *Engine {
	return &Engine{
		rulePack: rp,
		registry: make(map[string]CheckFunc),
	}
}

type CheckFunc func(ctx *Context, rule Rule) (Diagnostic, error)

func (e *Engine) Register(name string, f CheckFunc) {
	e.registry[name] = f
}

func (e *Engine) RulePack() RulePack {
	return e.rulePack
}

func (e *Engine) Eval(ctx *Context) ([]Diagnostic, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}
	if err := ctx.EnsureImage(); err != nil {
		return nil, err
	}
	ctx.Profile = ctx.Profile.Resolved()
	var diags []Diagnostic
	for _, r := range e.rulePack.Rules {
		if r.CheckFunc == "" {
			continue
		}
		fn, ok := e.registry[r.CheckFunc]
		if !ok {
			diags = append(diags, Diagnostic{
				Ts: time.Now(), File: ctx.InputFile, RuleId: r.RuleId, Severity: WARN,
				Message: "no function for rule", Refs: r.Refs,
			})
			continue
		}
		d, err := fn(ctx, r)
		if err != nil {
			d.Severity = ERROR
			d.Message = d.Message + " (" + err.Error() + ")"
		}
		diags = append(diags, d)
	}
	e.diagnostics = diags
	return diags, nil
}

// Diagnostics returns the findings from the last Eval.
func (e *Engine) Diagnostics() []Diagnostic {
	return e.diagnostics
}

func (e *Engine) WriteDiagnosticsNDJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()
	return writeDiagnostics(w, e.diagnostics)
}

// WriteDiagnosticsTo streams the findings from the last Eval as NDJSON.
func (e *Engine) WriteDiagnosticsTo(w io.Writer) error {
	return writeDiagnostics(w, e.diagnostics)
}

func writeDiagnostics(w io.Writer, diags []Diagnostic) error {
	for _, d := range diags {
		b, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) MakeAcceptance() AcceptanceReport {
	var rep AcceptanceReport
	var errs, warns int
	byRule := make(map[string]Diagnostic, len(e.diagnostics))
	for _, d := range e.diagnostics {
		switch d.Severity {
		case ERROR:
			errs++
		case WARN:
			warns++
		}
		byRule[d.RuleId] = d
	}
	for _, r := range e.rulePack.Rules {
		d, ok := byRule[r.RuleId]
		if !ok {
			continue
		}
		rep.GateMatrix = append(rep.GateMatrix, GateResult{
			RuleId:   r.RuleId,
			Stage:    r.Scope,
			Name:     r.Name,
			Message:  d.Message,
			Severity: d.Severity,
			Pass:     d.Severity != ERROR,
		})
	}
	rep.Summary.Total = len(e.diagnostics)
	rep.Summary.Errors = errs
	rep.Summary.Warnings = warns
	rep.Summary.Pass = errs == 0
	rep.Findings = e.diagnostics
	return rep
}

func LoadRulePack(path string) (RulePack, error) {
	var rp RulePack
	b, err := os.ReadFile(path)
	if err != nil {
		return rp, err
	}
	if err := json.Unmarshal(b, &rp); err != nil {
		return rp, fmt.Errorf("parse rule pack %s: %w", path, err)
	}
	return rp, nil
}

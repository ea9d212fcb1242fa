package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/deploy"
)

// Genesis is the clock start of every scenario run.
var Genesis = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	expectSuccess = "success"
	expectRevert  = "revert"
)

// Run executes the steps of s in order on a fresh deployment built from
// cfg. Steps share chain state; the first failing step does not stop the run.
func Run(s *Scenario, cfg *deploy.Config) (*RunResult, error) {
	clock := chain.NewFakeClock(Genesis)
	d, err := deploy.New(cfg, clock)
	if err != nil {
		return nil, fmt.Errorf("build deployment: %w", err)
	}

	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Steps),
	}

	for i, step := range s.Steps {
		sr := runStep(d, clock, step)
		sr.Index = i + 1
		if sr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Steps = append(result.Steps, sr)
	}
	return result, nil
}

func runStep(d *deploy.Deployment, clock *chain.FakeClock, step Step) StepResult {
	sr := StepResult{
		Action:   step.Action,
		Method:   step.Method,
		Expected: normalizeExpect(step.Expect),
	}
	if step.Advance > 0 {
		clock.Advance(step.Advance)
	}

	tx, err := d.NewTx(step.Sender, deploy.Fees{
		GasPrice:    step.GasPrice,
		MaxFee:      step.MaxFee,
		PriorityFee: step.PriorityFee,
	})
	if err != nil {
		sr.Actual = "error"
		sr.Reason = err.Error()
		return sr
	}
	if step.BaseFee != "" {
		fee, err := deploy.ParseAmount(step.BaseFee)
		if err != nil {
			sr.Actual = "error"
			sr.Reason = fmt.Sprintf("base_fee: %v", err)
			return sr
		}
		d.Env.SetBaseFee(fee)
	}

	receipt, err := d.Invoke(tx, step.Action, step.Method, step.Args)
	if err != nil {
		sr.Actual = "error"
		sr.Reason = err.Error()
		return sr
	}
	sr.GasUsed = receipt.GasUsed
	if receipt.Succeeded() {
		sr.Actual = expectSuccess
	} else {
		sr.Actual = receipt.Code
		if sr.Actual == "" {
			sr.Actual = string(receipt.Status)
		}
		if receipt.Err != nil {
			sr.Reason = receipt.Err.Error()
		}
	}

	switch {
	case sr.Expected == expectRevert:
		sr.Passed = !receipt.Succeeded()
	default:
		sr.Passed = sr.Actual == sr.Expected
	}
	if sr.Passed && receipt.Succeeded() {
		for _, name := range step.Events {
			if len(receipt.EventsNamed(name)) == 0 {
				sr.Missing = append(sr.Missing, name)
			}
		}
		if len(sr.Missing) > 0 {
			sr.Passed = false
			sr.Reason = "missing events: " + strings.Join(sr.Missing, ", ")
		}
	}
	return sr
}

func normalizeExpect(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "success", "ok":
		return expectSuccess
	case "revert", "reverted", "fail":
		return expectRevert
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &s, nil
}

// LoadAndRun loads a scenario file and runs it. The scenario's own
// deployment file wins over deploymentPath.
func LoadAndRun(path, deploymentPath string) (*RunResult, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	if s.Deployment != "" {
		deploymentPath = s.Deployment
		if !filepath.IsAbs(deploymentPath) {
			deploymentPath = filepath.Join(filepath.Dir(path), deploymentPath)
		}
	}
	cfg, err := deploy.LoadConfig(deploymentPath)
	if err != nil {
		return nil, fmt.Errorf("load deployment: %w", err)
	}

	result, err := Run(s, cfg)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	result.File = path
	return result, nil
}

// Expand resolves glob patterns to a sorted, de-duplicated file list.
func Expand(patterns []string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

package scenario

import "time"

// Step is one transaction of a scenario.
type Step struct {
	Action string   `yaml:"action"`
	Method string   `yaml:"method"`
	Sender string   `yaml:"sender,omitempty"`
	Args   []string `yaml:"args,omitempty"`

	// Fee fields. A step with max_fee is an EIP-1559 transaction, otherwise
	// it is a legacy transaction at gas_price (default 2 gwei).
	GasPrice    string `yaml:"gas_price,omitempty"`
	MaxFee      string `yaml:"max_fee,omitempty"`
	PriorityFee string `yaml:"priority_fee,omitempty"`
	// BaseFee overrides the base fee of the next block.
	BaseFee string `yaml:"base_fee,omitempty"`

	// Advance moves the clock forward before the step runs.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Expect is "success", "revert" or a revert code.
	Expect string `yaml:"expect"`
	// Events must all be emitted by a successful step.
	Events []string `yaml:"events,omitempty"`
}

// Scenario is a named sequence of steps run against one deployment.
type Scenario struct {
	Name string `yaml:"name"`
	// Deployment is a deployment file, relative to the scenario file.
	Deployment string `yaml:"deployment,omitempty"`
	Steps      []Step `yaml:"steps"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index    int      `json:"index"`
	Passed   bool     `json:"passed"`
	Action   string   `json:"action"`
	Method   string   `json:"method"`
	Expected string   `json:"expected"`
	Actual   string   `json:"actual"`
	Reason   string   `json:"reason,omitempty"`
	Missing  []string `json:"missing_events,omitempty"`
	GasUsed  uint64   `json:"gas_used"`
}

// RunResult is the outcome of running all steps in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Steps  []StepResult `json:"steps"`
}

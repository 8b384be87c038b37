package client

import (
	"context"
	"fmt"
)

// Step is one command and the reply it must produce.
type Step struct {
	Command string
	Want    string
}

// Scenario is a named sequence of steps.
type Scenario struct {
	Name string
	// Separate runs every step on its own connection.
	Separate bool
	Steps    []Step
}

// PersistentScenario issues several commands over one connection.
var PersistentScenario = Scenario{
	Name: "persistent connection",
	Steps: []Step{
		{"POST A B", "0"},
		{"POST B C", "0"},
		{"GET A", "0 B"},
		{"GET C", "1"},
		{"DELETE A", "0"},
		{"DELETE C", "1"},
		{"UNKNOWN_COMMAND", "2"},
	},
}

// SeparateScenario issues one command per connection.
var SeparateScenario = Scenario{
	Name:     "separate connections",
	Separate: true,
	Steps: []Step{
		{"POST X Y", "0"},
		{"GET X", "0 Y"},
		{"DELETE X", "0"},
		{"GET X", "1"},
	},
}

// StepResult is the outcome of one step.
type StepResult struct {
	Scenario string `json:"scenario" yaml:"scenario"`
	Command  string `json:"command" yaml:"command"`
	Want     string `json:"want" yaml:"want"`
	Got      string `json:"got" yaml:"got"`
	Passed   bool   `json:"passed" yaml:"passed"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Run executes the scenario against addr. It returns one result per step
// attempted and stops early only when a connection cannot be opened.
func (s Scenario) Run(ctx context.Context, addr string, opts ...Option) ([]StepResult, error) {
	results := make([]StepResult, 0, len(s.Steps))

	var shared *Client
	if !s.Separate {
		c, err := Dial(ctx, addr, opts...)
		if err != nil {
			return results, err
		}
		defer c.Close()
		shared = c
	}

	for _, step := range s.Steps {
		c := shared
		if s.Separate {
			var err error
			if c, err = Dial(ctx, addr, opts...); err != nil {
				return results, err
			}
		}

		res := StepResult{Scenario: s.Name, Command: step.Command, Want: step.Want}
		if r, err := c.Do(step.Command); err != nil {
			res.Error = err.Error()
		} else {
			res.Got = r.String()
			res.Passed = res.Got == step.Want
		}
		results = append(results, res)

		if s.Separate {
			_ = c.Close()
		}
	}
	return results, nil
}

// Check runs the built-in scenarios and reports whether every step passed.
func Check(ctx context.Context, addr string, opts ...Option) ([]StepResult, error) {
	var all []StepResult
	for _, s := range []Scenario{PersistentScenario, SeparateScenario} {
		results, err := s.Run(ctx, addr, opts...)
		all = append(all, results...)
		if err != nil {
			return all, fmt.Errorf("client: scenario %q: %w", s.Name, err)
		}
	}
	for _, r := range all {
		if !r.Passed {
			return all, fmt.Errorf("client: %q returned %q, want %q", r.Command, r.Got, r.Want)
		}
	}
	return all, nil
}

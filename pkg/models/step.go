package models

import (
	"fmt"
	"strings"
)

// Step is a stage of the research pipeline. Steps are ordered; a task only moves forward.
type Step int

const (
	StepInitializing Step = iota
	StepSearching
	StepExtracting
	StepDrafting
	StepFactChecking
	StepFinalizing
)

var stepNames = [...]string{
	StepInitializing: "initializing",
	StepSearching:    "searching",
	StepExtracting:   "extracting",
	StepDrafting:     "drafting",
	StepFactChecking: "fact_checking",
	StepFinalizing:   "finalizing",
}

// Steps lists every step in pipeline order.
func Steps() []Step {
	return []Step{StepInitializing, StepSearching, StepExtracting, StepDrafting, StepFactChecking, StepFinalizing}
}

func (s Step) Valid() bool {
	return s >= StepInitializing && s <= StepFinalizing
}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// ParseStep maps a step name back to its Step.
func ParseStep(name string) (Step, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid step %d", int(s))
	}
	return []byte(stepNames[s]), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	parsed, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LoanDecision is the backend's binary verdict.
type LoanDecision int

const (
	DecisionDeclined LoanDecision = 0
	DecisionApproved LoanDecision = 1
)

// UnmarshalJSON accepts 0/1 as well as false/true; the backend model types
// the field as a bool while the endpoint writes an int.
func (d *LoanDecision) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*d = DecisionApproved
		return nil
	case "false":
		*d = DecisionDeclined
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("loan_decision: %w", err)
	}
	if f != float64(int(f)) {
		return fmt.Errorf("loan_decision: non-integer value %v", f)
	}
	*d = LoanDecision(int(f))
	return nil
}

func (d LoanDecision) String() string {
	switch d {
	case DecisionApproved:
		return "approved"
	case DecisionDeclined:
		return "declined"
	default:
		return fmt.Sprintf("invalid(%d)", int(d))
	}
}

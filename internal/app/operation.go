package app

// RuleOperation tracks a CLI invocation that may mutate the host.
// Operations are created in memory with ID=0. Only mutating commands
// persist them (giving them an auto-increment ID from the journal).
type RuleOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
}

// NewRuleOperation creates a new in-memory rule operation.
func NewRuleOperation(operation, parameters string) *RuleOperation {
	return &RuleOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the journal.
func (op *RuleOperation) Persisted() bool {
	return op.ID != 0
}

package entities

import "time"

// StrategyID identifies one extraction strategy in the chain
type StrategyID string

// Extraction strategies in chain order
const (
	StrategyArchiveTool            StrategyID = "archive-tool"
	StrategyInstallerFrameworkTool StrategyID = "installer-framework-tool"
	StrategyPackageDatabaseTool    StrategyID = "package-database-tool"
	StrategyGenericContainer       StrategyID = "generic-container"
)

// Outcome is the terminal state of one extraction attempt
type Outcome string

// Attempt outcomes
const (
	OutcomeNotAttempted        Outcome = "not-attempted"
	OutcomeToolMissing         Outcome = "tool-missing"
	OutcomeTimedOut            Outcome = "timed-out"
	OutcomeToolReportedFailure Outcome = "tool-reported-failure"
	OutcomeValidated           Outcome = "validated"
	OutcomeRejectedByValidator Outcome = "rejected-by-validator"
)

// ExtractionAttempt records what happened when one strategy ran
type ExtractionAttempt struct {
	Strategy  StrategyID
	TargetDir string
	Outcome   Outcome
	Reason    string
	Duration  time.Duration
}

// ExtractionResult is the output of a full pass over the strategy chain
type ExtractionResult struct {
	Dir      string
	Strategy StrategyID
	Attempts []ExtractionAttempt
}

// Succeeded reports whether some strategy produced a validated directory
func (r *ExtractionResult) Succeeded() bool {
	return r != nil && r.Dir != ""
}

package constants

// Stage names the fixed order of pipeline steps.
type Stage string

// Stable values (used in logs, span names and errors).
const (
	StageInterpret Stage = "interpret"
	StageExtract   Stage = "extract"
	StageSummarize Stage = "summarize"
	StageSearch    Stage = "search"
	StageVerify    Stage = "verify"
)

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

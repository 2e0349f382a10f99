package shared

// SaveState tracks a single save request through the commit protocol
type SaveState string

const (
	SaveStatePending         SaveState = "PENDING"
	SaveStateBalanceChecked  SaveState = "BALANCE_CHECKED"
	SaveStateScenarioWritten SaveState = "SCENARIO_WRITTEN"
	SaveStateDebited         SaveState = "DEBITED"
	SaveStateCommitted       SaveState = "COMMITTED"

	// SaveStateAborted is the clean terminal state: nothing was persisted.
	SaveStateAborted SaveState = "ABORTED"

	// SaveStatePartiallyFailed is the anomalous terminal state: the scenario
	// write succeeded but the debit did not. The residue is handed to the
	// reconciler rather than rolled back.
	SaveStatePartiallyFailed SaveState = "PARTIALLY_FAILED"
)

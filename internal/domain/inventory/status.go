package inventory

// SyncStatus represents one SKU's reconciliation outcome within a batch.
// SKIPPED means the SKU was intentionally excluded (no Shopify counterpart),
// as opposed to FAILED, an attempted update that errored.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
	SyncStatusSkipped SyncStatus = "skipped"
)

// SyncStatusValues returns the full set of legal item statuses.
func SyncStatusValues() []SyncStatus {
	return []SyncStatus{SyncStatusPending, SyncStatusSuccess, SyncStatusFailed, SyncStatusSkipped}
}

func (s SyncStatus) IsPending() bool { return s == SyncStatusPending }
func (s SyncStatus) IsSuccess() bool { return s == SyncStatusSuccess }
func (s SyncStatus) IsFailed() bool  { return s == SyncStatusFailed }
func (s SyncStatus) IsSkipped() bool { return s == SyncStatusSkipped }

// IsTerminal reports whether the item has been resolved; resolved items
// never transition again within their batch.
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusSuccess || s == SyncStatusFailed || s == SyncStatusSkipped
}

func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSuccess, SyncStatusFailed, SyncStatusSkipped:
		return true
	}
	return false
}

// BatchStatus represents the lifecycle of a reconciliation run.
type BatchStatus string

const (
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
	BatchStatusPartial   BatchStatus = "partial"
)

// BatchStatusValues returns the full set of legal batch statuses.
func BatchStatusValues() []BatchStatus {
	return []BatchStatus{BatchStatusRunning, BatchStatusCompleted, BatchStatusFailed, BatchStatusPartial}
}

func (s BatchStatus) IsRunning() bool   { return s == BatchStatusRunning }
func (s BatchStatus) IsCompleted() bool { return s == BatchStatusCompleted }
func (s BatchStatus) IsFailed() bool    { return s == BatchStatusFailed }
func (s BatchStatus) IsPartial() bool   { return s == BatchStatusPartial }

// IsFinished reports whether the batch reached a terminal status. RUNNING
// is the only non-terminal state.
func (s BatchStatus) IsFinished() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed || s == BatchStatusPartial
}

func (s BatchStatus) Valid() bool {
	switch s {
	case BatchStatusRunning, BatchStatusCompleted, BatchStatusFailed, BatchStatusPartial:
		return true
	}
	return false
}

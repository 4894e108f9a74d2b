package ports

type ActionMetrics interface {
	RecordSuccess(actionType string)
	RecordRejected(actionType string)
	RecordConflict()
	RecordFailure()
}

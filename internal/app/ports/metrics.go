package ports

type CallMetrics interface {
	RecordSuccess(op string)
	RecordFailure(op string)
}

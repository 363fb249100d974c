package inmemory

import "sync"

type OpCounts struct {
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
}

type Snapshot struct {
	CallTotal   uint64              `json:"call_total"`
	CallSuccess uint64              `json:"call_success"`
	CallFailure uint64              `json:"call_failure"`
	ByOperation map[string]OpCounts `json:"by_operation"`
}

type Recorder struct {
	mu      sync.Mutex
	success uint64
	failure uint64
	byOp    map[string]OpCounts
}

func NewRecorder() *Recorder {
	return &Recorder{
		byOp: map[string]OpCounts{},
	}
}

func (r *Recorder) RecordSuccess(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success++
	c := r.byOp[op]
	c.Success++
	r.byOp[op] = c
}

func (r *Recorder) RecordFailure(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure++
	c := r.byOp[op]
	c.Failure++
	r.byOp[op] = c
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		CallSuccess: r.success,
		CallFailure: r.failure,
		CallTotal:   r.success + r.failure,
		ByOperation: make(map[string]OpCounts, len(r.byOp)),
	}
	for k, v := range r.byOp {
		out.ByOperation[k] = v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"lifedash/internal/core"
	"lifedash/internal/records"
	"lifedash/internal/records/memory"
)

// countingBackend wraps a memory store and counts list calls.
type countingBackend struct {
	*memory.Store
	lists   atomic.Int32
	release chan struct{}
	fail    error
}

func newCountingBackend() *countingBackend {
	return &countingBackend{Store: memory.New()}
}

func (b *countingBackend) wait() error {
	b.lists.Add(1)
	if b.release != nil {
		<-b.release
	}
	return b.fail
}

func (b *countingBackend) ListLogs(ctx context.Context) ([]core.FinancialLog, error) {
	if err := b.wait(); err != nil {
		return nil, err
	}
	return b.Store.ListLogs(ctx)
}

func (b *countingBackend) ListBalances(ctx context.Context) ([]core.FinancialBalance, error) {
	if err := b.wait(); err != nil {
		return nil, err
	}
	return b.Store.ListBalances(ctx)
}

func (b *countingBackend) ListPaychecks(ctx context.Context) ([]core.PaycheckInfo, error) {
	if err := b.wait(); err != nil {
		return nil, err
	}
	return b.Store.ListPaychecks(ctx)
}

var _ records.Backend = (*countingBackend)(nil)

type published struct {
	kind core.RecordKind
	id   string
	op   string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) PublishRecordChanged(_ context.Context, kind core.RecordKind, id, op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{kind, id, op})
	return p.err
}

type fakeNotifier struct {
	events []string
}

func (n *fakeNotifier) NotifyRecordsChanged(kind core.RecordKind, op string) {
	n.events = append(n.events, kind.String()+":"+op)
}

type fakeInvalidator struct {
	kinds []core.RecordKind
}

func (i *fakeInvalidator) Invalidate(kind core.RecordKind) {
	i.kinds = append(i.kinds, kind)
}

var errBackendDown = errors.New("backend down")

// pausingReader reads the store, then holds the result until release is
// closed. started is closed once the first read has taken its copy.
type pausingReader struct {
	*memory.Store
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newPausingReader(store *memory.Store) *pausingReader {
	return &pausingReader{Store: store, started: make(chan struct{}), release: make(chan struct{})}
}

func (r *pausingReader) ListLogs(ctx context.Context) ([]core.FinancialLog, error) {
	logs, err := r.Store.ListLogs(ctx)
	r.once.Do(func() { close(r.started) })
	<-r.release
	return logs, err
}

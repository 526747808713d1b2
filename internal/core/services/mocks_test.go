package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/deepresearchpod/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
)

// scriptedProvider replays a fixed sequence of status payloads. The last
// entry repeats once the script is exhausted.
type scriptedProvider struct {
	mu        sync.Mutex
	runID     string
	submitErr error
	script    []statusStep
	fetches   int
	queries   []string
	processor string
}

type statusStep struct {
	payload domain.RawPayload
	err     error
}

var _ driven.ResearchProvider = (*scriptedProvider)(nil)

func newScriptedProvider(steps ...statusStep) *scriptedProvider {
	return &scriptedProvider{runID: "run_1", script: steps}
}

func status(s string) statusStep {
	return statusStep{payload: domain.RawPayload{"status": s}}
}

func (p *scriptedProvider) Submit(_ context.Context, query, processor string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, query)
	p.processor = processor
	if p.submitErr != nil {
		return "", p.submitErr
	}
	return p.runID, nil
}

func (p *scriptedProvider) FetchStatus(_ context.Context, _ string) (domain.RawPayload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.script) == 0 {
		return domain.RawPayload{"status": "running"}, nil
	}
	i := p.fetches
	if i >= len(p.script) {
		i = len(p.script) - 1
	}
	p.fetches++
	return p.script[i].payload, p.script[i].err
}

func (p *scriptedProvider) fetchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}

// resultProvider additionally serves results directly.
type resultProvider struct {
	*scriptedProvider
	result domain.RawPayload
	err    error
	calls  atomic.Int32
}

var _ driven.ResultFetcher = (*resultProvider)(nil)

func (p *resultProvider) FetchResult(_ context.Context, _ string) (domain.RawPayload, error) {
	p.calls.Add(1)
	return p.result, p.err
}

// summaryNormaliser reads summary straight from output, keeping service
// tests independent of the real normaliser.
type summaryNormaliser struct{}

func (summaryNormaliser) Normalise(_ context.Context, payload domain.RawPayload) (*domain.ResearchResult, error) {
	out, _ := payload.Output()
	m, _ := out.(map[string]any)
	result := &domain.ResearchResult{Sources: []domain.Source{}}
	result.Summary, _ = m["summary"].(string)
	if raw, ok := m["sources"].([]any); ok {
		for _, s := range raw {
			if url, ok := s.(string); ok {
				result.Sources = append(result.Sources, domain.Source{Title: url, URL: url})
			}
		}
	}
	return result, nil
}

// outageStore fails every durable operation with ErrStorageUnavailable while down.
type outageStore struct {
	*memory.DocumentStore
	down atomic.Bool
}

var _ driven.DocumentStore = (*outageStore)(nil)

var errOutage = fmt.Errorf("%w: server selection timed out after 5s", domain.ErrStorageUnavailable)

func (s *outageStore) FindOne(ctx context.Context, c string, f driven.Filter) (driven.Document, error) {
	if s.down.Load() {
		return nil, errOutage
	}
	return s.DocumentStore.FindOne(ctx, c, f)
}

func (s *outageStore) InsertOne(ctx context.Context, c string, d driven.Document) error {
	if s.down.Load() {
		return errOutage
	}
	return s.DocumentStore.InsertOne(ctx, c, d)
}

func (s *outageStore) UpdateOne(ctx context.Context, c string, f driven.Filter, set driven.Document, upsert bool) error {
	if s.down.Load() {
		return errOutage
	}
	return s.DocumentStore.UpdateOne(ctx, c, f, set, upsert)
}

// failingSink always fails to store results.
type failingSink struct{}

func (failingSink) UpsertResult(context.Context, string, domain.ResearchResult) error {
	return errors.New("research collection unavailable")
}

func (failingSink) GetResult(context.Context, string) (*domain.ResearchRecord, error) {
	return nil, nil
}

// recordingMetrics counts observations.
type recordingMetrics struct {
	mu       sync.Mutex
	started  int
	finished map[domain.TaskStatus]int
	polls    map[domain.JobStatus]int
}

var _ driven.Metrics = (*recordingMetrics)(nil)

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		finished: make(map[domain.TaskStatus]int),
		polls:    make(map[domain.JobStatus]int),
	}
}

func (m *recordingMetrics) TaskStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *recordingMetrics) TaskFinished(s domain.TaskStatus, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[s]++
}

func (m *recordingMetrics) PollObserved(s domain.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls[s]++
}

func (m *recordingMetrics) StorageFallback(string, string) {}

// fastPolicy keeps poll loops short in tests.
func fastPolicy() domain.ResearchPolicy {
	return domain.ResearchPolicy{
		Processor:      "core",
		PollInterval:   5 * time.Millisecond,
		Timeout:        2 * time.Second,
		Limit:          10,
		MaxFetchErrors: 3,
	}
}

// flakyStore rejects the next failTaskWrites task updates with ErrDurableStore.
type flakyStore struct {
	*memory.DocumentStore
	failTaskWrites atomic.Int32
}

var _ driven.DocumentStore = (*flakyStore)(nil)

func (s *flakyStore) UpdateOne(ctx context.Context, c string, f driven.Filter, set driven.Document, upsert bool) error {
	if c == domain.CollectionTasks && s.failTaskWrites.Add(-1) >= 0 {
		return fmt.Errorf("%w: write concern error", domain.ErrDurableStore)
	}
	return s.DocumentStore.UpdateOne(ctx, c, f, set, upsert)
}

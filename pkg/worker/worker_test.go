package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/match-normalizer/pkg/brokers"
	"github.com/ruslano69/match-normalizer/pkg/etl"
	"github.com/ruslano69/match-normalizer/pkg/events"
	"github.com/ruslano69/match-normalizer/pkg/processors"
	"github.com/ruslano69/match-normalizer/pkg/storage"
)

// fakeConsumer отдает заранее заданные сообщения, затем отменяет контекст
type fakeConsumer struct {
	mu       sync.Mutex
	messages [][]byte
	cancel   context.CancelFunc
	acks     int
	nacks    []bool
}

func (f *fakeConsumer) Connect(context.Context) error { return nil }
func (f *fakeConsumer) Close() error                  { return nil }
func (f *fakeConsumer) Ping(context.Context) error    { return nil }
func (f *fakeConsumer) Type() string                  { return "fake" }

func (f *fakeConsumer) Receive(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		f.cancel()
		return nil, ctx.Err()
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	if msg == nil {
		return nil, brokers.ErrNoMessage
	}
	return msg, nil
}

func (f *fakeConsumer) Ack(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks++
	return nil
}

func (f *fakeConsumer) Nack(_ context.Context, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacks = append(f.nacks, requeue)
	return nil
}

type fakeRunner struct {
	refs []events.ObjectRef
	err  error
}

func (r *fakeRunner) Run(_ context.Context, ref events.ObjectRef) (*etl.Report, error) {
	r.refs = append(r.refs, ref)
	report := &etl.Report{Source: ref, State: etl.StateDone}
	if r.err != nil {
		report.State = etl.StateFailed
		report.FailedState = etl.StateTransforming
		return report, r.err
	}
	return report, nil
}

type fakePublisher struct {
	sent [][]byte
	err  error
}

func (p *fakePublisher) Send(_ context.Context, msg []byte) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

func s3Event(keys ...string) []byte {
	body := `{"Records":[`
	for i, k := range keys {
		if i > 0 {
			body += ","
		}
		body += `{"eventSource":"aws:s3","s3":{"bucket":{"name":"transient"},"object":{"key":"` + k + `"}}}`
	}
	return []byte(body + `]}`)
}

func runWorker(t *testing.T, messages [][]byte, runner Runner, opts Options) (*fakeConsumer, *Worker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	consumer := &fakeConsumer{messages: messages, cancel: cancel}
	opts.Logger = zerolog.Nop()
	opts.IdleWait = time.Millisecond
	w := New(consumer, runner, opts)

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return consumer, w
}

func TestWorker_AcksSuccessfulRuns(t *testing.T) {
	runner := &fakeRunner{}
	consumer, w := runWorker(t, [][]byte{
		s3Event("ligue1/a.json"),
		nil, // пустой опрос
		s3Event("ligue1/b+c.json", "ligue1/ignored.json"),
	}, runner, Options{})

	if len(runner.refs) != 2 {
		t.Fatalf("runner called %d times, want 2", len(runner.refs))
	}
	if runner.refs[1].Key != "ligue1/b c.json" {
		t.Errorf("second key = %q, want decoded key", runner.refs[1].Key)
	}
	if consumer.acks != 2 || len(consumer.nacks) != 0 {
		t.Errorf("acks = %d, nacks = %v", consumer.acks, consumer.nacks)
	}

	stats := w.Stats()
	if stats.Received != 2 || stats.Succeeded != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestWorker_Failures(t *testing.T) {
	runErr := errors.New("transform failed")

	tests := []struct {
		name       string
		message    []byte
		runErr     error
		opts       Options
		dlq        *fakePublisher
		wantAcks   int
		wantNacks  []bool
		wantDLQ    int
		wantRunner int
	}{
		{
			name:       "malformed event is dropped",
			message:    []byte(`{"Records":[]}`),
			wantNacks:  []bool{false},
			wantRunner: 0,
		},
		{
			name:       "run failure without requeue",
			message:    s3Event("a.json"),
			runErr:     runErr,
			wantNacks:  []bool{false},
			wantRunner: 1,
		},
		{
			name:       "run failure with requeue",
			message:    s3Event("a.json"),
			runErr:     runErr,
			opts:       Options{RequeueOnFailure: true},
			wantNacks:  []bool{true},
			wantRunner: 1,
		},
		{
			name:       "run failure goes to dead letter",
			message:    s3Event("a.json"),
			runErr:     runErr,
			dlq:        &fakePublisher{},
			wantAcks:   1,
			wantDLQ:    1,
			wantRunner: 1,
		},
		{
			name:       "dead letter failure keeps message",
			message:    s3Event("a.json"),
			runErr:     runErr,
			dlq:        &fakePublisher{err: errors.New("dlq down")},
			wantNacks:  []bool{true},
			wantRunner: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{err: tt.runErr}
			opts := tt.opts
			if tt.dlq != nil {
				opts.DeadLetter = tt.dlq
			}

			consumer, w := runWorker(t, [][]byte{tt.message}, runner, opts)

			if len(runner.refs) != tt.wantRunner {
				t.Errorf("runner calls = %d, want %d", len(runner.refs), tt.wantRunner)
			}
			if consumer.acks != tt.wantAcks {
				t.Errorf("acks = %d, want %d", consumer.acks, tt.wantAcks)
			}
			if len(consumer.nacks) != len(tt.wantNacks) {
				t.Fatalf("nacks = %v, want %v", consumer.nacks, tt.wantNacks)
			}
			for i := range tt.wantNacks {
				if consumer.nacks[i] != tt.wantNacks[i] {
					t.Errorf("nack[%d] requeue = %v, want %v", i, consumer.nacks[i], tt.wantNacks[i])
				}
			}
			if tt.dlq != nil && len(tt.dlq.sent) != tt.wantDLQ {
				t.Errorf("dead letters = %d, want %d", len(tt.dlq.sent), tt.wantDLQ)
			}
			if got := w.Stats().DeadLettered; got != int64(tt.wantDLQ) {
				t.Errorf("Stats().DeadLettered = %d, want %d", got, tt.wantDLQ)
			}
		})
	}
}

func TestWorker_WithOrchestrator(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Seed("transient", "wwc/day1.json", []byte(`[{"date":"2024-07-20","home_team":"Spain","away_team":"Japan","winner":"D","home_score":1,"away_score":1}]`))
	gw, _ := storage.NewGateway(store, storage.GatewayOptions{})

	config := &etl.Config{
		Division:        "wwc",
		RelevantColumns: map[string]string{"date": "date"},
		IntegerColumns:  []string{"home_score", "away_score"},
		FinalSchema:     []string{"date", "home_team", "away_team", "winner", "home_score", "away_score"},
		WinnerPolicy:    processors.WinnerDrawOnly,
	}
	orch, err := etl.NewOrchestrator(config, etl.Options{
		Storage:             gw,
		NormalizedContainer: "normalized",
		RawContainer:        "raw",
		Logger:              zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	consumer, _ := runWorker(t, [][]byte{s3Event("wwc/day1.json")}, orch, Options{})

	if consumer.acks != 1 {
		t.Errorf("acks = %d, want 1", consumer.acks)
	}
	if len(store.Keys("normalized")) != 1 || len(store.Keys("raw")) != 1 {
		t.Errorf("normalized = %v, raw = %v", store.Keys("normalized"), store.Keys("raw"))
	}
	if len(store.Keys("transient")) != 0 {
		t.Errorf("transient = %v, want empty", store.Keys("transient"))
	}
}

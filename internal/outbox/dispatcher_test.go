package outbox

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubStore struct {
	pending []Message
	sent    []int64
	failed  []int64
	txCount int
}

func (s *stubStore) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	s.txCount++
	return fn(ctx, s)
}

func (s *stubStore) ListPending(ctx context.Context, limit int) ([]Message, error) {
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *stubStore) MarkSent(ctx context.Context, id int64) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *stubStore) MarkFailed(ctx context.Context, id int64, cause string) error {
	s.failed = append(s.failed, id)
	return nil
}

type stubTransport struct {
	published []Message
	failIDs   map[int64]bool
}

func (t *stubTransport) Publish(ctx context.Context, msg Message) error {
	if t.failIDs[msg.ID] {
		return errors.New("downstream unavailable")
	}
	t.published = append(t.published, msg)
	return nil
}

func TestDrainDeliversInOrder(t *testing.T) {
	store := &stubStore{pending: []Message{
		{ID: 1, Topic: "sales", Op: OpUpsert, PublicID: "a"},
		{ID: 2, Topic: "sales", Op: OpUpsert, PublicID: "b"},
		{ID: 3, Topic: "sales", Op: OpDelete, PublicID: "a"},
	}}
	transport := &stubTransport{}
	d := NewDispatcher(store, transport, slog.Default())

	sent, err := d.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, sent)
	require.Equal(t, []int64{1, 2, 3}, store.sent)
	require.Len(t, transport.published, 3)
	require.Equal(t, "a", transport.published[0].PublicID)
}

func TestDrainRunsBatchInOneTransaction(t *testing.T) {
	store := &stubStore{pending: []Message{
		{ID: 1, Topic: "sales", Op: OpUpsert, PublicID: "a"},
		{ID: 2, Topic: "sales", Op: OpUpsert, PublicID: "b"},
	}}
	d := NewDispatcher(store, &stubTransport{}, slog.Default())

	_, err := d.Drain(context.Background())
	require.NoError(t, err)
	// The claim from ListPending must hold until the settlements commit,
	// so the whole batch shares one unit of work.
	require.Equal(t, 1, store.txCount)
	require.Equal(t, []int64{1, 2}, store.sent)
}

func TestDrainSkipsFailedAndContinues(t *testing.T) {
	store := &stubStore{pending: []Message{
		{ID: 1, Topic: "sales", Op: OpUpsert, PublicID: "a"},
		{ID: 2, Topic: "sales", Op: OpUpsert, PublicID: "b"},
	}}
	transport := &stubTransport{failIDs: map[int64]bool{1: true}}
	d := NewDispatcher(store, transport, slog.Default())

	sent, err := d.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Equal(t, []int64{1}, store.failed)
	require.Equal(t, []int64{2}, store.sent)
}

func TestDrainStopsOnCancelledContext(t *testing.T) {
	store := &stubStore{pending: []Message{{ID: 1}, {ID: 2}}}
	transport := &stubTransport{}
	d := NewDispatcher(store, transport, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Drain(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDrainEmptyBacklog(t *testing.T) {
	d := NewDispatcher(&stubStore{}, &stubTransport{}, slog.Default())

	sent, err := d.Drain(context.Background())
	require.NoError(t, err)
	require.Zero(t, sent)
}

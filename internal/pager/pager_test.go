package pager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ChuLiYu/talenthub-cli/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchCall struct {
	page   int
	filter string
}

// sliceSource 以固定資料模擬遠端列表，HasNext 採「頁面已滿」規則
type sliceSource struct {
	mu    sync.Mutex
	data  map[string][]int
	err   error
	calls []fetchCall
}

func (s *sliceSource) Fetch(_ context.Context, page, perPage int, filter string) (api.Page[int], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fetchCall{page, filter})
	if s.err != nil {
		return api.Page[int]{}, s.err
	}
	all := s.data[filter]
	start := (page - 1) * perPage
	if start >= len(all) {
		return api.Page[int]{Items: []int{}, Count: -1}, nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	items := append([]int(nil), all[start:end]...)
	return api.Page[int]{Items: items, HasNext: len(items) == perPage, Count: -1}, nil
}

func (s *sliceSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type staleRecorder struct {
	mu    sync.Mutex
	count int
}

func (r *staleRecorder) RecordStaleResponse(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestInitialState(t *testing.T) {
	f := New[int, string]("jobs", &sliceSource{}, 6, "")
	st := f.State()
	assert.Equal(t, 1, st.Page)
	assert.Empty(t, st.Items)
	assert.NotNil(t, st.Items)
	assert.False(t, st.HasNext)
	assert.False(t, st.HasPrev())
	assert.Equal(t, "jobs", f.Resource())
	assert.Equal(t, 6, f.PerPage())
}

func TestLoadAndPaging(t *testing.T) {
	src := &sliceSource{data: map[string][]int{"": seq(5)}}
	f := New[int, string]("jobs", src, 2, "")
	ctx := context.Background()

	require.NoError(t, f.Load(ctx))
	assert.Equal(t, []int{1, 2}, f.State().Items)
	assert.True(t, f.State().HasNext)

	require.NoError(t, f.Next(ctx))
	require.NoError(t, f.Next(ctx))
	st := f.State()
	assert.Equal(t, 3, st.Page)
	assert.Equal(t, []int{5}, st.Items)
	assert.False(t, st.HasNext)

	// 沒有下一頁時 Next 不發出請求
	calls := src.callCount()
	require.NoError(t, f.Next(ctx))
	assert.Equal(t, calls, src.callCount())
	assert.Equal(t, 3, f.State().Page)

	require.NoError(t, f.Prev(ctx))
	assert.Equal(t, 2, f.State().Page)
	assert.Equal(t, []int{3, 4}, f.State().Items)
}

// TestPrevAtFirstPageIsNoop 頁碼永遠不小於 1
func TestPrevAtFirstPageIsNoop(t *testing.T) {
	src := &sliceSource{data: map[string][]int{"": seq(3)}}
	f := New[int, string]("jobs", src, 2, "")
	ctx := context.Background()

	require.NoError(t, f.Load(ctx))
	for i := 0; i < 3; i++ {
		require.NoError(t, f.Prev(ctx))
	}
	assert.Equal(t, 1, f.State().Page)
	assert.Equal(t, 1, src.callCount())

	require.NoError(t, f.GoTo(ctx, -4))
	assert.Equal(t, 1, f.State().Page)
}

// TestEmptyPageResetsOnce 非首頁回應為空時回到第 1 頁並只重新載入一次
func TestEmptyPageResetsOnce(t *testing.T) {
	src := &sliceSource{data: map[string][]int{"": seq(4)}}
	f := New[int, string]("jobs", src, 2, "")
	ctx := context.Background()

	require.NoError(t, f.Load(ctx))
	require.NoError(t, f.Next(ctx))
	assert.True(t, f.State().HasNext, "an exactly full last page reports a successor")

	require.NoError(t, f.Next(ctx))
	st := f.State()
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, []int{1, 2}, st.Items)
	assert.Equal(t, []fetchCall{{1, ""}, {2, ""}, {3, ""}, {1, ""}}, src.calls)
}

func TestEmptyCollectionDoesNotLoop(t *testing.T) {
	src := &sliceSource{data: map[string][]int{}}
	f := New[int, string]("jobs", src, 2, "")

	require.NoError(t, f.GoTo(context.Background(), 4))
	assert.Equal(t, 1, f.State().Page)
	assert.Empty(t, f.State().Items)
	assert.Equal(t, []fetchCall{{4, ""}, {1, ""}}, src.calls)
}

func TestFailureClearsState(t *testing.T) {
	src := &sliceSource{data: map[string][]int{"": seq(5)}}
	f := New[int, string]("jobs", src, 2, "")
	ctx := context.Background()
	require.NoError(t, f.Load(ctx))
	require.NotEmpty(t, f.State().Items)

	boom := errors.New("boom")
	src.err = boom
	err := f.Next(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, f.Err(), boom)

	st := f.State()
	assert.Empty(t, st.Items)
	assert.False(t, st.HasNext)
	assert.Equal(t, 2, st.Page)
	assert.Equal(t, 2, src.callCount(), "failures are never retried")

	src.err = nil
	require.NoError(t, f.Load(ctx))
	assert.NoError(t, f.Err())
	assert.Equal(t, []int{3, 4}, f.State().Items)
}

func TestSetFilterResetsPage(t *testing.T) {
	src := &sliceSource{data: map[string][]int{
		"applied":     seq(5),
		"shortlisted": {42},
	}}
	f := New[int, string]("applications", src, 2, "applied")
	ctx := context.Background()

	require.NoError(t, f.Load(ctx))
	require.NoError(t, f.Next(ctx))
	require.Equal(t, 2, f.State().Page)

	require.NoError(t, f.SetFilter(ctx, "shortlisted"))
	st := f.State()
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, []int{42}, st.Items)
	assert.Equal(t, "shortlisted", f.Filter())
	assert.Equal(t, fetchCall{1, "shortlisted"}, src.calls[len(src.calls)-1])
}

func TestMutate(t *testing.T) {
	src := &sliceSource{data: map[string][]int{"": seq(3)}}
	f := New[int, string]("jobs", src, 6, "")
	require.NoError(t, f.Load(context.Background()))

	f.Mutate(func(items []int) []int { return append([]int{0}, items...) })
	assert.Equal(t, []int{0, 1, 2, 3}, f.State().Items)

	f.Mutate(func([]int) []int { return nil })
	assert.NotNil(t, f.State().Items)
	assert.Empty(t, f.State().Items)

	// State 回傳複本，外部修改不影響內部
	f.Mutate(func([]int) []int { return []int{9} })
	st := f.State()
	st.Items[0] = 100
	assert.Equal(t, []int{9}, f.State().Items)
}

// TestStaleResponseIsDiscarded 較舊的回應不會覆蓋較新的頁面
func TestStaleResponseIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var slowCanceled bool

	src := SourceFunc[int, string](func(ctx context.Context, page, perPage int, filter string) (api.Page[int], error) {
		if filter == "slow" {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
				slowCanceled = true
			}
			return api.Page[int]{Items: []int{-1}}, ctx.Err()
		}
		return api.Page[int]{Items: []int{7}}, nil
	})
	rec := &staleRecorder{}
	f := New[int, string]("jobs", src, 6, "slow", WithRecorder(rec))

	done := make(chan error, 1)
	go func() { done <- f.Load(context.Background()) }()
	<-started

	require.NoError(t, f.SetFilter(context.Background(), "fast"))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("superseded load was not canceled")
	}

	assert.True(t, slowCanceled, "superseded request context is canceled")
	assert.Equal(t, []int{7}, f.State().Items)
	assert.NoError(t, f.Err())
	assert.Equal(t, 1, rec.count)
}

func TestCloseDiscardsInFlight(t *testing.T) {
	started := make(chan struct{})
	src := SourceFunc[int, string](func(ctx context.Context, page, perPage int, filter string) (api.Page[int], error) {
		close(started)
		<-ctx.Done()
		return api.Page[int]{}, ctx.Err()
	})
	f := New[int, string]("jobs", src, 6, "")

	done := make(chan error, 1)
	go func() { done <- f.Load(context.Background()) }()
	<-started
	f.Close()

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.NoError(t, f.Err())
}

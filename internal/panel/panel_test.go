package panel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ChuLiYu/talenthub-cli/internal/api"
	"github.com/ChuLiYu/talenthub-cli/internal/pager"
	"github.com/ChuLiYu/talenthub-cli/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryJobs 以記憶體模擬職缺資源
type memoryJobs struct {
	jobs      []types.Job
	nextID    int64
	err       error
	deletes   []int64
	createdAt time.Time
}

func (m *memoryJobs) Fetch(_ context.Context, page, perPage int, _ struct{}) (api.Page[types.Job], error) {
	start := (page - 1) * perPage
	if start >= len(m.jobs) {
		return api.Page[types.Job]{Items: []types.Job{}}, nil
	}
	end := min(start+perPage, len(m.jobs))
	items := append([]types.Job(nil), m.jobs[start:end]...)
	return api.Page[types.Job]{Items: items, HasNext: len(items) == perPage}, nil
}

func (m *memoryJobs) Create(_ context.Context, in api.JobInput) (types.Job, error) {
	if m.err != nil {
		return types.Job{}, m.err
	}
	m.nextID++
	job := types.Job{ID: m.nextID, Title: in.Title, Salary: in.Salary, SalaryConfidential: in.SalaryConfidential, CreatedAt: m.createdAt}
	m.jobs = append([]types.Job{job}, m.jobs...)
	return job, nil
}

func (m *memoryJobs) Update(_ context.Context, id int64, in api.JobInput) (types.Job, error) {
	if m.err != nil {
		return types.Job{}, m.err
	}
	for i, job := range m.jobs {
		if job.ID == id {
			// 伺服器的表示法可能與送出的不同（例如修剪空白）
			job.Title = in.Title + " (edited)"
			job.Salary = in.Salary
			m.jobs[i] = job
			return job, nil
		}
	}
	return types.Job{}, api.ErrNotFound
}

func (m *memoryJobs) Delete(_ context.Context, id int64) error {
	m.deletes = append(m.deletes, id)
	return m.err
}

type mutation struct {
	kind string
	ok   bool
}

type fakeRecorder struct{ mutations []mutation }

func (f *fakeRecorder) RecordMutation(kind string, err error) {
	f.mutations = append(f.mutations, mutation{kind, err == nil})
}

type journalEntry struct {
	kind string
	id   int64
}

type fakeJournal struct {
	entries []journalEntry
	err     error
}

func (f *fakeJournal) Record(_ context.Context, kind string, id int64, _ any) error {
	f.entries = append(f.entries, journalEntry{kind, id})
	return f.err
}

type fixture struct {
	store    *memoryJobs
	list     *pager.Fetcher[types.Job, struct{}]
	notifier *Notifier
	notes    []Notification
	recorder *fakeRecorder
	journal  *fakeJournal
	panel    *Panel[types.Job, api.JobInput]
}

func newFixture(t *testing.T, n int, confirmer Confirmer) *fixture {
	t.Helper()
	f := &fixture{store: &memoryJobs{}, recorder: &fakeRecorder{}, journal: &fakeJournal{}}
	for i := 0; i < n; i++ {
		f.store.Create(context.Background(), api.JobInput{Title: "seed"})
	}
	f.list = pager.New[types.Job, struct{}]("jobs", f.store, 6, struct{}{})
	require.NoError(t, f.list.Load(context.Background()))
	f.notifier = NewNotifier(0, func(n Notification) { f.notes = append(f.notes, n) })
	f.panel = New[types.Job, api.JobInput]("job", f.store, f.list, f.notifier, confirmer,
		WithRecorder(f.recorder), WithJournal(f.journal))
	return f
}

func (f *fixture) ids() []int64 {
	var ids []int64
	for _, job := range f.list.State().Items {
		ids = append(ids, job.ID)
	}
	return ids
}

func TestCreatePrepends(t *testing.T) {
	f := newFixture(t, 2, nil)

	job, err := f.panel.Submit(context.Background(), api.JobInput{Title: "Backend Engineer", Salary: types.NewSalary(120000)}, 0)
	require.NoError(t, err)

	items := f.list.State().Items
	require.Len(t, items, 3)
	assert.Equal(t, job, items[0])
	assert.Equal(t, "Backend Engineer", items[0].Title)
	assert.Equal(t, []mutation{{"job.create", true}}, f.recorder.mutations)
	assert.Equal(t, []journalEntry{{"job.create", job.ID}}, f.journal.entries)
	require.Len(t, f.notes, 1)
	assert.Equal(t, Notification{Level: LevelSuccess, Message: "Job created successfully", At: f.notes[0].At}, f.notes[0])
}

// TestUpdateReplacesInPlace 修改後列表只有一筆該 id，內容等於伺服器回傳，筆數不變
func TestUpdateReplacesInPlace(t *testing.T) {
	f := newFixture(t, 3, nil)
	before := f.ids()
	target := before[1]

	updated, err := f.panel.Submit(context.Background(), api.JobInput{Title: "Renamed", Salary: types.NewSalary(5)}, target)
	require.NoError(t, err)

	items := f.list.State().Items
	assert.Equal(t, before, f.ids(), "order and count unchanged")
	matches := 0
	for _, job := range items {
		if job.ID == target {
			matches++
			assert.Equal(t, updated, job)
			assert.Equal(t, "Renamed (edited)", job.Title)
		}
	}
	assert.Equal(t, 1, matches)
	assert.Equal(t, "Job updated successfully", f.notes[len(f.notes)-1].Message)
}

// TestDeleteRemovesExactlyOne 刪除後不再包含該 id，筆數減一
func TestDeleteRemovesExactlyOne(t *testing.T) {
	f := newFixture(t, 3, nil)
	before := f.ids()

	require.NoError(t, f.panel.Delete(context.Background(), before[0]))
	after := f.ids()
	assert.Len(t, after, len(before)-1)
	assert.NotContains(t, after, before[0])
	assert.Equal(t, "Job deleted successfully", f.notes[len(f.notes)-1].Message)
	assert.Equal(t, []journalEntry{{"job.delete", before[0]}}, f.journal.entries)
}

func TestDeleteDeclinedSendsNothing(t *testing.T) {
	var prompt string
	decline := ConfirmFunc(func(_ context.Context, p string) (bool, error) {
		prompt = p
		return false, nil
	})
	f := newFixture(t, 2, decline)
	before := f.ids()

	err := f.panel.Delete(context.Background(), before[0])
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Equal(t, "Are you sure you want to delete this job?", prompt)
	assert.Empty(t, f.store.deletes)
	assert.Equal(t, before, f.ids())
	assert.Empty(t, f.notes)
	assert.Empty(t, f.recorder.mutations)
}

func TestConfirmErrorAborts(t *testing.T) {
	boom := errors.New("stdin closed")
	f := newFixture(t, 1, ConfirmFunc(func(context.Context, string) (bool, error) { return false, boom }))

	err := f.panel.Delete(context.Background(), f.ids()[0])
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.store.deletes)
}

// TestFailureLeavesStateUnchanged 失敗時只發出錯誤通知
func TestFailureLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, 2, nil)
	before := f.list.State().Items
	f.store.err = api.ErrForbidden

	_, err := f.panel.Submit(context.Background(), api.JobInput{Title: "x"}, 0)
	assert.ErrorIs(t, err, api.ErrForbidden)
	_, err = f.panel.Submit(context.Background(), api.JobInput{Title: "x"}, before[0].ID)
	assert.ErrorIs(t, err, api.ErrForbidden)
	err = f.panel.Delete(context.Background(), before[0].ID)
	assert.ErrorIs(t, err, api.ErrForbidden)

	assert.Equal(t, before, f.list.State().Items)
	require.Len(t, f.notes, 3)
	for _, n := range f.notes {
		assert.Equal(t, LevelError, n.Level)
	}
	assert.Equal(t, "Failed to save job", f.notes[0].Message)
	assert.Equal(t, "Failed to delete job", f.notes[2].Message)
	assert.Equal(t, []mutation{{"job.create", false}, {"job.update", false}, {"job.delete", false}}, f.recorder.mutations)
	assert.Empty(t, f.journal.entries)
}

func TestJournalFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t, 0, nil)
	f.journal.err = errors.New("disk full")

	_, err := f.panel.Submit(context.Background(), api.JobInput{Title: "x"}, 0)
	assert.NoError(t, err)
	assert.Len(t, f.list.State().Items, 1)
}

func TestNotifierTTL(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := NewNotifier(0, nil)
	n.now = func() time.Time { return start }

	_, ok := n.Current(start)
	assert.False(t, ok)

	n.Error("Failed to save job")
	note, ok := n.Current(start.Add(2 * time.Second))
	require.True(t, ok)
	assert.Equal(t, LevelError, note.Level)
	assert.Equal(t, "Failed to save job", note.Message)

	_, ok = n.Current(start.Add(DefaultTTL))
	assert.False(t, ok, "expired after the ttl")

	n.Success("again")
	n.Clear()
	_, ok = n.Current(start)
	assert.False(t, ok)
}

package scraper_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/hh-collector/internal/logging"
	"jobmate/hh-collector/internal/model"
	"jobmate/hh-collector/internal/scraper"
)

// memStore mimics the store's conflict rules: employers unique by external
// id, postings unique by (employer, url).
type memStore struct {
	employers map[string]int64
	names     map[int64]string
	postings  map[int64]map[string]model.Vacancy
	failURL   string
	upsertErr error
}

func newMemStore() *memStore {
	return &memStore{
		employers: map[string]int64{},
		names:     map[int64]string{},
		postings:  map[int64]map[string]model.Vacancy{},
	}
}

func (m *memStore) UpsertEmployer(_ context.Context, externalID, name string) (int64, error) {
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	id, ok := m.employers[externalID]
	if !ok {
		id = int64(len(m.employers) + 1)
		m.employers[externalID] = id
		m.postings[id] = map[string]model.Vacancy{}
	}
	m.names[id] = name
	return id, nil
}

func (m *memStore) InsertPosting(_ context.Context, employerID int64, v model.Vacancy) (bool, error) {
	if v.AlternateURL == m.failURL {
		return false, errors.New("value too long")
	}
	if _, ok := m.postings[employerID][v.AlternateURL]; ok {
		return false, nil
	}
	m.postings[employerID][v.AlternateURL] = v
	return true, nil
}

func (m *memStore) total() int {
	n := 0
	for _, p := range m.postings {
		n += len(p)
	}
	return n
}

type recordingNotifier struct {
	summaries []model.SyncSummary
	err       error
}

func (r *recordingNotifier) SyncCompleted(_ context.Context, s model.SyncSummary) error {
	r.summaries = append(r.summaries, s)
	return r.err
}

func vac(id, title string) model.Vacancy {
	return model.Vacancy{ID: id, Name: title, AlternateURL: "https://hh.ru/vacancy/" + id}
}

func TestWorkerRun_IdempotentAcrossRuns(t *testing.T) {
	src := &fakeSource{vacancies: map[string][]model.Vacancy{
		"1": {vac("1", "Go Developer"), vac("2", "Analyst")},
		"2": {vac("3", "QA")},
	}}
	st := newMemStore()
	w := scraper.NewWorker(st, scraper.NewCollector(src, logging.NewNop()), nil, nil, logging.NewNop())
	employers := []model.Employer{acme, globex}

	first, err := w.Run(context.Background(), employers)
	require.NoError(t, err)
	second, err := w.Run(context.Background(), employers)
	require.NoError(t, err)

	assert.Equal(t, 3, first.Inserted)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Duplicates)
	assert.Len(t, st.employers, 2)
	assert.Equal(t, 3, st.total())
}

func TestWorkerRun_FailedEmployerKeepsOthers(t *testing.T) {
	src := &fakeSource{
		vacancies: map[string][]model.Vacancy{"2": {vac("3", "QA")}},
		fail:      map[string]bool{"1": true},
	}
	st := newMemStore()
	n := &recordingNotifier{}
	w := scraper.NewWorker(st, scraper.NewCollector(src, logging.NewNop()), n, nil, logging.NewNop())

	summary, err := w.Run(context.Background(), []model.Employer{acme, globex})
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, summary.FailedEmployers)
	assert.Equal(t, 1, summary.Inserted)
	assert.Len(t, st.postings[st.employers["2"]], 1)
	assert.Contains(t, st.employers, "1", "failed employer is still registered")
	require.Len(t, n.summaries, 1)
	assert.Equal(t, summary, n.summaries[0])
}

func TestWorkerRun_ExcludedTitlesAndInsertErrors(t *testing.T) {
	src := &fakeSource{vacancies: map[string][]model.Vacancy{
		"1": {vac("1", "Go Developer"), vac("2", "Intern Analyst"), vac("3", "Broken")},
	}}
	st := newMemStore()
	st.failURL = "https://hh.ru/vacancy/3"
	w := scraper.NewWorker(st, scraper.NewCollector(src, logging.NewNop()), nil, []string{"intern"}, logging.NewNop())

	summary, err := w.Run(context.Background(), []model.Employer{acme})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Filtered)
	assert.Equal(t, 1, summary.Errors)
	assert.NotEmpty(t, summary.StartedAt)
	assert.NotEmpty(t, summary.FinishedAt)
}

func TestWorkerRun_UpsertFailureIsFatal(t *testing.T) {
	src := &fakeSource{}
	st := newMemStore()
	st.upsertErr = errors.New("connection closed")
	w := scraper.NewWorker(st, scraper.NewCollector(src, logging.NewNop()), nil, nil, logging.NewNop())

	_, err := w.Run(context.Background(), []model.Employer{acme})
	require.Error(t, err)
	assert.Empty(t, src.calls, "no fetch when employers cannot be stored")
}

func TestWorkerRun_NotifierErrorIgnored(t *testing.T) {
	src := &fakeSource{vacancies: map[string][]model.Vacancy{"1": {vac("1", "Dev")}}}
	n := &recordingNotifier{err: errors.New("redis down")}
	w := scraper.NewWorker(newMemStore(), scraper.NewCollector(src, logging.NewNop()), n, nil, logging.NewNop())

	summary, err := w.Run(context.Background(), []model.Employer{acme})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
}

// cancellingSource cancels the run once the first employer has been served.
type cancellingSource struct {
	fakeSource
	cancel context.CancelFunc
}

func (c *cancellingSource) FetchVacancies(ctx context.Context, employerID string) ([]model.Vacancy, error) {
	v, err := c.fakeSource.FetchVacancies(ctx, employerID)
	c.cancel()
	return v, err
}

// ctxStore rejects writes once ctx is done, like pgx does.
type ctxStore struct {
	*memStore
	inserts int
}

func (c *ctxStore) InsertPosting(ctx context.Context, employerID int64, v model.Vacancy) (bool, error) {
	c.inserts++
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.memStore.InsertPosting(ctx, employerID, v)
}

func TestWorkerRun_CancelledMidRunReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	many := make([]model.Vacancy, 0, 500)
	for i := 0; i < 500; i++ {
		many = append(many, vac(fmt.Sprint(i), "Operator"))
	}
	src := &cancellingSource{
		fakeSource: fakeSource{vacancies: map[string][]model.Vacancy{"1": many}},
		cancel:     cancel,
	}
	st := &ctxStore{memStore: newMemStore()}
	n := &recordingNotifier{}
	w := scraper.NewWorker(st, scraper.NewCollector(src, logging.NewNop()), n, nil, logging.NewNop())

	summary, err := w.Run(ctx, []model.Employer{acme, globex})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"1"}, src.calls, "second employer is not fetched")
	assert.Zero(t, st.inserts, "no insert is attempted after cancellation")
	assert.Zero(t, summary.Errors)
	assert.Empty(t, n.summaries)
}

package menu_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/hh-collector/internal/menu"
	"jobmate/hh-collector/internal/model"
)

type fakeQueries struct {
	companies []model.CompanyCount
	postings  []model.Posting
	avg       float64
	hasAvg    bool
	keywords  []string
	err       error
}

func (f *fakeQueries) CompaniesWithPostingCounts(context.Context) ([]model.CompanyCount, error) {
	return f.companies, f.err
}

func (f *fakeQueries) AllPostings(context.Context) ([]model.Posting, error) {
	return f.postings, f.err
}

func (f *fakeQueries) AverageSalary(context.Context) (float64, bool, error) {
	return f.avg, f.hasAvg, f.err
}

func (f *fakeQueries) PostingsAboveAverageSalary(context.Context) ([]model.Posting, error) {
	return f.postings, f.err
}

func (f *fakeQueries) PostingsMatchingKeyword(_ context.Context, keyword string) ([]model.Posting, error) {
	f.keywords = append(f.keywords, keyword)
	return f.postings, f.err
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func run(t *testing.T, q menu.Queries, input string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := menu.New(q, strings.NewReader(input), &out).Run(context.Background())
	return out.String(), err
}

func TestRun_ExitChoice(t *testing.T) {
	out, err := run(t, &fakeQueries{}, "0\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Bye.")
}

func TestRun_EOFExits(t *testing.T) {
	_, err := run(t, &fakeQueries{}, "")
	require.NoError(t, err)
}

func TestRun_InvalidChoiceLoops(t *testing.T) {
	out, err := run(t, &fakeQueries{}, "9\nabc\n0\n")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Invalid choice"))
	assert.Contains(t, out, "Bye.")
}

func TestRun_Companies(t *testing.T) {
	q := &fakeQueries{companies: []model.CompanyCount{{Name: "Acme", Postings: 3}, {Name: "Empty", Postings: 0}}}
	out, err := run(t, q, "1\n0\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "Empty")
}

func TestRun_AverageSalary(t *testing.T) {
	out, err := run(t, &fakeQueries{avg: 125, hasAvg: true}, "3\n0\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Average salary: 125.00")

	out, err = run(t, &fakeQueries{}, "3\n0\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Average salary is not available.")
}

func TestRun_KeywordSearch(t *testing.T) {
	q := &fakeQueries{postings: []model.Posting{{Company: "Acme", Title: "Senior Python Developer", URL: "https://hh.ru/vacancy/1"}}}
	out, err := run(t, q, "5\npython\n0\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"python"}, q.keywords)
	assert.Contains(t, out, "Senior Python Developer")
}

func TestRun_EmptyKeywordMatchesAll(t *testing.T) {
	q := &fakeQueries{postings: []model.Posting{{Company: "Acme", Title: "Java Developer"}}}
	out, err := run(t, q, "5\n\n0\n")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, q.keywords)
	assert.Contains(t, out, "Java Developer")
}

func TestRun_CancelWhileWaitingForInput(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- menu.New(&fakeQueries{}, pr, &out).Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("menu kept waiting for a newline after cancellation")
	}
}

func TestRun_NoPostings(t *testing.T) {
	out, err := run(t, &fakeQueries{}, "2\n4\n0\n")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "No vacancies found."))
}

func TestRun_QueryErrorReturned(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := run(t, &fakeQueries{err: boom}, "2\n0\n")
	assert.ErrorIs(t, err, boom)
}

func TestFormatSalary(t *testing.T) {
	cases := []struct {
		name string
		p    model.Posting
		want string
	}{
		{"both bounds", model.Posting{SalaryLow: intPtr(100), SalaryHigh: intPtr(150), Currency: strPtr("RUR")}, "100 - 150 RUR"},
		{"low only", model.Posting{SalaryLow: intPtr(100)}, "from 100"},
		{"high only", model.Posting{SalaryHigh: intPtr(150), Currency: strPtr("USD")}, "up to 150 USD"},
		{"none", model.Posting{Currency: strPtr("RUR")}, "not specified"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, menu.FormatSalary(c.p))
		})
	}
}

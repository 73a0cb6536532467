// Package menu implements the interactive text menu over the stored
// postings.
package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"jobmate/hh-collector/internal/model"
)

// Queries is the read side of the store used by the menu.
type Queries interface {
	CompaniesWithPostingCounts(ctx context.Context) ([]model.CompanyCount, error)
	AllPostings(ctx context.Context) ([]model.Posting, error)
	AverageSalary(ctx context.Context) (float64, bool, error)
	PostingsAboveAverageSalary(ctx context.Context) ([]model.Posting, error)
	PostingsMatchingKeyword(ctx context.Context, keyword string) ([]model.Posting, error)
}

const prompt = `
Menu:
1. Companies and number of vacancies
2. All vacancies
3. Average salary
4. Vacancies with salary above average
5. Search vacancies by keyword
0. Exit
Choose an action: `

// Menu reads choices from in and writes results to out.
type Menu struct {
	q   Queries
	in  *bufio.Scanner
	out io.Writer

	lines   chan string
	readErr error // written before lines is closed, read only after
}

// New returns a Menu over q.
func New(q Queries, in io.Reader, out io.Writer) *Menu {
	return &Menu{q: q, in: bufio.NewScanner(in), out: out}
}

// Run loops until the user picks 0, input ends or ctx is done. Input is read
// in its own goroutine so a cancelled ctx (Ctrl+C) ends the menu at once,
// without waiting for a newline. Query errors are returned; invalid choices
// are reported and the loop continues.
func (m *Menu) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.startReader(ctx)

	for {
		fmt.Fprint(m.out, prompt)
		choice, ok, err := m.readLine(ctx)
		if !ok {
			fmt.Fprintln(m.out)
			return err
		}

		switch choice {
		case "1":
			err = m.companies(ctx)
		case "2":
			err = m.allPostings(ctx)
		case "3":
			err = m.averageSalary(ctx)
		case "4":
			err = m.aboveAverage(ctx)
		case "5":
			fmt.Fprint(m.out, "Enter keyword: ")
			var keyword string
			keyword, ok, err = m.readLine(ctx)
			if !ok {
				fmt.Fprintln(m.out)
				return err
			}
			err = m.keywordSearch(ctx, keyword)
		case "0":
			fmt.Fprintln(m.out, "Bye.")
			return nil
		default:
			fmt.Fprintln(m.out, "Invalid choice, try again.")
		}
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(m.out)
				return nil
			}
			return err
		}
	}
}

func (m *Menu) startReader(ctx context.Context) {
	m.lines = make(chan string)
	go func() {
		defer close(m.lines)
		for m.in.Scan() {
			select {
			case m.lines <- strings.TrimSpace(m.in.Text()):
			case <-ctx.Done():
				return
			}
		}
		m.readErr = m.in.Err()
	}()
}

// readLine returns the next input line; ok is false once input ends or ctx
// is done. A cancelled ctx is a normal exit, not an error.
func (m *Menu) readLine(ctx context.Context) (line string, ok bool, err error) {
	select {
	case <-ctx.Done():
		return "", false, nil
	case line, ok = <-m.lines:
		if !ok {
			return "", false, m.readErr
		}
		return line, true, nil
	}
}

func (m *Menu) companies(ctx context.Context) error {
	rows, err := m.q.CompaniesWithPostingCounts(ctx)
	if err != nil {
		return err
	}

	t := m.newTable()
	t.AppendHeader(table.Row{"Company", "Vacancies"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Name, r.Postings})
	}
	t.Render()
	return nil
}

func (m *Menu) allPostings(ctx context.Context) error {
	rows, err := m.q.AllPostings(ctx)
	if err != nil {
		return err
	}
	m.renderPostings(rows)
	return nil
}

func (m *Menu) averageSalary(ctx context.Context) error {
	avg, ok, err := m.q.AverageSalary(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(m.out, "Average salary is not available.")
		return nil
	}
	fmt.Fprintf(m.out, "Average salary: %.2f\n", avg)
	return nil
}

func (m *Menu) aboveAverage(ctx context.Context) error {
	rows, err := m.q.PostingsAboveAverageSalary(ctx)
	if err != nil {
		return err
	}
	m.renderPostings(rows)
	return nil
}

// keywordSearch passes an empty keyword through; it matches every posting.
func (m *Menu) keywordSearch(ctx context.Context, keyword string) error {
	rows, err := m.q.PostingsMatchingKeyword(ctx, keyword)
	if err != nil {
		return err
	}
	m.renderPostings(rows)
	return nil
}

func (m *Menu) renderPostings(rows []model.Posting) {
	if len(rows) == 0 {
		fmt.Fprintln(m.out, "No vacancies found.")
		return
	}

	t := m.newTable()
	t.AppendHeader(table.Row{"Company", "Vacancy", "Salary", "URL"})
	for _, p := range rows {
		t.AppendRow(table.Row{p.Company, p.Title, FormatSalary(p), p.URL})
	}
	t.AppendFooter(table.Row{"", "Total", len(rows), ""})
	t.Render()
}

func (m *Menu) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(m.out)
	t.SetStyle(table.StyleLight)
	return t
}

// FormatSalary renders the salary range of a posting, e.g. "100 - 150 RUR",
// "from 100 RUR", "up to 150" or "not specified".
func FormatSalary(p model.Posting) string {
	var s string
	switch {
	case p.SalaryLow != nil && p.SalaryHigh != nil:
		s = strconv.Itoa(*p.SalaryLow) + " - " + strconv.Itoa(*p.SalaryHigh)
	case p.SalaryLow != nil:
		s = "from " + strconv.Itoa(*p.SalaryLow)
	case p.SalaryHigh != nil:
		s = "up to " + strconv.Itoa(*p.SalaryHigh)
	default:
		return "not specified"
	}
	if p.Currency != nil && *p.Currency != "" {
		s += " " + *p.Currency
	}
	return s
}

// Package model defines shared data structures for the collector.
package model

// Employer is a hiring organisation tracked by the collector, keyed by its
// hh.ru identifier.
type Employer struct {
	ExternalID string
	Name       string
}

// DefaultEmployers returns the employer set collected when HH_EMPLOYERS is
// not configured.
func DefaultEmployers() []Employer {
	return []Employer{
		{ExternalID: "3529", Name: "СБЕР"},
		{ExternalID: "117712", Name: "ГСП-2"},
		{ExternalID: "5599", Name: "Лаборатория Гемотест"},
		{ExternalID: "1655568", Name: "Пингвин"},
		{ExternalID: "913808", Name: "CarMoney"},
		{ExternalID: "1466637", Name: "Davines Russia"},
		{ExternalID: "3447886", Name: "Крекер"},
		{ExternalID: "3383990", Name: "Жёлтый слон"},
		{ExternalID: "1706785", Name: "Центр Афродита"},
		{ExternalID: "2949717", Name: "Кировский Шинный Завод"},
	}
}

// Vacancy is a single posting as returned by the hh.ru vacancies endpoint.
// Only the fields the collector stores are decoded.
type Vacancy struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Salary       *Salary `json:"salary"`
	AlternateURL string  `json:"alternate_url"`
}

// Salary is the optional salary block of a vacancy. Any bound may be null.
type Salary struct {
	From     *int    `json:"from"`
	To       *int    `json:"to"`
	Currency *string `json:"currency"`
}

// SalaryBounds returns the salary bounds and currency, nil where absent.
func (v Vacancy) SalaryBounds() (low, high *int, currency *string) {
	if v.Salary == nil {
		return nil, nil, nil
	}
	return v.Salary.From, v.Salary.To, v.Salary.Currency
}

// EmployerInfo is the subset of GET /employers/{id} shown by the CLI.
type EmployerInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SiteURL       string `json:"site_url"`
	AlternateURL  string `json:"alternate_url"`
	OpenVacancies int    `json:"open_vacancies"`
}

// CompanyCount is one row of the companies-with-posting-counts query.
type CompanyCount struct {
	Name     string
	Postings int64
}

// Posting is a stored posting joined with its employer's name.
type Posting struct {
	Company    string
	Title      string
	SalaryLow  *int
	SalaryHigh *int
	Currency   *string
	URL        string
}

// Midpoint returns (low+high)/2 and whether both bounds are present.
func (p Posting) Midpoint() (float64, bool) {
	if p.SalaryLow == nil || p.SalaryHigh == nil {
		return 0, false
	}
	return float64(*p.SalaryLow+*p.SalaryHigh) / 2, true
}

// SyncSummary reports the outcome of one ingestion run.
type SyncSummary struct {
	Employers       int      `json:"employers"`
	FailedEmployers []string `json:"failedEmployers,omitempty"`
	Fetched         int      `json:"fetched"`
	Inserted        int      `json:"inserted"`
	Duplicates      int      `json:"duplicates"`
	Filtered        int      `json:"filtered"`
	Errors          int      `json:"errors"`
	StartedAt       string   `json:"startedAt"`
	FinishedAt      string   `json:"finishedAt"`
}

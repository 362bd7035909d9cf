package engine

import "time"

// IDX table names recognized by the table detectors. Any other table falls
// back to the generic detector set.
const (
	TableAnnualFinancials    = "idx_combine_financials_annual"
	TableQuarterlyFinancials = "idx_combine_financials_quarterly"
	TableDailyData           = "idx_daily_data"
	TableDividend            = "idx_dividend"
	TableAllTimePrice        = "idx_all_time_price"
)

// TableInfo describes one validatable table for the catalog endpoint.
type TableInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry maps table names to their table detectors, replacing the
// per-table branching of a switch with a capability lookup so each
// detector's rule knowledge stays isolated.
type Registry struct {
	detectors []TableDetector
	catalog   []TableInfo
}

// NewRegistry builds the registry of the five IDX table detectors. daily is
// the sibling fetcher handed to the dividend detector; now is the clock used
// by time-window detectors and may be nil for the wall clock.
func NewRegistry(daily SiblingFetcher, now func() time.Time) *Registry {
	return &Registry{
		detectors: []TableDetector{
			NewAnnualFinancialsDetector(),
			NewQuarterlyFinancialsDetector(),
			NewDailyPriceDetector(now),
			NewDividendDetector(daily, now),
			NewAllTimePriceDetector(),
		},
		catalog: []TableInfo{
			{Name: TableAnnualFinancials, Description: "Annual financial data"},
			{Name: TableQuarterlyFinancials, Description: "Quarterly financial data"},
			{Name: TableDailyData, Description: "Daily stock price data"},
			{Name: TableDividend, Description: "Dividend data"},
			{Name: TableAllTimePrice, Description: "All-time price data"},
		},
	}
}

// Lookup returns the detector claiming the table, if any.
func (r *Registry) Lookup(table string) (TableDetector, bool) {
	for _, det := range r.detectors {
		if det.Supports(table) {
			return det, true
		}
	}
	return nil, false
}

// Tables lists the tables the registry knows about.
func (r *Registry) Tables() []TableInfo {
	return r.catalog
}

// IsDomainTable reports whether the table belongs to the IDX table set.
func IsDomainTable(table string) bool {
	switch table {
	case TableAnnualFinancials, TableQuarterlyFinancials, TableDailyData, TableDividend, TableAllTimePrice:
		return true
	}
	return false
}

// ValidTableName reports whether name is a plain SQL identifier: letters,
// digits and underscores, not starting with a digit, at most 63 bytes.
// Tables passing this check but absent from the catalog still run, on the
// generic detector set.
func ValidTableName(name string) bool {
	if name == "" || len(name) > 63 {
		return false
	}
	for i, ch := range name {
		switch {
		case ch == '_':
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

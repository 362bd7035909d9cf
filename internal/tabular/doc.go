// Package tabular implements the data source adapters that feed datasets to
// the validation engine: a Postgres source for the live tables and an Excel
// workbook source for offline file validation. Both return an empty dataset,
// never an error, when the requested table simply does not exist.
package tabular

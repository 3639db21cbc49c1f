// Package exporter writes downloaded DATRAS tables to disk.
//
// Two formats are supported: CSV with a UTF-8 BOM for Excel compatibility,
// and native XLSX workbooks via excelize. Both writers take the generic
// table produced by the download loop, so any dataset type exports the
// same way regardless of which fields the service returned.
package exporter

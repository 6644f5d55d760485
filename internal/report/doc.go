// Package report renders pipeline results for people: console tables for the
// operator and an optional XLSX workbook for the BI tool.
//
// Console output uses go-pretty tables. Colors are applied only when the
// destination is a terminal.
package report

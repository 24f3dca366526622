package importer

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// Format is an import file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported import format")

// DetectFormat picks the format from a file name or content type.
func DetectFormat(filename, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	switch {
	case strings.HasPrefix(contentType, "text/csv"):
		return FormatCSV, nil
	case strings.Contains(contentType, "spreadsheetml"):
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// Parse dispatches to the reader for format.
func Parse(r io.Reader, format Format) (Result, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(r)
	case FormatXLSX:
		return ParseXLSX(r)
	default:
		return Result{}, ErrUnsupportedFormat
	}
}

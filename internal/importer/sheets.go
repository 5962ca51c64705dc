// Package importer reads CSV and XLSX uploads into sheets, detects header
// rows and column roles, and writes value mapping exports.
package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/agentstation/refdata/pkg/errors"
)

// Format is a supported spreadsheet format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Content types written for each format.
const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrUnsupportedFile is reported for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFile = errors.Invalidf("Unsupported file type. Upload a CSV or Excel file.")

// Sheet is one grid of cells. Row numbers are 1-based positions in the source.
type Sheet struct {
	Name string
	Rows [][]string
}

var metadataSheets = map[string]struct{}{
	"metadata":     {},
	"notes":        {},
	"readme":       {},
	"instructions": {},
	"about":        {},
}

// DetectFormat picks the format from the file extension, then the content type.
func DetectFormat(filename, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "csv"):
		return FormatCSV, nil
	case strings.Contains(ct, "spreadsheetml"), strings.Contains(ct, "excel"):
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFile
}

// ReadSheets reads every sheet of an upload. Sheets whose names mark them as
// metadata are skipped.
func ReadSheets(filename, contentType string, r io.Reader) ([]Sheet, error) {
	format, err := DetectFormat(filename, contentType)
	if err != nil {
		return nil, err
	}
	if format == FormatCSV {
		sheet, err := readCSV(stem(filename), r)
		if err != nil {
			return nil, err
		}
		return []Sheet{sheet}, nil
	}
	return readXLSX(filename, r)
}

func readCSV(name string, r io.Reader) (Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Sheet{}, errors.WrapIO("read", name, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return Sheet{}, errors.Invalidf("Could not parse CSV file: %v", err)
	}
	return Sheet{Name: name, Rows: rows}, nil
}

func readXLSX(filename string, r io.Reader) ([]Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Invalidf("Could not parse Excel file: %v", err)
	}
	defer func() { _ = f.Close() }()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		if _, skip := metadataSheets[strings.ToLower(strings.TrimSpace(name))]; skip {
			continue
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, errors.WrapParse("xlsx", filename, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

package importer

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
)

func strPtr(s string) *string { return &s }

func readCSVTable(t *testing.T, content string, mapping *Mapping) (Table, Roles) {
	t.Helper()
	sheets, err := ReadSheets("values.csv", "text/csv", strings.NewReader(content))
	require.NoError(t, err)
	table, err := DetectTable(sheets, mapping)
	require.NoError(t, err)
	roles, err := AssignRoles(table.Header, mapping)
	require.NoError(t, err)
	return table, roles
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename, contentType string
		want                  Format
		wantErr               bool
	}{
		{filename: "values.csv", want: FormatCSV},
		{filename: "VALUES.XLSX", want: FormatXLSX},
		{filename: "upload", contentType: "text/csv; charset=utf-8", want: FormatCSV},
		{filename: "upload", contentType: ContentTypeXLSX, want: FormatXLSX},
		{filename: "values.pdf", contentType: "application/pdf", wantErr: true},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.filename, tt.contentType)
		if tt.wantErr {
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRoleFor(t *testing.T) {
	tests := map[string]string{
		"dimension":        RoleDimension,
		"Dimension Name":   RoleDimension,
		"canonical_value":  RoleLabel,
		"Canonical Label":  RoleLabel,
		"Region Name":      RoleLabel,
		"Long Description": RoleDescription,
		"desc":             RoleDescription,
		"Numeric Code":     RoleAttribute,
		"  ":               "",
	}
	for header, want := range tests {
		assert.Equal(t, want, RoleFor(header), header)
	}
}

func TestImportCSVBasic(t *testing.T) {
	table, roles := readCSVTable(t, "dimension,label,code\nbulk,Value A,A1\n,Value B,A2\n", nil)

	records := table.Records(roles)
	want := []Record{
		{Row: 2, Dimension: "bulk", Label: "Value A", Attributes: map[string]any{"code": "A1"}},
		{Row: 3, Dimension: "", Label: "Value B", Attributes: map[string]any{"code": "A2"}},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("Records() mismatch (-want +got):\n%s", diff)
	}
}

func TestImportCSVWithPreface(t *testing.T) {
	content := "Report generated,2024-05-11,\n" +
		"Owner,Data Steward,\n" +
		"Canonical Label,Description,Code\n" +
		"CSV value one,Imported from CSV,CS-1\n" +
		",,\n" +
		"CSV value two,Imported from CSV,CS-2\n"
	table, roles := readCSVTable(t, content, nil)

	assert.Equal(t, 3, table.HeaderRow)
	records := table.Records(roles)
	require.Len(t, records, 2)
	assert.Equal(t, "CSV value one", records[0].Label)
	assert.Equal(t, "Imported from CSV", *records[0].Description)
	assert.Equal(t, 6, records[1].Row)
}

func TestImportCSVHeaderSynonyms(t *testing.T) {
	table, roles := readCSVTable(t, "dimension name,canonical value,long description,Numeric Code\nbulk_headers,Header Label,Additional context,7\n", nil)

	assert.Equal(t, Roles{Dimension: 0, Label: 1, Description: 2, Attributes: map[string]int{"numeric_code": 3}}, roles)
	records := table.Records(roles)
	require.Len(t, records, 1)
	assert.Equal(t, "bulk_headers", records[0].Dimension)
	assert.Equal(t, map[string]any{"numeric_code": "7"}, records[0].Attributes)
}

func TestImportCSVExplicitMapping(t *testing.T) {
	mapping := &Mapping{
		Label:            strPtr("region name"),
		DefaultDimension: strPtr("region"),
		Attributes:       map[string]string{"numeric_code": "Code"},
	}
	table, roles := readCSVTable(t, "Region Name,Code\nAbu Dhabi,01\nDubai,02\n", mapping)

	assert.Equal(t, 0, roles.Label)
	assert.Equal(t, map[string]int{"numeric_code": 1}, roles.Attributes)
	records := table.Records(roles)
	require.Len(t, records, 2)
	assert.Equal(t, "Dubai", records[1].Label)
	assert.Equal(t, "02", records[1].Attributes["numeric_code"])
}

func TestMappingUnknownColumn(t *testing.T) {
	_, err := AssignRoles([]string{"City"}, &Mapping{Attributes: map[string]string{"code": "Missing"}})
	require.Error(t, err)
	assert.Equal(t, "Column 'Missing' not found in upload.", errors.Message(err))
}

func TestDetectTableWithoutHeader(t *testing.T) {
	sheets, err := ReadSheets("values.csv", "", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	_, err = DetectTable(sheets, nil)
	assert.Equal(t, "Could not detect a header row with a label column.", errors.Message(err))

	// A header with no data row below it does not count.
	sheets, err = ReadSheets("values.csv", "", strings.NewReader("label,code\n"))
	require.NoError(t, err)
	_, err = DetectTable(sheets, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestReadXLSXSkipsMetadataSheets(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Metadata"))
	require.NoError(t, f.SetCellValue("Metadata", "A1", "Dataset"))
	require.NoError(t, f.SetCellValue("Metadata", "B1", "Canonical values"))

	_, err := f.NewSheet("2024 Data")
	require.NoError(t, err)
	require.NoError(t, f.MergeCell("2024 Data", "A1", "C1"))
	require.NoError(t, f.SetCellValue("2024 Data", "A1", "Reference data extract"))
	require.NoError(t, f.SetSheetRow("2024 Data", "A3", &[]any{"Dimension", "Canonical Label", "Code"}))
	require.NoError(t, f.SetSheetRow("2024 Data", "A4", &[]any{"bulk_multi", "Excel value one", "EX-1"}))
	require.NoError(t, f.SetSheetRow("2024 Data", "A5", &[]any{"bulk_multi", "Excel value two", "EX-2"}))

	_, err = f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notes", "A1", "Generated"))

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	sheets, err := ReadSheets("bulk_multi.xlsx", ContentTypeXLSX, &buf)
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "2024 Data", sheets[0].Name)

	table, err := DetectTable(sheets, nil)
	require.NoError(t, err)
	roles, err := AssignRoles(table.Header, nil)
	require.NoError(t, err)

	records := table.Records(roles)
	require.Len(t, records, 2)
	assert.Equal(t, "Excel value one", records[0].Label)
	assert.Equal(t, "EX-2", records[1].Attributes["code"])
	assert.Equal(t, 5, records[1].Row)
}

func TestBuildPreview(t *testing.T) {
	table, _ := readCSVTable(t, "Region Label,Numeric Code,Notes\nAbu Dhabi,01,x\nDubai,02,\n", nil)
	known := []storage.Dimension{{
		Code:        "region",
		ExtraFields: []storage.ExtraField{{Key: "numeric_code", Label: "Numeric Code", DataType: "number"}},
	}}

	preview := BuildPreview(table, "regions.csv", known)

	require.Len(t, preview.Columns, 3)
	assert.Equal(t, RoleLabel, *preview.Columns[0].SuggestedRole)
	assert.Equal(t, []string{"Abu Dhabi", "Dubai"}, preview.Columns[0].Sample)
	assert.Equal(t, "numeric_code", *preview.Columns[1].SuggestedAttributeKey)
	assert.Equal(t, "region", *preview.Columns[1].SuggestedDimension)
	assert.Equal(t, "notes", *preview.Columns[2].SuggestedAttributeKey)
	assert.Nil(t, preview.Columns[2].SuggestedDimension)
	assert.Equal(t, "region", *preview.SuggestedDimension)
	assert.Equal(t, &ProposedDimension{Code: "region", Label: "Region"}, preview.ProposedDimension)
}

func TestBuildPreviewProposesFromFileName(t *testing.T) {
	table, _ := readCSVTable(t, "label\nSharjah\n", nil)
	preview := BuildPreview(table, "emirate_cities.csv", nil)

	assert.Nil(t, preview.SuggestedDimension)
	assert.Equal(t, &ProposedDimension{Code: "emirate_cities", Label: "Emirate Cities"}, preview.ProposedDimension)
}

func sampleMappings() []storage.ExpandedValueMapping {
	confidence := 0.9
	return []storage.ExpandedValueMapping{{
		ValueMapping: storage.ValueMapping{
			SourceConnectionID: 3,
			SourceTable:        "users",
			SourceField:        "state",
			RawValue:           "CA",
			CanonicalID:        7,
			Status:             "approved",
			Confidence:         &confidence,
		},
		CanonicalLabel: "Active",
		RefDimension:   "status_io",
	}}
}

func TestWriteValueMappingsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteValueMappings(&buf, FormatCSV, sampleMappings()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ValueMappingColumns, records[0])
	assert.Equal(t, []string{"3", "users", "state", "CA", "7", "Active", "status_io", "approved", "0.9", "", ""}, records[1])
}

func TestValueMappingsXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteValueMappings(&buf, FormatXLSX, sampleMappings()))

	sheets, err := ReadSheets("export.xlsx", "", &buf)
	require.NoError(t, err)
	rows, err := ReadValueMappingRows(sheets)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "CA", rows[0].Get("raw_value"))
	assert.Equal(t, "7", rows[0].Get("canonical_id"))
	assert.Equal(t, "0.9", rows[0].Get("confidence"))
	assert.Equal(t, "", rows[0].Get("notes"))
}

func TestReadValueMappingRowsRequiresRawValue(t *testing.T) {
	sheets, err := ReadSheets("m.csv", "", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	_, err = ReadValueMappingRows(sheets)
	assert.True(t, errors.IsValidationError(err))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Equal(t, ContentTypeXLSX, f.ContentType())

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.Equal(t, "Unsupported export format 'pdf'", errors.Message(err))
}

package dimensions

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
)

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"Numeric Code":   "numeric_code",
		"  ISO-Code  ":   "iso_code",
		"__already__ok_": "already_ok",
		"***":            "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeKey(in))
		})
	}
}

func TestHumanizeCode(t *testing.T) {
	assert.Equal(t, "Marital Status", HumanizeCode("marital_status"))
	assert.Equal(t, "Region", HumanizeCode("region"))
}

func TestValidateExtraFields(t *testing.T) {
	tests := []struct {
		name    string
		fields  []storage.ExtraField
		wantMsg string
	}{
		{
			name:    "empty key",
			fields:  []storage.ExtraField{{Key: "  ", Label: "x", DataType: TypeString}},
			wantMsg: "Dimension field keys cannot be empty.",
		},
		{
			name:    "invalid key",
			fields:  []storage.ExtraField{{Key: "!!", Label: "x", DataType: TypeString}},
			wantMsg: "Invalid dimension field key '!!'.",
		},
		{
			name: "duplicate after normalization",
			fields: []storage.ExtraField{
				{Key: "iso_code", Label: "ISO", DataType: TypeString},
				{Key: "ISO Code", Label: "ISO again", DataType: TypeString},
			},
			wantMsg: "Duplicate dimension field key 'ISO Code'.",
		},
		{
			name:    "unsupported type",
			fields:  []storage.ExtraField{{Key: "born", Label: "Born", DataType: "date"}},
			wantMsg: "Unsupported data type 'date'.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateExtraFields(tt.fields)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
			assert.Equal(t, tt.wantMsg, errors.Message(err))
		})
	}

	t.Run("valid schema is trimmed", func(t *testing.T) {
		got, err := ValidateExtraFields([]storage.ExtraField{{Key: " code ", Label: "Code", DataType: TypeNumber, Required: true}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "code", got[0].Key)
		assert.True(t, got[0].Required)
	})
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		dataType string
		want     any
		wantMsg  string
	}{
		{name: "nil", value: nil, dataType: TypeNumber, want: nil},
		{name: "blank", value: "   ", dataType: TypeString, want: nil},
		{name: "string trimmed", value: " A1 ", dataType: TypeString, want: "A1"},
		{name: "number to string", value: 7.0, dataType: TypeString, want: "7"},
		{name: "numeric string", value: "07", dataType: TypeNumber, want: 7.0},
		{name: "json number", value: 202.0, dataType: TypeNumber, want: 202.0},
		{name: "bad number", value: "seven", dataType: TypeNumber, wantMsg: "Value 'seven' is not a valid number."},
		{name: "nan", value: "NaN", dataType: TypeNumber, wantMsg: "Value 'NaN' is not a valid number."},
		{name: "inf", value: "Inf", dataType: TypeNumber, wantMsg: "Value 'Inf' is not a valid number."},
		{name: "negative inf", value: "-Inf", dataType: TypeNumber, wantMsg: "Value '-Inf' is not a valid number."},
		{name: "overflow", value: "1e999", dataType: TypeNumber, wantMsg: "Value '1e999' is not a valid number."},
		{name: "nan float", value: math.NaN(), dataType: TypeNumber, wantMsg: "Value 'NaN' is not a valid number."},
		{name: "yes", value: "Yes", dataType: TypeBoolean, want: true},
		{name: "zero", value: "0", dataType: TypeBoolean, want: false},
		{name: "bool", value: true, dataType: TypeBoolean, want: true},
		{name: "bad bool", value: "maybe", dataType: TypeBoolean, wantMsg: "Value 'maybe' is not a valid boolean."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceValue(tt.value, tt.dataType)
			if tt.wantMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantMsg, errors.Message(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateAttributes(t *testing.T) {
	region := storage.Dimension{
		Code: "region",
		ExtraFields: []storage.ExtraField{
			{Key: "numeric_code", Label: "Numeric Code", DataType: TypeNumber},
			{Key: "iso_code", Label: "ISO Code", DataType: TypeString, Required: true},
		},
	}

	t.Run("schemaless drops nulls", func(t *testing.T) {
		got, err := ValidateAttributes(storage.Dimension{Code: "free"}, map[string]any{"a": 1.0, "b": nil})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": 1.0}, got)
	})

	t.Run("lookup by label and unknown keys dropped", func(t *testing.T) {
		got, err := ValidateAttributes(region, map[string]any{
			"Numeric Code": "7",
			"ISO Code":     " AE ",
			"color":        "blue",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"numeric_code": 7.0, "iso_code": "AE"}, got)
	})

	t.Run("missing required", func(t *testing.T) {
		_, err := ValidateAttributes(region, map[string]any{"numeric_code": 1})
		require.Error(t, err)
		assert.Equal(t, "Missing required attribute 'iso_code'.", errors.Message(err))
	})
}

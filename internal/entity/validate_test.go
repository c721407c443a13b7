package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func TestValidateValue(t *testing.T) {
	tests := []struct {
		name    string
		def     FeatureDefinition
		value   Value
		wantErr bool
	}{
		{
			name:  "int in range",
			def:   FeatureDefinition{Name: "f", ValueType: ValueTypeInt, Min: fptr(0), Max: fptr(10)},
			value: IntValue(5),
		},
		{
			name:    "int below min",
			def:     FeatureDefinition{Name: "f", ValueType: ValueTypeInt, Min: fptr(0)},
			value:   IntValue(-1),
			wantErr: true,
		},
		{
			name:    "float above max",
			def:     FeatureDefinition{Name: "f", ValueType: ValueTypeFloat, Max: fptr(1)},
			value:   FloatValue(1.5),
			wantErr: true,
		},
		{
			name:    "kind mismatch",
			def:     FeatureDefinition{Name: "f", ValueType: ValueTypeInt},
			value:   StringValue("nope"),
			wantErr: true,
		},
		{
			name:  "string in allowed set",
			def:   FeatureDefinition{Name: "f", ValueType: ValueTypeString, AllowedValues: []string{"light", "heavy"}},
			value: StringValue("heavy"),
		},
		{
			name:    "string outside allowed set",
			def:     FeatureDefinition{Name: "f", ValueType: ValueTypeString, AllowedValues: []string{"light", "heavy"}},
			value:   StringValue("gridlock"),
			wantErr: true,
		},
		{
			name:  "null allowed when nullable",
			def:   FeatureDefinition{Name: "f", ValueType: ValueTypeFloat, Nullable: true},
			value: NullValue(ValueTypeFloat),
		},
		{
			name:    "null rejected when not nullable",
			def:     FeatureDefinition{Name: "f", ValueType: ValueTypeFloat},
			value:   NullValue(ValueTypeFloat),
			wantErr: true,
		},
		{
			name:  "embedding with declared width",
			def:   FeatureDefinition{Name: "f", ValueType: ValueTypeEmbedding, VectorWidth: 3},
			value: EmbeddingValue([]float64{1, 2, 3}),
		},
		{
			name:    "embedding wrong width",
			def:     FeatureDefinition{Name: "f", ValueType: ValueTypeEmbedding, VectorWidth: 3},
			value:   EmbeddingValue([]float64{1, 2}),
			wantErr: true,
		},
		{
			name:  "boolean",
			def:   FeatureDefinition{Name: "f", ValueType: ValueTypeBoolean},
			value: BoolValue(true),
		},
		{
			name:    "empty JSON payload",
			def:     FeatureDefinition{Name: "f", ValueType: ValueTypeJSON},
			value:   Value{Kind: ValueTypeJSON},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateValue(&tt.def, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err), "expected a validation error, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDefinition(t *testing.T) {
	valid := FeatureDefinition{
		Name:       "driver_is_online",
		EntityType: EntityTypeDriver,
		ValueType:  ValueTypeBoolean,
		Freshness:  TierRealtime,
		Source:     SourceStream,
	}
	assert.NoError(t, ValidateDefinition(&valid))

	badEntity := valid
	badEntity.EntityType = "VEHICLE"
	assert.Error(t, ValidateDefinition(&badEntity))

	badRange := valid
	badRange.ValueType = ValueTypeFloat
	badRange.Min = fptr(10)
	badRange.Max = fptr(1)
	assert.Error(t, ValidateDefinition(&badRange))

	noWidth := valid
	noWidth.ValueType = ValueTypeEmbedding
	assert.Error(t, ValidateDefinition(&noWidth))

	badDefault := valid
	badDefault.ValueType = ValueTypeInt
	badDefault.Max = fptr(5)
	d := IntValue(9)
	badDefault.Default = &d
	assert.Error(t, ValidateDefinition(&badDefault))
}

func TestFreshnessTierTTL(t *testing.T) {
	assert.Equal(t, 60.0, TierRealtime.TTL().Seconds())
	assert.Equal(t, 300.0, TierNearRealtime.TTL().Seconds())
	assert.Equal(t, 120.0, TierMinute.TTL().Seconds())
	assert.Equal(t, 2.0, TierHourly.TTL().Hours())
	assert.Equal(t, 48.0, TierDaily.TTL().Hours())
	assert.Equal(t, 14*24.0, TierWeekly.TTL().Hours())
	assert.Zero(t, TierStatic.TTL())
}

func TestDefaultValue(t *testing.T) {
	def := FeatureDefinition{Name: "emb", ValueType: ValueTypeEmbedding, VectorWidth: 4}
	v := def.DefaultValue()
	assert.Len(t, v.Vec, 4)

	d := IntValue(7)
	withDefault := FeatureDefinition{Name: "n", ValueType: ValueTypeInt, Default: &d}
	assert.Equal(t, int64(7), withDefault.DefaultValue().Int)
}

package entity

// ValidateValue checks a candidate value against a definition's declared
// rules: kind match, nullability, min/max range, allowed values. It returns
// a *ValidationError on any violation so callers can reject the write without
// touching prior state.
func ValidateValue(def *FeatureDefinition, v Value) error {
	if v.Null {
		if !def.Nullable {
			return NewValidationError(def.Name, "null value for non-nullable feature")
		}
		return nil
	}

	if v.Kind != def.ValueType {
		return NewValidationError(def.Name, "value kind %s does not match declared type %s", v.Kind, def.ValueType)
	}

	switch def.ValueType {
	case ValueTypeInt, ValueTypeFloat:
		n, _ := v.Numeric()
		if def.Min != nil && n < *def.Min {
			return NewValidationError(def.Name, "value %g below min %g", n, *def.Min)
		}
		if def.Max != nil && n > *def.Max {
			return NewValidationError(def.Name, "value %g above max %g", n, *def.Max)
		}
		if len(def.AllowedValues) > 0 && !allowed(def.AllowedValues, v.String()) {
			return NewValidationError(def.Name, "value %s not in allowed set", v.String())
		}
	case ValueTypeString:
		if len(def.AllowedValues) > 0 && !allowed(def.AllowedValues, v.Str) {
			return NewValidationError(def.Name, "value %q not in allowed set", v.Str)
		}
	case ValueTypeBoolean:
		// Nothing beyond the kind check.
	case ValueTypeJSON:
		if v.JSON == nil {
			return NewValidationError(def.Name, "JSON value has no payload")
		}
	case ValueTypeVector, ValueTypeEmbedding:
		if len(v.Vec) == 0 {
			return NewValidationError(def.Name, "%s value has no elements", def.ValueType)
		}
		if def.VectorWidth > 0 && len(v.Vec) != def.VectorWidth {
			return NewValidationError(def.Name, "%s width %d does not match declared width %d", def.ValueType, len(v.Vec), def.VectorWidth)
		}
	default:
		return NewValidationError(def.Name, "unsupported value type %s", def.ValueType)
	}

	return nil
}

// ValidateDefinition checks a definition at registration time.
func ValidateDefinition(def *FeatureDefinition) error {
	if def.Name == "" {
		return NewValidationError(def.Name, "feature name is required")
	}
	if !knownEntityType(def.EntityType) {
		return NewValidationError(def.Name, "unknown entity type %q", def.EntityType)
	}
	switch def.ValueType {
	case ValueTypeInt, ValueTypeFloat, ValueTypeString, ValueTypeBoolean,
		ValueTypeJSON, ValueTypeVector, ValueTypeEmbedding:
	default:
		return NewValidationError(def.Name, "unknown value type %q", def.ValueType)
	}
	switch def.Freshness {
	case TierRealtime, TierNearRealtime, TierMinute, TierHourly, TierDaily, TierWeekly, TierStatic:
	default:
		return NewValidationError(def.Name, "unknown freshness tier %q", def.Freshness)
	}
	switch def.Source {
	case SourceBatch, SourceStream, SourceRequestTime, SourceExternal, SourceManual:
	default:
		return NewValidationError(def.Name, "unknown source %q", def.Source)
	}
	if (def.ValueType == ValueTypeVector || def.ValueType == ValueTypeEmbedding) && def.VectorWidth <= 0 {
		return NewValidationError(def.Name, "%s features must declare a vector width", def.ValueType)
	}
	if def.Min != nil && def.Max != nil && *def.Min > *def.Max {
		return NewValidationError(def.Name, "min %g greater than max %g", *def.Min, *def.Max)
	}
	if def.Default != nil {
		if err := ValidateValue(def, *def.Default); err != nil {
			return NewValidationError(def.Name, "default value invalid: %v", err)
		}
	}
	return nil
}

func knownEntityType(et EntityType) bool {
	for _, known := range KnownEntityTypes {
		if known == et {
			return true
		}
	}
	return false
}

func allowed(set []string, v string) bool {
	for _, a := range set {
		if a == v {
			return true
		}
	}
	return false
}

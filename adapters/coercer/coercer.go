package coercer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"civicprofile/domain/dataset"
)

// TypeCoercer turns raw cell text into typed dataset values
type TypeCoercer struct {
	config  CoercionConfig
	missing map[string]struct{}
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold   float64        `json:"numeric_threshold" yaml:"numeric_threshold"`     // % of values that must parse as numbers
	BooleanThreshold   float64        `json:"boolean_threshold" yaml:"boolean_threshold"`     // % of values that must parse as booleans
	TimestampThreshold float64        `json:"timestamp_threshold" yaml:"timestamp_threshold"` // % of values that must parse as timestamps
	MissingTokens      []string       `json:"missing_tokens" yaml:"missing_tokens"`           // compared case-insensitively after trimming
	DateLayouts        []string       `json:"date_layouts" yaml:"date_layouts"`
	Location           *time.Location `json:"-" yaml:"-"`
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold:   0.8,
		BooleanThreshold:   0.9,
		TimestampThreshold: 0.8,
		MissingTokens:      []string{"", "na", "n/a", "nan", "null", "none"},
		DateLayouts: []string{
			"01/02/2006 03:04:05 PM",
			"01/02/2006 15:04",
			"01/02/2006",
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02T15:04:05.000",
			"2006-01-02 15:04:05",
			"2006-01-02",
			"2006/01/02",
			"02-Jan-2006",
		},
		Location: time.UTC,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	if config.Location == nil {
		config.Location = time.UTC
	}
	missing := make(map[string]struct{}, len(config.MissingTokens))
	for _, tok := range config.MissingTokens {
		missing[strings.ToLower(strings.TrimSpace(tok))] = struct{}{}
	}
	return &TypeCoercer{config: config, missing: missing}
}

// IsMissing reports whether raw should be stored as the missing marker
func (c *TypeCoercer) IsMissing(raw string) bool {
	_, ok := c.missing[strings.ToLower(strings.TrimSpace(raw))]
	return ok || strings.TrimSpace(raw) == ""
}

// CoerceValue converts a raw cell using the first type that parses:
// integer, float, boolean, then text. Dates are only produced by CoerceDate
// so that numeric-looking codes are never mistaken for timestamps.
func (c *TypeCoercer) CoerceValue(raw string) dataset.Value {
	if c.IsMissing(raw) {
		return dataset.Missing()
	}
	s := strings.TrimSpace(raw)

	if n, ok := c.tryParseInteger(s); ok {
		return dataset.NewInteger(n)
	}
	if f, ok := c.tryParseFloat(s); ok {
		return dataset.NewFloat(f)
	}
	if b, ok := c.tryParseBoolean(s); ok {
		return dataset.NewBoolean(b)
	}
	return dataset.NewText(s)
}

// CoerceText keeps the cell as text, only mapping missing tokens
func (c *TypeCoercer) CoerceText(raw string) dataset.Value {
	if c.IsMissing(raw) {
		return dataset.Missing()
	}
	return dataset.NewText(strings.TrimSpace(raw))
}

// CoerceDate parses a cell of a declared date column. Unparseable cells
// become missing; the second return value reports whether that happened.
func (c *TypeCoercer) CoerceDate(raw string) (dataset.Value, bool) {
	if c.IsMissing(raw) {
		return dataset.Missing(), false
	}
	if t, ok := c.tryParseTimestamp(strings.TrimSpace(raw)); ok {
		return dataset.NewDate(t), false
	}
	return dataset.Missing(), true
}

// AnalyzeTypeDistribution analyzes a sample to determine the best type coercion strategy
func (c *TypeCoercer) AnalyzeTypeDistribution(values []string) TypeAnalysis {
	analysis := TypeAnalysis{
		TotalCount: len(values),
	}

	for _, raw := range values {
		if c.IsMissing(raw) {
			continue
		}
		analysis.ValidCount++
		s := strings.TrimSpace(raw)

		if _, ok := c.tryParseFloat(s); ok {
			analysis.NumericCount++
		}
		if _, ok := c.tryParseBoolean(s); ok {
			analysis.BooleanCount++
		}
		if _, ok := c.tryParseLayouts(s); ok {
			analysis.TimestampCount++
		}
	}

	if analysis.ValidCount > 0 {
		analysis.NumericRatio = float64(analysis.NumericCount) / float64(analysis.ValidCount)
		analysis.BooleanRatio = float64(analysis.BooleanCount) / float64(analysis.ValidCount)
		analysis.TimestampRatio = float64(analysis.TimestampCount) / float64(analysis.ValidCount)
	}
	analysis.RecommendedKind = c.determineRecommendedKind(analysis)

	return analysis
}

func (c *TypeCoercer) tryParseInteger(s string) (int64, bool) {
	if hasLeadingZero(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func (c *TypeCoercer) tryParseFloat(s string) (float64, bool) {
	if hasLeadingZero(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	// ParseFloat accepts "inf"/"nan" spellings and hex floats; require a digit
	if !strings.ContainsAny(s, "0123456789") {
		return 0, false
	}
	return f, true
}

func (c *TypeCoercer) tryParseBoolean(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func (c *TypeCoercer) tryParseTimestamp(s string) (time.Time, bool) {
	if t, ok := c.tryParseLayouts(s); ok {
		return t, true
	}
	t, err := dateparse.ParseIn(s, c.config.Location)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (c *TypeCoercer) tryParseLayouts(s string) (time.Time, bool) {
	for _, layout := range c.config.DateLayouts {
		if t, err := time.ParseInLocation(layout, s, c.config.Location); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// hasLeadingZero marks identifiers such as ZIP codes ("06051") that must stay text
func hasLeadingZero(s string) bool {
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

// determineRecommendedKind chooses the best kind based on analysis
func (c *TypeCoercer) determineRecommendedKind(analysis TypeAnalysis) dataset.Kind {
	if analysis.ValidCount == 0 {
		return dataset.KindMissing
	}
	if analysis.NumericRatio >= c.config.NumericThreshold {
		return dataset.KindFloat
	}
	if analysis.BooleanRatio >= c.config.BooleanThreshold {
		return dataset.KindBoolean
	}
	if analysis.TimestampRatio >= c.config.TimestampThreshold {
		return dataset.KindDate
	}
	return dataset.KindText
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int          `json:"total_count"`
	ValidCount      int          `json:"valid_count"`
	NumericCount    int          `json:"numeric_count"`
	BooleanCount    int          `json:"boolean_count"`
	TimestampCount  int          `json:"timestamp_count"`
	NumericRatio    float64      `json:"numeric_ratio"`
	BooleanRatio    float64      `json:"boolean_ratio"`
	TimestampRatio  float64      `json:"timestamp_ratio"`
	RecommendedKind dataset.Kind `json:"recommended_kind"`
}

func (a TypeAnalysis) String() string {
	return fmt.Sprintf("%s (valid=%d numeric=%.2f boolean=%.2f date=%.2f)",
		a.RecommendedKind, a.ValidCount, a.NumericRatio, a.BooleanRatio, a.TimestampRatio)
}

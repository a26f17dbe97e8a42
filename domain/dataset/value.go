package dataset

import (
	"strconv"
	"time"
)

// Kind defines the storage type of a scalar value
type Kind uint8

const (
	KindMissing Kind = iota
	KindInteger
	KindFloat
	KindText
	KindDate
	KindBoolean
)

var kindNames = [...]string{
	KindMissing: "missing",
	KindInteger: "integer",
	KindFloat:   "float",
	KindText:    "text",
	KindDate:    "date",
	KindBoolean: "boolean",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Value is an immutable tagged scalar. The zero Value is the missing marker.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	t    time.Time
	b    bool
}

// Missing returns the single missing marker used by every column
func Missing() Value { return Value{} }

// NewInteger creates an integer value
func NewInteger(n int64) Value { return Value{kind: KindInteger, i: n} }

// NewFloat creates a floating-point value
func NewFloat(f float64) Value { return Value{kind: KindFloat, f: f} }

// NewText creates a text value. Empty text is still a value, not missing;
// loaders decide what counts as absent.
func NewText(s string) Value { return Value{kind: KindText, s: s} }

// NewDate creates a date value
func NewDate(t time.Time) Value { return Value{kind: KindDate, t: t} }

// NewBoolean creates a boolean value
func NewBoolean(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Kind returns the storage type
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is the missing marker
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// IsNumeric returns true for integer and float values
func (v Value) IsNumeric() bool { return v.kind == KindInteger || v.kind == KindFloat }

// AsFloat64 returns the numeric value widened to float64
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// AsInt64 returns the integer value
func (v Value) AsInt64() (int64, bool) {
	if v.kind == KindInteger {
		return v.i, true
	}
	return 0, false
}

// AsText returns the text value
func (v Value) AsText() (string, bool) {
	if v.kind == KindText {
		return v.s, true
	}
	return "", false
}

// AsDate returns the date value
func (v Value) AsDate() (time.Time, bool) {
	if v.kind == KindDate {
		return v.t, true
	}
	return time.Time{}, false
}

// Label renders the value as a grouping label. Missing renders as "".
func (v Value) Label() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindText:
		return v.s
	case KindDate:
		return FormatDate(v.t)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// String returns the label, or "<missing>" for the missing marker
func (v Value) String() string {
	if v.IsMissing() {
		return "<missing>"
	}
	return v.Label()
}

// Equal reports whether two values have the same kind and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindMissing:
		return true
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindText:
		return v.s == o.s
	case KindDate:
		return v.t.Equal(o.t)
	case KindBoolean:
		return v.b == o.b
	}
	return false
}

// FormatDate prints a date without a time component when it falls on midnight
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

package model

import (
	"strconv"
	"strings"
)

type ValueKind int

const (
	ValueUnset ValueKind = iota
	ValueText
	ValueNumber
	ValueBool
)

// Value is what a widget hands back: text, a number or a checkbox state.
// The zero Value is unset.
type Value struct {
	Kind   ValueKind
	Text   string
	Number float64
	Bool   bool
}

func TextValue(s string) Value      { return Value{Kind: ValueText, Text: s} }
func NumberValue(f float64) Value   { return Value{Kind: ValueNumber, Number: f} }
func BoolValue(b bool) Value        { return Value{Kind: ValueBool, Bool: b} }
func (v Value) IsSet() bool         { return v.Kind != ValueUnset }
func (v Value) IsText() bool        { return v.Kind == ValueText }

// IsEmpty is true for unset values and empty text.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case ValueUnset:
		return true
	case ValueText:
		return v.Text == ""
	default:
		return false
	}
}

// String renders the value the way it is placed into URLs and headers.
func (v Value) String() string {
	switch v.Kind {
	case ValueText:
		return v.Text
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// Native returns the plain Go value (string, float64, bool or nil).
func (v Value) Native() any {
	switch v.Kind {
	case ValueText:
		return v.Text
	case ValueNumber:
		return v.Number
	case ValueBool:
		return v.Bool
	default:
		return nil
	}
}

// NamedValue keeps query values in the order the fields were declared.
type NamedValue struct {
	Name  string
	Value Value
}

// PartitionHeader is the header carrying the data partition identifier.
const PartitionHeader = "data-partition-id"

type HeaderRow struct {
	Key     string
	Value   string
	Enabled bool
}

// IsPartition reports whether the row is the partition row, whose value comes
// from the partition selector.
func (h HeaderRow) IsPartition() bool {
	return h.Key == PartitionHeader
}

// DefaultHeaderRows is the header table a fresh endpoint form starts with.
func DefaultHeaderRows() []HeaderRow {
	return []HeaderRow{
		{Key: PartitionHeader, Enabled: true},
		{Key: "", Value: "", Enabled: false},
	}
}

type AuthMethod string

const (
	AuthHeader AuthMethod = "header"
	AuthCookie AuthMethod = "cookie"
)

// ParseAuthMethod accepts "header" or "cookie"; anything else is header.
func ParseAuthMethod(s string) AuthMethod {
	if strings.EqualFold(strings.TrimSpace(s), string(AuthCookie)) {
		return AuthCookie
	}
	return AuthHeader
}

type AuthConfig struct {
	Token        string
	Method       AuthMethod
	HeaderName   string
	HeaderPrefix string
	CookieName   string
}

func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Method:       AuthHeader,
		HeaderName:   "Authorization",
		HeaderPrefix: "Bearer ",
		CookieName:   "stoken",
	}
}

type BodyMode int

const (
	BodyModeForm BodyMode = iota
	BodyModeRawJSON
)

func (m BodyMode) String() string {
	if m == BodyModeRawJSON {
		return "Raw JSON"
	}
	return "Form"
}

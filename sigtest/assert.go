package sigtest

import (
	"fmt"
	"math"
	"reflect"

	"golang.org/x/text/cases"
)

// Type selects how AreEqual and AreNotEqual interpret their operands.
type Type uint8

const (
	Int Type = iota
	Long
	Float
	Double
	Char
	String
	Ptr
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	case Char:
		return "char"
	case String:
		return "string"
	case Ptr:
		return "ptr"
	default:
		return "unknown"
	}
}

// Float tolerances used by AreEqual.
const (
	FloatEpsilon  = 1.1920929e-07          // smallest e with float32(1)+e != 1
	DoubleEpsilon = 2.220446049250313e-16 // smallest e with 1.0+e != 1.0
)

// Failure phrases recorded as the case message.
const (
	msgExpectedTrue    = "Expected true, but was false"
	msgExpectedFalse   = "Expected false, but was true"
	msgNotNil          = "Value is not nil"
	msgNil             = "Value is nil"
	msgUseStringEqual  = "Use StringEqual for string comparison"
	msgUnsupportedType = "Unsupported type for comparison"
	msgOutOfRange      = "Value out of range"
	msgThrow           = "Explicit throw triggered"
	msgFail            = "Explicit failure triggered"
	msgSkip            = "Testcase skipped"
)

// abort unwinds a case body back to the runner once its result is recorded.
type abort struct{}

// T is the assertion handle passed to case bodies. Assertions must be
// called on the body's own goroutine. Calls on a nil T, or after the body
// has returned, do nothing.
type T struct {
	c    *Case
	ctx  *ExecContext
	done bool
}

func (t *T) active() bool { return t != nil && t.c != nil && !t.done }

// Name returns the current case name.
func (t *T) Name() string {
	if t == nil || t.c == nil {
		return ""
	}
	return t.c.Name
}

// Logf writes a line to the suite stream under the current case.
func (t *T) Logf(format string, args ...any) {
	if !t.active() || t.ctx == nil || t.ctx.Logger == nil {
		return
	}
	t.ctx.Logger.Log(format, args...)
}

func (t *T) pass() {
	t.c.record(Pass, "")
}

// stop records state with phrase and the caller's note, then unwinds.
func (t *T) stop(state State, phrase, format string, args []any) {
	msg := phrase
	if format != "" {
		msg += "\n    - " + fmt.Sprintf(format, args...)
	}
	t.c.record(state, msg)
	panic(abort{})
}

// IsTrue passes if cond is true.
func (t *T) IsTrue(cond bool, format string, args ...any) {
	if !t.active() {
		return
	}
	if !cond {
		t.stop(Fail, msgExpectedTrue, format, args)
	}
	t.pass()
}

// IsFalse passes if cond is false.
func (t *T) IsFalse(cond bool, format string, args ...any) {
	if !t.active() {
		return
	}
	if cond {
		t.stop(Fail, msgExpectedFalse, format, args)
	}
	t.pass()
}

// IsNull passes if v is nil, including typed nil pointers, maps, slices,
// channels and functions.
func (t *T) IsNull(v any, format string, args ...any) {
	if !t.active() {
		return
	}
	if !isNil(v) {
		t.stop(Fail, msgNotNil, format, args)
	}
	t.pass()
}

// IsNotNull passes if v is not nil.
func (t *T) IsNotNull(v any, format string, args ...any) {
	if !t.active() {
		return
	}
	if isNil(v) {
		t.stop(Fail, msgNil, format, args)
	}
	t.pass()
}

// AreEqual passes if expected and actual are equal as typ.
// Strings are rejected in favour of StringEqual.
func (t *T) AreEqual(expected, actual any, typ Type, format string, args ...any) {
	if !t.active() {
		return
	}
	eq, e, a, msg := compare(expected, actual, typ)
	switch {
	case msg != "":
		t.stop(Fail, msg, format, args)
	case !eq:
		t.stop(Fail, fmt.Sprintf("Expected %s, but was %s", e, a), format, args)
	}
	t.pass()
}

// AreNotEqual passes if expected and actual differ as typ.
func (t *T) AreNotEqual(expected, actual any, typ Type, format string, args ...any) {
	if !t.active() {
		return
	}
	eq, e, a, msg := compare(expected, actual, typ)
	switch {
	case msg != "":
		t.stop(Fail, msg, format, args)
	case eq:
		t.stop(Fail, fmt.Sprintf("Expected not %s, but was %s", e, a), format, args)
	}
	t.pass()
}

// FloatWithin passes if lo <= value <= hi. NaN is never within range.
func (t *T) FloatWithin(value, lo, hi float32, format string, args ...any) {
	if !t.active() {
		return
	}
	if !(value >= lo && value <= hi) {
		t.stop(Fail, msgOutOfRange, format, args)
	}
	t.pass()
}

// StringEqual compares two strings, optionally ignoring case by Unicode
// case folding.
func (t *T) StringEqual(expected, actual string, caseSensitive bool, format string, args ...any) {
	if !t.active() {
		return
	}
	eq := expected == actual
	if !eq && !caseSensitive {
		folder := cases.Fold()
		eq = folder.String(expected) == folder.String(actual)
	}
	if !eq {
		t.stop(Fail, fmt.Sprintf("Expected %q, but was %q", expected, actual), format, args)
	}
	t.pass()
}

// Throw marks the case FAIL as an explicit throw and unwinds.
func (t *T) Throw(format string, args ...any) {
	if !t.active() {
		return
	}
	t.stop(Fail, msgThrow, format, args)
}

// Fail marks the case FAIL and unwinds.
func (t *T) Fail(format string, args ...any) {
	if !t.active() {
		return
	}
	t.stop(Fail, msgFail, format, args)
}

// Skip marks the case SKIP and unwinds.
func (t *T) Skip(format string, args ...any) {
	if !t.active() {
		return
	}
	t.stop(Skip, msgSkip, format, args)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// compare reports whether expected and actual are equal as typ along with
// their renderings. A non-empty msg means the operands could not be compared.
func compare(expected, actual any, typ Type) (eq bool, e, a, msg string) {
	if isString(expected) || isString(actual) {
		return false, "", "", msgUseStringEqual
	}
	switch typ {
	case Int, Long:
		x, ok1 := toInt64(expected)
		y, ok2 := toInt64(actual)
		if !ok1 || !ok2 {
			return false, "", "", msgUnsupportedType
		}
		return x == y, fmt.Sprint(x), fmt.Sprint(y), ""

	case Float:
		x, ok1 := toFloat64(expected)
		y, ok2 := toFloat64(actual)
		if !ok1 || !ok2 {
			return false, "", "", msgUnsupportedType
		}
		fx, fy := float32(x), float32(y)
		return floatEqual(float64(fx), float64(fy), FloatEpsilon), fmt.Sprint(fx), fmt.Sprint(fy), ""

	case Double:
		x, ok1 := toFloat64(expected)
		y, ok2 := toFloat64(actual)
		if !ok1 || !ok2 {
			return false, "", "", msgUnsupportedType
		}
		return floatEqual(x, y, DoubleEpsilon), fmt.Sprint(x), fmt.Sprint(y), ""

	case Char:
		x, ok1 := toRune(expected)
		y, ok2 := toRune(actual)
		if !ok1 || !ok2 {
			return false, "", "", msgUnsupportedType
		}
		return x == y, string(x), string(y), ""

	case String:
		return false, "", "", msgUseStringEqual

	case Ptr:
		x, ok1 := toAddr(expected)
		y, ok2 := toAddr(actual)
		if !ok1 || !ok2 {
			return false, "", "", msgUnsupportedType
		}
		return x == y, fmt.Sprintf("%#x", x), fmt.Sprintf("%#x", y), ""
	}
	return false, "", "", msgUnsupportedType
}

func isString(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.String
}

func floatEqual(x, y, eps float64) bool {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.IsNaN(x) && math.IsNaN(y)
	case math.IsInf(x, 0) || math.IsInf(y, 0):
		return x == y
	}
	return math.Abs(x-y) <= eps
}

func toInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func toRune(v any) (rune, bool) {
	switch c := v.(type) {
	case rune:
		return c, true
	case byte:
		return rune(c), true
	}
	return 0, false
}

func toAddr(v any) (uintptr, bool) {
	if v == nil {
		return 0, true
	}
	if p, ok := v.(uintptr); ok {
		return p, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.Chan, reflect.Func:
		return rv.Pointer(), true
	}
	return 0, false
}

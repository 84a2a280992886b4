package main

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshuapare/sigmatest/sigtest"
	"github.com/joshuapare/sigmatest/sigtest/alloc"
	"github.com/joshuapare/sigmatest/sigtest/fuzz"
)

// maxBlock bounds the sizes the malloc stress case actually allocates.
const maxBlock = 1 << 20

// satAdd adds without wrapping, clamping to the int32 range.
func satAdd(a, b int32) int32 {
	sum := int64(a) + int64(b)
	switch {
	case sum > math.MaxInt32:
		return math.MaxInt32
	case sum < math.MinInt32:
		return math.MinInt32
	}
	return int32(sum)
}

// logFile writes the suite to <dir>/<name>.log when SIGDEMO_LOG_DIR is set.
func logFile(name string) sigtest.ConfigFunc {
	dir, ok := os.LookupEnv("SIGDEMO_LOG_DIR")
	if !ok {
		return nil
	}
	return func() (io.Writer, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		return os.Create(filepath.Join(dir, name+".log"))
	}
}

func registerSuites() {
	registerArithmetic()
	registerExpectations()
	registerFuzz()
	registerMemory()
}

func registerArithmetic() {
	sigtest.OpenSuite("arithmetic", logFile("arithmetic"), nil)

	sigtest.AddCase("saturating add", func(t *sigtest.T) {
		t.AreEqual(int32(5), satAdd(2, 3), sigtest.Int, "")
		t.AreEqual(int32(math.MaxInt32), satAdd(math.MaxInt32, 1), sigtest.Int, "should clamp high")
		t.AreEqual(int32(math.MinInt32), satAdd(math.MinInt32, -1), sigtest.Int, "should clamp low")
	}, sigtest.KindPlain)

	sigtest.AddCase("float tolerance", func(t *sigtest.T) {
		t.AreEqual(0.3, 0.1+0.2, sigtest.Double, "")
		t.FloatWithin(float32(math.Pi), 3.14, 3.15, "")
	}, sigtest.KindPlain)

	sigtest.AddCase("case-insensitive compare", func(t *sigtest.T) {
		t.StringEqual("SIGMA", strings.ToLower("Sigma"), false, "")
	}, sigtest.KindPlain)
}

func registerExpectations() {
	sigtest.OpenSuite("expectations", logFile("expectations"), nil)

	sigtest.AddCase("known failure", func(t *sigtest.T) {
		t.IsTrue(len("abc") == 4, "off by one on purpose")
	}, sigtest.KindExpectFail)

	sigtest.AddCase("explicit throw", func(t *sigtest.T) {
		t.Throw("unsupported input")
	}, sigtest.KindExpectThrow)

	sigtest.AddCase("platform specific", func(t *sigtest.T) {
		if filepath.Separator != '\\' {
			t.Skip("windows only")
		}
		t.IsTrue(true, "")
	}, sigtest.KindPlain)
}

func registerFuzz() {
	sigtest.OpenSuite("stability_fuzz", logFile("stability_fuzz"), nil)

	sigtest.AddFuzzCase("malloc boundary stress", func(t *sigtest.T, v any) {
		size := v.(uint64)
		if size > maxBlock {
			return
		}
		b, err := alloc.Malloc(int(size))
		t.IsNull(err, "malloc(%d) failed unexpectedly", size)
		t.IsNull(alloc.Free(b), "")
	}, fuzz.Values(fuzz.SizeT))

	sigtest.AddFuzzCase("int overflow handling", func(t *sigtest.T, v any) {
		value := v.(int32)
		t.IsTrue(satAdd(value, 100) >= value, "overflow should not decrease %d", value)
	}, fuzz.Values(fuzz.Int))

	sigtest.AddFuzzCase("float special values", func(t *sigtest.T, v any) {
		value := float64(v.(float32))
		switch {
		case math.IsNaN(value):
			t.AreEqual(math.NaN(), value, sigtest.Double, "")
		case math.IsInf(value, 1):
			t.IsTrue(value > 0, "should be positive infinity")
		case math.IsInf(value, -1):
			t.IsTrue(value < 0, "should be negative infinity")
		default:
			t.FloatWithin(float32(value), -math.MaxFloat32, math.MaxFloat32, "")
		}
	}, fuzz.Values(fuzz.Float))

	sigtest.AddFuzzCase("byte input validation", func(t *sigtest.T, v any) {
		value := v.(int8)
		t.AreEqual(value, int8(uint8(value)), sigtest.Int, "byte %d does not round-trip", value)
	}, fuzz.Values(fuzz.Byte))
}

func registerMemory() {
	var kept []*alloc.Block
	sigtest.OpenSuite("memory", logFile("memory"), func() {
		for _, b := range kept {
			_ = alloc.Free(b)
		}
	})

	sigtest.AddCase("clean run", func(t *sigtest.T) {
		b, err := alloc.Malloc(100)
		t.IsNull(err, "")
		t.IsNull(alloc.Free(b), "")
	}, sigtest.KindPlain)

	sigtest.AddCase("grow buffer", func(t *sigtest.T) {
		b, err := alloc.Calloc(4, 16)
		t.IsNull(err, "")
		copy(b.Bytes(), "sigma")
		b, err = alloc.Realloc(b, 256)
		t.IsNull(err, "")
		t.AreEqual('s', b.Bytes()[0], sigtest.Char, "")
		t.IsNull(alloc.Free(b), "")
	}, sigtest.KindPlain)

	// Held until suite cleanup, so --memcheck reports it as a leak.
	sigtest.AddCase("held until cleanup", func(t *sigtest.T) {
		b, err := alloc.Malloc(64)
		t.IsNull(err, "")
		kept = append(kept, b)
	}, sigtest.KindPlain)
}

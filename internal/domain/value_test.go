package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToFloat(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{"int", 7, 7, true},
		{"int64", int64(-3), -3, true},
		{"uint8", uint8(4), 4, true},
		{"float32", float32(1.5), 1.5, true},
		{"float64", 2.25, 2.25, true},
		{"nan", math.NaN(), 0, false},
		{"inf", math.Inf(1), 0, false},
		{"string", "12", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	f, ok := ParseNumber(" 90 ")
	assert.True(t, ok)
	assert.Equal(t, 90.0, f)

	_, ok = ParseNumber("ninety")
	assert.False(t, ok)

	f, ok = ParseNumber(int32(12))
	assert.True(t, ok)
	assert.Equal(t, 12.0, f)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{"typed date", time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"iso string", "2021-05-01", true},
		{"rfc3339 string", "2021-05-01T10:00:00Z", true},
		{"bare year", "2021", false},
		{"number string", "20210501", false},
		{"number", 2021, false},
		{"garbage", "not a date", false},
		{"zero time", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseTime(tt.value)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestIsYearOnly(t *testing.T) {
	assert.True(t, IsYearOnly(1987))
	assert.True(t, IsYearOnly("1987"))
	assert.True(t, IsYearOnly(1987.0))
	assert.False(t, IsYearOnly(1987.5))
	assert.False(t, IsYearOnly("1987-03-02"))
	assert.False(t, IsYearOnly(time.Date(1987, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.False(t, IsYearOnly(87))
}

func TestKeyAndFormat(t *testing.T) {
	assert.Equal(t, Key(1), Key(1.0))
	assert.Equal(t, Key(int64(1)), Key(float32(1)))
	assert.NotEqual(t, Key(1), Key("1"))
	assert.NotEqual(t, Key(true), Key("true"))
	assert.Equal(t, Key(nil), Key(math.NaN()))

	day := time.Date(2020, 2, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2020-02-03", FormatValue(day))
	assert.Equal(t, "2.5", FormatValue(2.5))
	assert.Equal(t, "abc", FormatValue("abc"))
	assert.Equal(t, "", FormatValue(nil))
}

package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epochFeb2018 = int64(1518062400000) // 2018-02-08T04:00:00.000Z

func TestTimeCodecSeconds(t *testing.T) {
	c := TimeCodec{}

	ms, err := c.ToCanonical(int64(1518062400))
	require.NoError(t, err)
	assert.Equal(t, epochFeb2018, ms)

	assert.Equal(t, int64(1518062400), c.FromCanonical(epochFeb2018))
}

func TestTimeCodecMillis(t *testing.T) {
	c := TimeCodec{SourceInMillis: true}

	ms, err := c.ToCanonical(json.Number("1518062400000"))
	require.NoError(t, err)
	assert.Equal(t, epochFeb2018, ms)

	assert.Equal(t, epochFeb2018, c.FromCanonical(epochFeb2018))
}

func TestTimeCodecTimestring(t *testing.T) {
	c := TimeCodec{SourceInTimestring: true}

	t.Run("parses ISO-8601 with milliseconds", func(t *testing.T) {
		ms, err := c.ToCanonical("2018-02-08T04:00:00.123Z")
		require.NoError(t, err)
		assert.Equal(t, epochFeb2018+123, ms)
	})

	t.Run("formats back with millisecond precision", func(t *testing.T) {
		assert.Equal(t, "2018-02-08T04:00:00.000Z", c.FromCanonical(epochFeb2018))
	})

	t.Run("rejects non-string input", func(t *testing.T) {
		_, err := c.ToCanonical(int64(1518062400))
		assert.Error(t, err)
	})

	t.Run("rejects malformed strings", func(t *testing.T) {
		_, err := c.ToCanonical("yesterday")
		assert.Error(t, err)
	})
}

func TestTimeCodecRoundTrip(t *testing.T) {
	codecs := map[string]TimeCodec{
		"seconds":    {},
		"millis":     {SourceInMillis: true},
		"timestring": {SourceInTimestring: true},
	}
	stamps := []int64{
		epochFeb2018,
		1577836800000, // 2020-01-01T00:00:00.000Z
		1756684800000, // 2025-09-01T00:00:00.000Z
	}
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			for _, ms := range stamps {
				native := c.FromCanonical(ms)
				back, err := c.ToCanonical(native)
				require.NoError(t, err)
				assert.Equal(t, ms, back)
			}
		})
	}
}

func TestTimeCodecNumericInputForms(t *testing.T) {
	c := TimeCodec{SourceInMillis: true}
	for _, v := range []any{
		int64(1518062400000),
		int(1518062400000),
		json.Number("1518062400000"),
		float64(1518062400000),
		"1518062400000",
	} {
		ms, err := c.ToCanonical(v)
		require.NoError(t, err)
		assert.Equal(t, epochFeb2018, ms)
	}

	_, err := c.ToCanonical([]string{"nope"})
	assert.Error(t, err)
}

func TestTimestampHelpers(t *testing.T) {
	assert.Equal(t, int64(1518062400), TimestampSeconds(epochFeb2018+999))
	assert.Equal(t, "2018-02-08T04:00:00.500Z", TimestampISO(epochFeb2018+500))

	tm := TimestampTime(epochFeb2018)
	assert.Equal(t, time.UTC, tm.Location())
	assert.Equal(t, 2018, tm.Year())
	assert.Equal(t, time.February, tm.Month())
	assert.Equal(t, 8, tm.Day())
	assert.Equal(t, 4, tm.Hour())
}

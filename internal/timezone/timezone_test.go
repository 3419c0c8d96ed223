package timezone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHM(t *testing.T) {
	valid := []string{"00:00", "09:30", "23:59"}
	for _, hm := range valid {
		_, err := ParseHM(hm)
		assert.NoError(t, err, hm)
	}

	invalid := []string{"", "9:30", "24:00", "12:60", "12-30", "09:30:00", "ab:cd"}
	for _, hm := range invalid {
		_, err := ParseHM(hm)
		assert.Error(t, err, hm)
	}
}

func TestMinutes(t *testing.T) {
	m, err := Minutes("09:45")
	require.NoError(t, err)
	assert.Equal(t, 585, m)
	assert.Equal(t, "09:45", FormatMinutes(m))
	assert.Equal(t, "00:00", FormatMinutes(0))
}

func TestLocationFallback(t *testing.T) {
	loc := Location("Not/AZone")
	assert.Equal(t, DefaultTimezone, loc.String())
}

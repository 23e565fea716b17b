package period

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse("2025-07")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2025, Month: 7}, p)
	assert.Equal(t, "2025-07", p.String())

	invalid := []string{"", "2025-13", "2025/07", "07-2025", "2025-7-1", "abcd-ef"}
	for _, s := range invalid {
		_, err := Parse(s)
		assert.ErrorIs(t, err, ErrInvalidPeriod, s)
	}
}

func TestNew(t *testing.T) {
	_, err := New(2025, 0)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	p, err := New(2025, 12)
	require.NoError(t, err)
	assert.Equal(t, "2025-12", p.String())
}

func TestCompare(t *testing.T) {
	jun := MustParse("2025-06")
	jul := MustParse("2025-07")
	jan := MustParse("2026-01")

	assert.True(t, jun.Before(jul))
	assert.True(t, jan.After(jul))
	assert.Equal(t, 0, jul.Compare(MustParse("2025-07")))
	assert.False(t, jul.Before(jul))
}

func TestAddMonths(t *testing.T) {
	assert.Equal(t, MustParse("2026-01"), MustParse("2025-12").AddMonths(1))
	assert.Equal(t, MustParse("2024-12"), MustParse("2025-01").Previous())
	assert.Equal(t, MustParse("2027-03"), MustParse("2025-07").AddMonths(20))
	assert.Equal(t, MustParse("2024-11"), MustParse("2025-07").AddMonths(-8))
}

func TestBounds(t *testing.T) {
	p := MustParse("2024-02")
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.Start(time.UTC))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), p.End(time.UTC))
	assert.True(t, p.Contains(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestJSON(t *testing.T) {
	type wrapper struct {
		Period Period `json:"period"`
	}
	b, err := json.Marshal(wrapper{Period: MustParse("2025-07")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":"2025-07"}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"period":"2024-11"}`), &w))
	assert.Equal(t, MustParse("2024-11"), w.Period)

	assert.Error(t, json.Unmarshal([]byte(`{"period":"2024-1"}`), &w))
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("str")
	assert.Contains(t, id, "str_")
	assert.Len(t, id, len("str_")+36)
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	late := time.Date(2024, 12, 3, 23, 30, 0, 0, loc)

	assert.Equal(t, time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC), DateOf(late))
	assert.Equal(t, time.Date(2024, 12, 4, 0, 0, 0, 0, time.UTC), DateOf(late.UTC()))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-11-25")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 11, 25, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("25/11/2024")
	assert.EqualError(t, err, `invalid date "25/11/2024", expected YYYY-MM-DD`)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 11, 1, 18, 0, 0, 0, time.UTC)
	b := time.Date(2024, 11, 29, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 28, DaysBetween(a, b))
	assert.Equal(t, -28, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))

	// a mistyped year puts the span beyond what time.Duration can hold
	typo := time.Date(1724, 11, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 109573, DaysBetween(typo, b))
	assert.Equal(t, -109573, DaysBetween(b, typo))
}

func TestStoreStatusRank(t *testing.T) {
	r, ok := StoreStatusQualified.Rank()
	assert.True(t, ok)
	assert.Equal(t, 2, r)

	_, ok = StoreStatusInactive.Rank()
	assert.False(t, ok)
	assert.True(t, StoreStatusInactive.Valid())
	assert.False(t, StoreStatus("archived").Valid())
}

func TestOrderAfter(t *testing.T) {
	day := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	a := Order{OrderID: "ord_a", OrderDate: day, CreatedAt: day.Add(time.Hour)}
	b := Order{OrderID: "ord_b", OrderDate: day, CreatedAt: day.Add(time.Hour)}
	c := Order{OrderID: "ord_c", OrderDate: day.AddDate(0, 0, 1)}

	assert.True(t, c.After(a))
	assert.True(t, b.After(a))
	assert.False(t, a.After(b))
}

func TestActivityAfter(t *testing.T) {
	day := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	first := Activity{ActivityID: "act_1", Date: day, CreatedAt: day}
	second := Activity{ActivityID: "act_2", Date: day, CreatedAt: day.Add(time.Minute)}

	assert.True(t, second.After(first))
	assert.False(t, first.After(second))
	assert.True(t, OutcomeOrdered.Terminal())
	assert.False(t, OutcomeMaybeLater.Terminal())
}

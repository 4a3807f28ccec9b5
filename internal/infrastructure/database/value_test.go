package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAsString(t *testing.T) {
	assert.Equal(t, "", AsString(nil))
	assert.Equal(t, "abc", AsString("abc"))
	assert.Equal(t, "abc", AsString([]byte("abc")))
}

func TestAsInt(t *testing.T) {
	assert.Equal(t, 3, AsInt(int64(3)))
	assert.Equal(t, 3, AsInt(float64(3)))
	assert.Equal(t, 0, AsInt(nil))
}

func TestAsDecimal(t *testing.T) {
	assert.True(t, AsDecimal(nil).IsZero())
	assert.Equal(t, "12.50", AsDecimal("12.5").StringFixed(2))
	assert.Equal(t, "3.00", AsDecimal(int64(3)).StringFixed(2))
	assert.Equal(t, "0.00", AsDecimal("not a number").StringFixed(2))
}

func TestAsTime(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	assert.Equal(t, now, AsTime(now))
	assert.Equal(t, now, AsTime(now.Format(time.RFC3339Nano)).UTC())

	parsed := AsTime("2026-01-02 15:04:05")
	assert.Equal(t, 2026, parsed.Year())
	assert.True(t, AsTime("garbage").IsZero())

	// The sqlite driver stores a bound time.Time in Go's default String()
	// form; reads must survive that round-trip.
	stored := AsTime(now.String())
	assert.Equal(t, now, stored.UTC())
	withNanos := AsTime("2026-09-01 09:05:38.478867094 +0000 UTC")
	assert.Equal(t, 478867094, withNanos.Nanosecond())
	assert.Equal(t, 2026, withNanos.Year())
}

func TestAsUUID(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, AsUUID(id.String()))
	assert.Equal(t, id, AsUUID([16]byte(id)))
	assert.Equal(t, uuid.Nil, AsUUID("not-a-uuid"))
}

package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/recordkeeper/internal/recording/domain"
)

func TestRecording_MarshalJSON_MergesExtra(t *testing.T) {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	rec := domain.Recording{
		ID:          "r1",
		Owner:       "u1",
		Date:        &date,
		Type:        "bp",
		Description: "morning",
		Extra:       map[string]any{"systolic": 120.0, "owner": "spoofed"},
		CreatedAt:   date.Add(time.Hour),
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "r1", out["id"])
	assert.Equal(t, "u1", out["owner"])
	assert.Equal(t, "2024-03-05T00:00:00Z", out["date"])
	assert.Equal(t, "bp", out["type"])
	assert.Equal(t, "morning", out["description"])
	assert.Equal(t, 120.0, out["systolic"])
	assert.Equal(t, "2024-03-05T01:00:00Z", out["createdAt"])
}

func TestRecording_MarshalJSON_NoDate(t *testing.T) {
	data, err := json.Marshal(domain.Recording{ID: "r1"})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	v, ok := out["date"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.NotContains(t, out, "createdAt")
}

func TestFilter_Active(t *testing.T) {
	now := time.Now()

	assert.False(t, domain.Filter{}.Active())
	assert.False(t, domain.Filter{From: &now}.Active())
	assert.False(t, domain.Filter{To: &now}.Active())
	assert.True(t, domain.Filter{From: &now, To: &now}.Active())
}

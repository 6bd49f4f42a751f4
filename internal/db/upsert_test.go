package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSQL(t *testing.T) {
	got, err := UpsertSQL(UpsertConfig{
		Table:        "settings",
		Columns:      []string{"key", "value", "updated_at"},
		ConflictKeys: []string{"key"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "settings" ("key", "value", "updated_at") VALUES ($1, $2, $3) ON CONFLICT ("key") DO UPDATE SET "value" = EXCLUDED."value", "updated_at" = EXCLUDED."updated_at"`,
		got)
}

func TestUpsertSQL_ExplicitUpdateCols(t *testing.T) {
	got, err := UpsertSQL(UpsertConfig{
		Table:        "app.settings",
		Columns:      []string{"key", "value", "updated_at"},
		ConflictKeys: []string{"key"},
		UpdateCols:   []string{"value"},
	})
	require.NoError(t, err)
	assert.Contains(t, got, `INSERT INTO "app"."settings"`)
	assert.Contains(t, got, `DO UPDATE SET "value" = EXCLUDED."value"`)
	assert.NotContains(t, got, `"updated_at" = EXCLUDED`)
}

func TestUpsertSQL_OnlyConflictColumns(t *testing.T) {
	got, err := UpsertSQL(UpsertConfig{
		Table:        "seen_urls",
		Columns:      []string{"url"},
		ConflictKeys: []string{"url"},
	})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "seen_urls" ("url") VALUES ($1) ON CONFLICT ("url") DO NOTHING`, got)
}

func TestUpsertSQL_NoColumns(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{
		Table:        "settings",
		ConflictKeys: []string{"key"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestUpsertSQL_NoConflictKeys(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{
		Table:   "settings",
		Columns: []string{"key", "value"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestUpsertSQL_NoTable(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{Columns: []string{"key"}, ConflictKeys: []string{"key"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no table specified")
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"app.settings", `"app"."settings"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"id", "name", "value"})
	assert.Equal(t, `"id", "name", "value"`, result)
}

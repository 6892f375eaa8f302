package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_SeedEditSnapshot(t *testing.T) {
	seed := map[string]any{"nik": "123", "nama": "Budi"}
	b := NewBuffer()
	b.Seed(seed)

	assert.True(t, b.Seeded())
	assert.False(t, b.Dirty())

	b.Edit("nama", "Budi Santoso")
	b.Edit("nama", "Budi S.")
	b.Edit("alamat", "Jl. Merdeka 1")

	assert.True(t, b.Dirty())
	assert.Equal(t, map[string]any{
		"nik":    "123",
		"nama":   "Budi S.",
		"alamat": "Jl. Merdeka 1",
	}, b.Snapshot())

	// the seed map is not touched by edits
	assert.Equal(t, "Budi", seed["nama"])
}

func TestBuffer_SnapshotIsACopy(t *testing.T) {
	b := NewBuffer()
	b.Seed(map[string]any{"person-data": map[string]any{"nik": "123"}})

	snap := b.Snapshot()
	snap["person-data"].(map[string]any)["nik"] = "changed"

	assert.Equal(t, map[string]any{"person-data": map[string]any{"nik": "123"}}, b.Snapshot())
}

func TestBuffer_DottedKeys(t *testing.T) {
	b := NewBuffer()
	b.Seed(map[string]any{
		"person-data": map[string]any{"nik": "123"},
		"a.b":         "literal",
	})

	b.Edit("person-data.nik", "456")
	b.Edit("a.b", "still literal")
	b.Edit("missing.path", "top level")

	assert.Equal(t, map[string]any{
		"person-data":  map[string]any{"nik": "456"},
		"a.b":          "still literal",
		"missing.path": "top level",
	}, b.Snapshot())
}

func TestBuffer_Clear(t *testing.T) {
	b := NewBuffer()
	b.Seed(map[string]any{"nik": "123"})
	b.Edit("nik", "9")
	b.Clear()

	assert.False(t, b.Seeded())
	assert.False(t, b.Dirty())
	assert.Empty(t, b.Snapshot())
}

package content

import (
	"encoding/json"
	"testing"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTimes(t *testing.T, v any, n int) any {
	t.Helper()
	out := v
	for i := 0; i < n; i++ {
		b, err := json.Marshal(out)
		require.NoError(t, err)
		out = string(b)
	}
	return out
}

func TestNormalize_MappingIsReturnedUnchanged(t *testing.T) {
	m := map[string]any{"nik": "123", "nested": map[string]any{"a": 1.0}}
	got := Normalize(m)
	assert.Equal(t, m, got)

	// same map, not a copy
	got["extra"] = true
	assert.Equal(t, true, m["extra"])
}

func TestNormalize_RepeatedEncoding(t *testing.T) {
	m := map[string]any{"nik": "123", "name": "Budi", "age": 30.0}

	for n := 1; n <= config.MaxDecodeDepth; n++ {
		encoded := encodeTimes(t, m, n)
		assert.Equal(t, m, Normalize(encoded), "encoded %d times", n)
	}
}

func TestNormalize_BeyondBoundFallsBack(t *testing.T) {
	m := map[string]any{"nik": "123"}
	encoded := encodeTimes(t, m, config.MaxDecodeDepth+1)

	got := Normalize(encoded)
	assert.Equal(t, map[string]any{RawContentKey: encoded}, got)
}

func TestNormalize_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want map[string]any
	}{
		{name: "nil", raw: nil, want: map[string]any{}},
		{name: "plain text", raw: "NIK 123 NAMA BUDI", want: map[string]any{RawContentKey: "NIK 123 NAMA BUDI"}},
		{name: "json number", raw: "42", want: map[string]any{RawContentKey: "42"}},
		{name: "json array", raw: `["a","b"]`, want: map[string]any{RawContentKey: `["a","b"]`}},
		{name: "json bare string", raw: `"hello"`, want: map[string]any{RawContentKey: `"hello"`}},
		{name: "broken json", raw: `{"nik":`, want: map[string]any{RawContentKey: `{"nik":`}},
		{name: "scalar", raw: 12.5, want: map[string]any{RawContentKey: 12.5}},
		{name: "raw message object", raw: json.RawMessage(`{"nik":"123"}`), want: map[string]any{"nik": "123"}},
		{name: "raw message string", raw: json.RawMessage(`"{\"nik\":\"123\"}"`), want: map[string]any{"nik": "123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalize_KTPScenario(t *testing.T) {
	got := Normalize("{\"nik\":\"123\"}")
	assert.Equal(t, map[string]any{"nik": "123"}, got)
}

func TestFieldRows_HoistsEnvelope(t *testing.T) {
	m := map[string]any{
		"person-data": map[string]any{"nik": "123", "nama": "Budi"},
		"address":     map[string]any{"city": "Bandung"},
		"type":        "KTP",
	}

	rows := FieldRows(m)
	require.Len(t, rows, 4)

	assert.Equal(t, Field{Key: "person-data.nama", Label: "nama", Value: "Budi"}, rows[0])
	assert.Equal(t, Field{Key: "person-data.nik", Label: "nik", Value: "123"}, rows[1])
	assert.Equal(t, Field{Key: "address.city", Label: "address.city", Value: "Bandung"}, rows[2])
	assert.Equal(t, Field{Key: "type", Label: "type", Value: "KTP"}, rows[3])
}

func TestLookup(t *testing.T) {
	m := map[string]any{
		"person-data": map[string]any{"nik": "123"},
		"a.b":         "literal",
	}

	v, ok := Lookup(m, "person-data.nik")
	assert.True(t, ok)
	assert.Equal(t, "123", v)

	v, ok = Lookup(m, "a.b")
	assert.True(t, ok)
	assert.Equal(t, "literal", v)

	_, ok = Lookup(m, "person-data.missing")
	assert.False(t, ok)
}

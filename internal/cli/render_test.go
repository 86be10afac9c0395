package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mirrors/pkg/types"
)

var renderNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleRecords() []types.Record {
	return []types.Record{
		{
			Namespace: "counters",
			ID:        "c1",
			Value:     types.Value{"count": float64(3), "label": "x"},
			Version:   3,
			CreatedAt: renderNow.Add(-3 * time.Hour),
			UpdatedAt: renderNow.Add(-3 * time.Hour),
		},
		{
			Namespace: "counters",
			ID:        "c2",
			Value:     types.Value{},
			Version:   1,
			CreatedAt: renderNow.Add(-48 * time.Hour),
			UpdatedAt: renderNow.Add(-48 * time.Hour),
		},
		{
			Namespace: "counters",
			ID:        "long-record-id",
			Value:     types.Value{"tags": []any{"a", "b"}},
			Version:   12,
			CreatedAt: renderNow.Add(-time.Hour),
			UpdatedAt: renderNow.Add(-30 * time.Second),
		},
	}
}

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRender_Golden(t *testing.T) {
	recs := sampleRecords()

	tests := []struct {
		name   string
		format outputFormat
		render func(r renderer) error
	}{
		{"record_text", formatText, func(r renderer) error { return r.record(recs[0]) }},
		{"record_empty_text", formatText, func(r renderer) error { return r.record(recs[1]) }},
		{"record_json", formatJSON, func(r renderer) error { return r.record(recs[0]) }},
		{"record_yaml", formatYAML, func(r renderer) error { return r.record(recs[0]) }},
		{"list_text", formatText, func(r renderer) error { return r.records("counters", recs) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.render(renderer{w: &buf, format: tt.format, now: renderNow}))
			newGolden(t).Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestRender_EmptyList(t *testing.T) {
	var buf bytes.Buffer
	r := renderer{w: &buf, format: formatText, now: renderNow}
	require.NoError(t, r.records("counters", nil))
	assert.Equal(t, "no records in counters\n", buf.String())

	buf.Reset()
	r.format = formatJSON
	require.NoError(t, r.records("counters", nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestRender_FutureTimestamp(t *testing.T) {
	var buf bytes.Buffer
	rec := sampleRecords()[0]
	rec.UpdatedAt = renderNow.Add(3 * time.Hour)

	require.NoError(t, renderer{w: &buf, now: renderNow}.record(rec))
	assert.Contains(t, buf.String(), "updated 3 hours from now")
}

package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/databrowser/internal/models"
)

const channelDoc = `items:
  - key: /0/data
    type: datafield
    value: {xres: 2, yres: 2, xreal: 1.0e-6, yreal: 1.0e-6, unit_z: m, data: [0, 1, 2, 3]}
  - key: /0/data/title
    type: string
    value: Topography
  - key: /0/data/visible
    type: bool
    value: true
  - key: /0/graph/graph/1
    type: graph
    value:
      title: Profile
      curves:
        - {x: [0, 1], y: [2, 3]}
  - key: /brick/0
    type: brick
    value: {xres: 1, yres: 1, zres: 2}
  - key: /0/base/min
    type: float
    value: 0.5
`

func TestDecode(t *testing.T) {
	entries, err := Decode([]byte(channelDoc))
	require.NoError(t, err)
	require.Len(t, entries, 6)

	assert.Equal(t, "/0/data", entries[0].Key)
	df, ok := entries[0].Value.(*models.DataField)
	require.True(t, ok)
	assert.Equal(t, 2, df.XRes)
	assert.Equal(t, "m", df.UnitZ)
	assert.Equal(t, []float64{0, 1, 2, 3}, df.Data)

	assert.Equal(t, "Topography", entries[1].Value)
	assert.Equal(t, true, entries[2].Value)

	g, ok := entries[3].Value.(*models.GraphModel)
	require.True(t, ok)
	assert.Equal(t, "Profile", g.Title)
	require.Len(t, g.Curves, 1)

	brick, ok := entries[4].Value.(*models.Brick)
	require.True(t, ok)
	assert.Len(t, brick.Data, 2, "missing samples are zero-filled")

	assert.Equal(t, 0.5, entries[5].Value)

	for _, e := range entries {
		assert.NotEmpty(t, e.Sum, e.Key)
	}
}

func TestDecode_SumsTrackContent(t *testing.T) {
	a, err := Decode([]byte(channelDoc))
	require.NoError(t, err)
	b, err := Decode([]byte(channelDoc))
	require.NoError(t, err)
	for i := range a {
		assert.Equal(t, a[i].Sum, b[i].Sum, a[i].Key)
	}

	changed, err := Decode([]byte(`items:
  - key: /0/data/title
    type: string
    value: Height
`))
	require.NoError(t, err)
	assert.NotEqual(t, a[1].Sum, changed[0].Sum)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"invalid yaml", "items: [\n"},
		{"relative key", "items:\n  - {key: 0/data, type: string, value: x}\n"},
		{"duplicate key", "items:\n  - {key: /a, type: string, value: x}\n  - {key: /a, type: string, value: y}\n"},
		{"unknown type", "items:\n  - {key: /a, type: blob, value: x}\n"},
		{"sample count", "items:\n  - {key: /0/data, type: datafield, value: {xres: 2, yres: 2, data: [1]}}\n"},
		{"zero resolution", "items:\n  - {key: /0/data, type: datafield, value: {xres: 0, yres: 2}}\n"},
		{"wrong scalar", "items:\n  - {key: /a, type: bool, value: maybe}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			assert.Error(t, err)
		})
	}

	_, err := Decode([]byte("items:\n  - {key: /a, type: blob, value: x}\n"))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestEncode(t *testing.T) {
	entries, err := Decode([]byte(channelDoc))
	require.NoError(t, err)
	items := make(map[string]any, len(entries))
	for _, e := range entries {
		items[e.Key] = e.Value
	}
	items["/meta/handle"] = struct{}{}

	out, skipped, err := Encode(items)
	require.NoError(t, err)
	assert.Equal(t, []string{"/meta/handle"}, skipped)

	again, err := Decode(out)
	require.NoError(t, err)
	require.Len(t, again, len(entries))

	sums := make(map[string]string, len(entries))
	for _, e := range entries {
		sums[e.Key] = e.Sum
	}
	for i, e := range again {
		assert.Equal(t, sums[e.Key], e.Sum, e.Key)
		if i > 0 {
			assert.Less(t, again[i-1].Key, e.Key, "keys are written in order")
		}
	}
}

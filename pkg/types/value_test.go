package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueClone(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		var v Value
		assert.Nil(t, v.Clone())
	})

	t.Run("nested maps and slices are copied", func(t *testing.T) {
		orig := Value{
			"count": 1,
			"tags":  []any{"a", map[string]any{"k": "v"}},
			"meta":  map[string]any{"owner": "x"},
			"inner": Value{"deep": []any{1, 2}},
		}
		cp := orig.Clone()
		assert.Equal(t, orig, cp)

		cp["count"] = 2
		cp["tags"].([]any)[0] = "z"
		cp["tags"].([]any)[1].(map[string]any)["k"] = "changed"
		cp["meta"].(map[string]any)["owner"] = "y"
		cp["inner"].(Value)["deep"].([]any)[0] = 9

		assert.Equal(t, 1, orig["count"])
		assert.Equal(t, "a", orig["tags"].([]any)[0])
		assert.Equal(t, "v", orig["tags"].([]any)[1].(map[string]any)["k"])
		assert.Equal(t, "x", orig["meta"].(map[string]any)["owner"])
		assert.Equal(t, 1, orig["inner"].(Value)["deep"].([]any)[0])
	})
}

package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() map[string]any {
	return map[string]any{
		"id":    "general/a.md",
		"title": "A",
		"metadata": map[string]any{
			"tags":   []any{"a", "b"},
			"status": "x",
		},
	}
}

func TestApply_SimpleAndNested(t *testing.T) {
	out := Apply(sampleRecord(), []string{"id", "metadata.tags"})

	assert.Equal(t, map[string]any{
		"id": "general/a.md",
		"metadata": map[string]any{
			"tags": []any{"a", "b"},
		},
	}, out)
}

func TestApply_EmptySpecsReturnEverything(t *testing.T) {
	record := sampleRecord()
	assert.Equal(t, record, Apply(record, nil))
}

func TestApply_Wildcards(t *testing.T) {
	out := Apply(sampleRecord(), []string{"*"})
	assert.Len(t, out, 3)

	out = Apply(sampleRecord(), []string{"metadata.*"})
	metadata, ok := out["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, metadata, 2)
}

func TestApply_MissingKeysSilentlyDropped(t *testing.T) {
	out := Apply(sampleRecord(), []string{"id", "nope", "metadata.nope"})
	assert.Equal(t, map[string]any{"id": "general/a.md"}, out)
}

func TestApplyWithOptions_StrictErrorsOnMissing(t *testing.T) {
	_, err := ApplyWithOptions(sampleRecord(), []string{"nope"}, Options{Strict: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestApplyWithOptions_PreserveEmptyObjects(t *testing.T) {
	out, err := ApplyWithOptions(sampleRecord(), []string{"metadata.nope"}, Options{PreserveEmptyObjects: true})
	require.NoError(t, err)
	metadata, ok := out["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Empty(t, metadata)
}

func TestValidateSpecs(t *testing.T) {
	invalid := ValidateSpecs([]string{"a", "a.b", "a.*", "*", ".x", "x.", "x..y", "x*y", ""})
	assert.ElementsMatch(t, []string{".x", "x.", "x..y", "x*y", ""}, invalid)
}

func TestApply_InvalidSpecSkippedWhenNotStrict(t *testing.T) {
	out := Apply(sampleRecord(), []string{"id", "x..y"})
	assert.Equal(t, map[string]any{"id": "general/a.md"}, out)
}

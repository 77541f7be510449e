package contract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildContractShape(t *testing.T) {
	t.Parallel()

	c := Build("0.0.0-dev")
	require.Equal(t, "triadctl", c.Name)
	require.Equal(t, ArtifactLayoutVersion, c.ArtifactLayoutVersion)
	require.NotEmpty(t, c.Artifacts)
	require.Len(t, c.BlockTypes, 5)
	require.NotEmpty(t, c.Commands)
	require.NotEmpty(t, c.Errors)

	seenArtifact := map[string]bool{}
	for _, a := range c.Artifacts {
		require.False(t, seenArtifact[a.ID], "duplicate artifact id %q", a.ID)
		seenArtifact[a.ID] = true
		require.NotEmpty(t, a.PathPattern)
		require.NotEmpty(t, a.SchemaVersions)
	}

	seenTag := map[string]bool{}
	for _, b := range c.BlockTypes {
		require.False(t, seenTag[b.Tag], "duplicate block tag %q", b.Tag)
		seenTag[b.Tag] = true
		require.NotEmpty(t, b.Dispatch)
	}

	seenCmd := map[string]bool{}
	for _, cmd := range c.Commands {
		require.False(t, seenCmd[cmd.ID], "duplicate command id %q", cmd.ID)
		seenCmd[cmd.ID] = true
	}
}

func TestErrorFormatting(t *testing.T) {
	t.Parallel()

	err := NewError(CodeNotFound, "triad not found")
	require.Equal(t, "E_NOT_FOUND: triad not found", err.Error())

	withPath := err.WithPath("knowledge/acme/graph.json")
	require.Equal(t, "E_NOT_FOUND: triad not found (knowledge/acme/graph.json)", withPath.Error())
	require.Equal(t, "E_NOT_FOUND: triad not found", err.Error(), "WithPath must not mutate the receiver")
}

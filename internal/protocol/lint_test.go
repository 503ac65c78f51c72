package protocol

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLintEmbeddedCatalogIsClean(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)

	issues, err := s.Lint(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestLintFlagsSemanticProblems(t *testing.T) {
	// Passes the schema but not the semantic checks.
	const dirty = `methods:
  somatic_regulation:
    variations:
      gentle:
        steps:
          - index: 1
            instruction: "Consigne."
  inconnue:
    variations:
      standard:
        steps:
          - index: 0
            instruction: "Consigne."
            success_indicators: ["calme"]
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dirty), 0o644))

	s, err := NewStore(path)
	require.NoError(t, err)

	issues, err := s.Lint(context.Background())
	require.NoError(t, err)

	details := make([]string, 0, len(issues))
	for _, issue := range issues {
		details = append(details, issue.String())
	}
	assert.Contains(t, details, "inconnue: unknown method, entry ignored by routing")
	assert.Contains(t, details, "somatic_regulation: missing standard variation, detection defaults will miss")
	assert.Contains(t, details, "somatic_regulation/gentle: step 0 declares index 1")
	assert.Contains(t, details, "somatic_regulation/gentle: final step has no success indicators, completion is unreachable without adjustment")
}

func TestLintCancelledContext(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Lint(ctx)
	assert.Error(t, err)
}

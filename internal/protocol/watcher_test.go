package protocol

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"solace/internal/therapy"
)

const updatedCatalog = `methods:
  somatic_regulation:
    variations:
      standard:
        steps:
          - index: 0
            instruction: "Consigne mise à jour."
`

func TestWatcherReloadsOnFileChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalCatalog), 0o644))

	s, err := NewStore(path)
	require.NoError(t, err)

	w, err := NewWatcher(s)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(updatedCatalog), 0o644))

	require.Eventually(t, func() bool {
		v := s.Variation(therapy.MethodSomaticRegulation, "standard")
		return len(v.Steps) == 1 && v.Steps[0].Instruction == "Consigne mise à jour."
	}, 5*time.Second, 50*time.Millisecond, "catalog change never picked up")
}

func TestWatcherKeepsCatalogWhenWriteIsInvalid(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalCatalog), 0o644))

	s, err := NewStore(path)
	require.NoError(t, err)

	w, err := NewWatcher(s)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("methods: []\n"), 0o644))

	require.Eventually(t, func() bool {
		return w.Stats().ReloadsRejected >= 1
	}, 5*time.Second, 50*time.Millisecond, "invalid write never rejected")

	v := s.Variation(therapy.MethodSomaticRegulation, "standard")
	require.Len(t, v.Steps, 1)
	assert.Equal(t, "Première consigne du fichier.", v.Steps[0].Instruction)
}

func TestWatcherStartStopIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalCatalog), 0o644))

	s, err := NewStore(path)
	require.NoError(t, err)

	w, err := NewWatcher(s)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsWatching())

	w.Stop()
	w.Stop()
	assert.False(t, w.IsWatching())
}

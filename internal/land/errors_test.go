package land

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFatalErrorClassification separates job-aborting failures from ordinary
// per-item errors, through wrapping.
func TestFatalErrorClassification(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	fatal := Fatalf("update expression", cause)

	require.True(t, IsFatal(fatal))
	require.True(t, IsFatal(fmt.Errorf("persist page: %w", fatal)))
	require.ErrorIs(t, fatal, cause)
	require.Contains(t, fatal.Error(), "update expression")

	require.False(t, IsFatal(cause))
	require.False(t, IsFatal(fmt.Errorf("fetch failed: %w", ErrNotFound)))
}

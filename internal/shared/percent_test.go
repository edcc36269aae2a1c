package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPercentChange(t *testing.T) {
	require.Equal(t, float64(0), PercentChange(10, 0))
	require.Equal(t, float64(0), PercentChange(0, 0))
	require.Equal(t, float64(50), PercentChange(15, 10))
	require.Equal(t, float64(-75), PercentChange(1, 4))
	require.Equal(t, float64(-100), PercentChange(0, 5))
	require.Equal(t, float64(33), PercentChange(4, 3))
}

func TestShare(t *testing.T) {
	require.Equal(t, float64(0), Share(3, 0))
	require.Equal(t, float64(12.5), Share(1, 8))
	require.Equal(t, float64(100), Share(8, 8))
	require.Equal(t, float64(33.3), Share(1, 3))
}

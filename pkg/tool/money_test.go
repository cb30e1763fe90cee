package tool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundCurrency(t *testing.T) {
	require.Equal(t, 10.0, RoundCurrency(9.999))
	require.Equal(t, 9.99, RoundCurrency(9.994))
	require.Equal(t, 0.0, RoundCurrency(0))
	require.Equal(t, -1.5, RoundCurrency(-1.504))
}

func TestPercentOf(t *testing.T) {
	require.Equal(t, 50.0, PercentOf(500, 10))
	require.Equal(t, 60.0, PercentOf(500, 12))
	require.Equal(t, 10.0, PercentOf(99.99, 10))
	require.Equal(t, 0.0, PercentOf(0, 20))
}

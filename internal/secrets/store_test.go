package secrets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreFetchDeleteRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := FetchKey(ServiceGemini)
	require.Error(t, err, "no key stored yet")

	require.NoError(t, StoreKey(ServiceGemini, "abc-123"))
	require.NoError(t, StoreKey(ServiceExchange, "xyz-789"))

	got, err := FetchKey(ServiceGemini)
	require.NoError(t, err)
	require.Equal(t, "abc-123", got)

	require.NoError(t, DeleteKey(ServiceGemini))
	_, err = FetchKey(ServiceGemini)
	require.Error(t, err)

	// the other key survives
	got, err = FetchKey(ServiceExchange)
	require.NoError(t, err)
	require.Equal(t, "xyz-789", got)
}

func TestStoreKeyRequiresService(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.Error(t, StoreKey("  ", "k"))
	require.Error(t, DeleteKey(""))
}

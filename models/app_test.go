package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeIAPs(t *testing.T) {
	iaps := []InAppPurchase{
		{Title: "Premium", Duration: "Monthly", Price: "$9.99"},
		{Title: "Coin Pack", Price: "$4.99"},
	}

	encoded, err := EncodeIAPs(iaps)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeIAPs(encoded)
	require.NoError(t, err)
	require.Equal(t, iaps, decoded)
}

func TestEncodeIAPsEmptyList(t *testing.T) {
	encoded, err := EncodeIAPs(nil)
	require.NoError(t, err)
	require.Empty(t, encoded)

	decoded, err := DecodeIAPs("")
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestDecodeIAPsRejectsGarbage(t *testing.T) {
	_, err := DecodeIAPs("{not json")
	require.Error(t, err)
}

func TestOptionalHelpers(t *testing.T) {
	require.Equal(t, "", Deref(nil))
	require.Equal(t, "x", Deref(Str("x")))

	require.False(t, Has(nil))
	require.False(t, Has(Str("")))
	require.True(t, Has(Str("x")))
}

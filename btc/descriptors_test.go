package btc

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

var testCases = []struct {
	descriptor  string
	expectedSum string
}{{
	descriptor:  "addr(mkmZxiEcEd8ZqjQWVZuC6so5dFMKEFpN2j)",
	expectedSum: "#02wpgw69",
}, {
	descriptor:  "tr(cRhCT5vC5NdnSrQ2Jrah6NPCcth41uT8DWFmA6uD8R4x2ufucnYX)",
	expectedSum: "#gwfmkgga",
}}

func TestDescriptorSum(t *testing.T) {
	for _, tc := range testCases {
		sum := DescriptorSumCreate(tc.descriptor)
		require.Equal(t, tc.descriptor+tc.expectedSum, sum)

		require.True(t, DescriptorSumCheck(sum, true))
	}

	require.True(t, DescriptorSumCheck(testCases[0].descriptor, false))
	require.False(t, DescriptorSumCheck(testCases[0].descriptor, true))
	require.False(t, DescriptorSumCheck(
		testCases[0].descriptor+"#02wpgw68", true,
	))
}

func TestKeyPathDescriptor(t *testing.T) {
	keyBytes := sha256.Sum256([]byte("recovery"))
	privKey, _ := btcec.PrivKeyFromBytes(keyBytes[:])

	descriptor, err := KeyPathDescriptor(
		privKey, &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(descriptor, "tr(c"))
	require.True(t, strings.HasSuffix(descriptor, ")"))

	sum := DescriptorSumCreate(descriptor)
	require.True(t, DescriptorSumCheck(sum, true))
}

package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

const (
	testRecoverySPK = "512053541e129c43ec7aff8b832443c3a105f8d0179529adac9" +
		"11e8b1da7a54ab080"

	testRecoveryScript = "20e5aa158de4730deb4bef83d95d3c8718bbaed49dec4e46" +
		"867f3956c830af3df8bc"
)

func testKeys(t *testing.T) *Keys {
	t.Helper()

	recoveryBytes := sha256.Sum256([]byte("recovery"))
	unvaultBytes := sha256.Sum256([]byte("unvault"))
	recovery, _ := btcec.PrivKeyFromBytes(recoveryBytes[:])
	unvault, _ := btcec.PrivKeyFromBytes(unvaultBytes[:])

	return &Keys{
		Recovery: recovery,
		Unvault:  unvault,
	}
}

func TestRecoveryScript(t *testing.T) {
	keys := testKeys(t)

	spk, err := RecoverySPK(keys.Recovery.PubKey())
	require.NoError(t, err)
	require.Equal(t, testRecoverySPK, hex.EncodeToString(spk))

	script, err := RecoveryScript(spk)
	require.NoError(t, err)
	require.Equal(t, testRecoveryScript, hex.EncodeToString(script))
	require.Len(t, script, 34)
	require.EqualValues(t, OpVaultRecover, script[33])

	commitment := RecoveryCommitment(spk)
	require.Equal(t, commitment[:], script[1:33])

	_, err = RecoveryScript(nil)
	require.True(t, IsKind(err, KindMalformedInput))

	_, err = RecoverySPK(nil)
	require.True(t, IsKind(err, KindMalformedInput))
}

func TestTriggerScript(t *testing.T) {
	keys := testKeys(t)

	testCases := []struct {
		delay    uint16
		expected string
	}{{
		delay: 10,
		expected: "206041649b23a061266c705984016c66401332735aff174829d89" +
			"58d358fbaaccbad5a5203b275b3bb",
	}, {
		delay: 144,
		expected: "206041649b23a061266c705984016c66401332735aff174829d89" +
			"58d358fbaaccbad0290005203b275b3bb",
	}}

	for _, tc := range testCases {
		script, err := TriggerScript(keys.Unvault.PubKey(), tc.delay)
		require.NoError(t, err)
		require.Equal(t, tc.expected, hex.EncodeToString(script))
	}

	_, err := TriggerScript(keys.Unvault.PubKey(), 0)
	require.True(t, IsKind(err, KindMalformedInput))

	_, err = TriggerScript(nil, 10)
	require.True(t, IsKind(err, KindMalformedInput))
}

func TestWithdrawScript(t *testing.T) {
	testCases := []struct {
		delay    uint16
		expected string
	}{{
		delay: 10,
		expected: "20d01ee6fc59cac9cb9499ad90543a04d5eddf1a1794f2c0ca4bd" +
			"bd977dd3eb3985ab275b3",
	}, {
		delay: 144,
		expected: "2012193660686f2bd9df41f525c9f8b617be30a481acf8ece5f68" +
			"5a95230506216029000b275b3",
	}}

	for _, tc := range testCases {
		targetHash, err := StandardTemplateHash(
			WithdrawTemplate(tc.delay), 0,
		)
		require.NoError(t, err)

		script, err := WithdrawScript(targetHash, tc.delay)
		require.NoError(t, err)
		require.Equal(t, tc.expected, hex.EncodeToString(script))
	}
}

package vault

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

func TestVaultScript(t *testing.T) {
	keys := testKeys(t)

	testCases := []struct {
		delay        uint16
		vaultScript  string
		merkleRoot   string
		triggerSPK   string
		outputYIsOdd bool
	}{{
		delay: 10,
		vaultScript: "51208646415ea6d6d7d650566650802187ab76515579b3410d0" +
			"ec7a8f2c11ff500ce",
		merkleRoot: "db72169aaf170fbfe8c12b007f834f687a15e74352239b15894" +
			"c18321032b518",
		triggerSPK: "512081542c9c8034dbb257b8e84f16851da20c6807c5d454ab7" +
			"1edae4932be88b64e",
		outputYIsOdd: true,
	}, {
		delay: 144,
		vaultScript: "5120505ebb7b7f0deb1323b00f74aadf2a3e1f72b552441b6be" +
			"06a8a59654e33f0d3",
		merkleRoot: "6c9c3c5fc315223a45a74ada4a2f1b71ce8077e6848ef2ad73a" +
			"f4c3e16486f78",
		triggerSPK: "5120160e4fad54d9c51cd79f04db50c003eba3247017d8db43e" +
			"6e3620c78917aa2a3",
		outputYIsOdd: true,
	}}

	for _, tc := range testCases {
		v, err := New(keys, tc.delay)
		require.NoError(t, err)

		require.Equal(t, tc.vaultScript, hex.EncodeToString(v.VaultScript))
		require.Equal(
			t, tc.merkleRoot,
			hex.EncodeToString(v.Tree().MerkleRoot[:]),
		)
		require.Equal(t, tc.outputYIsOdd, v.Tree().OutputKeyYIsOdd)
		require.Equal(t, testRecoverySPK, hex.EncodeToString(v.RecoverySPK))

		trigger, err := NewTrigger(v)
		require.NoError(t, err)
		require.Equal(
			t, tc.triggerSPK, hex.EncodeToString(trigger.OutputScript),
		)
	}
}

func TestVaultAddressStable(t *testing.T) {
	v, err := Create(10)
	require.NoError(t, err)

	addr1, err := v.Address(&chaincfg.RegressionNetParams)
	require.NoError(t, err)
	addr2, err := v.Address(&chaincfg.RegressionNetParams)
	require.NoError(t, err)
	require.Equal(t, addr1.EncodeAddress(), addr2.EncodeAddress())
	require.Equal(t, v.VaultScript[2:], addr1.ScriptAddress())
}

func TestVaultInvalidInput(t *testing.T) {
	_, err := Create(0)
	require.True(t, IsKind(err, KindMalformedInput))

	_, err = New(nil, 10)
	require.True(t, IsKind(err, KindMalformedInput))

	_, err = New(&Keys{}, 10)
	require.True(t, IsKind(err, KindMalformedInput))

	_, err = NewTrigger(nil)
	require.True(t, IsKind(err, KindMalformedInput))
}

func TestTriggerSameDelay(t *testing.T) {
	v1, err := Create(20)
	require.NoError(t, err)
	v2, err := Create(20)
	require.NoError(t, err)

	trigger1, err := NewTrigger(v1)
	require.NoError(t, err)
	trigger2, err := NewTrigger(v2)
	require.NoError(t, err)

	// The withdrawal template only depends on the delay.
	require.Equal(t, trigger1.TargetHash, trigger2.TargetHash)
	require.Equal(t, trigger1.WithdrawScript, trigger2.WithdrawScript)
	require.NotEqual(t, trigger1.OutputScript, trigger2.OutputScript)

	v3, err := Create(21)
	require.NoError(t, err)
	trigger3, err := NewTrigger(v3)
	require.NoError(t, err)
	require.NotEqual(t, trigger1.TargetHash, trigger3.TargetHash)

	// The trigger output shares the recovery leaf with the vault.
	recoveryLeaf := v1.RecoveryLeafHash()
	triggerTreeLeaf, err := trigger1.Tree().LeafHash(v1.RecoveryScript)
	require.NoError(t, err)
	require.Equal(t, recoveryLeaf, triggerTreeLeaf)
}

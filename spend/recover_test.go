package spend

import (
	"testing"

	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

func TestRecoverByScript(t *testing.T) {
	v, _ := testVault(t)

	unsigned, triggerTx := createTrigger(t, &TriggerRequest{
		Vault:     v,
		PrevOut:   testOutPoint,
		PrevValue: testValue,
		Fee:       testFee,
	})

	testCases := []struct {
		name string
		req  *RecoveryRequest
	}{{
		name: "vault output",
		req: &RecoveryRequest{
			Vault:     v,
			PrevOut:   testOutPoint,
			PrevValue: testValue,
			Fee:       testFee,
		},
	}, {
		name: "trigger output",
		req: &RecoveryRequest{
			Vault:     v,
			Trigger:   unsigned.Trigger(),
			PrevOut:   TriggerOutPoint(triggerTx.Tx),
			PrevValue: testValue - testFee,
			Fee:       testFee,
		},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			recoveryTx, err := RecoverByScript(tc.req)
			require.NoError(t, err)

			tx := recoveryTx.Tx
			require.Len(t, tx.TxOut, 1)
			require.Equal(t, v.RecoverySPK, tx.TxOut[0].PkScript)
			require.EqualValues(
				t, tc.req.PrevValue-testFee, tx.TxOut[0].Value,
			)

			witness := recoveryTx.Witness()
			require.Len(t, witness, 3)
			require.Empty(t, witness[0])
			require.Equal(t, v.RecoveryScript, witness[1])
			require.Len(t, witness[2], vault.ControlBlockSize)

			require.NoError(t, recoveryTx.Verify())
		})
	}
}

func TestRecoverByKey(t *testing.T) {
	v, keys := testVault(t)

	unsigned, triggerTx := createTrigger(t, &TriggerRequest{
		Vault:     v,
		PrevOut:   testOutPoint,
		PrevValue: testValue,
		Fee:       testFee,
	})

	testCases := []struct {
		name string
		req  *RecoveryRequest
	}{{
		name: "vault output",
		req: &RecoveryRequest{
			Vault:     v,
			PrevOut:   testOutPoint,
			PrevValue: testValue,
			Fee:       testFee,
		},
	}, {
		name: "trigger output",
		req: &RecoveryRequest{
			Vault:     v,
			Trigger:   unsigned.Trigger(),
			PrevOut:   TriggerOutPoint(triggerTx.Tx),
			PrevValue: testValue - testFee,
			Fee:       testFee,
		},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			recoveryTx, err := RecoverByKey(tc.req, keys.Recovery)
			require.NoError(t, err)

			witness := recoveryTx.Witness()
			require.Len(t, witness, 1)
			require.Len(t, witness[0], schnorr.SignatureSize)

			// The key path signature is fully verified.
			require.NoError(t, recoveryTx.Verify())
		})
	}

	_, err := RecoverByKey(&RecoveryRequest{
		Vault:     v,
		PrevOut:   testOutPoint,
		PrevValue: testValue,
		Fee:       testFee,
	}, keys.Unvault)
	require.True(t, vault.IsKind(err, vault.KindSigning))
}

func TestRecoverInvalid(t *testing.T) {
	v, _ := testVault(t)

	_, err := RecoverByScript(&RecoveryRequest{})
	require.True(t, vault.IsKind(err, vault.KindMalformedInput))

	_, err = RecoverByScript(&RecoveryRequest{
		Vault:     v,
		PrevValue: btcutil.Amount(500),
		Fee:       testFee,
	})
	require.True(t, vault.IsKind(err, vault.KindMalformedInput))
}

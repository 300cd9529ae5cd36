package main

import (
	"testing"

	"github.com/bitvault/bitvault/spend"
	"github.com/bitvault/bitvault/vault"
	"github.com/stretchr/testify/require"
)

func TestRecover(t *testing.T) {
	testCases := []struct {
		name        string
		fromTrigger bool
		keyPath     bool
		witnessLen  int
	}{{
		name:       "vault output by script",
		witnessLen: 3,
	}, {
		name:       "vault output by key",
		keyPath:    true,
		witnessLen: 1,
	}, {
		name:        "trigger output by script",
		fromTrigger: true,
		witnessLen:  3,
	}, {
		name:        "trigger output by key",
		fromTrigger: true,
		keyPath:     true,
		witnessLen:  1,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			e := newExplorer(t)

			h.createVault(testLabel, 10)
			v := h.vault(testLabel, 10)

			addr, err := v.Address(chainParams)
			require.NoError(t, err)
			if tc.fromTrigger {
				trigger, err := vault.NewTrigger(v)
				require.NoError(t, err)
				addr, err = trigger.Address(chainParams)
				require.NoError(t, err)
			}
			e.addUTXO(addr.EncodeAddress(), 80_000)

			recoverCmd := &recoverCommand{
				FromTrigger: tc.fromTrigger,
				KeyPath:     tc.keyPath,
				FeeRate:     3,
				Publish:     true,
				rootKey: &rootKey{
					RootKey: rootKeyTestnet,
				},
			}
			err = recoverCmd.Execute(nil, []string{testLabel})
			require.NoError(t, err)

			tx := e.lastPublished().Tx
			fee := spend.RecoveryFee(
				spend.FeeRateFromSatPerVByte(3), tc.keyPath,
			)

			require.Len(t, tx.TxIn[0].Witness, tc.witnessLen)
			require.Len(t, tx.TxOut, 1)
			require.Equal(t, v.RecoverySPK, tx.TxOut[0].PkScript)
			require.EqualValues(
				t, 80_000-fee, tx.TxOut[0].Value,
			)
		})
	}
}

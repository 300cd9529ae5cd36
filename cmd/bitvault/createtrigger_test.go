package main

import (
	"testing"

	"github.com/bitvault/bitvault/spend"
	"github.com/bitvault/bitvault/vault"
	"github.com/stretchr/testify/require"
)

func TestCreateTrigger(t *testing.T) {
	h := newHarness(t)
	e := newExplorer(t)

	h.createVault(testLabel, 10)
	v := h.vault(testLabel, 10)
	addr, err := v.Address(chainParams)
	require.NoError(t, err)
	e.addUTXO(addr.EncodeAddress(), 100_000)

	create := &createTriggerCommand{
		FeeRate: 5,
		Publish: true,
		rootKey: &rootKey{RootKey: rootKeyTestnet},
	}
	require.NoError(t, create.Execute(nil, []string{testLabel}))

	published := e.lastPublished()
	tx := published.Tx
	trigger, err := vault.NewTrigger(v)
	require.NoError(t, err)

	fee := spend.TriggerFee(spend.FeeRateFromSatPerVByte(5), false)
	require.Len(t, tx.TxIn, 1)
	require.Equal(t, testTxid, tx.TxIn[0].PreviousOutPoint.Hash.String())
	require.Equal(t, v.Sequence(), tx.TxIn[0].Sequence)
	require.Len(t, tx.TxIn[0].Witness, 5)
	require.Equal(t, v.TriggerScript, tx.TxIn[0].Witness[3])

	require.Len(t, tx.TxOut, 1)
	require.Equal(t, trigger.OutputScript, tx.TxOut[0].PkScript)
	require.EqualValues(t, 100_000-fee, tx.TxOut[0].Value)

	h.assertLogContains("Trigger transaction " + tx.TxHash().String())
}

func TestCreateTriggerRevault(t *testing.T) {
	h := newHarness(t)

	h.createVault(testLabel, 10)
	v := h.vault(testLabel, 10)

	create := &createTriggerCommand{
		Outpoint: testTxid + ":1",
		Amount:   100_000,
		Revault:  40_000,
		FeeRate:  2,
		rootKey:  &rootKey{RootKey: rootKeyTestnet},
	}
	require.NoError(t, create.Execute(nil, []string{testLabel}))

	h.assertLogContains("Trigger transaction")
	h.assertLogContains("revault output true")

	// Asking for more than the vault holds fails.
	create.Revault = 100_000
	err := create.Execute(nil, []string{testLabel})
	require.True(t, vault.IsKind(err, vault.KindMalformedInput))

	// The trigger output pays to the trigger address of the vault.
	trigger, err := vault.NewTrigger(v)
	require.NoError(t, err)
	triggerAddr, err := trigger.Address(chainParams)
	require.NoError(t, err)
	h.assertLogContains(triggerAddr.EncodeAddress())
}

func TestCreateTriggerNoCoin(t *testing.T) {
	h := newHarness(t)
	_ = newExplorer(t)

	h.createVault(testLabel, 10)

	create := &createTriggerCommand{
		FeeRate: 5,
		rootKey: &rootKey{RootKey: rootKeyTestnet},
	}
	err := create.Execute(nil, []string{testLabel})
	require.ErrorContains(t, err, "coin not found")

	create.Outpoint = "invalid"
	err = create.Execute(nil, []string{testLabel})
	require.ErrorContains(t, err, "error parsing outpoint")
}

package spend

import (
	"testing"

	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

func TestWithdraw(t *testing.T) {
	v, _ := testVault(t)

	unsigned, triggerTx := createTrigger(t, &TriggerRequest{
		Vault:     v,
		PrevOut:   testOutPoint,
		PrevValue: testValue,
		Fee:       testFee,
	})
	trigger := unsigned.Trigger()

	triggerOutPoint := TriggerOutPoint(triggerTx.Tx)
	withdrawTx, err := Withdraw(&WithdrawRequest{
		Trigger:   trigger,
		PrevOut:   triggerOutPoint,
		PrevValue: btcutil.Amount(triggerTx.Tx.TxOut[0].Value),
	})
	require.NoError(t, err)

	tx := withdrawTx.Tx
	require.EqualValues(t, 2, tx.Version)
	require.Zero(t, tx.LockTime)
	require.Len(t, tx.TxIn, 1)
	require.Empty(t, tx.TxOut)
	require.Equal(t, triggerOutPoint, tx.TxIn[0].PreviousOutPoint)
	require.EqualValues(t, testDelay, tx.TxIn[0].Sequence)

	// The withdrawal matches the template the trigger output commits to.
	targetHash, err := vault.StandardTemplateHash(tx, 0)
	require.NoError(t, err)
	require.Equal(t, trigger.TargetHash, targetHash)

	witness := withdrawTx.Witness()
	require.Len(t, witness, 2)
	require.Equal(t, trigger.WithdrawScript, witness[0])
	require.Len(t, witness[1], vault.ControlBlockSize)

	// The withdrawal leaf is fully executed, including the relative lock
	// time check.
	require.NoError(t, withdrawTx.Verify())

	tx.TxIn[0].Sequence = testDelay - 1
	require.Error(t, withdrawTx.Verify())
}

func TestWithdrawInvalid(t *testing.T) {
	_, err := Withdraw(nil)
	require.True(t, vault.IsKind(err, vault.KindMalformedInput))

	_, err = Withdraw(&WithdrawRequest{})
	require.True(t, vault.IsKind(err, vault.KindMalformedInput))
}

//go:build itest

package itest

import (
	"testing"

	"github.com/bitvault/bitvault/btc"
	"github.com/bitvault/bitvault/spend"
	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
)

type testCase struct {
	name string
	fn   func(t *testing.T)
}

var testCases = []testCase{
	{
		name: "fund vault and recover by key",
		fn:   runRecoverByKey,
	},
}

// TestIntegration runs all integration test cases against a regtest bitcoind
// with a loaded descriptor wallet.
func TestIntegration(t *testing.T) {
	for _, tc := range testCases {
		t.Run(tc.name, tc.fn)
	}
}

// runRecoverByKey sweeps a funded vault through the taproot key path. Key
// path spends are plain taproot spends, so no node with vault opcode support
// is needed.
func runRecoverByKey(t *testing.T) {
	client := connectBitcoind(t)
	ledger := newLedger(t)

	// Make sure the wallet has mature coins.
	mineBlocks(t, client, 101)

	keys, err := vault.GenerateKeys()
	require.NoError(t, err)
	v, err := vault.New(keys, 10)
	require.NoError(t, err)

	addr, err := v.Address(&testParams)
	require.NoError(t, err)

	const vaultValue = btcutil.Amount(100_000)
	op := fundAddress(t, client, addr, vaultValue)
	log.Infof("Funded vault %v with outpoint %v", addr, op)

	// The wallet only sees the recovered coin after importing the
	// recovery key.
	descriptor, err := btc.KeyPathDescriptor(keys.Recovery, &testParams)
	require.NoError(t, err)
	require.NoError(t, ledger.ImportDescriptor(descriptor, "itest"))

	fee := spend.RecoveryFee(spend.FeeRateFromSatPerVByte(2), true)
	finalTx, err := spend.RecoverByKey(&spend.RecoveryRequest{
		Vault:     v,
		PrevOut:   op,
		PrevValue: vaultValue,
		Fee:       fee,
	}, keys.Recovery)
	require.NoError(t, err)
	require.NoError(t, finalTx.Verify())

	txid, err := ledger.PublishTx(finalTx.Tx)
	require.NoError(t, err)
	require.Equal(t, finalTx.Tx.TxHash().String(), txid)
	mineBlocks(t, client, 1)

	_, addrs, _, err := txscript.ExtractPkScriptAddrs(
		v.RecoverySPK, &testParams,
	)
	require.NoError(t, err)
	require.Len(t, addrs, 1)

	coins, err := ledger.Unspent(addrs[0])
	require.NoError(t, err)
	require.Len(t, coins, 1)
	require.Equal(t, vaultValue-fee, coins[0].Value)
	require.Equal(t, txid, coins[0].OutPoint.Hash.String())
}

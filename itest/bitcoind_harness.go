//go:build itest

package itest

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/bitvault/bitvault/btc"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

const (
	rpcHost = "127.0.0.1:18443"
	rpcUser = "bitvault"
	rpcPass = "bitvault"
)

var testParams = chaincfg.RegressionNetParams

func connectBitcoind(t *testing.T) *rpcclient.Client {
	t.Helper()

	rpcCfg := rpcclient.ConnConfig{
		Host:                 rpcHost,
		User:                 rpcUser,
		Pass:                 rpcPass,
		DisableConnectOnNew:  true,
		DisableAutoReconnect: false,
		DisableTLS:           true,
		HTTPPostMode:         true,
	}

	client, err := rpcclient.New(&rpcCfg, nil)
	require.NoError(t, err)
	t.Cleanup(client.Shutdown)

	return client
}

func newLedger(t *testing.T) *btc.Bitcoind {
	t.Helper()

	ledger, err := btc.NewBitcoind(&btc.BitcoindConfig{
		Host: rpcHost,
		User: rpcUser,
		Pass: rpcPass,
	}, &testParams)
	require.NoError(t, err)
	t.Cleanup(ledger.Shutdown)

	return ledger
}

// walletAddress returns a new address of the node's wallet.
func walletAddress(t *testing.T, client *rpcclient.Client) btcutil.Address {
	t.Helper()

	resp, err := client.RawRequest("getnewaddress", []json.RawMessage{})
	require.NoError(t, err)

	var addrStr string
	require.NoError(t, json.Unmarshal(resp, &addrStr))

	addr, err := btcutil.DecodeAddress(addrStr, &testParams)
	require.NoError(t, err)

	return addr
}

func mineBlocks(t *testing.T, client *rpcclient.Client, numBlocks int64) {
	t.Helper()

	_, err := client.GenerateToAddress(
		numBlocks, walletAddress(t, client), nil,
	)
	require.NoError(t, err)
}

// fundAddress pays the amount from the node's wallet to the address, confirms
// the transaction and returns the funded outpoint.
func fundAddress(t *testing.T, client *rpcclient.Client, addr btcutil.Address,
	amount btcutil.Amount) wire.OutPoint {

	t.Helper()

	txid, err := client.SendToAddress(addr, amount)
	require.NoError(t, err)
	mineBlocks(t, client, 1)

	result, err := client.GetTransaction(txid)
	require.NoError(t, err)

	txBytes, err := hex.DecodeString(result.Hex)
	require.NoError(t, err)
	tx := &wire.MsgTx{}
	require.NoError(t, tx.Deserialize(bytes.NewReader(txBytes)))

	pkScript, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)
	for idx, txOut := range tx.TxOut {
		if bytes.Equal(txOut.PkScript, pkScript) {
			return wire.OutPoint{
				Hash:  tx.TxHash(),
				Index: uint32(idx),
			}
		}
	}

	t.Fatalf("output to %v not found in %v", addr, txid)

	return wire.OutPoint{}
}

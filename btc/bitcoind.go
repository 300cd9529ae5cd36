package btc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
)

const (
	// maxConfirmations is the upper bound of confirmations we ask
	// bitcoind to report unspent outputs for.
	maxConfirmations = 9999999
)

// BitcoindConfig holds the connection details of a bitcoind node.
type BitcoindConfig struct {
	Host string
	User string
	Pass string
}

// Bitcoind is a Ledger backed by the JSON-RPC interface of a bitcoind node.
type Bitcoind struct {
	client *rpcclient.Client
	params *chaincfg.Params
}

// A compile time check to make sure Bitcoind implements Ledger.
var _ Ledger = (*Bitcoind)(nil)

// NewBitcoind creates a new HTTP POST mode RPC client for bitcoind.
func NewBitcoind(cfg *BitcoindConfig,
	params *chaincfg.Params) (*Bitcoind, error) {

	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
	if err != nil {
		return nil, vault.NewError(
			vault.KindCollaborator, "bitcoind connect",
			fmt.Errorf("error creating RPC client: %w", err),
		)
	}

	return &Bitcoind{
		client: client,
		params: params,
	}, nil
}

// Shutdown stops the RPC client.
func (b *Bitcoind) Shutdown() {
	b.client.Shutdown()
}

// Unspent returns the unspent outputs of the address that are known to the
// wallet of the node.
func (b *Bitcoind) Unspent(addr btcutil.Address) ([]*Coin, error) {
	results, err := b.client.ListUnspentMinMaxAddresses(
		0, maxConfirmations, []btcutil.Address{addr},
	)
	if err != nil {
		return nil, rpcError("listunspent", err)
	}

	coins := make([]*Coin, 0, len(results))
	for _, result := range results {
		hash, err := chainhash.NewHashFromStr(result.TxID)
		if err != nil {
			return nil, fmt.Errorf("error parsing txid: %w", err)
		}
		pkScript, err := hex.DecodeString(result.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("error parsing script: %w", err)
		}
		value, err := btcutil.NewAmount(result.Amount)
		if err != nil {
			return nil, fmt.Errorf("error parsing amount: %w", err)
		}

		coins = append(coins, &Coin{
			OutPoint:      *wire.NewOutPoint(hash, result.Vout),
			PkScript:      pkScript,
			Value:         value,
			Confirmations: result.Confirmations,
		})
	}

	return coins, nil
}

// PublishTx sends the transaction to the node.
func (b *Bitcoind) PublishTx(tx *wire.MsgTx) (string, error) {
	txid, err := b.client.SendRawTransaction(tx, false)
	if err != nil {
		return "", rpcError("sendrawtransaction", err)
	}

	log.Infof("Published transaction %v", txid)

	return txid.String(), nil
}

// SendToAddress pays the amount from the node's wallet to the address.
func (b *Bitcoind) SendToAddress(addr btcutil.Address,
	amount btcutil.Amount) (*chainhash.Hash, error) {

	txid, err := b.client.SendToAddress(addr, amount)
	if err != nil {
		return nil, rpcError("sendtoaddress", err)
	}

	return txid, nil
}

// ImportDescriptor imports a single descriptor into the node's wallet.
func (b *Bitcoind) ImportDescriptor(descriptor, label string) error {
	request, err := json.Marshal([]*ImportRequest{{
		Descriptor: DescriptorSumCreate(descriptor),
		Timestamp:  "now",
		Label:      label,
	}})
	if err != nil {
		return fmt.Errorf("error encoding request: %w", err)
	}

	response, err := b.client.RawRequest(
		"importdescriptors", []json.RawMessage{request},
	)
	if err != nil {
		return rpcError("importdescriptors", err)
	}

	var results []*importResult
	if err := json.Unmarshal(response, &results); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	if len(results) != 1 {
		return fmt.Errorf("unexpected number of results: %d",
			len(results))
	}

	result := results[0]
	if !result.Success {
		if result.Error != nil {
			return rpcError("importdescriptors", result.Error)
		}

		return rpcError(
			"importdescriptors",
			errors.New("an unexpected error occurred"),
		)
	}

	return nil
}

// ImportRequest is a single request of the importdescriptors call.
type ImportRequest struct {
	Descriptor string `json:"desc"`
	Timestamp  string `json:"timestamp"`
	Label      string `json:"label,omitempty"`
}

type importResult struct {
	Success bool              `json:"success"`
	Error   *btcjson.RPCError `json:"error,omitempty"`
}

// rpcError wraps an error returned by bitcoind.
func rpcError(method string, err error) error {
	var jsonErr *btcjson.RPCError
	if errors.As(err, &jsonErr) {
		return vault.NewError(
			vault.KindCollaborator, method,
			fmt.Errorf("bitcoind error %d: %w", jsonErr.Code, err),
		)
	}

	return vault.NewError(vault.KindCollaborator, method, err)
}

package btc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const (
	defaultTimeout = 30 * time.Second
)

// ExplorerAPI is a Ledger backed by the REST API of an Esplora compatible
// block explorer.
type ExplorerAPI struct {
	BaseURL string

	client *http.Client
}

// A compile time check to make sure ExplorerAPI implements Ledger.
var _ Ledger = (*ExplorerAPI)(nil)

// NewExplorerAPI creates a new explorer API client.
func NewExplorerAPI(baseURL string) *ExplorerAPI {
	return &ExplorerAPI{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// UTXO is an unspent output as returned by the explorer.
type UTXO struct {
	Txid   string  `json:"txid"`
	Vout   uint32  `json:"vout"`
	Value  uint64  `json:"value"`
	Status *Status `json:"status"`
}

// Status is the confirmation status of a transaction.
type Status struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight int    `json:"block_height"`
	BlockHash   string `json:"block_hash"`
}

// Unspent returns the unspent outputs of the address.
func (a *ExplorerAPI) Unspent(addr btcutil.Address) ([]*Coin, error) {
	var utxos []*UTXO
	err := a.fetchJSON(
		fmt.Sprintf("%s/address/%s/utxo", a.BaseURL, addr), &utxos,
	)
	if err != nil {
		return nil, err
	}

	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("error creating script: %w", err)
	}

	coins := make([]*Coin, 0, len(utxos))
	for _, utxo := range utxos {
		hash, err := chainhash.NewHashFromStr(utxo.Txid)
		if err != nil {
			return nil, fmt.Errorf("error parsing txid: %w", err)
		}

		// The explorer doesn't report confirmation counts, we only
		// distinguish between confirmed and unconfirmed.
		var confirmations int64
		if utxo.Status != nil && utxo.Status.Confirmed {
			confirmations = 1
		}

		coins = append(coins, &Coin{
			OutPoint:      *wire.NewOutPoint(hash, utxo.Vout),
			PkScript:      pkScript,
			Value:         btcutil.Amount(utxo.Value),
			Confirmations: confirmations,
		})
	}

	return coins, nil
}

// PublishTx posts the hex encoded transaction to the explorer.
func (a *ExplorerAPI) PublishTx(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("error serializing tx: %w", err)
	}

	url := fmt.Sprintf("%s/tx", a.BaseURL)
	resp, err := a.httpClient().Post(
		url, "text/plain",
		strings.NewReader(hex.EncodeToString(buf.Bytes())),
	)
	if err != nil {
		return "", vault.NewError(
			vault.KindCollaborator, "publish", err,
		)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", vault.NewError(
			vault.KindCollaborator, "publish", err,
		)
	}
	if resp.StatusCode != http.StatusOK {
		return "", vault.Errorf(
			vault.KindCollaborator, "publish", "explorer returned "+
				"status %d: %s", resp.StatusCode,
			strings.TrimSpace(string(body)),
		)
	}

	txid := strings.TrimSpace(string(body))
	log.Infof("Published transaction %s", txid)

	return txid, nil
}

func (a *ExplorerAPI) httpClient() *http.Client {
	if a.client == nil {
		return http.DefaultClient
	}

	return a.client
}

func (a *ExplorerAPI) fetchJSON(url string, target any) error {
	resp, err := a.httpClient().Get(url)
	if err != nil {
		return vault.NewError(vault.KindCollaborator, "fetch", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return vault.NewError(vault.KindCollaborator, "fetch", err)
	}
	if resp.StatusCode != http.StatusOK {
		return vault.Errorf(
			vault.KindCollaborator, "fetch", "explorer returned "+
				"status %d for %s: %s", resp.StatusCode, url,
			strings.TrimSpace(string(body)),
		)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return vault.NewError(
			vault.KindCollaborator, "fetch",
			fmt.Errorf("error decoding response: %w", err),
		)
	}

	return nil
}

package btc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrCoinNotFound is returned if an output can't be found in the set
	// of unspent outputs of an address.
	ErrCoinNotFound = errors.New("coin not found")
)

// Coin is an unspent transaction output.
type Coin struct {
	OutPoint      wire.OutPoint
	PkScript      []byte
	Value         btcutil.Amount
	Confirmations int64
}

// Ledger is the view on the blockchain the vault commands need. It is served
// either by a bitcoind node or by an Esplora compatible block explorer.
type Ledger interface {
	// Unspent returns all unspent outputs that pay to the address.
	Unspent(addr btcutil.Address) ([]*Coin, error)

	// PublishTx broadcasts the transaction and returns its ID.
	PublishTx(tx *wire.MsgTx) (string, error)
}

// ParseOutPoint parses an outpoint in the format txid:index.
func ParseOutPoint(s string) (*wire.OutPoint, error) {
	split := strings.Split(s, ":")
	if len(split) != 2 || len(split[0]) == 0 || len(split[1]) == 0 {
		return nil, fmt.Errorf("invalid outpoint format: %s", s)
	}

	h, err := chainhash.NewHashFromStr(split[0])
	if err != nil {
		return nil, fmt.Errorf("error parsing hash: %w", err)
	}

	index, err := strconv.ParseUint(split[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("error parsing index: %w", err)
	}

	return wire.NewOutPoint(h, uint32(index)), nil
}

// FindCoin looks up an unspent output of the address. If op is nil, the
// first confirmed coin is returned.
func FindCoin(ledger Ledger, addr btcutil.Address,
	op *wire.OutPoint) (*Coin, error) {

	coins, err := ledger.Unspent(addr)
	if err != nil {
		return nil, err
	}

	log.Debugf("Found %d unspent outputs for %v", len(coins), addr)

	for _, coin := range coins {
		switch {
		case op == nil && coin.Confirmations > 0:
			return coin, nil

		case op != nil && coin.OutPoint == *op:
			return coin, nil
		}
	}

	return nil, fmt.Errorf("%w: address %v", ErrCoinNotFound, addr)
}

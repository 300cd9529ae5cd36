package vault

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

const (
	// KeyPurpose is the BIP-0043 purpose field of the vault key family.
	KeyPurpose = 345

	// RecoveryBranch is the derivation branch of the recovery keys.
	RecoveryBranch uint32 = 0

	// UnvaultBranch is the derivation branch of the unvault keys.
	UnvaultBranch uint32 = 1
)

// Keys is the pair of private keys that controls a vault.
type Keys struct {
	// Recovery is the key that owns the recovery destination.
	Recovery *btcec.PrivateKey

	// Unvault authorizes triggering a withdrawal.
	Unvault *btcec.PrivateKey
}

// KeySource hands out the keys of a vault identified by its label.
type KeySource interface {
	VaultKeys(label string) (*Keys, error)
}

// GenerateKeys creates a fresh, random pair of vault keys.
func GenerateKeys() (*Keys, error) {
	recoveryKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("error generating recovery key: %w", err)
	}
	unvaultKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("error generating unvault key: %w", err)
	}

	return &Keys{
		Recovery: recoveryKey,
		Unvault:  unvaultKey,
	}, nil
}

// HDKeySource derives vault keys from an extended root key. The keys of a
// vault live at
//
//	m/345'/<coin_type>'/0'/<branch>/<label_index>
//
// so only the label needs to be stored to re-create a vault.
type HDKeySource struct {
	RootKey     *hdkeychain.ExtendedKey
	ChainParams *chaincfg.Params
}

// A compile time check to make sure HDKeySource implements KeySource.
var _ KeySource = (*HDKeySource)(nil)

// LabelIndex maps a vault label to a non-hardened child index.
func LabelIndex(label string) uint32 {
	digest := sha256.Sum256([]byte(label))

	index := binary.BigEndian.Uint32(digest[:4])

	return index &^ hdkeychain.HardenedKeyStart
}

// VaultKeys derives the recovery and unvault key of the vault with the given
// label.
func (s *HDKeySource) VaultKeys(label string) (*Keys, error) {
	if label == "" {
		return nil, NewError(
			KindMalformedInput, "vault keys",
			errors.New("label cannot be empty"),
		)
	}
	if s.RootKey == nil {
		return nil, NewError(
			KindMalformedInput, "vault keys",
			errors.New("root key not set"),
		)
	}

	account, err := DeriveChildren(s.RootKey, []uint32{
		hdkeychain.HardenedKeyStart + KeyPurpose,
		hdkeychain.HardenedKeyStart + s.ChainParams.HDCoinType,
		hdkeychain.HardenedKeyStart + 0,
	})
	if err != nil {
		return nil, NewError(KindMalformedInput, "vault keys", err)
	}

	index := LabelIndex(label)
	recovery, err := privKeyAt(account, RecoveryBranch, index)
	if err != nil {
		return nil, NewError(KindMalformedInput, "vault keys", err)
	}
	unvault, err := privKeyAt(account, UnvaultBranch, index)
	if err != nil {
		return nil, NewError(KindMalformedInput, "vault keys", err)
	}

	log.Debugf("Derived keys for vault %s at index %d", label, index)

	return &Keys{
		Recovery: recovery,
		Unvault:  unvault,
	}, nil
}

// DeriveChildren derives the key at the given path below key.
func DeriveChildren(key *hdkeychain.ExtendedKey,
	path []uint32) (*hdkeychain.ExtendedKey, error) {

	var (
		currentKey = key
		err        error
	)
	for idx, pathPart := range path {
		currentKey, err = currentKey.Derive(pathPart)
		if err != nil {
			return nil, fmt.Errorf("error deriving path element "+
				"%d: %w", idx, err)
		}
	}

	return currentKey, nil
}

func privKeyAt(account *hdkeychain.ExtendedKey, branch,
	index uint32) (*btcec.PrivateKey, error) {

	child, err := DeriveChildren(account, []uint32{branch, index})
	if err != nil {
		return nil, err
	}

	return child.ECPrivKey()
}

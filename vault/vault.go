package vault

import (
	"errors"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Vault is a taproot output with a recovery leaf and a trigger leaf. The
// internal key of the output is the recovery key so the owner of the recovery
// key can always sweep the funds through the key path as well.
type Vault struct {
	// RecoveryKey is the public recovery key, used as the taproot
	// internal key.
	RecoveryKey *btcec.PublicKey

	// UnvaultKey is the private key that signs trigger transactions.
	UnvaultKey *btcec.PrivateKey

	// SpendDelay is the relative block delay between a trigger and the
	// final withdrawal.
	SpendDelay uint16

	// RecoverySPK is the output script funds are recovered to.
	RecoverySPK []byte

	RecoveryScript []byte
	TriggerScript  []byte

	// VaultScript is the taproot output script of the vault.
	VaultScript []byte

	tree *SpendTree
}

// Create creates a new vault with freshly generated keys.
func Create(spendDelay uint16) (*Vault, error) {
	keys, err := GenerateKeys()
	if err != nil {
		return nil, NewError(KindMalformedInput, "create vault", err)
	}

	return New(keys, spendDelay)
}

// New creates the vault controlled by the given keys.
func New(keys *Keys, spendDelay uint16) (*Vault, error) {
	if keys == nil || keys.Recovery == nil || keys.Unvault == nil {
		return nil, NewError(
			KindMalformedInput, "create vault",
			errors.New("recovery and unvault key are required"),
		)
	}

	return FromKeys(keys.Recovery.PubKey(), keys.Unvault, spendDelay)
}

// FromKeys creates a vault from the public recovery key and the private
// unvault key.
func FromKeys(recoveryKey *btcec.PublicKey, unvaultKey *btcec.PrivateKey,
	spendDelay uint16) (*Vault, error) {

	if spendDelay == 0 {
		return nil, NewError(
			KindMalformedInput, "create vault",
			errors.New("spend delay must be positive"),
		)
	}
	if recoveryKey == nil || unvaultKey == nil {
		return nil, NewError(
			KindMalformedInput, "create vault",
			errors.New("recovery and unvault key are required"),
		)
	}

	recoverySPK, err := RecoverySPK(recoveryKey)
	if err != nil {
		return nil, err
	}
	recoveryScript, err := RecoveryScript(recoverySPK)
	if err != nil {
		return nil, err
	}
	triggerScript, err := TriggerScript(unvaultKey.PubKey(), spendDelay)
	if err != nil {
		return nil, err
	}

	tree, err := NewSpendTree(recoveryScript, triggerScript, recoveryKey)
	if err != nil {
		return nil, err
	}

	log.Tracef("Created vault with spend delay %d, output key %x",
		spendDelay, tree.PkScript[2:])

	return &Vault{
		RecoveryKey:    recoveryKey,
		UnvaultKey:     unvaultKey,
		SpendDelay:     spendDelay,
		RecoverySPK:    recoverySPK,
		RecoveryScript: recoveryScript,
		TriggerScript:  triggerScript,
		VaultScript:    tree.PkScript,
		tree:           tree,
	}, nil
}

// Tree returns the spend tree of the vault output.
func (v *Vault) Tree() *SpendTree {
	return v.tree
}

// Address returns the address of the vault output.
func (v *Vault) Address(
	params *chaincfg.Params) (*btcutil.AddressTaproot, error) {

	return v.tree.Address(params)
}

// TriggerLeafHash returns the tap leaf hash of the trigger script.
func (v *Vault) TriggerLeafHash() chainhash.Hash {
	hash, _ := v.tree.LeafHash(v.TriggerScript)
	return hash
}

// RecoveryLeafHash returns the tap leaf hash of the recovery script.
func (v *Vault) RecoveryLeafHash() chainhash.Hash {
	hash, _ := v.tree.LeafHash(v.RecoveryScript)
	return hash
}

// Sequence returns the relative lock time sequence that enforces the spend
// delay.
func (v *Vault) Sequence() uint32 {
	return Sequence(v.SpendDelay)
}

// Sequence returns the block based relative lock time sequence of the given
// delay.
func Sequence(spendDelay uint16) uint32 {
	return blockchain.LockTimeToSequence(false, uint32(spendDelay))
}

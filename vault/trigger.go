package vault

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Trigger is the output a vault is moved into when a withdrawal is started.
// It can be swept to the recovery destination at any time and spent through
// the withdrawal template once the spend delay has passed.
type Trigger struct {
	Vault *Vault

	// WithdrawTemplate is the transaction template the withdrawal leaf
	// commits to.
	WithdrawTemplate *wire.MsgTx

	// TargetHash is the template hash of the withdrawal template.
	TargetHash chainhash.Hash

	WithdrawScript []byte

	// OutputScript is the taproot output script of the trigger output.
	OutputScript []byte

	tree *SpendTree
}

// WithdrawTemplate returns the fixed withdrawal template of a vault with the
// given spend delay: version 2, lock time 0, a single input with a null
// previous outpoint whose sequence enforces the delay and no outputs.
func WithdrawTemplate(spendDelay uint16) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{
			Index: wire.MaxPrevOutIndex,
		},
		Sequence: Sequence(spendDelay),
	})

	return tx
}

// NewTrigger derives the trigger output of the given vault.
func NewTrigger(v *Vault) (*Trigger, error) {
	if v == nil {
		return nil, NewError(
			KindMalformedInput, "trigger", errors.New("nil vault"),
		)
	}

	template := WithdrawTemplate(v.SpendDelay)
	targetHash, err := StandardTemplateHash(template, 0)
	if err != nil {
		return nil, err
	}

	withdrawScript, err := WithdrawScript(targetHash, v.SpendDelay)
	if err != nil {
		return nil, err
	}

	tree, err := NewSpendTree(
		v.RecoveryScript, withdrawScript, v.RecoveryKey,
	)
	if err != nil {
		return nil, err
	}

	return &Trigger{
		Vault:            v,
		WithdrawTemplate: template,
		TargetHash:       targetHash,
		WithdrawScript:   withdrawScript,
		OutputScript:     tree.PkScript,
		tree:             tree,
	}, nil
}

// Tree returns the spend tree of the trigger output.
func (t *Trigger) Tree() *SpendTree {
	return t.tree
}

// Address returns the address of the trigger output.
func (t *Trigger) Address(
	params *chaincfg.Params) (*btcutil.AddressTaproot, error) {

	return t.tree.Address(params)
}

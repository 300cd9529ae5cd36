package spend

import (
	"bytes"
	"errors"

	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/mempool"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// RecoveryRequest describes a sweep of a vault or trigger output to the
// recovery destination.
type RecoveryRequest struct {
	Vault *vault.Vault

	// Trigger is set if the spent output is a trigger output instead of
	// the vault output itself.
	Trigger *vault.Trigger

	PrevOut   wire.OutPoint
	PrevValue btcutil.Amount
	Fee       btcutil.Amount
}

// spentTree returns the spend tree of the output being recovered.
func (r *RecoveryRequest) spentTree() *vault.SpendTree {
	if r.Trigger != nil {
		return r.Trigger.Tree()
	}

	return r.Vault.Tree()
}

// recoveryTx creates the unsigned sweep of the spent output to the recovery
// output script.
func (r *RecoveryRequest) recoveryTx() (*wire.MsgTx, *wire.TxOut, error) {
	if r.Vault == nil {
		return nil, nil, vault.NewError(
			vault.KindMalformedInput, "recover",
			errors.New("vault is required"),
		)
	}

	sweepValue := r.PrevValue - r.Fee
	if r.Fee < 0 || sweepValue <= 0 {
		return nil, nil, vault.Errorf(
			vault.KindMalformedInput, "recover", "value %v does "+
				"not cover fee %v", r.PrevValue, r.Fee,
		)
	}

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: r.PrevOut,
		Sequence:         mempool.MaxRBFSequence,
	})
	tx.AddTxOut(wire.NewTxOut(int64(sweepValue), r.Vault.RecoverySPK))

	prevOut := wire.NewTxOut(int64(r.PrevValue), r.spentTree().PkScript)

	return tx, prevOut, nil
}

// RecoverByScript sweeps the output through the recovery leaf. The recovery
// leaf doesn't require a signature, anybody can push the funds to the
// recovery destination.
func RecoverByScript(req *RecoveryRequest) (*FinalizedTx, error) {
	tx, prevOut, err := req.recoveryTx()
	if err != nil {
		return nil, err
	}

	packet, err := newScriptSpendPacket(
		tx, prevOut, req.spentTree(), req.Vault.RecoveryScript,
		txscript.SigHashDefault,
	)
	if err != nil {
		return nil, err
	}

	// The recovery output is the first output.
	leaf := packet.Inputs[0].TaprootLeafScript[0]
	finalTx, err := finalizeInput(packet, wire.TxWitness{
		Bn2Vch(0), leaf.Script, leaf.ControlBlock,
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Created script path recovery %v of output %v",
		finalTx.Tx.TxHash(), req.PrevOut)

	return finalTx, nil
}

// RecoverByKey sweeps the output through the taproot key path with the
// recovery private key.
func RecoverByKey(req *RecoveryRequest,
	recoveryKey *btcec.PrivateKey) (*FinalizedTx, error) {

	tx, prevOut, err := req.recoveryTx()
	if err != nil {
		return nil, err
	}

	if recoveryKey == nil {
		return nil, vault.Errorf(
			vault.KindSigning, "recover", "nil recovery key",
		)
	}
	ourKey := schnorr.SerializePubKey(recoveryKey.PubKey())
	vaultKey := schnorr.SerializePubKey(req.Vault.RecoveryKey)
	if !bytes.Equal(ourKey, vaultKey) {
		return nil, vault.Errorf(
			vault.KindSigning, "recover", "private key doesn't "+
				"match recovery key",
		)
	}

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, vault.NewError(
			vault.KindMalformedInput, "create psbt", err,
		)
	}

	tree := req.spentTree()
	pIn := &packet.Inputs[0]
	pIn.WitnessUtxo = prevOut
	pIn.SighashType = txscript.SigHashDefault
	pIn.TaprootInternalKey = schnorr.SerializePubKey(tree.InternalKey)
	pIn.TaprootMerkleRoot = tree.MerkleRoot[:]

	fetcher := prevOutFetcher(prevOut)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	sig, err := txscript.RawTxInTaprootSignature(
		tx, sigHashes, 0, prevOut.Value, prevOut.PkScript,
		tree.MerkleRoot[:], pIn.SighashType, recoveryKey,
	)
	if err != nil {
		return nil, vault.NewError(vault.KindSigning, "recover", err)
	}
	pIn.TaprootKeySpendSig = sig

	finalTx, err := finalizeInput(packet, wire.TxWitness{sig})
	if err != nil {
		return nil, err
	}

	log.Infof("Created key path recovery %v of output %v",
		finalTx.Tx.TxHash(), req.PrevOut)

	return finalTx, nil
}

package spend

import (
	"errors"

	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// WithdrawRequest describes the spend of a matured trigger output through
// its withdrawal leaf.
type WithdrawRequest struct {
	// Trigger is the trigger output being spent.
	Trigger *vault.Trigger

	// PrevOut is the outpoint of the trigger output.
	PrevOut wire.OutPoint

	// PrevValue is the value of the trigger output.
	PrevValue btcutil.Amount
}

// Withdraw creates the withdrawal transaction. The transaction is the
// withdrawal template the trigger output commits to, with the trigger output
// as its input. No signature is needed, the template hash and the relative
// lock time authorize the spend.
func Withdraw(req *WithdrawRequest) (*FinalizedTx, error) {
	if req == nil || req.Trigger == nil {
		return nil, vault.NewError(
			vault.KindMalformedInput, "withdraw",
			errors.New("trigger is required"),
		)
	}
	trigger := req.Trigger

	tx := trigger.WithdrawTemplate.Copy()
	tx.TxIn[0].PreviousOutPoint = req.PrevOut

	// The outpoint isn't part of the commitment, so the filled in template
	// must still hash to the committed target.
	targetHash, err := vault.StandardTemplateHash(tx, 0)
	if err != nil {
		return nil, err
	}
	if targetHash != trigger.TargetHash {
		return nil, vault.Errorf(
			vault.KindMalformedInput, "withdraw", "withdrawal "+
				"template hash %x does not match target %x",
			targetHash[:], trigger.TargetHash[:],
		)
	}

	prevOut := wire.NewTxOut(int64(req.PrevValue), trigger.OutputScript)
	packet, err := newScriptSpendPacket(
		tx, prevOut, trigger.Tree(), trigger.WithdrawScript,
		txscript.SigHashDefault,
	)
	if err != nil {
		return nil, err
	}

	leaf := packet.Inputs[0].TaprootLeafScript[0]
	finalTx, err := finalizeInput(packet, wire.TxWitness{
		leaf.Script, leaf.ControlBlock,
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Created withdrawal %v spending trigger output %v",
		finalTx.Tx.TxHash(), req.PrevOut)

	return finalTx, nil
}

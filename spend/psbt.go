package spend

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// FinalizedTx is a fully signed transaction extracted from its PSBT.
type FinalizedTx struct {
	Tx *wire.MsgTx

	// PrevOut is the output spent by the first input.
	PrevOut *wire.TxOut

	// Packet is the finalized PSBT the transaction was extracted from.
	Packet *psbt.Packet
}

// Hex returns the hex encoded, witness serialized transaction.
func (f *FinalizedTx) Hex() (string, error) {
	var buf bytes.Buffer
	if err := f.Tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("error serializing tx: %w", err)
	}

	return hex.EncodeToString(buf.Bytes()), nil
}

// Witness returns the witness stack of the spending input.
func (f *FinalizedTx) Witness() wire.TxWitness {
	return f.Tx.TxIn[0].Witness
}

// newScriptSpendPacket creates a PSBT for a transaction that spends a tree
// output through the given leaf.
func newScriptSpendPacket(tx *wire.MsgTx, prevOut *wire.TxOut,
	tree *vault.SpendTree, leafScript []byte,
	hashType txscript.SigHashType) (*psbt.Packet, error) {

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, vault.NewError(
			vault.KindMalformedInput, "create psbt", err,
		)
	}

	controlBlock, err := tree.ControlBlockBytes(leafScript)
	if err != nil {
		return nil, err
	}

	pIn := &packet.Inputs[0]
	pIn.WitnessUtxo = prevOut
	pIn.SighashType = hashType
	pIn.TaprootInternalKey = schnorr.SerializePubKey(tree.InternalKey)
	pIn.TaprootMerkleRoot = tree.MerkleRoot[:]
	pIn.TaprootLeafScript = []*psbt.TaprootTapLeafScript{{
		ControlBlock: controlBlock,
		Script:       leafScript,
		LeafVersion:  txscript.BaseLeafVersion,
	}}

	return packet, nil
}

// copyPacket returns a copy of the packet that can be added to without
// changing the original. Fields that are only ever replaced, never written
// to, are shared.
func copyPacket(packet *psbt.Packet) *psbt.Packet {
	cp := *packet
	cp.UnsignedTx = packet.UnsignedTx.Copy()

	cp.Inputs = make([]psbt.PInput, len(packet.Inputs))
	for i, pIn := range packet.Inputs {
		pIn.TaprootScriptSpendSig = append(
			[]*psbt.TaprootScriptSpendSig(nil),
			pIn.TaprootScriptSpendSig...,
		)
		pIn.TaprootLeafScript = append(
			[]*psbt.TaprootTapLeafScript(nil),
			pIn.TaprootLeafScript...,
		)
		cp.Inputs[i] = pIn
	}
	cp.Outputs = append([]psbt.POutput(nil), packet.Outputs...)

	return &cp
}

// finalizeInput places the final witness on the input of a copy of the packet
// and extracts the transaction. All other input fields are dropped from the
// copy, as after finalization only the witness UTXO and the final witness
// remain.
func finalizeInput(packet *psbt.Packet, witness wire.TxWitness) (*FinalizedTx,
	error) {

	packet = copyPacket(packet)

	var buf bytes.Buffer
	if err := psbt.WriteTxWitness(&buf, witness); err != nil {
		return nil, vault.NewError(
			vault.KindExtract, "finalize", fmt.Errorf("error "+
				"serializing witness: %w", err),
		)
	}

	prevOut := packet.Inputs[0].WitnessUtxo
	packet.Inputs[0] = psbt.PInput{
		WitnessUtxo:        prevOut,
		FinalScriptWitness: buf.Bytes(),
	}

	tx, err := psbt.Extract(packet)
	if err != nil {
		return nil, vault.NewError(vault.KindExtract, "extract", err)
	}

	return &FinalizedTx{
		Tx:      tx,
		PrevOut: prevOut,
		Packet:  packet,
	}, nil
}

// prevOutFetcher returns a fetcher for the single spent output of a packet.
func prevOutFetcher(prevOut *wire.TxOut) *txscript.CannedPrevOutputFetcher {
	return txscript.NewCannedPrevOutputFetcher(
		prevOut.PkScript, prevOut.Value,
	)
}

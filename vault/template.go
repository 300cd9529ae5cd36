package vault

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// CompactSize returns the Bitcoin compact size encoding of n.
func CompactSize(n uint64) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarInt(&buf, 0, n)

	return buf.Bytes()
}

// StandardTemplateHash computes the CHECKTEMPLATEVERIFY commitment of the
// given transaction for the input at inputIndex. The hash is a single SHA256
// over the serialization
//
//	version || locktime || [sha256(scriptSigs)] || #inputs ||
//	sha256(sequences) || #outputs || sha256(outputs) || inputIndex
//
// where the script sig hash is only included if at least one input has a non
// empty signature script. All integers are little endian.
func StandardTemplateHash(tx *wire.MsgTx,
	inputIndex uint32) (chainhash.Hash, error) {

	if tx == nil {
		return chainhash.Hash{}, Errorf(
			KindMalformedInput, "template hash", "nil transaction",
		)
	}

	var buf bytes.Buffer
	writeUint32(&buf, uint32(tx.Version))
	writeUint32(&buf, tx.LockTime)

	if hasScriptSigs(tx) {
		var scriptSigs bytes.Buffer
		for _, txIn := range tx.TxIn {
			err := wire.WriteVarBytes(
				&scriptSigs, 0, txIn.SignatureScript,
			)
			if err != nil {
				return chainhash.Hash{}, NewError(
					KindMalformedInput, "template hash",
					fmt.Errorf("error serializing script "+
						"sig: %w", err),
				)
			}
		}
		scriptSigHash := chainhash.HashH(scriptSigs.Bytes())
		buf.Write(scriptSigHash[:])
	}

	writeUint32(&buf, uint32(len(tx.TxIn)))

	var sequences bytes.Buffer
	for _, txIn := range tx.TxIn {
		writeUint32(&sequences, txIn.Sequence)
	}
	sequenceHash := chainhash.HashH(sequences.Bytes())
	buf.Write(sequenceHash[:])

	writeUint32(&buf, uint32(len(tx.TxOut)))

	var outputs bytes.Buffer
	for _, txOut := range tx.TxOut {
		err := wire.WriteTxOut(&outputs, 0, tx.Version, txOut)
		if err != nil {
			return chainhash.Hash{}, NewError(
				KindMalformedInput, "template hash",
				fmt.Errorf("error serializing output: %w",
					err),
			)
		}
	}
	outputHash := chainhash.HashH(outputs.Bytes())
	buf.Write(outputHash[:])

	writeUint32(&buf, inputIndex)

	return chainhash.HashH(buf.Bytes()), nil
}

func hasScriptSigs(tx *wire.MsgTx) bool {
	for _, txIn := range tx.TxIn {
		if len(txIn.SignatureScript) > 0 {
			return true
		}
	}

	return false
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], v)
	buf.Write(scratch[:])
}

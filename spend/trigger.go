package spend

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/mempool"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// DefaultHashType is the signature hash type trigger signatures commit
	// with unless the request asks for another one.
	DefaultHashType = txscript.SigHashAll
)

// TriggerRequest describes a trigger transaction that moves a vault output
// into the trigger output.
type TriggerRequest struct {
	// Vault is the vault the spent output belongs to.
	Vault *vault.Vault

	// PrevOut is the vault output being spent.
	PrevOut wire.OutPoint

	// PrevValue is the value of the vault output.
	PrevValue btcutil.Amount

	// PrevPkScript optionally is the output script of the spent output as
	// reported by the chain backend. If set it must match the vault
	// script.
	PrevPkScript []byte

	// Fee is the absolute fee the trigger transaction pays.
	Fee btcutil.Amount

	// Revault is the amount that is sent back into the vault, if any.
	Revault fn.Option[btcutil.Amount]

	// HashType overrides the signature hash type.
	HashType fn.Option[txscript.SigHashType]
}

// triggerSpend is the state shared by all trigger stages. Every stage owns
// its packet, a transition copies it before adding to it.
type triggerSpend struct {
	packet       *psbt.Packet
	vault        *vault.Vault
	trigger      *vault.Trigger
	triggerIndex uint32
	revaultIndex fn.Option[uint32]
}

// next returns the state for the following stage with its own packet.
func (t *triggerSpend) next() triggerSpend {
	return triggerSpend{
		packet:       copyPacket(t.packet),
		vault:        t.vault,
		trigger:      t.trigger,
		triggerIndex: t.triggerIndex,
		revaultIndex: t.revaultIndex,
	}
}

// Packet returns a copy of the PSBT of the trigger transaction.
func (t *triggerSpend) Packet() *psbt.Packet {
	return copyPacket(t.packet)
}

// Trigger returns the trigger output description.
func (t *triggerSpend) Trigger() *vault.Trigger {
	return t.trigger
}

// RevaultIndex returns the index of the revault output, if there is one.
func (t *triggerSpend) RevaultIndex() fn.Option[uint32] {
	return t.revaultIndex
}

// UnsignedTrigger is a trigger transaction that has been built but not yet
// signed.
type UnsignedTrigger struct {
	triggerSpend
}

// SighashedTrigger is a trigger transaction with its signature hash
// computed.
type SighashedTrigger struct {
	triggerSpend

	sigHash []byte
}

// SignedTrigger is a trigger transaction carrying the unvault signature.
type SignedTrigger struct {
	triggerSpend
}

// NewTrigger builds the unsigned trigger transaction for the given request.
// The trigger output is always the first output, an optional revault output
// follows at index one.
func NewTrigger(req *TriggerRequest) (*UnsignedTrigger, error) {
	if req == nil || req.Vault == nil {
		return nil, vault.NewError(
			vault.KindMalformedInput, "new trigger",
			errors.New("vault is required"),
		)
	}
	v := req.Vault

	if req.PrevPkScript != nil &&
		!bytes.Equal(req.PrevPkScript, v.VaultScript) {

		return nil, vault.Errorf(
			vault.KindSigning, "new trigger", "output %v with "+
				"script %x is not a vault output", req.PrevOut,
			req.PrevPkScript,
		)
	}

	revaultValue := req.Revault.UnwrapOr(0)
	if req.Revault.IsSome() && revaultValue <= 0 {
		return nil, vault.Errorf(
			vault.KindMalformedInput, "new trigger",
			"revault amount must be positive",
		)
	}

	triggerValue := req.PrevValue - req.Fee - revaultValue
	if req.Fee < 0 || triggerValue <= 0 {
		return nil, vault.Errorf(
			vault.KindMalformedInput, "new trigger", "vault "+
				"value %v does not cover fee %v and revault "+
				"amount %v", req.PrevValue, req.Fee,
			revaultValue,
		)
	}

	trigger, err := vault.NewTrigger(v)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: req.PrevOut,
		Sequence:         v.Sequence(),
	})

	triggerOut := wire.NewTxOut(int64(triggerValue), trigger.OutputScript)
	if mempool.IsDust(triggerOut, mempool.DefaultMinRelayTxFee) {
		return nil, vault.Errorf(
			vault.KindMalformedInput, "new trigger", "trigger "+
				"output of %v is dust", triggerValue,
		)
	}
	tx.AddTxOut(triggerOut)

	revaultIndex := fn.None[uint32]()
	req.Revault.WhenSome(func(amt btcutil.Amount) {
		revaultIndex = fn.Some(uint32(len(tx.TxOut)))
		tx.AddTxOut(wire.NewTxOut(int64(amt), v.VaultScript))
	})

	prevOut := wire.NewTxOut(int64(req.PrevValue), v.VaultScript)
	packet, err := newScriptSpendPacket(
		tx, prevOut, v.Tree(), v.TriggerScript,
		req.HashType.UnwrapOr(DefaultHashType),
	)
	if err != nil {
		return nil, err
	}

	log.Debugf("Created trigger for vault output %v, trigger value %v, "+
		"revault output %v", req.PrevOut, triggerValue,
		req.Revault.IsSome())

	return &UnsignedTrigger{
		triggerSpend: triggerSpend{
			packet:       packet,
			vault:        v,
			trigger:      trigger,
			triggerIndex: 0,
			revaultIndex: revaultIndex,
		},
	}, nil
}

// ComputeSighash computes the tapscript signature hash of the trigger leaf
// spend.
func (u *UnsignedTrigger) ComputeSighash() (*SighashedTrigger, error) {
	pIn := u.packet.Inputs[0]
	fetcher := prevOutFetcher(pIn.WitnessUtxo)
	sigHashes := txscript.NewTxSigHashes(u.packet.UnsignedTx, fetcher)

	sigHash, err := txscript.CalcTapscriptSignaturehash(
		sigHashes, pIn.SighashType, u.packet.UnsignedTx, 0, fetcher,
		txscript.NewBaseTapLeaf(u.vault.TriggerScript),
	)
	if err != nil {
		return nil, vault.NewError(vault.KindSighash, "sighash", err)
	}

	return &SighashedTrigger{
		triggerSpend: u.next(),
		sigHash:      sigHash,
	}, nil
}

// SigHash returns the computed signature hash.
func (s *SighashedTrigger) SigHash() []byte {
	return s.sigHash
}

// Sign signs the trigger with the unvault key. The key must be the one
// committed to in the trigger script.
func (s *SighashedTrigger) Sign(
	unvaultKey *btcec.PrivateKey) (*SignedTrigger, error) {

	if unvaultKey == nil {
		return nil, vault.Errorf(
			vault.KindSigning, "sign trigger", "nil unvault key",
		)
	}

	// The trigger script starts with the 32 byte push of the x-only
	// unvault key.
	xOnlyKey := schnorr.SerializePubKey(unvaultKey.PubKey())
	if !bytes.Equal(xOnlyKey, s.vault.TriggerScript[1:33]) {
		return nil, vault.Errorf(
			vault.KindSigning, "sign trigger", "key %x is not the "+
				"unvault key of the vault", xOnlyKey,
		)
	}

	sig, err := schnorr.Sign(unvaultKey, s.sigHash)
	if err != nil {
		return nil, vault.NewError(
			vault.KindSigning, "sign trigger", err,
		)
	}
	if !sig.Verify(s.sigHash, unvaultKey.PubKey()) {
		return nil, vault.Errorf(
			vault.KindSigning, "sign trigger",
			"signature does not verify",
		)
	}

	signed := &SignedTrigger{
		triggerSpend: s.next(),
	}

	leafHash := s.vault.TriggerLeafHash()
	pIn := &signed.packet.Inputs[0]
	pIn.TaprootScriptSpendSig = append(
		pIn.TaprootScriptSpendSig, &psbt.TaprootScriptSpendSig{
			XOnlyPubKey: xOnlyKey,
			LeafHash:    leafHash[:],
			Signature:   sig.Serialize(),
			SigHash:     pIn.SighashType,
		},
	)

	return signed, nil
}

// Finalize assembles the trigger witness
//
//	<revault indicator> <vout selector> <signature> <trigger script>
//	<control block>
//
// and extracts the final transaction.
func (s *SignedTrigger) Finalize() (*FinalizedTx, error) {
	pIn := s.packet.Inputs[0]
	if len(pIn.TaprootScriptSpendSig) != 1 ||
		len(pIn.TaprootLeafScript) != 1 {

		return nil, vault.Errorf(
			vault.KindExtract, "finalize trigger", "expected "+
				"exactly one signature and leaf script",
		)
	}
	spendSig := pIn.TaprootScriptSpendSig[0]
	leaf := pIn.TaprootLeafScript[0]

	sig := append([]byte{}, spendSig.Signature...)
	if spendSig.SigHash != txscript.SigHashDefault {
		sig = append(sig, byte(spendSig.SigHash))
	}

	if err := s.vault.Tree().VerifyLeaf(
		leaf.ControlBlock, leaf.Script,
	); err != nil {
		return nil, err
	}

	voutSelector, err := VoutSelector(s.triggerIndex)
	if err != nil {
		return nil, err
	}

	witness := wire.TxWitness{
		RevaultIndicator(s.revaultIndex),
		voutSelector,
		sig,
		leaf.Script,
		leaf.ControlBlock,
	}

	finalTx, err := finalizeInput(s.packet, witness)
	if err != nil {
		return nil, fmt.Errorf("error finalizing trigger: %w", err)
	}

	log.Infof("Finalized trigger transaction %v", finalTx.Tx.TxHash())

	return finalTx, nil
}

// TriggerOutPoint returns the outpoint of the trigger output of a finalized
// trigger transaction.
func TriggerOutPoint(triggerTx *wire.MsgTx) wire.OutPoint {
	return wire.OutPoint{
		Hash:  triggerTx.TxHash(),
		Index: 0,
	}
}

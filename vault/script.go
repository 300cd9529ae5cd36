package vault

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

const (
	// OpCheckTemplateVerify is OP_CHECKTEMPLATEVERIFY, a redefinition of
	// OP_NOP4.
	OpCheckTemplateVerify = txscript.OP_NOP4

	// OpVault is OP_VAULT. It occupies an OP_SUCCESS slot in tapscript.
	OpVault = 0xbb

	// OpVaultRecover is OP_VAULT_RECOVER. It occupies an OP_SUCCESS slot
	// in tapscript.
	OpVaultRecover = 0xbc

	// vaultTriggerLeafItems is the number of stack items OP_VAULT pushes
	// in front of the leaf update script tail. Those are the target hash
	// from the witness and the spend delay.
	vaultTriggerLeafItems = 2
)

var (
	// RecoveryTag is the tag of the tagged hash that commits to the
	// recovery output script.
	RecoveryTag = []byte("VaultRecoverySPK")
)

// RecoverySPK returns the output script recovered funds are sent to. It is a
// key path only taproot output of the recovery key.
func RecoverySPK(recoveryKey *btcec.PublicKey) ([]byte, error) {
	if recoveryKey == nil {
		return nil, Errorf(
			KindMalformedInput, "recovery spk", "nil recovery key",
		)
	}

	outputKey := txscript.ComputeTaprootKeyNoScript(recoveryKey)
	script, err := txscript.PayToTaprootScript(outputKey)
	if err != nil {
		return nil, NewError(KindMalformedInput, "recovery spk", err)
	}

	return script, nil
}

// RecoveryCommitment returns the tagged hash of the recovery output script.
func RecoveryCommitment(recoverySPK []byte) chainhash.Hash {
	return *chainhash.TaggedHash(RecoveryTag, recoverySPK)
}

// RecoveryScript returns the recovery leaf script:
//
//	<tagged_hash(recoverySPK)> OP_VAULT_RECOVER
func RecoveryScript(recoverySPK []byte) ([]byte, error) {
	if len(recoverySPK) == 0 {
		return nil, Errorf(
			KindMalformedInput, "recovery script",
			"empty recovery output script",
		)
	}

	commitment := RecoveryCommitment(recoverySPK)
	script, err := txscript.NewScriptBuilder().
		AddData(commitment[:]).
		AddOp(OpVaultRecover).
		Script()
	if err != nil {
		return nil, NewError(KindMalformedInput, "recovery script", err)
	}

	return script, nil
}

// LeafUpdateScriptTail returns the script tail OP_VAULT appends to the
// target hash and delay to form the withdrawal leaf of the trigger output.
//
//	OP_CHECKSEQUENCEVERIFY OP_DROP OP_CHECKTEMPLATEVERIFY
func LeafUpdateScriptTail() []byte {
	return []byte{
		txscript.OP_CHECKSEQUENCEVERIFY, txscript.OP_DROP,
		OpCheckTemplateVerify,
	}
}

// TriggerScript returns the trigger leaf script of a vault output:
//
//	<unvault_xonly> OP_CHECKSIGVERIFY <spend_delay> 2
//	<OP_CSV OP_DROP OP_CTV> OP_VAULT
func TriggerScript(unvaultKey *btcec.PublicKey,
	spendDelay uint16) ([]byte, error) {

	if unvaultKey == nil {
		return nil, Errorf(
			KindMalformedInput, "trigger script", "nil unvault key",
		)
	}
	if spendDelay == 0 {
		return nil, Errorf(
			KindMalformedInput, "trigger script",
			"spend delay must be positive",
		)
	}

	script, err := txscript.NewScriptBuilder().
		AddData(schnorr.SerializePubKey(unvaultKey)).
		AddOp(txscript.OP_CHECKSIGVERIFY).
		AddInt64(int64(spendDelay)).
		AddInt64(vaultTriggerLeafItems).
		AddData(LeafUpdateScriptTail()).
		AddOp(OpVault).
		Script()
	if err != nil {
		return nil, NewError(KindMalformedInput, "trigger script", err)
	}

	return script, nil
}

// WithdrawScript returns the withdrawal leaf script of a trigger output:
//
//	<target_hash> <spend_delay> OP_CHECKSEQUENCEVERIFY OP_DROP
//	OP_CHECKTEMPLATEVERIFY
func WithdrawScript(targetHash chainhash.Hash,
	spendDelay uint16) ([]byte, error) {

	if spendDelay == 0 {
		return nil, Errorf(
			KindMalformedInput, "withdraw script",
			"spend delay must be positive",
		)
	}

	builder := txscript.NewScriptBuilder().
		AddData(targetHash[:]).
		AddInt64(int64(spendDelay))
	for _, op := range LeafUpdateScriptTail() {
		builder.AddOp(op)
	}

	script, err := builder.Script()
	if err != nil {
		return nil, NewError(
			KindMalformedInput, "withdraw script",
			fmt.Errorf("error building script: %w", err),
		)
	}

	return script, nil
}

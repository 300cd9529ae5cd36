package spend

import (
	"fmt"

	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/txscript"
)

// verifyFlags are the script flags spends are checked against. The discourage
// flags are not set as OP_VAULT, OP_VAULT_RECOVER and OP_CHECKTEMPLATEVERIFY
// are unknown to the local script engine.
const verifyFlags = txscript.ScriptBip16 | txscript.ScriptVerifyWitness |
	txscript.ScriptVerifyTaproot |
	txscript.ScriptVerifyCheckSequenceVerify |
	txscript.ScriptVerifyCheckLockTimeVerify

// Verify runs the spending input of the finalized transaction through the
// script engine. Leaf scripts that contain the vault opcodes only get their
// tree commitment checked, everything else is fully executed.
func (f *FinalizedTx) Verify() error {
	fetcher := prevOutFetcher(f.PrevOut)
	sigHashes := txscript.NewTxSigHashes(f.Tx, fetcher)

	vm, err := txscript.NewEngine(
		f.PrevOut.PkScript, f.Tx, 0, verifyFlags, nil, sigHashes,
		f.PrevOut.Value, fetcher,
	)
	if err != nil {
		return vault.NewError(
			vault.KindExtract, "verify",
			fmt.Errorf("error creating script engine: %w", err),
		)
	}

	if err := vm.Execute(); err != nil {
		return vault.NewError(vault.KindExtract, "verify", err)
	}

	return nil
}

package main

import (
	"errors"
	"fmt"

	"github.com/bitvault/bitvault/spend"
	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/cobra"
)

type recoverCommand struct {
	Outpoint    string
	Amount      uint64
	FromTrigger bool
	KeyPath     bool
	FeeRate     uint32
	Publish     bool

	rootKey *rootKey
	cmd     *cobra.Command
}

func newRecoverCommand() *cobra.Command {
	cc := &recoverCommand{}
	cc.cmd = &cobra.Command{
		Use:   "recover <name>",
		Short: "Sweep a vault or trigger output to the recovery key",
		Long: `This command sweeps a vault output, or with --fromtrigger a
trigger output, to the key path only taproot output of the vault's recovery
key.

By default the recovery leaf is used, which needs no signature at all. With
--keypath the output is spent through the taproot key path with the tweaked
recovery key instead.`,
		Example: `bitvault recover savings \
	--outpoint txid:0 \
	--amount 99000 \
	--fromtrigger \
	--publish`,
		Args: cobra.ExactArgs(1),
		RunE: cc.Execute,
	}
	cc.cmd.Flags().StringVar(
		&cc.Outpoint, "outpoint", "", "the output to recover; if "+
			"empty the first confirmed output of the vault or "+
			"trigger address is used",
	)
	cc.cmd.Flags().Uint64Var(
		&cc.Amount, "amount", 0, "the value of the recovered output "+
			"in satoshis; only needed if the ledger should not be "+
			"queried",
	)
	cc.cmd.Flags().BoolVar(
		&cc.FromTrigger, "fromtrigger", false, "the recovered output "+
			"is a trigger output instead of a vault output",
	)
	cc.cmd.Flags().BoolVar(
		&cc.KeyPath, "keypath", false, "spend through the taproot "+
			"key path instead of the recovery leaf",
	)
	cc.cmd.Flags().Uint32Var(
		&cc.FeeRate, "feerate", defaultFeeSatPerVByte, "fee rate to "+
			"use for the recovery transaction in sat/vByte",
	)
	cc.cmd.Flags().BoolVar(
		&cc.Publish, "publish", false, "publish the recovery "+
			"transaction on the ledger",
	)

	cc.rootKey = newRootKey(cc.cmd, "deriving the vault keys")

	return cc.cmd
}

func (c *recoverCommand) Execute(_ *cobra.Command, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("vault name is required")
	}
	label := args[0]

	keys, err := c.rootKey.keySource()
	if err != nil {
		return err
	}

	v, err := loadVault(keys, label)
	if err != nil {
		return err
	}

	req := &spend.RecoveryRequest{
		Vault: v,
	}

	var addr btcutil.Address
	if c.FromTrigger {
		req.Trigger, err = vault.NewTrigger(v)
		if err != nil {
			return err
		}
		addr, err = req.Trigger.Address(chainParams)
	} else {
		addr, err = v.Address(chainParams)
	}
	if err != nil {
		return err
	}

	coin, err := findCoin(addr, c.Outpoint, c.Amount)
	if err != nil {
		return fmt.Errorf("error finding output to recover: %w", err)
	}
	req.PrevOut = coin.OutPoint
	req.PrevValue = coin.Value

	// Set default values.
	if c.FeeRate == 0 {
		c.FeeRate = defaultFeeSatPerVByte
	}
	req.Fee = spend.RecoveryFee(
		spend.FeeRateFromSatPerVByte(c.FeeRate), c.KeyPath,
	)

	var finalTx *spend.FinalizedTx
	if c.KeyPath {
		vaultKeys, err := keys.VaultKeys(label)
		if err != nil {
			return err
		}

		finalTx, err = spend.RecoverByKey(req, vaultKeys.Recovery)
		if err != nil {
			return fmt.Errorf("error creating recovery: %w", err)
		}
	} else {
		finalTx, err = spend.RecoverByScript(req)
		if err != nil {
			return fmt.Errorf("error creating recovery: %w", err)
		}
	}

	if err := finalTx.Verify(); err != nil {
		return fmt.Errorf("recovery transaction is invalid: %w", err)
	}

	if err := printTx("Recovery", finalTx); err != nil {
		return err
	}

	if !c.Publish {
		return nil
	}

	return publish(finalTx)
}

package main

import (
	"errors"
	"fmt"

	"github.com/bitvault/bitvault/spend"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/spf13/cobra"
)

type createTriggerCommand struct {
	Outpoint string
	Amount   uint64
	Revault  uint64
	FeeRate  uint32
	Publish  bool

	rootKey *rootKey
	cmd     *cobra.Command
}

func newCreateTriggerCommand() *cobra.Command {
	cc := &createTriggerCommand{}
	cc.cmd = &cobra.Command{
		Use:   "createtrigger <name>",
		Short: "Start a withdrawal by moving a vault output into a " +
			"trigger output",
		Long: `This command signs the transaction that spends a vault output
through its trigger leaf. The trigger output can be withdrawn with the
withdraw command once the vault's spend delay has passed, or swept to the
recovery key before that.

Part of the vault's funds can be sent back into the vault with the --revault
flag.

If --amount is not set, the vault output is looked up on the ledger.`,
		Example: `bitvault createtrigger savings \
	--outpoint txid:vout \
	--amount 100000 \
	--feerate 10 \
	--publish`,
		Args: cobra.ExactArgs(1),
		RunE: cc.Execute,
	}
	cc.cmd.Flags().StringVar(
		&cc.Outpoint, "outpoint", "", "the vault output to trigger; "+
			"if empty the first confirmed output of the vault "+
			"address is used",
	)
	cc.cmd.Flags().Uint64Var(
		&cc.Amount, "amount", 0, "the value of the vault output in "+
			"satoshis; only needed if the ledger should not be "+
			"queried",
	)
	cc.cmd.Flags().Uint64Var(
		&cc.Revault, "revault", 0, "amount in satoshis to send back "+
			"into the vault",
	)
	cc.cmd.Flags().Uint32Var(
		&cc.FeeRate, "feerate", defaultFeeSatPerVByte, "fee rate to "+
			"use for the trigger transaction in sat/vByte",
	)
	cc.cmd.Flags().BoolVar(
		&cc.Publish, "publish", false, "publish the trigger "+
			"transaction on the ledger",
	)

	cc.rootKey = newRootKey(cc.cmd, "deriving the vault keys")

	return cc.cmd
}

func (c *createTriggerCommand) Execute(_ *cobra.Command,
	args []string) error {

	if len(args) != 1 || args[0] == "" {
		return errors.New("vault name is required")
	}

	keys, err := c.rootKey.keySource()
	if err != nil {
		return err
	}

	v, err := loadVault(keys, args[0])
	if err != nil {
		return err
	}

	addr, err := v.Address(chainParams)
	if err != nil {
		return err
	}

	coin, err := findCoin(addr, c.Outpoint, c.Amount)
	if err != nil {
		return fmt.Errorf("error finding vault output: %w", err)
	}

	// Set default values.
	if c.FeeRate == 0 {
		c.FeeRate = defaultFeeSatPerVByte
	}
	feeRate := spend.FeeRateFromSatPerVByte(c.FeeRate)

	revault := fn.None[btcutil.Amount]()
	if c.Revault > 0 {
		revault = fn.Some(btcutil.Amount(c.Revault))
	}

	unsigned, err := spend.NewTrigger(&spend.TriggerRequest{
		Vault:        v,
		PrevOut:      coin.OutPoint,
		PrevValue:    coin.Value,
		PrevPkScript: coin.PkScript,
		Fee:          spend.TriggerFee(feeRate, revault.IsSome()),
		Revault:      revault,
	})
	if err != nil {
		return fmt.Errorf("error creating trigger: %w", err)
	}

	sighashed, err := unsigned.ComputeSighash()
	if err != nil {
		return err
	}

	signed, err := sighashed.Sign(v.UnvaultKey)
	if err != nil {
		return err
	}

	finalTx, err := signed.Finalize()
	if err != nil {
		return err
	}

	if err := finalTx.Verify(); err != nil {
		return fmt.Errorf("trigger transaction is invalid: %w", err)
	}

	triggerAddr, err := unsigned.Trigger().Address(chainParams)
	if err != nil {
		return err
	}
	log.Infof("Trigger output %v pays to %v",
		spend.TriggerOutPoint(finalTx.Tx), triggerAddr)

	if err := printTx("Trigger", finalTx); err != nil {
		return err
	}

	if !c.Publish {
		return nil
	}

	return publish(finalTx)
}

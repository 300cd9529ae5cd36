package main

import (
	"errors"
	"fmt"

	"github.com/bitvault/bitvault/spend"
	"github.com/bitvault/bitvault/vault"
	"github.com/spf13/cobra"
)

type withdrawCommand struct {
	Outpoint string
	Amount   uint64
	Publish  bool

	rootKey *rootKey
	cmd     *cobra.Command
}

func newWithdrawCommand() *cobra.Command {
	cc := &withdrawCommand{}
	cc.cmd = &cobra.Command{
		Use:   "withdraw <name>",
		Short: "Complete a withdrawal after the spend delay has passed",
		Long: `This command spends a trigger output through its withdrawal
leaf. The spending transaction is the withdrawal template the trigger output
commits to, so no signature is required. The transaction is only valid once
the trigger output is as old as the vault's spend delay.`,
		Example: `bitvault withdraw savings \
	--outpoint txid:0 \
	--amount 99000`,
		Args: cobra.ExactArgs(1),
		RunE: cc.Execute,
	}
	cc.cmd.Flags().StringVar(
		&cc.Outpoint, "outpoint", "", "the trigger output to "+
			"withdraw; if empty the first confirmed output of the "+
			"trigger address is used",
	)
	cc.cmd.Flags().Uint64Var(
		&cc.Amount, "amount", 0, "the value of the trigger output in "+
			"satoshis; only needed if the ledger should not be "+
			"queried",
	)
	cc.cmd.Flags().BoolVar(
		&cc.Publish, "publish", false, "publish the withdrawal "+
			"transaction on the ledger",
	)

	cc.rootKey = newRootKey(cc.cmd, "deriving the vault keys")

	return cc.cmd
}

func (c *withdrawCommand) Execute(_ *cobra.Command, args []string) error {
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

	trigger, err := vault.NewTrigger(v)
	if err != nil {
		return err
	}

	addr, err := trigger.Address(chainParams)
	if err != nil {
		return err
	}

	coin, err := findCoin(addr, c.Outpoint, c.Amount)
	if err != nil {
		return fmt.Errorf("error finding trigger output: %w", err)
	}

	finalTx, err := spend.Withdraw(&spend.WithdrawRequest{
		Trigger:   trigger,
		PrevOut:   coin.OutPoint,
		PrevValue: coin.Value,
	})
	if err != nil {
		return fmt.Errorf("error creating withdrawal: %w", err)
	}

	log.Infof("Withdrawal is valid %d blocks after the trigger "+
		"confirmed", v.SpendDelay)

	if err := printTx("Withdrawal", finalTx); err != nil {
		return err
	}

	if !c.Publish {
		return nil
	}

	return publish(finalTx)
}

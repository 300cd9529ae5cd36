package main

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/cobra"
)

type fundVaultCommand struct {
	Amount uint64

	rootKey *rootKey
	cmd     *cobra.Command
}

func newFundVaultCommand() *cobra.Command {
	cc := &fundVaultCommand{}
	cc.cmd = &cobra.Command{
		Use:   "fundvault <name>",
		Short: "Send coins from the bitcoind wallet into a vault",
		Long: `This command pays the given amount from the wallet of the
configured bitcoind node to the vault's address.`,
		Example: `bitvault --regtest fundvault savings --amount 100000 \
	--bitcoind.rpcuser user --bitcoind.rpcpass pass`,
		Args: cobra.ExactArgs(1),
		RunE: cc.Execute,
	}
	cc.cmd.Flags().Uint64Var(
		&cc.Amount, "amount", 0, "the amount in satoshis to send to "+
			"the vault",
	)

	cc.rootKey = newRootKey(cc.cmd, "deriving the vault keys")

	return cc.cmd
}

func (c *fundVaultCommand) Execute(_ *cobra.Command, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("vault name is required")
	}
	if c.Amount == 0 {
		return errors.New("amount is required")
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

	bitcoind, err := newBitcoind()
	if err != nil {
		return err
	}
	defer bitcoind.Shutdown()

	txid, err := bitcoind.SendToAddress(addr, btcutil.Amount(c.Amount))
	if err != nil {
		return fmt.Errorf("error funding vault: %w", err)
	}

	result := fmt.Sprintf("Sent %v to vault %s (%v) in transaction %v",
		btcutil.Amount(c.Amount), args[0], addr, txid)
	fmt.Println(result)

	// For the tests, also log as trace level which is disabled by default.
	log.Tracef("%s", result)

	return nil
}

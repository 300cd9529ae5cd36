package main

import (
	"errors"
	"fmt"

	"github.com/bitvault/bitvault/btc"
	"github.com/spf13/cobra"
)

type importKeyCommand struct {
	rootKey *rootKey
	cmd     *cobra.Command
}

func newImportKeyCommand() *cobra.Command {
	cc := &importKeyCommand{}
	cc.cmd = &cobra.Command{
		Use:   "importkey <name>",
		Short: "Import the recovery key of a vault into bitcoind",
		Long: `This command imports the tr() descriptor of the vault's
recovery destination into the wallet of the configured bitcoind node. The node
then tracks recovered funds and can spend them.

The wallet must be a descriptor wallet with private keys enabled.`,
		Example: `bitvault --regtest importkey savings \
	--bitcoind.rpcuser user --bitcoind.rpcpass pass`,
		Args: cobra.ExactArgs(1),
		RunE: cc.Execute,
	}

	cc.rootKey = newRootKey(cc.cmd, "deriving the vault keys")

	return cc.cmd
}

func (c *importKeyCommand) Execute(_ *cobra.Command, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("vault name is required")
	}
	label := args[0]

	keys, err := c.rootKey.keySource()
	if err != nil {
		return err
	}

	// Make sure the vault exists and belongs to the root key.
	if _, err := loadVault(keys, label); err != nil {
		return err
	}

	vaultKeys, err := keys.VaultKeys(label)
	if err != nil {
		return err
	}

	descriptor, err := btc.KeyPathDescriptor(
		vaultKeys.Recovery, chainParams,
	)
	if err != nil {
		return err
	}

	bitcoind, err := newBitcoind()
	if err != nil {
		return err
	}
	defer bitcoind.Shutdown()

	err = bitcoind.ImportDescriptor(descriptor, "bitvault-"+label)
	if err != nil {
		return fmt.Errorf("error importing recovery key: %w", err)
	}

	log.Infof("Imported recovery key of vault %s", label)

	return nil
}

package main

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/spf13/cobra"
)

type newRootKeyCommand struct {
	cmd *cobra.Command
}

func newNewRootKeyCommand() *cobra.Command {
	cc := &newRootKeyCommand{}
	cc.cmd = &cobra.Command{
		Use:   "newrootkey",
		Short: "Generate a new random BIP32 HD root key",
		Long: `This command generates a new extended root key that all vault
keys can be derived from. Keep it safe, it is the only way to re-create the
keys of your vaults.`,
		Example: `bitvault --regtest newrootkey`,
		RunE:    cc.Execute,
	}

	return cc.cmd
}

func (c *newRootKeyCommand) Execute(_ *cobra.Command, _ []string) error {
	seed, err := hdkeychain.GenerateSeed(hdkeychain.RecommendedSeedLen)
	if err != nil {
		return fmt.Errorf("error generating seed: %w", err)
	}

	rootKey, err := hdkeychain.NewMaster(seed, chainParams)
	if err != nil {
		return fmt.Errorf("error creating root key: %w", err)
	}

	fmt.Printf("\nYour new BIP32 HD root key is: %s\n", rootKey.String())

	return nil
}

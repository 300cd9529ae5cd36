package main

import (
	"errors"
	"fmt"

	"github.com/bitvault/bitvault/vault"
	"github.com/bitvault/bitvault/vaultdb"
	"github.com/spf13/cobra"
)

const createVaultFormat = `
Vault:				%s
Network:			%s
Spend delay (blocks):		%d
Address:			%s
`

type createVaultCommand struct {
	SpendDelay uint16

	rootKey *rootKey
	cmd     *cobra.Command
}

func newCreateVaultCommand() *cobra.Command {
	cc := &createVaultCommand{}
	cc.cmd = &cobra.Command{
		Use:   "createvault <name>",
		Short: "Create a new vault and store it under the given name",
		Long: `This command derives the recovery and unvault keys of a new
vault from the root key and the vault's name, builds the vault output and
stores its name, address and spend delay.

The keys themselves are never stored. They are derived again from the root key
whenever the vault is spent.`,
		Example: `bitvault createvault savings --spenddelay 144`,
		Args:    cobra.ExactArgs(1),
		RunE:    cc.Execute,
	}
	cc.cmd.Flags().Uint16Var(
		&cc.SpendDelay, "spenddelay", defaultSpendDelay, "number of "+
			"blocks a triggered withdrawal has to wait before it "+
			"can be completed",
	)

	cc.rootKey = newRootKey(cc.cmd, "deriving the vault keys")

	return cc.cmd
}

func (c *createVaultCommand) Execute(_ *cobra.Command, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("vault name is required")
	}
	label := args[0]

	keys, err := c.rootKey.keySource()
	if err != nil {
		return err
	}

	vaultKeys, err := keys.VaultKeys(label)
	if err != nil {
		return fmt.Errorf("error deriving vault keys: %w", err)
	}

	v, err := vault.New(vaultKeys, c.SpendDelay)
	if err != nil {
		return fmt.Errorf("error creating vault: %w", err)
	}

	addr, err := v.Address(chainParams)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf("Error closing vault store: %v", err)
		}
	}()

	err = store.Insert(&vaultdb.Record{
		Label:      label,
		Address:    addr.EncodeAddress(),
		SpendDelay: v.SpendDelay,
	})
	if err != nil {
		return fmt.Errorf("error storing vault: %w", err)
	}

	result := fmt.Sprintf(
		createVaultFormat, label, chainParams.Name, v.SpendDelay,
		addr.EncodeAddress(),
	)
	fmt.Println(result)

	// For the tests, also log as trace level which is disabled by default.
	log.Tracef("%s", result)

	return nil
}

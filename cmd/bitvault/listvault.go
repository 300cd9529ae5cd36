package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type listVaultCommand struct {
	cmd *cobra.Command
}

func newListVaultCommand() *cobra.Command {
	cc := &listVaultCommand{}
	cc.cmd = &cobra.Command{
		Use:   "listvault",
		Short: "List all stored vaults",
		Long: `This command lists the name, address and spend delay of all
vaults in the store, ordered by name.`,
		Example: `bitvault listvault`,
		RunE:    cc.Execute,
	}

	return cc.cmd
}

func (c *listVaultCommand) Execute(_ *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf("Error closing vault store: %v", err)
		}
	}()

	records, err := store.ReadAll()
	if err != nil {
		return fmt.Errorf("error reading vaults: %w", err)
	}

	var result strings.Builder
	_, _ = fmt.Fprintf(&result, "%d vault(s):\n", len(records))
	for _, record := range records {
		_, _ = fmt.Fprintf(
			&result, "%-20s %s (spend delay %d blocks)\n",
			record.Label, record.Address, record.SpendDelay,
		)
	}
	fmt.Print(result.String())

	// For the tests, also log as trace level which is disabled by default.
	log.Tracef("%s", result.String())

	return nil
}

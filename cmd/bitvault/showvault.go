package main

import (
	"errors"
	"fmt"

	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/spf13/cobra"
)

const showVaultFormat = `
Vault:				%s
Network:			%s
Spend delay (blocks):		%d
Recovery key:			%x
Unvault key:			%x
Recovery output script:		%x
Recovery leaf:			%x
Trigger leaf:			%x
Merkle root:			%x
Vault address:			%s
Withdrawal template hash:	%x
Withdrawal leaf:		%x
Trigger address:		%s
`

type showVaultCommand struct {
	rootKey *rootKey
	cmd     *cobra.Command
}

func newShowVaultCommand() *cobra.Command {
	cc := &showVaultCommand{}
	cc.cmd = &cobra.Command{
		Use:   "showvault <name>",
		Short: "Show the keys, scripts and addresses of a vault",
		Long: `This command re-derives a stored vault and shows its scripts,
its taproot tree and the addresses of both the vault and its trigger output.`,
		Example: `bitvault showvault savings`,
		Args:    cobra.ExactArgs(1),
		RunE:    cc.Execute,
	}

	cc.rootKey = newRootKey(cc.cmd, "deriving the vault keys")

	return cc.cmd
}

func (c *showVaultCommand) Execute(_ *cobra.Command, args []string) error {
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

	vaultAddr, err := v.Address(chainParams)
	if err != nil {
		return err
	}
	triggerAddr, err := trigger.Address(chainParams)
	if err != nil {
		return err
	}

	recoveryLeaf := v.RecoveryLeafHash()
	triggerLeaf := v.TriggerLeafHash()
	withdrawLeaf, err := trigger.Tree().LeafHash(trigger.WithdrawScript)
	if err != nil {
		return err
	}

	result := fmt.Sprintf(
		showVaultFormat, args[0], chainParams.Name, v.SpendDelay,
		schnorr.SerializePubKey(v.RecoveryKey),
		schnorr.SerializePubKey(v.UnvaultKey.PubKey()), v.RecoverySPK,
		recoveryLeaf[:], triggerLeaf[:], v.Tree().MerkleRoot[:],
		vaultAddr.EncodeAddress(), trigger.TargetHash[:],
		withdrawLeaf[:], triggerAddr.EncodeAddress(),
	)
	fmt.Println(result)

	log.Debugf("Vault tree: %v", spewClosure(v.Tree()))

	// For the tests, also log as trace level which is disabled by default.
	log.Tracef("%s", result)

	return nil
}

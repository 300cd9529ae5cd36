package spend

import (
	"testing"

	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
	"github.com/stretchr/testify/require"
)

func TestFees(t *testing.T) {
	feeRate := FeeRateFromSatPerVByte(10)
	require.Equal(t, chainfee.SatPerKWeight(2500), feeRate)

	withoutRevault := TriggerFee(feeRate, false)
	withRevault := TriggerFee(feeRate, true)
	require.Positive(t, withoutRevault)
	require.Greater(t, withRevault, withoutRevault)

	scriptPath := RecoveryFee(feeRate, false)
	keyPath := RecoveryFee(feeRate, true)
	require.Positive(t, keyPath)
	require.Greater(t, scriptPath, keyPath)
}

package spend

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/input"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
)

const (
	// TriggerScriptMaxSize is the size of a trigger script with the
	// largest possible spend delay push:
	//	- OP_DATA_32: 1 byte
	//	- unvault key: 32 bytes
	//	- OP_CHECKSIGVERIFY: 1 byte
	//	- spend delay push: 4 bytes
	//	- OP_2: 1 byte
	//	- leaf update script push: 4 bytes
	//	- OP_VAULT: 1 byte
	TriggerScriptMaxSize = 1 + 32 + 1 + 4 + 1 + 4 + 1

	// RecoveryScriptSize is the size of the recovery leaf script.
	RecoveryScriptSize = 1 + 32 + 1

	// ControlBlockSize is the size of a depth one control block.
	ControlBlockSize = 33 + 32

	// TriggerWitnessSize is the upper bound of a trigger witness:
	//	- number_of_witness_elements: 1 byte
	//	- revault indicator: 1 + 2 bytes
	//	- vout selector: 1 + 1 bytes
	//	- signature with sighash flag: 1 + 65 bytes
	//	- trigger script: 1 + TriggerScriptMaxSize bytes
	//	- control block: 1 + ControlBlockSize bytes
	TriggerWitnessSize = 1 + 1 + 2 + 1 + 1 + 1 + 65 +
		1 + TriggerScriptMaxSize + 1 + ControlBlockSize

	// RecoveryWitnessSize is the size of a script path recovery witness
	// with the recovery output at index zero.
	RecoveryWitnessSize = 1 + 1 + 1 + RecoveryScriptSize + 1 +
		ControlBlockSize
)

// FeeRateFromSatPerVByte converts a fee rate in sat/vByte to sat/kw.
func FeeRateFromSatPerVByte(satPerVByte uint32) chainfee.SatPerKWeight {
	return chainfee.SatPerKVByte(satPerVByte * 1000).FeePerKWeight()
}

// TriggerFee estimates the fee of a trigger transaction.
func TriggerFee(feeRate chainfee.SatPerKWeight,
	withRevault bool) btcutil.Amount {

	var estimator input.TxWeightEstimator
	estimator.AddWitnessInput(TriggerWitnessSize)
	estimator.AddP2TROutput()
	if withRevault {
		estimator.AddP2TROutput()
	}

	return feeRate.FeeForWeight(estimator.Weight())
}

// RecoveryFee estimates the fee of a recovery transaction.
func RecoveryFee(feeRate chainfee.SatPerKWeight,
	keyPath bool) btcutil.Amount {

	var estimator input.TxWeightEstimator
	if keyPath {
		estimator.AddTaprootKeySpendInput(txscript.SigHashDefault)
	} else {
		estimator.AddWitnessInput(RecoveryWitnessSize)
	}
	estimator.AddP2TROutput()

	return feeRate.FeeForWeight(estimator.Weight())
}

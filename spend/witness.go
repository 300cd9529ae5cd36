package spend

import (
	"github.com/bitvault/bitvault/vault"
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Bn2Vch encodes v as a minimal script number: little endian magnitude with
// the sign in the most significant bit of the last byte. Zero encodes to an
// empty byte slice.
func Bn2Vch(v int64) []byte {
	if v == 0 {
		return []byte{}
	}

	negative := v < 0
	magnitude := uint64(v)
	if negative {
		magnitude = uint64(-v)
	}

	var result []byte
	for magnitude > 0 {
		result = append(result, byte(magnitude&0xff))
		magnitude >>= 8
	}

	// If the most significant byte already has its high bit set, we need
	// an extra byte to carry the sign.
	last := len(result) - 1
	switch {
	case result[last]&0x80 != 0 && negative:
		result = append(result, 0x80)

	case result[last]&0x80 != 0:
		result = append(result, 0x00)

	case negative:
		result[last] |= 0x80
	}

	return result
}

// RevaultIndicator returns the witness element that tells OP_VAULT which
// output, if any, returns funds to the vault. Without a revault output it is
// the script number -1.
func RevaultIndicator(revaultIndex fn.Option[uint32]) []byte {
	index := int64(-1)
	revaultIndex.WhenSome(func(i uint32) {
		index = int64(i)
	})

	return Bn2Vch(index)
}

// VoutSelector returns the witness element that selects the trigger output.
// Output zero is selected by an empty element, every other index by its
// minimal script number push.
func VoutSelector(index uint32) ([]byte, error) {
	if index == 0 {
		return []byte{}, nil
	}

	selector, err := txscript.NewScriptBuilder().
		AddInt64(int64(index)).
		Script()
	if err != nil {
		return nil, vault.NewError(
			vault.KindMalformedInput, "vout selector", err,
		)
	}

	return selector, nil
}

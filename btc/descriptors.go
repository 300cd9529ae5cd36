package btc

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

var (
	inputCharset = "0123456789()[],'/*abcdefgh@:$%{}IJKLMNOPQRSTUVWXYZ" +
		"&+-.;<=>?!^_|~ijklmnopqrstuvwxyzABCDEFGH`#\\\"\\\\ "
	checksumCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	generator       = []uint64{
		0xf5dee51989, 0xa9fdca3312, 0x1bab10e32d, 0x3706b1677a,
		0x644d626ffd,
	}
)

func descriptorSumPolymod(symbols []uint64) uint64 {
	chk := uint64(1)
	for _, value := range symbols {
		top := chk >> 35
		chk = (chk&0x7ffffffff)<<5 ^ value
		for i := 0; i < 5; i++ {
			if (top>>i)&1 != 0 {
				chk ^= generator[i]
			}
		}
	}
	return chk
}

func descriptorSumExpand(s string) []uint64 {
	groups := []uint64{}
	symbols := []uint64{}
	for _, c := range s {
		v := strings.IndexRune(inputCharset, c)
		if v < 0 {
			return nil
		}
		symbols = append(symbols, uint64(v&31))
		groups = append(groups, uint64(v>>5))
		if len(groups) == 3 {
			symbols = append(
				symbols, groups[0]*9+groups[1]*3+groups[2],
			)
			groups = []uint64{}
		}
	}
	switch len(groups) {
	case 1:
		symbols = append(symbols, groups[0])

	case 2:
		symbols = append(symbols, groups[0]*3+groups[1])
	}
	return symbols
}

// DescriptorSumCreate appends the checksum to an output descriptor.
func DescriptorSumCreate(s string) string {
	symbols := append(descriptorSumExpand(s), 0, 0, 0, 0, 0, 0, 0, 0)
	checksum := descriptorSumPolymod(symbols) ^ 1
	builder := strings.Builder{}
	for i := 0; i < 8; i++ {
		builder.WriteByte(checksumCharset[(checksum>>(5*(7-i)))&31])
	}
	return s + "#" + builder.String()
}

// DescriptorSumCheck validates the checksum of an output descriptor. A
// descriptor without checksum is only accepted if mustHaveSum is false.
func DescriptorSumCheck(s string, mustHaveSum bool) bool {
	if !strings.Contains(s, "#") {
		return !mustHaveSum
	}
	if len(s) < 9 || s[len(s)-9] != '#' {
		return false
	}
	for _, c := range s[len(s)-8:] {
		if !strings.ContainsRune(checksumCharset, c) {
			return false
		}
	}
	symbols := descriptorSumExpand(s[:len(s)-9])
	for _, c := range s[len(s)-8:] {
		symbols = append(
			symbols, uint64(strings.IndexRune(checksumCharset, c)),
		)
	}
	return descriptorSumPolymod(symbols) == 1
}

// KeyPathDescriptor returns the tr() descriptor of a key path only taproot
// output of the private key. This is the descriptor of a vault's recovery
// destination, which is what a wallet needs to sweep recovered funds.
func KeyPathDescriptor(privKey *btcec.PrivateKey,
	params *chaincfg.Params) (string, error) {

	wif, err := btcutil.NewWIF(privKey, params, true)
	if err != nil {
		return "", fmt.Errorf("could not encode WIF: %w", err)
	}

	return fmt.Sprintf("tr(%s)", wif.String()), nil
}

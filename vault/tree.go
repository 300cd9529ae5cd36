package vault

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

const (
	// ControlBlockSize is the size of a control block for a leaf of a two
	// leaf tree.
	ControlBlockSize = txscript.ControlBlockBaseSize +
		txscript.ControlBlockNodeSize
)

// SpendTree is a taproot output with exactly two tapscript leaves at depth
// one. The leaves are kept in the order of their leaf hashes so the same two
// scripts always result in the same tree, independent of the order they were
// passed in.
type SpendTree struct {
	InternalKey     *btcec.PublicKey
	Leaves          [2]txscript.TapLeaf
	LeafHashes      [2]chainhash.Hash
	MerkleRoot      chainhash.Hash
	OutputKey       *btcec.PublicKey
	OutputKeyYIsOdd bool
	PkScript        []byte
}

// NewSpendTree builds the taproot output committing to the two given leaf
// scripts under the internal key.
func NewSpendTree(scriptA, scriptB []byte,
	internalKey *btcec.PublicKey) (*SpendTree, error) {

	if internalKey == nil {
		return nil, Errorf(
			KindTreeBuild, "spend tree", "nil internal key",
		)
	}
	for _, script := range [][]byte{scriptA, scriptB} {
		if len(script) == 0 {
			return nil, Errorf(
				KindTreeBuild, "spend tree", "empty leaf "+
					"script",
			)
		}
		if len(script) > txscript.MaxScriptSize {
			return nil, Errorf(
				KindTreeBuild, "spend tree", "leaf script of "+
					"%d bytes exceeds maximum of %d",
				len(script), txscript.MaxScriptSize,
			)
		}
	}

	leafA := txscript.NewBaseTapLeaf(scriptA)
	leafB := txscript.NewBaseTapLeaf(scriptB)
	hashA, hashB := leafA.TapHash(), leafB.TapHash()
	if bytes.Compare(hashA[:], hashB[:]) > 0 {
		leafA, leafB = leafB, leafA
		hashA, hashB = hashB, hashA
	}

	// The branch hash commits to the lexicographically smaller child
	// first.
	merkleRoot := chainhash.TaggedHash(
		chainhash.TagTapBranch, hashA[:], hashB[:],
	)

	// We normalize the internal key to its x-only form so the control
	// blocks and the tweak agree on the key.
	internalKey, err := schnorr.ParsePubKey(
		schnorr.SerializePubKey(internalKey),
	)
	if err != nil {
		return nil, NewError(KindTreeBuild, "spend tree", err)
	}

	outputKey := txscript.ComputeTaprootOutputKey(
		internalKey, merkleRoot[:],
	)
	pkScript, err := txscript.PayToTaprootScript(outputKey)
	if err != nil {
		return nil, NewError(KindTreeBuild, "spend tree", err)
	}

	yIsOdd := outputKey.Y().Bit(0) == 1

	return &SpendTree{
		InternalKey:     internalKey,
		Leaves:          [2]txscript.TapLeaf{leafA, leafB},
		LeafHashes:      [2]chainhash.Hash{hashA, hashB},
		MerkleRoot:      *merkleRoot,
		OutputKey:       outputKey,
		OutputKeyYIsOdd: yIsOdd,
		PkScript:        pkScript,
	}, nil
}

// leafIndex returns the position of the given script in the tree.
func (t *SpendTree) leafIndex(script []byte) (int, error) {
	for idx, leaf := range t.Leaves {
		if bytes.Equal(leaf.Script, script) {
			return idx, nil
		}
	}

	return 0, Errorf(
		KindTreeBuild, "control block", "script %x is not a leaf of "+
			"the tree", script,
	)
}

// LeafHash returns the tap leaf hash of the given leaf script.
func (t *SpendTree) LeafHash(script []byte) (chainhash.Hash, error) {
	idx, err := t.leafIndex(script)
	if err != nil {
		return chainhash.Hash{}, err
	}

	return t.LeafHashes[idx], nil
}

// ControlBlock returns the control block that proves the inclusion of the
// given leaf script in the tree. The inclusion proof is the hash of the other
// leaf.
func (t *SpendTree) ControlBlock(script []byte) (*txscript.ControlBlock,
	error) {

	idx, err := t.leafIndex(script)
	if err != nil {
		return nil, err
	}
	sibling := t.LeafHashes[1-idx]

	return &txscript.ControlBlock{
		InternalKey:     t.InternalKey,
		OutputKeyYIsOdd: t.OutputKeyYIsOdd,
		LeafVersion:     txscript.BaseLeafVersion,
		InclusionProof:  sibling[:],
	}, nil
}

// ControlBlockBytes returns the serialized control block of the given leaf
// script, ready to be placed on the witness stack.
func (t *SpendTree) ControlBlockBytes(script []byte) ([]byte, error) {
	controlBlock, err := t.ControlBlock(script)
	if err != nil {
		return nil, err
	}

	controlBlockBytes, err := controlBlock.ToBytes()
	if err != nil {
		return nil, NewError(
			KindTreeBuild, "control block",
			fmt.Errorf("error serializing control block: %w", err),
		)
	}

	return controlBlockBytes, nil
}

// VerifyLeaf makes sure the given control block proves the inclusion of the
// script in the tree's output key.
func (t *SpendTree) VerifyLeaf(controlBlockBytes, script []byte) error {
	controlBlock, err := txscript.ParseControlBlock(controlBlockBytes)
	if err != nil {
		return NewError(KindTreeBuild, "verify leaf", err)
	}

	err = txscript.VerifyTaprootLeafCommitment(
		controlBlock, schnorr.SerializePubKey(t.OutputKey), script,
	)
	if err != nil {
		return NewError(KindTreeBuild, "verify leaf", err)
	}

	return nil
}

// Address returns the taproot address of the tree's output key.
func (t *SpendTree) Address(
	params *chaincfg.Params) (*btcutil.AddressTaproot, error) {

	addr, err := btcutil.NewAddressTaproot(
		schnorr.SerializePubKey(t.OutputKey), params,
	)
	if err != nil {
		return nil, NewError(KindMalformedInput, "address", err)
	}

	return addr, nil
}

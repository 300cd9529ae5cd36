package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRootKey(t *testing.T) {
	_ = newHarness(t)

	newKey := &newRootKeyCommand{}
	require.NoError(t, newKey.Execute(nil, nil))
}

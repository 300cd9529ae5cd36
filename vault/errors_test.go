package vault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKind(t *testing.T) {
	baseErr := errors.New("boom")
	err := NewError(KindSigning, "sign", baseErr)

	require.Equal(t, "sign (signing): boom", err.Error())
	require.ErrorIs(t, err, baseErr)
	require.True(t, IsKind(err, KindSigning))
	require.False(t, IsKind(err, KindSighash))

	wrapped := fmt.Errorf("error signing trigger: %w", err)
	require.True(t, IsKind(wrapped, KindSigning))
	require.False(t, IsKind(baseErr, KindSigning))
	require.False(t, IsKind(nil, KindSigning))
}

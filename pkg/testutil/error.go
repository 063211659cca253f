package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
)

// AssertTransactionError verifies that err is a transaction level error with
// the provided key.
func AssertTransactionError(t *testing.T, err error, key solana.TransactionErrorKey) {
	require.Error(t, err)

	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr), "unexpected error type: %v", err)
	assert.Equal(t, key, txErr.ErrorKey())
}

// AssertInstructionError verifies that err is the failure of the instruction
// at index with the provided cause, either a solana.InstructionErrorKey or a
// solana.CustomError.
func AssertInstructionError(t *testing.T, err error, index int, cause error) {
	require.Error(t, err)

	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr), "unexpected error type: %v", err)
	require.NotNil(t, txErr.InstructionError(), "not an instruction error: %v", err)

	assert.Equal(t, index, txErr.InstructionError().Index)
	assert.Equal(t, cause, txErr.InstructionError().Err)
	assert.True(t, errors.Is(err, cause))
}

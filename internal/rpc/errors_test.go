package rpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	pageSize := fmt.Errorf("get events: %w", &mockRPCError{code: CodePageSizeTooBig, msg: "page size"})
	code, ok := ErrorCode(pageSize)
	require.True(t, ok)
	require.Equal(t, CodePageSizeTooBig, code)
	require.True(t, IsPageSizeTooBig(pageSize))
	require.False(t, IsContractError(pageSize))
	require.Equal(t, "page_size", errorType(pageSize))

	contract := &mockRPCError{code: CodeContractError, msg: "reverted"}
	require.True(t, IsContractError(contract))
	require.Equal(t, "contract", errorType(contract))

	require.True(t, IsBlockNotFound(&mockRPCError{code: CodeBlockNotFound}))
	require.True(t, IsInvalidContinuationToken(&mockRPCError{code: CodeInvalidContinuationToken}))

	_, ok = ErrorCode(errors.New("plain"))
	require.False(t, ok)
	require.Equal(t, "other", errorType(errors.New("plain")))
	require.Equal(t, "transient", errorType(&mockNetError{msg: "x", timeout: true}))
}

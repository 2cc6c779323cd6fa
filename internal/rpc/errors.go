package rpc

import (
	"errors"

	"github.com/ethereum/go-ethereum/rpc"
)

// Starknet JSON-RPC error codes the indexer reacts to.
const (
	CodeContractNotFound         = 20
	CodeBlockNotFound            = 24
	CodePageSizeTooBig           = 31
	CodeInvalidContinuationToken = 33
	CodeTooManyKeysInFilter      = 34
	CodeContractError            = 40
	CodeUnexpectedError          = 63
)

// ErrorCode returns the JSON-RPC error code carried by err, if any.
func ErrorCode(err error) (int, bool) {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}

func hasCode(err error, code int) bool {
	c, ok := ErrorCode(err)
	return ok && c == code
}

// IsPageSizeTooBig reports whether the node rejected the requested events page size.
func IsPageSizeTooBig(err error) bool {
	return hasCode(err, CodePageSizeTooBig)
}

// IsInvalidContinuationToken reports whether the node no longer accepts a continuation token.
func IsInvalidContinuationToken(err error) bool {
	return hasCode(err, CodeInvalidContinuationToken)
}

// IsBlockNotFound reports whether the requested block does not exist yet.
func IsBlockNotFound(err error) bool {
	return hasCode(err, CodeBlockNotFound)
}

// IsContractError reports whether a call failed inside the contract or hit a missing contract.
// These are deterministic and never retried.
func IsContractError(err error) bool {
	return hasCode(err, CodeContractError) || hasCode(err, CodeContractNotFound)
}

// errorType labels err for the rpc error metric.
func errorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsContractError(err):
		return "contract"
	case IsPageSizeTooBig(err):
		return "page_size"
	case IsBlockNotFound(err):
		return "block_not_found"
	case retryableError(err):
		return "transient"
	default:
		return "other"
	}
}

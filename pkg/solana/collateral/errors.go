package collateral

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/code-payments/collateral-server/pkg/solana"
)

// Program error codes that mean the withdrawal was built against a nonce or
// signature window that is no longer current.
const (
	ErrorCodeInvalidNonce        solana.CustomError = 6003
	ErrorCodeNonceAlreadyUsed    solana.CustomError = 6004
	ErrorCodeSignatureExpired    solana.CustomError = 6005
	ErrorCodeTargetNonceMismatch solana.CustomError = 6006
)

var staleNonceErrors = map[solana.CustomError]string{
	ErrorCodeInvalidNonce:        "InvalidNonce",
	ErrorCodeNonceAlreadyUsed:    "NonceAlreadyUsed",
	ErrorCodeSignatureExpired:    "SignatureExpired",
	ErrorCodeTargetNonceMismatch: "TargetNonceMismatch",
}

// IsStaleNonceError reports whether err is a program rejection caused by a
// stale nonce or an expired signature. Anchor logs carry the error name, so
// those are checked as well as the numeric code.
func IsStaleNonceError(err error) bool {
	var txErr *solana.TransactionError
	if !errors.As(err, &txErr) || txErr == nil {
		return false
	}

	if ie := txErr.InstructionError(); ie != nil {
		if code := ie.CustomError(); code != nil {
			if _, ok := staleNonceErrors[*code]; ok {
				return true
			}
		}
	}

	for _, line := range txErr.Logs() {
		for _, name := range staleNonceErrors {
			if strings.Contains(line, "Error Code: "+name+".") {
				return true
			}
		}
	}

	return false
}

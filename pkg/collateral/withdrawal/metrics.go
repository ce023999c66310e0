package withdrawal

import (
	"context"
	"time"

	"github.com/mr-tron/base58"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/metrics"
	"github.com/code-payments/collateral-server/pkg/solana"
)

const (
	withdrawalExecutedEventName       = "CollateralWithdrawalExecuted"
	withdrawalFailedEventName         = "CollateralWithdrawalFailed"
	adminSignatureSubmittedEventName  = "CollateralAdminSignatureSubmitted"
	withdrawalPreparedEventName       = "CollateralWithdrawalPrepared"
	withdrawalLatencyMetricNamePrefix = "Collateral/Withdrawal/"
)

// Path names the flow a withdrawal ran through.
type Path string

const (
	PathMultisig     Path = "multisig"
	PathSingleSigner Path = "single_signer"
	PathPrepare      Path = "prepare"
)

func recordWithdrawalExecutedEvent(ctx context.Context, path Path, w *withdrawal, sig solana.Signature, started time.Time) {
	metrics.RecordEvent(ctx, withdrawalExecutedEventName, map[string]interface{}{
		"path":       string(path),
		"chain_id":   w.bundle.ChainID,
		"collateral": base58.Encode(w.params.Collateral),
		"asset":      base58.Encode(w.params.Asset),
		"amount":     w.params.Amount,
		"signature":  sig.String(),
	})
	metrics.RecordDuration(ctx, withdrawalLatencyMetricNamePrefix+string(path), time.Since(started))
}

func recordWithdrawalFailedEvent(ctx context.Context, path Path, err error) {
	metrics.RecordEvent(ctx, withdrawalFailedEventName, map[string]interface{}{
		"path":      string(path),
		"kind":      string(failure.KindOf(err)),
		"retryable": failure.IsRetryable(err),
	})
}

func recordAdminSignatureSubmittedEvent(ctx context.Context, w *withdrawal, nonce uint32, sig solana.Signature) {
	metrics.RecordEvent(ctx, adminSignatureSubmittedEventName, map[string]interface{}{
		"collateral": base58.Encode(w.params.Collateral),
		"nonce":      nonce,
		"signature":  sig.String(),
	})
}

func recordWithdrawalPreparedEvent(ctx context.Context, w *withdrawal, inlineCreate bool) {
	metrics.RecordEvent(ctx, withdrawalPreparedEventName, map[string]interface{}{
		"chain_id":      w.bundle.ChainID,
		"collateral":    base58.Encode(w.params.Collateral),
		"asset":         base58.Encode(w.params.Asset),
		"amount":        w.params.Amount,
		"inline_create": inlineCreate,
	})
}

package solana

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/collateral-server/pkg/retry"
	"github.com/code-payments/collateral-server/pkg/retry/backoff"
)

// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
const rpcNodeUnhealthyCode = -32005

var (
	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

// rpcConfig is the trailing config object most methods accept.
type rpcConfig struct {
	Commitment          string `json:"commitment,omitempty"`
	Encoding            string `json:"encoding,omitempty"`
	PreflightCommitment string `json:"preflightCommitment,omitempty"`
	SkipPreflight       *bool  `json:"skipPreflight,omitempty"`
}

// transport issues JSON-RPC calls, retrying throttling and node failures.
type transport struct {
	log     *logrus.Entry
	rpc     jsonrpc.RPCClient
	retrier retry.Retrier
}

func newTransport(log *logrus.Entry, endpoint string, opts *jsonrpc.RPCClientOpts) *transport {
	return &transport{
		log: log,
		rpc: jsonrpc.NewClientWithOpts(endpoint, opts),
		retrier: retry.NewRetrier(
			retry.RetriableErrors(errRateLimited, errServiceError),
			retry.Limit(3),
			retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
		),
	}
}

func (t *transport) call(out interface{}, method string, params ...interface{}) error {
	_, err := t.retrier.Retry(func() error {
		err := t.rpc.CallFor(out, method, params...)
		if err == nil {
			return nil
		}
		return t.classify(method, err)
	})
	return err
}

// classify maps retriable RPC failures onto sentinel errors. Anything else,
// including preflight rejections, is returned untouched.
func (t *transport) classify(method string, err error) error {
	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return err
	}

	switch {
	case rpcErr.Code == 429:
		t.log.WithField("method", method).Warn("rpc node rate limited request")
		return errRateLimited
	case rpcErr.Code >= 500, rpcErr.Code == rpcNodeUnhealthyCode:
		return errServiceError
	default:
		return err
	}
}

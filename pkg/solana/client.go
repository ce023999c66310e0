package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/collateral-server/pkg/retry"
	"github.com/code-payments/collateral-server/pkg/retry/backoff"
)

const blockhashCacheWindow = 2 * time.Second

var (
	ErrNoAccountInfo     = errors.New("no account info")
	ErrSignatureNotFound = errors.New("signature not found")

	errConfirmationsNotReached = errors.New("confirmations not reached")
)

// AccountInfo is the raw state of an on-chain account.
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

// Client is the subset of the Solana JSON RPC API used to read program
// state and land transactions.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetAccountInfo(ed25519.PublicKey, Commitment) (AccountInfo, error)
	GetLatestBlockhash(Commitment) (Blockhash, error)
	GetSignatureStatus(Signature, Commitment) (*SignatureStatus, error)
	GetSignatureStatuses([]Signature) ([]*SignatureStatus, error)
	SubmitTransaction(Transaction, Commitment) (Signature, error)
}

type cachedBlockhash struct {
	hash    Blockhash
	fetched time.Time
}

type client struct {
	log *logrus.Entry
	rpc *transport

	blockhashMu sync.RWMutex
	blockhashes map[string]cachedBlockhash
}

func New(endpoint string) Client {
	return NewWithRPCOptions(endpoint, nil)
}

func NewWithRPCOptions(endpoint string, opts *jsonrpc.RPCClientOpts) Client {
	log := logrus.StandardLogger().WithField("type", "solana/client")
	return &client{
		log:         log,
		rpc:         newTransport(log, endpoint, opts),
		blockhashes: make(map[string]cachedBlockhash),
	}
}

func (c *client) GetAccountInfo(account ed25519.PublicKey, commitment Commitment) (AccountInfo, error) {
	var resp struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}

	config := rpcConfig{Commitment: commitment.Commitment, Encoding: "base64"}
	if err := c.rpc.call(&resp, "getAccountInfo", base58.Encode(account), config); err != nil {
		return AccountInfo{}, errors.Wrap(err, "getAccountInfo() failed to send request")
	}
	if resp.Value == nil {
		return AccountInfo{}, ErrNoAccountInfo
	}
	if len(resp.Value.Data) == 0 {
		return AccountInfo{}, errors.New("missing account data in response")
	}

	owner, err := base58.Decode(resp.Value.Owner)
	if err != nil {
		return AccountInfo{}, errors.Wrap(err, "invalid base58 encoded owner")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Value.Data[0])
	if err != nil {
		return AccountInfo{}, errors.Wrap(err, "invalid base64 encoded data")
	}

	return AccountInfo{
		Data:       data,
		Owner:      owner,
		Lamports:   resp.Value.Lamports,
		Executable: resp.Value.Executable,
	}, nil
}

// GetLatestBlockhash caches the hash per commitment for a jittered window, so
// a burst of withdrawals shares one lookup.
func (c *client) GetLatestBlockhash(commitment Commitment) (Blockhash, error) {
	window := time.Duration(float64(blockhashCacheWindow) * (0.8 + rand.Float64()))

	c.blockhashMu.RLock()
	cached, ok := c.blockhashes[commitment.Commitment]
	c.blockhashMu.RUnlock()
	if ok && time.Since(cached.fetched) < window {
		return cached.hash, nil
	}

	var resp struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.rpc.call(&resp, "getLatestBlockhash", commitment); err != nil {
		return Blockhash{}, errors.Wrap(err, "getLatestBlockhash() failed to send request")
	}

	raw, err := base58.Decode(resp.Value.Blockhash)
	if err != nil {
		return Blockhash{}, errors.Wrap(err, "invalid base58 encoded hash in response")
	}

	var hash Blockhash
	if len(raw) != len(hash) {
		return Blockhash{}, errors.Errorf("invalid blockhash length: %d", len(raw))
	}
	copy(hash[:], raw)

	c.blockhashMu.Lock()
	c.blockhashes[commitment.Commitment] = cachedBlockhash{hash: hash, fetched: time.Now()}
	c.blockhashMu.Unlock()

	return hash, nil
}

// SubmitTransaction sends with preflight enabled, so program errors surface
// here as a *TransactionError rather than only on status lookup.
func (c *client) SubmitTransaction(txn Transaction, commitment Commitment) (Signature, error) {
	sig := txn.Signatures[0]

	skipPreflight := false
	config := rpcConfig{
		Encoding:            "base64",
		PreflightCommitment: commitment.Commitment,
		SkipPreflight:       &skipPreflight,
	}

	var ignored string
	err := c.rpc.call(&ignored, "sendTransaction", base64.StdEncoding.EncodeToString(txn.Marshal()), config)
	if err == nil {
		return sig, nil
	}

	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return sig, errors.Wrap(err, "sendTransaction() failed to send request")
	}

	txErr, parseErr := ParseRPCError(rpcErr)
	if parseErr != nil || txErr == nil {
		return sig, errors.Wrap(err, "sendTransaction() rejected")
	}

	c.log.WithFields(logrus.Fields{
		"method":    "SubmitTransaction",
		"signature": sig.String(),
		"error":     txErr.Error(),
	}).Debug("transaction rejected in preflight")

	return sig, txErr
}

// GetSignatureStatus polls until the signature reaches commitment. A landed
// transaction that failed is returned alongside its *TransactionError.
func (c *client) GetSignatureStatus(sig Signature, commitment Commitment) (*SignatureStatus, error) {
	var status *SignatureStatus

	_, err := retry.Retry(
		func() error {
			statuses, err := c.GetSignatureStatuses([]Signature{sig})
			if err != nil {
				return err
			}

			status = statuses[0]
			switch {
			case status == nil:
				return ErrSignatureNotFound
			case status.ErrorResult != nil:
				return status.ErrorResult
			case !status.reached(commitment):
				return errConfirmationsNotReached
			default:
				return nil
			}
		},
		retry.RetriableErrors(ErrSignatureNotFound, errConfirmationsNotReached),
		retry.Limit(sigStatusPollLimit),
		retry.Backoff(backoff.Constant(PollRate), PollRate),
	)

	return status, err
}

// GetSignatureStatuses returns one entry per signature, nil where the cluster
// has no record of it.
func (c *client) GetSignatureStatuses(sigs []Signature) ([]*SignatureStatus, error) {
	encoded := make([]string, len(sigs))
	for i, sig := range sigs {
		encoded[i] = sig.String()
	}

	var resp struct {
		Value []*struct {
			Slot               uint64          `json:"slot"`
			Confirmations      *int            `json:"confirmations"`
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}
	history := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{true}
	if err := c.rpc.call(&resp, "getSignatureStatuses", encoded, history); err != nil {
		return nil, err
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range resp.Value {
		if v == nil || i >= len(statuses) {
			continue
		}

		txErr, err := decodeStatusError(v.Err)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse transaction result")
		}

		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			ErrorResult:        txErr,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}
	}

	return statuses, nil
}

func decodeStatusError(raw json.RawMessage) (*TransactionError, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var value interface{}
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	if err := d.Decode(&value); err != nil {
		return nil, err
	}
	return ParseTransactionError(value)
}

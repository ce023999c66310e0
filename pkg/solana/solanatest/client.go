// Package solanatest provides an in-memory solana.Client for tests.
package solanatest

import (
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/collateral-server/pkg/solana"
)

// SubmitHook observes a verified transaction before it lands. Returning an
// error rejects the transaction as a preflight failure would.
type SubmitHook func(c *Client, txn solana.Transaction) error

// Client is a solana.Client backed by an account map. Submitted transactions
// have their signatures verified and are recorded in submission order.
type Client struct {
	sync.Mutex

	Blockhash solana.Blockhash

	// Submitted holds every transaction accepted by SubmitTransaction.
	Submitted []solana.Transaction

	// OnSubmit, when set, runs for each verified transaction.
	OnSubmit SubmitHook

	// Error injection per method. A set error is returned on every call.
	GetAccountInfoErr     error
	GetLatestBlockhashErr error
	SubmitErr             error
	StatusErr             error

	accounts map[string]solana.AccountInfo
	statuses map[solana.Signature]*solana.SignatureStatus
	reads    map[string]int
}

var _ solana.Client = (*Client)(nil)

func New() *Client {
	c := &Client{
		accounts: make(map[string]solana.AccountInfo),
		statuses: make(map[solana.Signature]*solana.SignatureStatus),
		reads:    make(map[string]int),
	}
	copy(c.Blockhash[:], []byte("solanatest-recent-blockhash-0001"))
	return c
}

// SetAccount stores or replaces the account at address.
func (c *Client) SetAccount(address ed25519.PublicKey, info solana.AccountInfo) {
	c.Lock()
	defer c.Unlock()

	c.setAccount(address, info)
}

// SetAccountUnlocked is SetAccount for use inside an OnSubmit hook, which
// already runs under the client lock.
func (c *Client) SetAccountUnlocked(address ed25519.PublicKey, info solana.AccountInfo) {
	c.setAccount(address, info)
}

func (c *Client) setAccount(address ed25519.PublicKey, info solana.AccountInfo) {
	cloned := info
	cloned.Data = append([]byte(nil), info.Data...)
	cloned.Owner = append(ed25519.PublicKey(nil), info.Owner...)
	c.accounts[base58.Encode(address)] = cloned
}

func (c *Client) DeleteAccount(address ed25519.PublicKey) {
	c.Lock()
	defer c.Unlock()

	delete(c.accounts, base58.Encode(address))
}

func (c *Client) HasAccount(address ed25519.PublicKey) bool {
	c.Lock()
	defer c.Unlock()

	_, ok := c.accounts[base58.Encode(address)]
	return ok
}

// Reads returns how many times the account was fetched.
func (c *Client) Reads(address ed25519.PublicKey) int {
	c.Lock()
	defer c.Unlock()

	return c.reads[base58.Encode(address)]
}

// SetStatus overrides the status returned for sig.
func (c *Client) SetStatus(sig solana.Signature, status *solana.SignatureStatus) {
	c.Lock()
	defer c.Unlock()

	c.statuses[sig] = status
}

func (c *Client) GetAccountInfo(address ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	c.Lock()
	defer c.Unlock()

	if c.GetAccountInfoErr != nil {
		return solana.AccountInfo{}, c.GetAccountInfoErr
	}

	key := base58.Encode(address)
	c.reads[key]++

	info, ok := c.accounts[key]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}

	info.Data = append([]byte(nil), info.Data...)
	return info, nil
}

func (c *Client) GetLatestBlockhash(_ solana.Commitment) (solana.Blockhash, error) {
	c.Lock()
	defer c.Unlock()

	if c.GetLatestBlockhashErr != nil {
		return solana.Blockhash{}, c.GetLatestBlockhashErr
	}
	return c.Blockhash, nil
}

func (c *Client) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	c.Lock()
	defer c.Unlock()

	var sig solana.Signature
	if len(txn.Signatures) == 0 {
		return sig, errors.New("transaction has no signatures")
	}
	sig = txn.Signatures[0]

	if c.SubmitErr != nil {
		return sig, c.SubmitErr
	}

	if txn.Message.RecentBlockhash != c.Blockhash {
		return sig, solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)
	}

	messageBytes := txn.Message.Marshal()
	for i, s := range txn.Signatures {
		if !ed25519.Verify(txn.Message.Accounts[i], messageBytes, s[:]) {
			return sig, solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
		}
	}

	if c.OnSubmit != nil {
		if err := c.OnSubmit(c, txn); err != nil {
			return sig, err
		}
	}

	c.Submitted = append(c.Submitted, txn)
	c.statuses[sig] = &solana.SignatureStatus{
		Slot:               uint64(len(c.Submitted)),
		ConfirmationStatus: "confirmed",
		Confirmations:      new(int),
	}
	*c.statuses[sig].Confirmations = 1

	return sig, nil
}

func (c *Client) GetSignatureStatus(sig solana.Signature, _ solana.Commitment) (*solana.SignatureStatus, error) {
	c.Lock()
	defer c.Unlock()

	if c.StatusErr != nil {
		return nil, c.StatusErr
	}

	status, ok := c.statuses[sig]
	if !ok {
		return nil, solana.ErrSignatureNotFound
	}
	if status.ErrorResult != nil {
		return status, status.ErrorResult
	}
	return status, nil
}

func (c *Client) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	c.Lock()
	defer c.Unlock()

	if c.StatusErr != nil {
		return nil, c.StatusErr
	}

	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		statuses[i] = c.statuses[sig]
	}
	return statuses, nil
}

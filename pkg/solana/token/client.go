package token

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/collateral-server/pkg/solana"
)

var (
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidTokenAccount means an account exists at the address but is
	// not an initialized token account with the expected mint or owner.
	ErrInvalidTokenAccount = errors.New("invalid token account")
)

// Client reads token accounts of a single mint.
type Client struct {
	sc   solana.Client
	mint ed25519.PublicKey
}

func NewClient(sc solana.Client, mint ed25519.PublicKey) *Client {
	return &Client{
		sc:   sc,
		mint: mint,
	}
}

// GetAccount loads and validates the token account at address.
func (c *Client) GetAccount(address ed25519.PublicKey, commitment solana.Commitment) (*Account, error) {
	info, err := c.sc.GetAccountInfo(address, commitment)
	switch {
	case err == solana.ErrNoAccountInfo:
		return nil, ErrAccountNotFound
	case err != nil:
		return nil, errors.Wrap(err, "failed to get account info")
	case !bytes.Equal(info.Owner, ProgramKey):
		return nil, ErrInvalidTokenAccount
	}

	var account Account
	if !account.Unmarshal(info.Data) || !c.isUsable(&account) {
		return nil, ErrInvalidTokenAccount
	}
	return &account, nil
}

// GetOwnedAccount additionally requires the account to be held by owner.
func (c *Client) GetOwnedAccount(address, owner ed25519.PublicKey, commitment solana.Commitment) (*Account, error) {
	account, err := c.GetAccount(address, commitment)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(owner, account.Owner) {
		return nil, ErrInvalidTokenAccount
	}
	return account, nil
}

func (c *Client) isUsable(account *Account) bool {
	return account.State != AccountStateUninitialized && bytes.Equal(c.mint, account.Mint)
}

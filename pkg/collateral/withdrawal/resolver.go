package withdrawal

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/collateral"
	"github.com/code-payments/collateral-server/pkg/solana/token"
)

type AccountStatus string

const (
	AccountCreated        AccountStatus = "created"
	AccountAlreadyExisted AccountStatus = "already_existed"
)

type EnsureResult struct {
	Address ed25519.PublicKey
	Status  AccountStatus
}

// DestinationPlan is the destination custody for a prepared transaction.
// Create is set when the account must be created inline.
type DestinationPlan struct {
	Address ed25519.PublicKey
	Create  *solana.Instruction
}

// Resolver derives the program and token accounts a withdrawal touches.
type Resolver struct {
	log        *logrus.Entry
	client     solana.Client
	program    ed25519.PublicKey
	commitment solana.Commitment
	submitter  *submitter
}

func NewResolver(client solana.Client, program ed25519.PublicKey, commitment solana.Commitment) *Resolver {
	return &Resolver{
		log:        logrus.StandardLogger().WithField("type", "withdrawal/resolver"),
		client:     client,
		program:    program,
		commitment: commitment,
		submitter:  newSubmitter(client, commitment, computeBudget{}),
	}
}

// ResolveSourceCustodyAccount returns the pool's token account for asset. The
// deposit address is program owned, so it is off curve.
func (r *Resolver) ResolveSourceCustodyAccount(deposit, asset ed25519.PublicKey) (ed25519.PublicKey, error) {
	address, err := token.GetAssociatedAccount(deposit, asset)
	if err != nil {
		return nil, failure.NewInvalidAddressError("depositAddress", base58.Encode(deposit))
	}
	return address, nil
}

// ResolveAuthorityAddress returns the PDA that signs for the pool's custody.
func (r *Resolver) ResolveAuthorityAddress(collateralAddress ed25519.PublicKey) (ed25519.PublicKey, error) {
	address, _, err := collateral.GetAuthorityAddress(r.program, collateralAddress)
	if err != nil {
		return nil, failure.NewInvalidAddressError("collateral", base58.Encode(collateralAddress))
	}
	return address, nil
}

// ResolveOrCreateDestinationCustodyAccount ensures the recipient's token
// account exists before the withdrawal is submitted. Creation is a separate
// transaction paid by payer.
func (r *Resolver) ResolveOrCreateDestinationCustodyAccount(ctx context.Context, payer Signer, recipient, asset ed25519.PublicKey) (*EnsureResult, error) {
	return r.EnsureAccount(ctx, payer, recipient, asset)
}

// EnsureAccount returns the associated token account of owner for mint,
// creating it when absent. Creation uses the idempotent instruction, so a
// concurrent creator is not an error.
func (r *Resolver) EnsureAccount(ctx context.Context, payer Signer, owner, mint ed25519.PublicKey) (*EnsureResult, error) {
	log := r.log.WithFields(logrus.Fields{
		"method": "EnsureAccount",
		"owner":  base58.Encode(owner),
		"mint":   base58.Encode(mint),
	})

	exists, address, err := r.lookupAssociatedAccount(owner, mint)
	if err != nil {
		return nil, err
	}
	if exists {
		return &EnsureResult{Address: address, Status: AccountAlreadyExisted}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	instruction, _, err := token.CreateAssociatedTokenAccountIdempotent(payer.PublicKey(), owner, mint)
	if err != nil {
		return nil, failure.NewInvalidAddressError("owner", base58.Encode(owner))
	}

	sig, err := r.submitter.submit(ctx, "create destination account", payer, instruction)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"address":   base58.Encode(address),
		"signature": sig.String(),
	}).Debug("created associated token account")

	exists, _, err = r.lookupAssociatedAccount(owner, mint)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, failure.NewMissingOnchainStateError("tokenAccount", base58.Encode(address), "not visible after creation")
	}

	return &EnsureResult{Address: address, Status: AccountCreated}, nil
}

// PlanDestinationCustodyAccount checks the destination account without
// sending anything. When it is absent, the returned plan carries an inline
// creation instruction paid by payer.
func (r *Resolver) PlanDestinationCustodyAccount(payer, recipient, asset ed25519.PublicKey) (*DestinationPlan, error) {
	exists, address, err := r.lookupAssociatedAccount(recipient, asset)
	if err != nil {
		return nil, err
	}
	if exists {
		return &DestinationPlan{Address: address}, nil
	}

	instruction, _, err := token.CreateAssociatedTokenAccountIdempotent(payer, recipient, asset)
	if err != nil {
		return nil, failure.NewInvalidAddressError("recipient", base58.Encode(recipient))
	}
	return &DestinationPlan{Address: address, Create: &instruction}, nil
}

// lookupAssociatedAccount reports whether owner's associated account for
// mint exists. An account that exists but is not a token account for mint
// held by owner is an invalid parameter.
func (r *Resolver) lookupAssociatedAccount(owner, mint ed25519.PublicKey) (bool, ed25519.PublicKey, error) {
	address, err := token.GetAssociatedAccount(owner, mint)
	if err != nil {
		return false, nil, failure.NewInvalidAddressError("owner", base58.Encode(owner))
	}

	_, err = token.NewClient(r.client, mint).GetOwnedAccount(address, owner, r.commitment)
	switch err {
	case nil:
		return true, address, nil
	case token.ErrAccountNotFound:
		return false, address, nil
	case token.ErrInvalidTokenAccount:
		return false, nil, failure.NewInvalidParametersError(
			"account %s exists but is not a %s token account of %s",
			base58.Encode(address),
			base58.Encode(mint),
			base58.Encode(owner),
		)
	default:
		return false, nil, failure.NewSubmissionFailedError("get token account", err)
	}
}

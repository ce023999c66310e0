package withdrawal

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/metrics"
	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/collateral"
)

const StatusPrepared = "prepared"

// SingleSignerResult describes a confirmed single signer withdrawal. Custody
// accounts are nil for the native asset.
type SingleSignerResult struct {
	Status                  string
	TransactionSignature    solana.Signature
	SourceTokenAccount      ed25519.PublicKey
	DestinationTokenAccount ed25519.PublicKey
}

// PreparedTransaction is an unsigned withdrawal for a remote wallet to sign.
type PreparedTransaction struct {
	// SerializedTransaction is the base58 wire encoding with empty
	// signatures.
	SerializedTransaction   string
	SourceTokenAccount      ed25519.PublicKey
	DestinationTokenAccount ed25519.PublicKey
	RecentBlockhash         solana.Blockhash

	// DestinationCreated is set when the transaction creates the
	// destination account inline.
	DestinationCreated bool
}

// singleSignerPool is the pool state the single signer path needs, read
// from either pool layout.
type singleSignerPool struct {
	owner       ed25519.PublicKey
	coordinator ed25519.PublicKey
	nonce       uint32
}

// ExecuteSingleSigner signs and submits a withdrawal from a single signer
// pool with the owner's key. The owner pays fees and any account creation.
func (e *Executor) ExecuteSingleSigner(ctx context.Context, bundle *ExecutionBundle, owner Signer) (*SingleSignerResult, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ExecuteSingleSigner")
	defer tracer.End()
	tracer.AddAttribute("path", string(PathSingleSigner))

	started := time.Now()

	result, w, err := e.executeSingleSigner(ctx, bundle, owner)
	if err != nil {
		tracer.OnError(err)
		recordWithdrawalFailedEvent(ctx, PathSingleSigner, err)
		return nil, err
	}

	recordWithdrawalExecutedEvent(ctx, PathSingleSigner, w, result.TransactionSignature, started)
	return result, nil
}

func (e *Executor) executeSingleSigner(ctx context.Context, bundle *ExecutionBundle, owner Signer) (*SingleSignerResult, *withdrawal, error) {
	if owner == nil {
		return nil, nil, failure.NewInvalidParametersError("owner secret key is required")
	}

	w, err := e.decode(bundle)
	if err != nil {
		return nil, nil, err
	}

	log := e.log.WithFields(w.logFields()).WithFields(logrus.Fields{
		"method": "ExecuteSingleSigner",
		"owner":  base58.Encode(owner.PublicKey()),
	})

	pool, err := e.getSingleSignerPool(w.params.Collateral, owner.PublicKey())
	if err != nil {
		return nil, nil, err
	}

	var source, destination ed25519.PublicKey
	if !w.params.IsNativeAsset() {
		source, err = e.resolver.ResolveSourceCustodyAccount(w.deposit, w.params.Asset)
		if err != nil {
			return nil, nil, err
		}

		ensured, err := e.resolver.EnsureAccount(ctx, owner, w.params.Recipient, w.params.Asset)
		if err != nil {
			return nil, nil, err
		}
		destination = ensured.Address
	}

	instructions, err := e.singleSignerInstructions(w, owner.PublicKey(), pool, source, destination)
	if err != nil {
		return nil, nil, err
	}

	sig, err := e.submitter.send(ctx, &submission{
		step:         "withdraw single signer collateral asset",
		payer:        owner,
		instructions: instructions,
		nonce:        pool.nonce,
	})
	if err != nil {
		return nil, nil, err
	}

	log.WithField("signature", sig.String()).Info("withdrawal confirmed")

	return &SingleSignerResult{
		Status:                  StatusConfirmed,
		TransactionSignature:    sig,
		SourceTokenAccount:      source,
		DestinationTokenAccount: destination,
	}, w, nil
}

// PrepareSingleSigner builds an unsigned withdrawal paid by owner. Nothing is
// submitted and no key is held. A missing destination account is created
// inline ahead of the withdrawal.
func (e *Executor) PrepareSingleSigner(ctx context.Context, bundle *ExecutionBundle, owner ed25519.PublicKey) (*PreparedTransaction, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "PrepareSingleSigner")
	defer tracer.End()
	tracer.AddAttribute("path", string(PathPrepare))

	prepared, w, err := e.prepareSingleSigner(ctx, bundle, owner)
	if err != nil {
		tracer.OnError(err)
		recordWithdrawalFailedEvent(ctx, PathPrepare, err)
		return nil, err
	}

	recordWithdrawalPreparedEvent(ctx, w, prepared.DestinationCreated)
	return prepared, nil
}

func (e *Executor) prepareSingleSigner(ctx context.Context, bundle *ExecutionBundle, owner ed25519.PublicKey) (*PreparedTransaction, *withdrawal, error) {
	if len(owner) != ed25519.PublicKeySize {
		return nil, nil, failure.NewInvalidAddressError("ownerAddress", base58.Encode(owner))
	}

	w, err := e.decode(bundle)
	if err != nil {
		return nil, nil, err
	}

	log := e.log.WithFields(w.logFields()).WithFields(logrus.Fields{
		"method": "PrepareSingleSigner",
		"owner":  base58.Encode(owner),
	})

	pool, err := e.getSingleSignerPool(w.params.Collateral, owner)
	if err != nil {
		return nil, nil, err
	}

	var instructions []solana.Instruction
	var source, destination ed25519.PublicKey
	if !w.params.IsNativeAsset() {
		source, err = e.resolver.ResolveSourceCustodyAccount(w.deposit, w.params.Asset)
		if err != nil {
			return nil, nil, err
		}

		plan, err := e.resolver.PlanDestinationCustodyAccount(owner, w.params.Recipient, w.params.Asset)
		if err != nil {
			return nil, nil, err
		}
		destination = plan.Address
		if plan.Create != nil {
			instructions = append(instructions, *plan.Create)
		}
	}
	inlineCreate := len(instructions) > 0

	withdraw, err := e.singleSignerInstructions(w, owner, pool, source, destination)
	if err != nil {
		return nil, nil, err
	}
	instructions = append(instructions, withdraw...)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	txn, err := buildTransaction(e.client, owner, solana.CommitmentConfirmed, e.submitter.budget, instructions...)
	if err != nil {
		return nil, nil, err
	}

	log.WithField("inline_create", inlineCreate).Debug("prepared withdrawal transaction")

	return &PreparedTransaction{
		SerializedTransaction:   base58.Encode(txn.Marshal()),
		SourceTokenAccount:      source,
		DestinationTokenAccount: destination,
		RecentBlockhash:         txn.Message.RecentBlockhash,
		DestinationCreated:      inlineCreate,
	}, w, nil
}

// singleSignerInstructions returns the coordinator verification and the
// withdrawal. Nil custody accounts mark a native asset withdrawal.
func (e *Executor) singleSignerInstructions(
	w *withdrawal,
	owner ed25519.PublicKey,
	pool *singleSignerPool,
	source, destination ed25519.PublicKey,
) ([]solana.Instruction, error) {
	args := w.messageArgs(owner, pool.nonce)

	coordinatorVerify, err := e.coordinatorVerifyInstruction(w, pool.coordinator, args)
	if err != nil {
		return nil, err
	}

	accounts := &collateral.WithdrawSingleSignerInstructionAccounts{
		Owner:       owner,
		Receiver:    w.params.Recipient,
		Coordinator: pool.coordinator,
		Collateral:  w.params.Collateral,
	}
	if !w.params.IsNativeAsset() {
		accounts.Asset = w.params.Asset
		accounts.CollateralTokenAccount = source
		accounts.ReceiverTokenAccount = destination
	}

	withdraw := collateral.NewWithdrawSingleSignerInstruction(
		e.program,
		accounts,
		&collateral.WithdrawSingleSignerInstructionArgs{
			Request: w.request,
		},
	)

	return []solana.Instruction{coordinatorVerify, withdraw}, nil
}

// getSingleSignerPool reads a single signer pool. Multi-signer pools can also
// be withdrawn from by a single key, in which case the pool's nonce is used.
func (e *Executor) getSingleSignerPool(address, owner ed25519.PublicKey) (*singleSignerPool, error) {
	data, err := e.getAccount("collateral", address)
	if err != nil {
		return nil, err
	}

	if collateral.IsSingleSignerCollateralAccount(data) {
		var account collateral.SingleSignerCollateralAccount
		if err := account.Unmarshal(data); err != nil {
			return nil, failure.NewMissingOnchainStateError("collateral", base58.Encode(address), "malformed single signer collateral account")
		}
		if !bytes.Equal(account.Owner, owner) {
			return nil, failure.NewUnauthorizedSignerError(base58.Encode(owner), base58.Encode(address))
		}

		return &singleSignerPool{
			owner:       account.Owner,
			coordinator: account.Coordinator,
			nonce:       account.Nonce,
		}, nil
	}

	var account collateral.CollateralAccount
	if err := account.Unmarshal(collateral.SchemaV2, data); err != nil {
		return nil, failure.NewMissingOnchainStateError("collateral", base58.Encode(address), "not a collateral account")
	}

	return &singleSignerPool{
		owner:       owner,
		coordinator: account.Coordinator,
		nonce:       account.SingleSignerNonce(),
	}, nil
}

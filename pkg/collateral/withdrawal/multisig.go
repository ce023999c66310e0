package withdrawal

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/metrics"
	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/collateral"
	solana_ed25519 "github.com/code-payments/collateral-server/pkg/solana/ed25519"
)

const StatusConfirmed = "confirmed"

type MultisigResult struct {
	Status                     string
	TransactionSignature       solana.Signature
	CollateralSignatureAddress ed25519.PublicKey
	SourceTokenAccount         ed25519.PublicKey
	DestinationTokenAccount    ed25519.PublicKey

	// AdminSignatureSubmitted is false when an earlier attempt already
	// recorded the admin's signature.
	AdminSignatureSubmitted bool
}

// ExecuteMultisig withdraws from a multi-signer pool. The admin's signature
// is recorded on chain first, then the coordinator-verified withdrawal is
// submitted. A record left by an interrupted attempt is reused.
func (e *Executor) ExecuteMultisig(ctx context.Context, bundle *ExecutionBundle, admin Signer) (*MultisigResult, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ExecuteMultisig")
	defer tracer.End()
	tracer.AddAttribute("path", string(PathMultisig))

	started := time.Now()

	result, w, err := e.executeMultisig(ctx, bundle, admin)
	if err != nil {
		tracer.OnError(err)
		recordWithdrawalFailedEvent(ctx, PathMultisig, err)
		return nil, err
	}

	recordWithdrawalExecutedEvent(ctx, PathMultisig, w, result.TransactionSignature, started)
	return result, nil
}

func (e *Executor) executeMultisig(ctx context.Context, bundle *ExecutionBundle, admin Signer) (*MultisigResult, *withdrawal, error) {
	if admin == nil {
		return nil, nil, failure.NewInvalidParametersError("collateral admin secret key is required")
	}

	w, err := e.decode(bundle)
	if err != nil {
		return nil, nil, err
	}

	log := e.log.WithFields(w.logFields()).WithFields(logrus.Fields{
		"method": "ExecuteMultisig",
		"admin":  base58.Encode(admin.PublicKey()),
	})

	if w.params.IsNativeAsset() {
		return nil, nil, failure.NewInvalidParametersError("native asset withdrawals are not supported for multi-signer pools")
	}

	pool, err := e.getCollateralAccount(w.params.Collateral)
	if err != nil {
		return nil, nil, err
	}
	if !pool.IsAdmin(admin.PublicKey()) {
		return nil, nil, failure.NewUnauthorizedSignerError(base58.Encode(admin.PublicKey()), base58.Encode(w.params.Collateral))
	}
	nonce := pool.MultisigNonce()
	log = log.WithField("nonce", nonce)

	source, err := e.resolver.ResolveSourceCustodyAccount(w.deposit, w.params.Asset)
	if err != nil {
		return nil, nil, err
	}
	destination, err := e.resolver.ResolveOrCreateDestinationCustodyAccount(ctx, admin, w.params.Recipient, w.params.Asset)
	if err != nil {
		return nil, nil, err
	}

	args := w.messageArgs(admin.PublicKey(), nonce)

	adminSignatures, err := collateral.AdminSignaturesAddressForMessage(e.program, args)
	if err != nil {
		return nil, nil, err
	}
	log = log.WithField("admin_signatures", base58.Encode(adminSignatures))

	record, err := e.getAdminSignatures(adminSignatures)
	if err != nil {
		return nil, nil, err
	}

	var submitted bool
	if record != nil && record.HasSigner(admin.PublicKey()) {
		log.Info("admin signature already recorded, skipping submission")
	} else {
		sig, err := e.submitAdminSignature(ctx, w, admin, args, adminSignatures)
		if err != nil {
			return nil, nil, err
		}
		submitted = true

		log.WithField("signature", sig.String()).Info("admin signature recorded")
		recordAdminSignatureSubmittedEvent(ctx, w, nonce, sig)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	coordinatorVerify, err := e.coordinatorVerifyInstruction(w, pool.Coordinator, args)
	if err != nil {
		return nil, nil, err
	}

	authority, err := e.resolver.ResolveAuthorityAddress(w.params.Collateral)
	if err != nil {
		return nil, nil, err
	}

	withdraw := collateral.NewWithdrawCollateralAssetInstruction(
		e.program,
		&collateral.WithdrawCollateralAssetInstructionAccounts{
			RentReceiver:              admin.PublicKey(),
			Sender:                    admin.PublicKey(),
			Receiver:                  w.params.Recipient,
			Asset:                     w.params.Asset,
			CollateralTokenAccount:    source,
			ReceiverTokenAccount:      destination.Address,
			CollateralAuthority:       authority,
			Coordinator:               pool.Coordinator,
			Collateral:                w.params.Collateral,
			CollateralAdminSignatures: adminSignatures,
		},
		&collateral.WithdrawCollateralAssetInstructionArgs{
			Request: w.request,
		},
	)

	sig, err := e.submitter.send(ctx, &submission{
		step:         "withdraw collateral asset",
		payer:        admin,
		instructions: []solana.Instruction{coordinatorVerify, withdraw},
		nonce:        nonce,
	})
	if err != nil {
		return nil, nil, err
	}

	log.WithField("signature", sig.String()).Info("withdrawal confirmed")

	return &MultisigResult{
		Status:                     StatusConfirmed,
		TransactionSignature:       sig,
		CollateralSignatureAddress: adminSignatures,
		SourceTokenAccount:         source,
		DestinationTokenAccount:    destination.Address,
		AdminSignatureSubmitted:    submitted,
	}, w, nil
}

// submitAdminSignature signs the collateral message under a fresh domain salt
// and records it in the admin signatures account.
func (e *Executor) submitAdminSignature(
	ctx context.Context,
	w *withdrawal,
	admin Signer,
	args *collateral.WithdrawMessageArgs,
	adminSignatures ed25519.PublicKey,
) (solana.Signature, error) {
	salt, err := newSignatureSalt()
	if err != nil {
		return solana.Signature{}, err
	}

	message, err := collateral.CollateralWithdrawMessage(args, salt, w.bundle.ChainID)
	if err != nil {
		return solana.Signature{}, err
	}

	verify, _, err := solana_ed25519.SignedInstruction(admin, message)
	if solana_ed25519.IsMalformedInputError(err) {
		return solana.Signature{}, failure.NewFormatError("adminSignature", "%s", err.Error())
	} else if err != nil {
		return solana.Signature{}, err
	}

	submit := collateral.NewSubmitSignaturesInstruction(
		e.program,
		&collateral.SubmitSignaturesInstructionAccounts{
			Collateral:      w.params.Collateral,
			AdminSignatures: adminSignatures,
			RentPayer:       admin.PublicKey(),
		},
		&collateral.SubmitSignaturesInstructionArgs{
			Salts:       [][32]byte{salt},
			TargetNonce: args.Nonce,
			Sender:      args.Sender,
			Receiver:    args.Receiver,
			Asset:       args.Asset,
			Request:     w.request,
		},
	)

	return e.submitter.send(ctx, &submission{
		step:         "submit admin signature",
		payer:        admin,
		instructions: []solana.Instruction{verify, submit},
		nonce:        args.Nonce,
	})
}

// coordinatorVerifyInstruction verifies the partner supplied coordinator
// signature against the coordinator's first executor.
func (e *Executor) coordinatorVerifyInstruction(w *withdrawal, coordinator ed25519.PublicKey, args *collateral.WithdrawMessageArgs) (solana.Instruction, error) {
	executor, err := e.getCoordinatorExecutor(coordinator)
	if err != nil {
		return solana.Instruction{}, err
	}

	message, err := collateral.CoordinatorWithdrawMessage(args, coordinator, w.bundle.ChainID)
	if err != nil {
		return solana.Instruction{}, err
	}

	instruction, err := solana_ed25519.Instruction(executor, w.coordinatorSignature, message)
	if err != nil {
		return solana.Instruction{}, failure.NewFormatError("coordinatorSignature", "%s", err.Error())
	}
	return instruction, nil
}

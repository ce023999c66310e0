package withdrawal

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/collateral"
	compute_budget "github.com/code-payments/collateral-server/pkg/solana/computebudget"
)

// computeBudget instructions lead every transaction the executor builds.
// Zero values keep the cluster defaults. The program locates its signature
// verification relative to the withdrawal, so a prefix does not disturb it.
type computeBudget struct {
	unitLimit uint32
	unitPrice uint64 // micro-lamports per compute unit
}

func (b computeBudget) prepend(instructions []solana.Instruction) []solana.Instruction {
	var prefixed []solana.Instruction
	if b.unitLimit > 0 {
		prefixed = append(prefixed, compute_budget.SetComputeUnitLimit(b.unitLimit))
	}
	if b.unitPrice > 0 {
		prefixed = append(prefixed, compute_budget.SetComputeUnitPrice(b.unitPrice))
	}
	if len(prefixed) == 0 {
		return instructions
	}
	return append(prefixed, instructions...)
}

type submission struct {
	step         string
	payer        Signer
	instructions []solana.Instruction

	// nonce is reported when the program rejects the transaction as stale.
	nonce uint32
}

type submitter struct {
	log        *logrus.Entry
	client     solana.Client
	commitment solana.Commitment
	budget     computeBudget
}

func newSubmitter(client solana.Client, commitment solana.Commitment, budget computeBudget) *submitter {
	return &submitter{
		log:        logrus.StandardLogger().WithField("type", "withdrawal/submitter"),
		client:     client,
		commitment: commitment,
		budget:     budget,
	}
}

func (s *submitter) submit(ctx context.Context, step string, payer Signer, instructions ...solana.Instruction) (solana.Signature, error) {
	return s.send(ctx, &submission{
		step:         step,
		payer:        payer,
		instructions: instructions,
	})
}

// send builds, signs and submits a legacy transaction paid by the payer,
// then waits for the configured commitment.
func (s *submitter) send(ctx context.Context, req *submission) (solana.Signature, error) {
	var sig solana.Signature

	txn, err := s.build(req.payer, req.instructions...)
	if err != nil {
		return sig, err
	}
	if err := signTransaction(&txn, req.payer); err != nil {
		return sig, errors.Wrap(err, "failed to sign transaction")
	}
	sig = txn.Signatures[0]

	log := s.log.WithFields(logrus.Fields{
		"method":    "send",
		"step":      req.step,
		"signature": sig.String(),
	})

	if err := ctx.Err(); err != nil {
		return sig, err
	}

	if _, err := s.client.SubmitTransaction(txn, s.commitment); err != nil {
		log.WithError(err).Warn("transaction submission failed")
		return sig, classifyChainError(req.step, req.nonce, err)
	}

	if _, err := s.client.GetSignatureStatus(sig, s.commitment); err != nil {
		log.WithError(err).Warn("transaction did not reach commitment")
		return sig, classifyChainError(req.step, req.nonce, err)
	}

	log.Debug("transaction confirmed")
	return sig, nil
}

// build returns an unsigned transaction with a fresh blockhash.
func (s *submitter) build(payer Signer, instructions ...solana.Instruction) (solana.Transaction, error) {
	return buildTransaction(s.client, payer.PublicKey(), s.commitment, s.budget, instructions...)
}

func buildTransaction(client solana.Client, payer []byte, commitment solana.Commitment, budget computeBudget, instructions ...solana.Instruction) (solana.Transaction, error) {
	blockhash, err := client.GetLatestBlockhash(commitment)
	if err != nil {
		return solana.Transaction{}, failure.NewSubmissionFailedError("get latest blockhash", err)
	}

	txn := solana.NewTransaction(payer, budget.prepend(instructions)...)
	txn.SetBlockhash(blockhash)

	if size := len(txn.Marshal()); size > solana.MaxTransactionSize {
		return solana.Transaction{}, failure.NewInvalidParametersError("transaction is %d bytes, exceeding the %d byte limit", size, solana.MaxTransactionSize)
	}

	return txn, nil
}

// classifyChainError maps program rejections for stale nonces or expired
// signatures to StaleNonceError, and everything else to
// SubmissionFailedError.
func classifyChainError(step string, nonce uint32, err error) error {
	if collateral.IsStaleNonceError(err) {
		return failure.NewStaleNonceError(nonce, err)
	}
	return failure.NewSubmissionFailedError(step, err)
}

package web

import (
	"context"
	"crypto/ed25519"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/code-payments/collateral-server/pkg/collateral/data/receipt"
	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/solana"
)

func newReceipt(path receipt.Path, p *parsedWithdrawal) *receipt.Record {
	return &receipt.Record{
		Id:         uuid.New(),
		Path:       path,
		ChainId:    p.bundle.ChainID,
		Collateral: base58.Encode(p.params.Collateral),
		Recipient:  base58.Encode(p.params.Recipient),
		Asset:      base58.Encode(p.params.Asset),
		Amount:     p.params.Amount,
		CreatedAt:  time.Now(),
	}
}

func (s *Server) saveReceipt(ctx context.Context, record *receipt.Record) (uuid.UUID, bool) {
	if err := s.receipts.Put(ctx, record); err != nil {
		s.log.WithError(err).WithField("receipt", record.Id.String()).Warn("failure saving withdrawal receipt")
		return uuid.Nil, false
	}
	return record.Id, true
}

func (s *Server) saveFailedReceipt(ctx context.Context, path receipt.Path, p *parsedWithdrawal, err error) {
	record := newReceipt(path, p)
	record.Status = receipt.StatusFailed
	record.ErrorKind = string(failure.KindOf(err))
	s.saveReceipt(ctx, record)
}

func receiptToResponseBody(record *receipt.Record) map[string]any {
	body := map[string]any{
		"id":         record.Id.String(),
		"path":       string(record.Path),
		"chainId":    record.ChainId,
		"collateral": record.Collateral,
		"recipient":  record.Recipient,
		"asset":      record.Asset,
		"amount":     strconv.FormatUint(record.Amount, 10),
		"status":     string(record.Status),
		"createdAt":  record.CreatedAt.UTC().Format(time.RFC3339),
	}
	optional := map[string]string{
		"transactionSignature":    record.TransactionSignature,
		"signatureRecord":         record.SignatureRecord,
		"sourceTokenAccount":      record.SourceTokenAccount,
		"destinationTokenAccount": record.DestinationTokenAccount,
		"errorKind":               record.ErrorKind,
	}
	for k, v := range optional {
		if len(v) > 0 {
			body[k] = v
		}
	}
	return body
}

func encodeOptionalAddress(address ed25519.PublicKey) string {
	if len(address) == 0 {
		return ""
	}
	return base58.Encode(address)
}

// nullableString maps an empty value to JSON null. Native asset withdrawals
// have no custody accounts but still carry the keys.
func nullableString(s string) any {
	if len(s) == 0 {
		return nil
	}
	return s
}

func encodeSignature(sig solana.Signature) string {
	if sig == (solana.Signature{}) {
		return ""
	}
	return sig.String()
}

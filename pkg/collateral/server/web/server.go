package web

import (
	"context"
	"crypto/ed25519"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/collateral-server/pkg/collateral/data/receipt"
	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/collateral/withdrawal"
	"github.com/code-payments/collateral-server/pkg/config"
	"github.com/code-payments/collateral-server/pkg/rate"
	"github.com/code-payments/collateral-server/pkg/sync"
)

const (
	v1PathPrefix                 = "/v1/collateral/withdrawals"
	v1ExecuteMultisigPath        = v1PathPrefix + "/multisig/execute"
	v1ExecuteSingleSignerPath    = v1PathPrefix + "/single-signer/execute"
	v1PrepareSingleSignerPath    = v1PathPrefix + "/single-signer/prepare"
	v1GetReceiptsPath            = v1PathPrefix + "/receipts"
	v1GetReceiptPath             = v1GetReceiptsPath + "/{" + receiptIdUrlParam + "}"
	receiptIdUrlParam            = "id"
	collateralQueryParam         = "collateral"
	limitQueryParam              = "limit"
	rateLimitedKind              = "rate_limited"
	contentTypeHeaderName        = "content-type"
	jsonContentTypeHeaderValue   = "application/json"
	adminSecretKeyRequiredErrMsg = "collateral admin secret key is required"
)

// Executor runs withdrawals. It is satisfied by *withdrawal.Executor.
type Executor interface {
	ExecuteMultisig(ctx context.Context, bundle *withdrawal.ExecutionBundle, admin withdrawal.Signer) (*withdrawal.MultisigResult, error)
	ExecuteSingleSigner(ctx context.Context, bundle *withdrawal.ExecutionBundle, owner withdrawal.Signer) (*withdrawal.SingleSignerResult, error)
	PrepareSingleSigner(ctx context.Context, bundle *withdrawal.ExecutionBundle, owner ed25519.PublicKey) (*withdrawal.PreparedTransaction, error)
}

type Server struct {
	log  *logrus.Entry
	conf *conf

	executor Executor
	receipts receipt.Store

	limiter rate.Limiter
	locks   *sync.StripedLock
}

func NewWithdrawalServer(ctx context.Context, executor Executor, receipts receipt.Store, configProvider ConfigProvider) *Server {
	conf := configProvider()

	return &Server{
		log:      logrus.StandardLogger().WithField("type", "withdrawal/server"),
		conf:     conf,
		executor: executor,
		receipts: receipts,
		limiter:  rate.NewLimiter(conf.poolWithdrawalsPerSecond.Get(ctx)),
		locks:    sync.NewStripedLock(uint(conf.poolLockStripes.Get(ctx))),
	}
}

func (s *Server) executeMultisigHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.requestLog(r, path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if r.Method != http.MethodPost {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http post expected"))
			}

			req, err := newWithdrawalRequestFromHttpContext(w, r)
			if err != nil {
				return failureResponse(err)
			}
			log = log.WithField("collateral", req.collateral())

			admin, err := s.adminSigner(ctx, req)
			if err != nil {
				return failureResponse(err)
			}

			if !s.allow(log, req) {
				return rateLimitedResponse()
			}

			unlock := s.locks.Lock(req.params.Collateral)
			res, err := s.executor.ExecuteMultisig(ctx, req.bundle, admin)
			unlock()
			if err != nil {
				log.WithError(err).Warn("failure executing multisig withdrawal")
				s.saveFailedReceipt(ctx, receipt.PathMultisig, req, err)
				return failureResponse(err)
			}

			record := newReceipt(receipt.PathMultisig, req)
			record.Status = receipt.StatusConfirmed
			record.TransactionSignature = encodeSignature(res.TransactionSignature)
			record.SignatureRecord = encodeOptionalAddress(res.CollateralSignatureAddress)
			record.SourceTokenAccount = encodeOptionalAddress(res.SourceTokenAccount)
			record.DestinationTokenAccount = encodeOptionalAddress(res.DestinationTokenAccount)

			respBody := NewGenericApiSuccessResponseBody()
			respBody["status"] = res.Status
			respBody["transactionSignature"] = record.TransactionSignature
			respBody["collateralSignatureAddress"] = record.SignatureRecord
			respBody["sourceTokenAccount"] = record.SourceTokenAccount
			respBody["destinationTokenAccount"] = record.DestinationTokenAccount
			respBody["adminSignatureSubmitted"] = res.AdminSignatureSubmitted
			if id, ok := s.saveReceipt(ctx, record); ok {
				respBody["receiptId"] = id.String()
			}
			return http.StatusOK, respBody
		}()

		if err := writeBody(w, statusCode, body); err != nil {
			log.WithError(err).Warn("failed to write body")
		}
	}
}

func (s *Server) executeSingleSignerHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.requestLog(r, path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if r.Method != http.MethodPost {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http post expected"))
			}

			req, err := newWithdrawalRequestFromHttpContext(w, r)
			if err != nil {
				return failureResponse(err)
			}
			log = log.WithField("collateral", req.collateral())

			owner, err := req.ownerSigner()
			if err != nil {
				return failureResponse(err)
			}

			if !s.allow(log, req) {
				return rateLimitedResponse()
			}

			unlock := s.locks.Lock(req.params.Collateral)
			res, err := s.executor.ExecuteSingleSigner(ctx, req.bundle, owner)
			unlock()
			if err != nil {
				log.WithError(err).Warn("failure executing single signer withdrawal")
				s.saveFailedReceipt(ctx, receipt.PathSingleSigner, req, err)
				return failureResponse(err)
			}

			record := newReceipt(receipt.PathSingleSigner, req)
			record.Status = receipt.StatusConfirmed
			record.TransactionSignature = encodeSignature(res.TransactionSignature)
			record.SourceTokenAccount = encodeOptionalAddress(res.SourceTokenAccount)
			record.DestinationTokenAccount = encodeOptionalAddress(res.DestinationTokenAccount)

			respBody := NewGenericApiSuccessResponseBody()
			respBody["status"] = res.Status
			respBody["transactionSignature"] = record.TransactionSignature
			respBody["sourceTokenAccount"] = nullableString(record.SourceTokenAccount)
			respBody["destinationTokenAccount"] = nullableString(record.DestinationTokenAccount)
			if id, ok := s.saveReceipt(ctx, record); ok {
				respBody["receiptId"] = id.String()
			}
			return http.StatusOK, respBody
		}()

		if err := writeBody(w, statusCode, body); err != nil {
			log.WithError(err).Warn("failed to write body")
		}
	}
}

func (s *Server) prepareSingleSignerHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.requestLog(r, path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if r.Method != http.MethodPost {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http post expected"))
			}

			req, err := newWithdrawalRequestFromHttpContext(w, r)
			if err != nil {
				return failureResponse(err)
			}
			log = log.WithField("collateral", req.collateral())

			owner, err := req.ownerAddress()
			if err != nil {
				return failureResponse(err)
			}

			res, err := s.executor.PrepareSingleSigner(ctx, req.bundle, owner)
			if err != nil {
				log.WithError(err).Warn("failure preparing single signer withdrawal")
				s.saveFailedReceipt(ctx, receipt.PathPrepare, req, err)
				return failureResponse(err)
			}

			record := newReceipt(receipt.PathPrepare, req)
			record.Status = receipt.StatusPrepared
			record.SourceTokenAccount = encodeOptionalAddress(res.SourceTokenAccount)
			record.DestinationTokenAccount = encodeOptionalAddress(res.DestinationTokenAccount)

			respBody := NewGenericApiSuccessResponseBody()
			respBody["status"] = withdrawal.StatusPrepared
			respBody["serializedTransaction"] = res.SerializedTransaction
			respBody["recentBlockhash"] = res.RecentBlockhash.String()
			respBody["destinationCreated"] = res.DestinationCreated
			respBody["sourceTokenAccount"] = nullableString(record.SourceTokenAccount)
			respBody["destinationTokenAccount"] = nullableString(record.DestinationTokenAccount)
			if id, ok := s.saveReceipt(ctx, record); ok {
				respBody["receiptId"] = id.String()
			}
			return http.StatusOK, respBody
		}()

		if err := writeBody(w, statusCode, body); err != nil {
			log.WithError(err).Warn("failed to write body")
		}
	}
}

func (s *Server) getReceiptHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.requestLog(r, path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if r.Method != http.MethodGet {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http get expected"))
			}

			id, err := uuid.Parse(chi.URLParam(r, receiptIdUrlParam))
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("receipt id is not a uuid"))
			}
			log = log.WithField("receipt", id.String())

			record, err := s.receipts.Get(ctx, id)
			if err == receipt.ErrReceiptNotFound {
				return http.StatusNotFound, NewGenericApiFailureResponseBody(err)
			} else if err != nil {
				log.WithError(err).Warn("failure getting withdrawal receipt")
				return http.StatusInternalServerError, NewGenericApiFailureResponseBody(errInternal)
			}

			respBody := NewGenericApiSuccessResponseBody()
			respBody["receipt"] = receiptToResponseBody(record)
			return http.StatusOK, respBody
		}()

		if err := writeBody(w, statusCode, body); err != nil {
			log.WithError(err).Warn("failed to write body")
		}
	}
}

func (s *Server) getReceiptsHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.requestLog(r, path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if r.Method != http.MethodGet {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http get expected"))
			}

			collateral := r.URL.Query().Get(collateralQueryParam)
			decoded, err := base58.Decode(collateral)
			if err != nil || len(decoded) != ed25519.PublicKeySize {
				return failureResponse(failure.NewInvalidAddressError(collateralQueryParam, collateral))
			}
			log = log.WithField("collateral", collateral)

			maxLimit := s.conf.maxReceiptsPerQuery.Get(ctx)
			limit := maxLimit
			if raw := r.URL.Query().Get(limitQueryParam); raw != "" {
				limit, err = strconv.ParseUint(raw, 10, 64)
				if err != nil || limit == 0 {
					return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("limit must be a positive integer"))
				}
				if limit > maxLimit {
					limit = maxLimit
				}
			}

			records, err := s.receipts.GetAllByCollateral(ctx, collateral, limit)
			if err != nil && err != receipt.ErrReceiptNotFound {
				log.WithError(err).Warn("failure getting withdrawal receipts")
				return http.StatusInternalServerError, NewGenericApiFailureResponseBody(errInternal)
			}

			receipts := make([]map[string]any, 0, len(records))
			for _, record := range records {
				receipts = append(receipts, receiptToResponseBody(record))
			}

			respBody := NewGenericApiSuccessResponseBody()
			respBody["receipts"] = receipts
			return http.StatusOK, respBody
		}()

		if err := writeBody(w, statusCode, body); err != nil {
			log.WithError(err).Warn("failed to write body")
		}
	}
}

// adminSigner prefers the key supplied with the request, then the configured
// admin key, then the autofund key.
func (s *Server) adminSigner(ctx context.Context, req *parsedWithdrawal) (*withdrawal.KeypairSigner, error) {
	if req.adminSecretKey != nil && strings.TrimSpace(*req.adminSecretKey) != "" {
		return withdrawal.NewKeypairSigner(*req.adminSecretKey)
	}

	for _, configured := range []config.String{s.conf.adminSecretKey, s.conf.fallbackAdminSecretKey} {
		if secret := configured.Get(ctx); strings.TrimSpace(secret) != "" {
			return withdrawal.NewKeypairSigner(secret)
		}
	}

	return nil, failure.NewInvalidParametersError(adminSecretKeyRequiredErrMsg)
}

func (s *Server) allow(log *logrus.Entry, req *parsedWithdrawal) bool {
	allowed, err := s.limiter.Allow(req.collateral())
	if err != nil {
		log.WithError(err).Warn("failure checking rate limit")
		return true
	}
	if !allowed {
		log.Info("withdrawal rate limited")
	}
	return allowed
}

func failureResponse(err error) (int, GenericApiResponseBody) {
	statusCode, err := HandleWithdrawalErrorInWebContext(err)
	return statusCode, NewGenericApiFailureResponseBody(err)
}

func rateLimitedResponse() (int, GenericApiResponseBody) {
	body := NewGenericApiFailureResponseBody(errRateLimited)
	body[kindJsonKey] = rateLimitedKind
	body[retryableJsonKey] = true
	return http.StatusTooManyRequests, body
}

func (s *Server) GetHandlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		v1ExecuteMultisigPath:     s.executeMultisigHandler(v1ExecuteMultisigPath),
		v1ExecuteSingleSignerPath: s.executeSingleSignerHandler(v1ExecuteSingleSignerPath),
		v1PrepareSingleSignerPath: s.prepareSingleSignerHandler(v1PrepareSingleSignerPath),
		v1GetReceiptsPath:         s.getReceiptsHandler(v1GetReceiptsPath),
		v1GetReceiptPath:          s.getReceiptHandler(v1GetReceiptPath),
	}
}

// Router mounts every handler behind panic recovery.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	for path, handler := range s.GetHandlers() {
		router.HandleFunc(path, handler)
	}
	return router
}

// requestLog tags entries with the request id set by the outer chi
// middleware, when present.
func (s *Server) requestLog(r *http.Request, path string) *logrus.Entry {
	log := s.log.WithField("path", path)
	if id := middleware.GetReqID(r.Context()); id != "" {
		log = log.WithField("request_id", id)
	}
	return log
}

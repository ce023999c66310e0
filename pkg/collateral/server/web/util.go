package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
)

const (
	successJsonKey   = "success"
	errorJsonKey     = "error"
	kindJsonKey      = "kind"
	retryableJsonKey = "retryable"
)

var (
	errInternal       = errors.New("internal server error")
	errRequestTimeout = errors.New("request timed out")
	errRateLimited    = errors.New("too many withdrawals for this collateral pool, try again later")
)

type GenericApiResponseBody map[string]any

func NewGenericApiSuccessResponseBody() GenericApiResponseBody {
	return map[string]any{
		successJsonKey: true,
	}
}

// NewGenericApiFailureResponseBody carries the failure kind so callers can
// decide whether to retry without parsing the message.
func NewGenericApiFailureResponseBody(err error) GenericApiResponseBody {
	return map[string]any{
		successJsonKey:   false,
		errorJsonKey:     err.Error(),
		kindJsonKey:      string(failure.KindOf(err)),
		retryableJsonKey: failure.IsRetryable(err),
	}
}

func (b *GenericApiResponseBody) ToString() string {
	marshalled, _ := json.Marshal(b)
	return string(marshalled)
}

// HandleWithdrawalErrorInWebContext maps a withdrawal failure onto an HTTP
// status. Unclassified errors are reported as internal without detail.
func HandleWithdrawalErrorInWebContext(err error) (int, error) {
	if err == nil {
		return http.StatusOK, nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout, errRequestTimeout
	}

	switch failure.KindOf(err) {
	case failure.KindFormat,
		failure.KindInvalidAddress,
		failure.KindInvalidParameters,
		failure.KindUnsupportedExecutionPath:
		return http.StatusBadRequest, err
	case failure.KindUnauthorizedSigner:
		return http.StatusForbidden, err
	case failure.KindMissingOnchainState:
		return http.StatusNotFound, err
	case failure.KindStaleNonce:
		return http.StatusConflict, err
	case failure.KindSubmissionFailed:
		return http.StatusBadGateway, err
	default:
		return http.StatusInternalServerError, errInternal
	}
}

func writeBody(w http.ResponseWriter, statusCode int, body GenericApiResponseBody) error {
	w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
	w.WriteHeader(statusCode)
	_, err := w.Write([]byte(body.ToString()))
	return err
}

package binance

import (
	"errors"
	"strings"

	"futures-monitor/internal/core"
)

const (
	apiCodeTimestampOutside = -1021
	apiCodeInvalidSignature = -1022
	apiCodeAPIKeyFormat     = -2014
	apiCodeRejectedAPIKey   = -2015
)

var apiErrorMessageKinds = map[string]error{
	"invalid api-key, ip, or permissions for action.":          core.ErrUnauthorized,
	"api-key format invalid.":                                  core.ErrUnauthorized,
	"signature for this request is not valid.":                 core.ErrUnauthorized,
	"timestamp for this request is outside of the recvwindow.": core.ErrTimestamp,
}

func wrapAPIError(status, code int, msg string) error {
	return classifyAPIError(APIError{Status: status, Code: code, Msg: msg})
}

func classifyAPIError(apiErr APIError) error {
	kinds := classifyAPIErrorKinds(apiErr)
	if len(kinds) == 0 {
		return apiErr
	}
	errChain := make([]error, 0, 1+len(kinds))
	errChain = append(errChain, apiErr)
	errChain = append(errChain, kinds...)
	return errors.Join(errChain...)
}

func classifyAPIErrorKinds(apiErr APIError) []error {
	kinds := make([]error, 0, 2)

	switch apiErr.Code {
	case apiCodeInvalidSignature, apiCodeAPIKeyFormat, apiCodeRejectedAPIKey:
		kinds = appendErrorKind(kinds, core.ErrUnauthorized)
	case apiCodeTimestampOutside:
		kinds = appendErrorKind(kinds, core.ErrTimestamp)
	}

	if kind, ok := apiErrorMessageKinds[normalizeAPIErrorMsg(apiErr.Msg)]; ok {
		kinds = appendErrorKind(kinds, kind)
	}
	if len(kinds) == 0 && (apiErr.Status == 401 || apiErr.Status == 403) {
		kinds = appendErrorKind(kinds, core.ErrUnauthorized)
	}
	return kinds
}

func appendErrorKind(kinds []error, kind error) []error {
	if kind == nil {
		return kinds
	}
	for _, existing := range kinds {
		if existing == kind {
			return kinds
		}
	}
	return append(kinds, kind)
}

func normalizeAPIErrorMsg(msg string) string {
	return strings.ToLower(strings.TrimSpace(msg))
}

func AsAPIError(err error) (APIError, bool) {
	if err == nil {
		return APIError{}, false
	}
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return APIError{}, false
	}
	return apiErr, true
}

func IsAPIErrorCode(err error, codes ...int) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	for _, code := range codes {
		if apiErr.Code == code {
			return true
		}
	}
	return false
}

package retry

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// On selects which responses and transport errors are retried, using envoy's retry-on
// condition names.
type On struct {
	_5xx           bool
	gatewayError   bool
	connectFailure bool
	retriable4xx   bool
	statusCodes    []int
}

// NewDefaultRetryOn retries gateway errors, connection failures and 409. Plain 500s are
// not retried because image hosts and callbacks return them for permanent failures.
func NewDefaultRetryOn() *On {
	return &On{
		gatewayError:   true,
		connectFailure: true,
		retriable4xx:   true,
	}
}

// NewRetryOnFromString parses a comma separated list such as "gateway-error,429".
func NewRetryOnFromString(s string) (*On, error) {
	o := &On{}
	for _, condition := range strings.Split(s, ",") {
		condition = strings.TrimSpace(condition)
		switch condition {
		case "":
		case "5xx":
			o._5xx = true
		case "gateway-error":
			o.gatewayError = true
		case "connect-failure":
			o.connectFailure = true
		case "retriable-4xx":
			o.retriable4xx = true
		default:
			statusCode, err := strconv.Atoi(condition)
			if err != nil {
				return nil, xerrors.Errorf("invalid retryOn: %s", condition)
			}
			o.statusCodes = append(o.statusCodes, statusCode)
		}
	}
	return o, nil
}

// https://github.com/envoyproxy/envoy/blob/70d6ec1df6384118cf2fa2f02c0041edb76b2377/source/common/router/retry_state_impl.cc#L387
func (o *On) CheckResponse(response *http.Response) bool {
	code := response.StatusCode
	switch {
	case o._5xx && code >= 500 && code < 600:
		return true
	case o.gatewayError && code >= http.StatusBadGateway && code <= http.StatusGatewayTimeout:
		return true
	case o.retriable4xx && code == http.StatusConflict:
		return true
	}

	for _, statusCode := range o.statusCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

// CheckError reports whether a transport error counts as a connection failure. Envoy
// retries those for both connect-failure and 5xx.
func (o *On) CheckError(err error) bool {
	if !o.connectFailure && !o._5xx {
		return false
	}

	type temporary interface{ Temporary() bool }
	var terr temporary
	return (errors.As(err, &terr) && terr.Temporary()) || errors.Is(err, io.EOF)
}

package transport

import (
	"net"
	"net/url"
	"strings"
)

// hasEnvVarSyntax reports whether s is an unexpanded ${VAR_NAME}
// reference, the only form a catalog file is allowed to carry a
// credential in (spec §4.5a).
func hasEnvVarSyntax(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}")
}

// isTimeoutError reports whether err is a network-level timeout.
func isTimeoutError(err error) bool {
	netErr, ok := err.(net.Error)
	return ok && netErr.Timeout()
}

// isConnectionError reports whether err indicates the command's
// target service couldn't be reached at all, as opposed to reaching
// it and getting an error response.
func isConnectionError(err error) bool {
	if _, ok := err.(*net.OpError); ok {
		return true
	}
	if _, ok := err.(*url.Error); ok {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	connectionKeywords := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network unreachable",
		"eof",
	}
	for _, keyword := range connectionKeywords {
		if strings.Contains(errMsg, keyword) {
			return true
		}
	}
	return false
}

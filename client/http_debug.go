package client

import (
	"net/http"
	"net/http/httputil"
	"os"

	"github.com/rs/zerolog"
)

// debugTransport dumps every request and response through the client's logger.
// Enable with WithDebugLogging or HEARTBOOK_DEBUG=true. Dumps include bodies,
// so uploads end up in the log verbatim.
type debugTransport struct {
	base http.RoundTripper
	log  zerolog.Logger
}

func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if reqDump, err := httputil.DumpRequestOut(req, true); err == nil {
		dt.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Str("request_dump", string(reqDump)).Msg("HTTP request")
	}

	resp, err := dt.base.RoundTrip(req)
	if err != nil {
		dt.log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, err
	}

	if respDump, err := httputil.DumpResponse(resp, true); err == nil {
		dt.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status_code", resp.StatusCode).Str("response_dump", string(respDump)).Msg("HTTP response")
	}
	return resp, nil
}

// debugLoggingRequested reports whether HEARTBOOK_DEBUG or DEBUG is "true".
func debugLoggingRequested() bool {
	return os.Getenv("HEARTBOOK_DEBUG") == "true" || os.Getenv("DEBUG") == "true"
}

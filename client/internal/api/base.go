// Package api holds the raw HTTP calls the façade makes against the server.
// Every failure is returned as a classified error so the write queue can
// decide whether to retry.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	cerrors "github.com/heartbook/heartbook/client/internal/errors"
)

// NewRestyClient returns a resty client bound to baseURL.
func NewRestyClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
}

// errorBody mirrors the server's error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// failure turns a non-2xx response into a classified error carrying the
// server's message.
func failure(op string, resp *resty.Response) error {
	var eb errorBody
	msg := ""
	if err := json.Unmarshal(resp.Body(), &eb); err == nil {
		msg = eb.Error
		if msg == "" {
			msg = eb.Message
		}
	}
	return cerrors.NewHTTPError(resp.StatusCode(), msg, op)
}

func isOK(resp *resty.Response) bool {
	return resp.StatusCode() == http.StatusOK
}

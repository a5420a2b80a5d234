package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-resty/resty/v2"

	cerrors "github.com/heartbook/heartbook/client/internal/errors"
)

// UploadResult is the server's answer to a successful upload.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// UploadPhoto posts r as the multipart field "file".
func UploadPhoto(ctx context.Context, rc *resty.Client, name, contentType string, r io.Reader) (UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return UploadResult{}, err
	}
	resp, err := rc.R().
		SetContext(ctx).
		SetMultipartField("file", name, contentType, r).
		Post("/api/upload")
	if err != nil {
		return UploadResult{}, cerrors.NewNetworkError("upload photo", err)
	}
	if !isOK(resp) {
		return UploadResult{}, failure("upload photo", resp)
	}
	var out UploadResult
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return UploadResult{}, fmt.Errorf("decode upload response: %w", err)
	}
	if out.URL == "" {
		return UploadResult{}, fmt.Errorf("upload response has no url")
	}
	return out, nil
}

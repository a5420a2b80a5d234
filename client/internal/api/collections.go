package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	cerrors "github.com/heartbook/heartbook/client/internal/errors"
)

type writeRequest struct {
	Filename string            `json:"filename"`
	Data     []json.RawMessage `json:"data"`
}

// ReadCollection fetches the stored array for filename.
func ReadCollection(ctx context.Context, rc *resty.Client, filename string) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := rc.R().
		SetContext(ctx).
		SetQueryParam("filename", filename).
		Get("/api/data")
	if err != nil {
		return nil, cerrors.NewNetworkError("read collection", err)
	}
	if !isOK(resp) {
		return nil, failure("read collection", resp)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

// WriteCollection replaces the stored array for filename with records.
func WriteCollection(ctx context.Context, rc *resty.Client, filename string, records []json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	resp, err := rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(writeRequest{Filename: filename, Data: records}).
		Post("/api/data")
	if err != nil {
		return cerrors.NewNetworkError("write collection", err)
	}
	if !isOK(resp) {
		return failure("write collection", resp)
	}
	return nil
}

// DeleteRecord removes the record with id from filename on the server.
func DeleteRecord(ctx context.Context, rc *resty.Client, filename, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"filename": filename, "id": id}).
		Delete("/api/data")
	if err != nil {
		return cerrors.NewNetworkError("delete record", err)
	}
	if !isOK(resp) {
		return failure("delete record", resp)
	}
	return nil
}

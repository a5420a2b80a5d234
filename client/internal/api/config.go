package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	cerrors "github.com/heartbook/heartbook/client/internal/errors"
	"github.com/heartbook/heartbook/internal/settings"
)

// GetConfig fetches the lock-screen configuration as stored. Missing fields
// are left zero; callers decide how to fill them.
func GetConfig(ctx context.Context, rc *resty.Client) (settings.Config, error) {
	if err := ctx.Err(); err != nil {
		return settings.Config{}, err
	}
	resp, err := rc.R().SetContext(ctx).Get("/api/config")
	if err != nil {
		return settings.Config{}, cerrors.NewNetworkError("get config", err)
	}
	if !isOK(resp) {
		return settings.Config{}, failure("get config", resp)
	}
	var cfg settings.Config
	if err := json.Unmarshal(resp.Body(), &cfg); err != nil {
		return settings.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// UpdatePassword replaces the stored passphrase.
func UpdatePassword(ctx context.Context, rc *resty.Client, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"password": password}).
		Post("/api/config")
	if err != nil {
		return cerrors.NewNetworkError("update password", err)
	}
	if !isOK(resp) {
		return failure("update password", resp)
	}
	return nil
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// fallbackClient tries a primary client and falls back to a backup client
// when the primary fails after its own retries. Useful for pairing a
// preferred model with a cheaper or more available backup.
type fallbackClient struct {
	primary Client
	backup  Client
}

// NewWithFallback builds a client from the primary config plus a backup
// model on the same provider. An empty backupModel returns the plain client.
func NewWithFallback(cfg Config, backupModel string) (Client, error) {
	primary, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if backupModel == "" || backupModel == cfg.Model {
		return primary, nil
	}

	backupCfg := cfg
	backupCfg.Model = backupModel
	backup, err := NewClient(backupCfg)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("create backup client: %w", err)
	}
	return &fallbackClient{primary: primary, backup: backup}, nil
}

func (f *fallbackClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	resp, err := f.primary.Generate(ctx, req)
	if err == nil {
		return resp, nil
	}
	// Context cancellation is the caller's decision, not a model problem.
	if ctx.Err() != nil {
		return nil, err
	}

	slog.Warn("primary model failed, trying backup", "error", err)
	resp, berr := f.backup.Generate(ctx, req)
	if berr != nil {
		return nil, fmt.Errorf("backup model also failed: %w", errors.Join(err, berr))
	}
	return resp, nil
}

func (f *fallbackClient) GenerateJSON(ctx context.Context, req *Request, out any) error {
	req.JSONMode = true
	resp, err := f.Generate(ctx, req)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(resp.Content), out)
}

func (f *fallbackClient) Provider() Provider {
	return f.primary.Provider()
}

func (f *fallbackClient) Close() error {
	perr := f.primary.Close()
	berr := f.backup.Close()
	if perr != nil {
		return perr
	}
	return berr
}

package provisioner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"vpnstore/internal/domain"
)

// CommandFunc runs an executable and returns its stdout
type CommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// scriptResult is the JSON document every script prints on stdout
type scriptResult struct {
	OK        bool              `json:"ok"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Username  string            `json:"username"`
	Password  string            `json:"password"`
	Domain    string            `json:"domain"`
	ExpiresAt string            `json:"expires_at"`
	Links     map[string]string `json:"links"`
}

const errCodeExists = "exists"

// ScriptRunner provisions accounts by running <dir>/<action>-<protocol>
type ScriptRunner struct {
	dir     string
	timeout time.Duration
	run     CommandFunc
	logger  *zap.Logger
}

// NewScriptRunner creates a runner for scripts in dir
func NewScriptRunner(dir string, timeout time.Duration, run CommandFunc, logger *zap.Logger) *ScriptRunner {
	if run == nil {
		run = execCommand
	}
	return &ScriptRunner{dir: dir, timeout: timeout, run: run, logger: logger}
}

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("%s: %w: %s", filepath.Base(name), err, bytes.TrimSpace(stderr.Bytes()))
	}
	// A failing script may still have printed its JSON verdict.
	return out, nil
}

// Create creates a new account
func (r *ScriptRunner) Create(ctx context.Context, req Request) (*Account, error) {
	return r.call(ctx, "create", req.Protocol, requestArgs(req))
}

// Renew extends an existing account
func (r *ScriptRunner) Renew(ctx context.Context, req Request) (*Account, error) {
	return r.call(ctx, "renew", req.Protocol, requestArgs(req))
}

// Delete removes an account
func (r *ScriptRunner) Delete(ctx context.Context, server domain.Server, protocol domain.Protocol, username string) error {
	_, err := r.call(ctx, "delete", protocol, []string{
		"--domain", server.Domain,
		"--auth", server.Auth,
		"--user", username,
	})
	return err
}

func requestArgs(req Request) []string {
	args := []string{
		"--domain", req.Server.Domain,
		"--auth", req.Server.Auth,
		"--user", req.Username,
		"--days", strconv.Itoa(req.Days),
		"--quota", strconv.FormatInt(req.Server.QuotaGB, 10),
		"--iplimit", strconv.FormatInt(req.Server.IPLimit, 10),
	}
	if req.Password != "" {
		args = append(args, "--pass", req.Password)
	}
	return args
}

func (r *ScriptRunner) call(ctx context.Context, action string, protocol domain.Protocol, args []string) (*Account, error) {
	if protocol == domain.ProtocolBundle {
		return nil, fmt.Errorf("%w: script runner cannot provision %s directly", domain.ErrInvalidInput, protocol)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	script := filepath.Join(r.dir, action+"-"+string(protocol))
	out, err := r.run(ctx, script, args...)
	if err != nil {
		r.logger.Error("Provisioning script failed",
			zap.String("script", script),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrProvisionFailed, err)
	}

	var res scriptResult
	if err := json.Unmarshal(bytes.TrimSpace(out), &res); err != nil {
		r.logger.Error("Provisioning script returned malformed output",
			zap.String("script", script),
			zap.ByteString("output", out),
		)
		return nil, fmt.Errorf("%w: malformed output: %v", domain.ErrProvisionFailed, err)
	}

	if !res.OK {
		if res.Error == errCodeExists {
			return nil, domain.ErrUsernameTaken
		}
		return nil, fmt.Errorf("%w: %s %s", domain.ErrProvisionFailed, res.Error, res.Message)
	}

	acc := &Account{
		Username: res.Username,
		Password: res.Password,
		Protocol: protocol,
		Domain:   res.Domain,
		Links:    res.Links,
	}
	if res.ExpiresAt != "" {
		exp, err := parseExpiry(res.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("%w: bad expires_at %q", domain.ErrProvisionFailed, res.ExpiresAt)
		}
		acc.ExpiresAt = exp
	}
	return acc, nil
}

func parseExpiry(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized time format")
}

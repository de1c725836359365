package provisioner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vpnstore/internal/domain"
)

type recordedCall struct {
	name string
	args []string
}

func fakeCommand(out string, err error, calls *[]recordedCall) CommandFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: args})
		return []byte(out), err
	}
}

func TestScriptRunner_Create(t *testing.T) {
	server := domain.Server{Domain: "sg.example.com", Auth: "key", QuotaGB: 100, IPLimit: 2}

	tests := []struct {
		name        string
		out         string
		runErr      error
		expectedErr error
		expected    *Account
	}{
		{
			name: "success",
			out:  `{"ok":true,"username":"bob","password":"secret1","domain":"sg.example.com","expires_at":"2024-06-01","links":{"tls":"ssh://x"}}`,
			expected: &Account{
				Username: "bob", Password: "secret1", Protocol: domain.ProtocolSSH, Domain: "sg.example.com",
				ExpiresAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
				Links:     map[string]string{"tls": "ssh://x"},
			},
		},
		{
			name:        "username exists",
			out:         `{"ok":false,"error":"exists"}`,
			expectedErr: domain.ErrUsernameTaken,
		},
		{
			name:        "script reported failure",
			out:         `{"ok":false,"error":"quota","message":"disk full"}`,
			expectedErr: domain.ErrProvisionFailed,
		},
		{
			name:        "malformed output",
			out:         `Account created!`,
			expectedErr: domain.ErrProvisionFailed,
		},
		{
			name:        "script did not run",
			runErr:      errors.New("exec: not found"),
			expectedErr: domain.ErrProvisionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []recordedCall
			r := NewScriptRunner("/opt/vpn", time.Second, fakeCommand(tt.out, tt.runErr, &calls), zap.NewNop())

			acc, err := r.Create(context.Background(), Request{
				Server: server, Protocol: domain.ProtocolSSH, Username: "bob", Password: "secret1", Days: 30,
			})

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, acc)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, acc)
			}

			require.Len(t, calls, 1)
			assert.Equal(t, "/opt/vpn/create-ssh", calls[0].name)
			assert.Equal(t, []string{
				"--domain", "sg.example.com", "--auth", "key", "--user", "bob",
				"--days", "30", "--quota", "100", "--iplimit", "2", "--pass", "secret1",
			}, calls[0].args)
		})
	}
}

func TestScriptRunner_RejectsBundle(t *testing.T) {
	var calls []recordedCall
	r := NewScriptRunner("/opt/vpn", 0, fakeCommand(`{"ok":true}`, nil, &calls), zap.NewNop())

	_, err := r.Renew(context.Background(), Request{Protocol: domain.ProtocolBundle, Username: "bob", Days: 1})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, calls)
}

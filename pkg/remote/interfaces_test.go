package remote_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/repofetch/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

func TestParseRepository(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        remote.Repository
		wantErr     bool
		errContains string
	}{
		{
			name:  "owner_and_name",
			input: "walteh/repofetch",
			want:  remote.Repository{Owner: "walteh", Name: "repofetch"},
		},
		{
			name:  "with_branch",
			input: "walteh/repofetch@develop",
			want:  remote.Repository{Owner: "walteh", Name: "repofetch", Branch: "develop"},
		},
		{
			name:  "github_url",
			input: "https://github.com/walteh/repofetch",
			want:  remote.Repository{Owner: "walteh", Name: "repofetch"},
		},
		{
			name:  "with_whitespace",
			input: "  walteh/repofetch  ",
			want:  remote.Repository{Owner: "walteh", Name: "repofetch"},
		},
		{
			name:        "empty_name",
			input:       "",
			wantErr:     true,
			errContains: "empty repository name",
		},
		{
			name:        "missing_slash",
			input:       "waltehrepofetch",
			wantErr:     true,
			errContains: "invalid repository name",
		},
		{
			name:        "too_many_slashes",
			input:       "walteh/repofetch/extra",
			wantErr:     true,
			errContains: "invalid repository name",
		},
		{
			name:        "empty_owner",
			input:       "/repofetch",
			wantErr:     true,
			errContains: "invalid repository name",
		},
		{
			name:        "empty_branch",
			input:       "walteh/repofetch@",
			wantErr:     true,
			errContains: "empty branch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := remote.ParseRepository(tt.input)
			if tt.wantErr {
				require.Error(t, err, "ParseRepository should return error")
				assert.Contains(t, err.Error(), tt.errContains, "error should contain expected message")
				return
			}

			require.NoError(t, err, "ParseRepository should succeed")
			assert.Equal(t, tt.want, got, "repository should match")
		})
	}
}

func TestRepositoryString(t *testing.T) {
	assert.Equal(t, "a/b", remote.Repository{Owner: "a", Name: "b"}.String(), "default branch should be omitted")
	assert.Equal(t, "a/b@dev", remote.Repository{Owner: "a", Name: "b", Branch: "dev"}.String(), "branch should be appended")
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "typed_rate_limit", err: &remote.RateLimitError{ResetAt: time.Now()}, want: true},
		{name: "wrapped_rate_limit", err: errors.Errorf("listing: %w", &remote.RateLimitError{}), want: true},
		{name: "api_403", err: &remote.APIError{StatusCode: 403, Message: "forbidden"}, want: true},
		{name: "api_429", err: &remote.APIError{StatusCode: 429}, want: true},
		{name: "api_500", err: &remote.APIError{StatusCode: 500, Message: "boom"}, want: false},
		{name: "api_404", err: &remote.APIError{StatusCode: 404, Message: "Not Found"}, want: false},
		{name: "message_rate_limit", err: fmt.Errorf("API Rate Limit exceeded for 1.2.3.4"), want: true},
		{name: "message_403", err: fmt.Errorf("GET /repos: 403"), want: true},
		{name: "message_403_forbidden", err: fmt.Errorf("GET /repos/a/b: 403 Forbidden []"), want: true},
		{name: "message_403_in_parens", err: fmt.Errorf("request failed (status 403)"), want: true},
		{name: "message_port_4030", err: fmt.Errorf("dial tcp 10.0.0.1:4030: connection refused"), want: false},
		{name: "message_path_403", err: fmt.Errorf("GET /repos/a/b/contents/docs/403/index.md: 404"), want: false},
		{name: "message_longer_number", err: fmt.Errorf("read 4031 bytes: unexpected EOF"), want: false},
		{name: "message_file_403", err: fmt.Errorf("open 403.html: no such file"), want: false},
		{name: "plain", err: fmt.Errorf("connection reset by peer"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, remote.IsRateLimited(tt.err), "classification should match")
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, remote.IsNotFound(errors.Errorf("get: %w", remote.ErrNotFound)), "wrapped sentinel should be not found")
	assert.True(t, remote.IsNotFound(&remote.APIError{StatusCode: 404}), "404 should be not found")
	assert.False(t, remote.IsNotFound(&remote.APIError{StatusCode: 500}), "500 should not be not found")
}

package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetryDelayFromError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "quoted json style",
			err:  errors.New(`googleapi: Error 429: ... "retryDelay": "30s" ...`),
			want: "30s",
		},
		{
			name: "unquoted struct style",
			err:  errors.New("rpc error: RetryInfo retryDelay=12.5s"),
			want: "12.5s",
		},
		{
			name: "milliseconds",
			err:  errors.New(`retryDelay:"800ms"`),
			want: "800ms",
		},
		{
			name: "no delay present",
			err:  errors.New("quota exceeded"),
			want: "",
		},
		{
			name: "nil error",
			err:  nil,
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, retryDelayFromError(tc.err))
		})
	}
}

func TestRateLimitErrorUnwrap(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := &RateLimitError{RetryAfter: "30s", Cause: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "quota exceeded")
}

package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		endpoints string
		want      Endpoint
		wantErr   bool
	}{
		{
			name:      "first wins",
			endpoints: " 10.2.5.20:1234, 10.2.5.21:1234,10.2.5.22:1234",
			want:      Endpoint{Host: "10.2.5.20", Port: "1234"},
		},
		{
			name:      "leading empties skipped",
			endpoints: ", ,10.2.5.20:3306",
			want:      Endpoint{Host: "10.2.5.20", Port: "3306"},
		},
		{
			name:      "socket endpoint",
			endpoints: "file:///var/run/mysql/mysql.sock",
			want:      Endpoint{SocketPath: "/var/run/mysql/mysql.sock"},
		},
		{
			name:      "socket beats later tcp",
			endpoints: "file:///run/db.sock,10.2.5.20:3306",
			want:      Endpoint{SocketPath: "/run/db.sock"},
		},
		{
			name:      "empty list",
			endpoints: "",
			wantErr:   true,
		},
		{
			name:      "missing port",
			endpoints: "10.2.5.20",
			wantErr:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SelectEndpoint(tc.endpoints)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			// Socket and host forms never mix.
			if got.SocketPath != "" {
				assert.Empty(t, got.Host)
				assert.Empty(t, got.Port)
			}
		})
	}
}

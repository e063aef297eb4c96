package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret",
			"-t", "15", "-r", "60", "-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			"-m", "relay:587", "-f", "noreply@example.com",
		}, expectPanic: false,
			expected: &Config{
				RunAddr:                 "127.0.0.1:9090",
				DatabaseDSN:             "db",
				SecretKey:               "secret",
				OTPValidityDuration:     15 * time.Minute,
				SessionValidityDuration: 60 * time.Minute,
				S3RootUser:              "user",
				S3RootPassword:          "password",
				S3Bucket:                "bucket",
				S3Region:                "us-west-1",
				S3BaseEndpoint:          "http://endpoint",
				SMTPAddr:                "relay:587",
				SMTPFrom:                "noreply@example.com",
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {

				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}

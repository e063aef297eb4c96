package config

import (
	"flag"
	"os"
	"time"

	"github.com/storeit-app/storeit/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   session HMAC secret key
//	-t int      one-time passcode validity, minutes
//	-r int      session validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-m string   SMTP relay address (host:port)
//	-f string   From address for outgoing mail
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e", "-m", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.RunAddr, "a", config.RunAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	otpValidityDuration := fs.Int("t", int(config.OTPValidityDuration.Minutes()), "otp_validity_duration (in minutes)")
	sessionValidityDuration := fs.Int("r", int(config.SessionValidityDuration.Minutes()), "session_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.SMTPAddr, "m", config.SMTPAddr, "SMTP relay address")
	fs.StringVar(&config.SMTPFrom, "f", config.SMTPFrom, "From address for outgoing mail")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OTPValidityDuration = time.Duration(*otpValidityDuration) * time.Minute
	config.SessionValidityDuration = time.Duration(*sessionValidityDuration) * time.Minute
}

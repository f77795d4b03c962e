package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	// ExitCodeRejected indicates the connector answered with a non 2xx status.
	ExitCodeRejected = 2
)

// RejectedError is returned when the connector answers a call with an error status.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("connector answered %d: %s", e.StatusCode, e.Body)
}

var (
	connectorURL string
	clientID     string
	clientSecret string
	redirectURI  string
	hmacSecret   string
	timeout      time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "oauthsim",
	Short: "Drive the connector's OAuth flow the way a GPT action does",
	Long: `oauthsim plays the agent side of the connector's OAuth flow against a
running connector. It starts an authorization, confirms it as the main app
would, exchanges the code for a bearer token and calls the pass-through API.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&connectorURL, "connector-url", "http://localhost:8080", "Base URL of the connector")
	flags.StringVar(&clientID, "client-id", "meo-gpt", "OAuth client id")
	flags.StringVar(&clientSecret, "client-secret", "", "OAuth client secret")
	flags.StringVar(&redirectURI, "redirect-uri", "https://chat.openai.com/aip/oauth/callback", "Redirect URI registered for the agent")
	flags.StringVar(&hmacSecret, "hmac-secret", "", "Shared secret used to check the session signature (optional)")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout for the command")
}

func SetVersion(v string) {
	rootCmd.Version = v
}

func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "oauthsim version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

func getExitCode(err error) int {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return ExitCodeRejected
	}
	return ExitCodeError
}

func newSimulatorFromFlags() (*Simulator, error) {
	return NewSimulator(SimulatorConfig{
		ConnectorURL: connectorURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		HMACSecret:   hmacSecret,
	})
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

// report prints the connector's answer and turns error statuses into a RejectedError.
func report(out io.Writer, status int, body string) error {
	fmt.Fprintf(out, "%d\n%s\n", status, body)
	if status < 200 || status > 299 {
		return &RejectedError{StatusCode: status, Body: body}
	}
	return nil
}

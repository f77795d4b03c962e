package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	upstreamCode string
	accessToken  string
	callMethod   string
	callPath     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full authorize, confirm, token flow",
	Long: `Runs the whole flow against the connector. The confirmation code must be
one the main app will accept at its exchange endpoint. When --path is set the
issued token is used for one pass-through call.`,
	Args: cobra.NoArgs,
	RunE: runFlow,
}

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Call the pass-through API with a bearer token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sim, err := newSimulatorFromFlags()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		status, body, err := sim.Call(ctx, accessToken, strings.ToUpper(callMethod), callPath)
		if err != nil {
			return err
		}
		return report(cmd.OutOrStdout(), status, body)
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a bearer token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sim, err := newSimulatorFromFlags()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		status, body, err := sim.Revoke(ctx, accessToken)
		if err != nil {
			return err
		}
		return report(cmd.OutOrStdout(), status, body)
	},
}

func init() {
	runCmd.Flags().StringVar(&upstreamCode, "code", "", "Confirmation code the main app hands back after approval")
	runCmd.Flags().StringVar(&callPath, "path", "", "Pass-through API path to call with the issued token")
	_ = runCmd.MarkFlagRequired("code")

	callCmd.Flags().StringVar(&accessToken, "token", "", "Bearer token")
	callCmd.Flags().StringVarP(&callMethod, "method", "X", http.MethodGet, "HTTP method")
	callCmd.Flags().StringVar(&callPath, "path", "", "API path, relative to /api/")
	_ = callCmd.MarkFlagRequired("token")
	_ = callCmd.MarkFlagRequired("path")

	revokeCmd.Flags().StringVar(&accessToken, "token", "", "Bearer token")
	_ = revokeCmd.MarkFlagRequired("token")

	rootCmd.AddCommand(runCmd, callCmd, revokeCmd)
}

func runFlow(cmd *cobra.Command, _ []string) error {
	sim, err := newSimulatorFromFlags()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	out := cmd.OutOrStdout()

	state, err := randomState()
	if err != nil {
		return err
	}

	confirmation, err := sim.Authorize(ctx, state)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "confirm page: %s\n", confirmation.ConfirmURL)

	code, returnedState, err := sim.Confirm(ctx, confirmation.SessionID, upstreamCode)
	if err != nil {
		return err
	}
	if returnedState != state {
		return errors.Errorf("state mismatch: sent %q, got %q", state, returnedState)
	}

	tok, err := sim.Exchange(ctx, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "access token: %s\nexpires: %s\n", tok.AccessToken, tok.Expiry.Format("2006-01-02 15:04:05 MST"))

	if callPath == "" {
		return nil
	}
	status, body, err := sim.Call(ctx, tok.AccessToken, http.MethodGet, callPath)
	if err != nil {
		return err
	}
	return report(out, status, body)
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "state")
	}
	return hex.EncodeToString(b), nil
}

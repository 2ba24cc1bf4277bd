package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/mnehpets/rpcbind/client"
	"github.com/mnehpets/rpcbind/dispatch"
)

var (
	url     string
	token   string
	useCBOR bool
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "rpcbind-client",
	Short: "Call methods on a JSON-RPC endpoint",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var callCmd = &cobra.Command{
	Use:   "call <method> [params]",
	Short: "Call a method and print its result",
	Long:  `The call command sends a request and prints the result as JSON. Params are given as JSON text, e.g. '[1, 2]' or '{"a": 1}'.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args)
		if err != nil {
			return err
		}
		ctx, cancel := contextWithTimeout(cmd)
		defer cancel()

		var result any
		if err := newClient().Call(ctx, args[0], params, &result); err != nil {
			return fmt.Errorf("error calling %s: %w", args[0], err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify <method> [params]",
	Short: "Send a notification",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args)
		if err != nil {
			return err
		}
		ctx, cancel := contextWithTimeout(cmd)
		defer cancel()

		if err := newClient().Notify(ctx, args[0], params); err != nil {
			return fmt.Errorf("error notifying %s: %w", args[0], err)
		}
		return nil
	},
}

func parseParams(args []string) (any, error) {
	if len(args) < 2 {
		return nil, nil
	}
	var params any
	if err := dispatch.JSON.Unmarshal([]byte(args[1]), &params); err != nil {
		return nil, fmt.Errorf("error parsing params: %w", err)
	}
	return params, nil
}

func contextWithTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func newClient() *client.Client {
	var opts []client.Option
	if useCBOR {
		opts = append(opts, client.WithCodec(dispatch.CBOR))
	}
	if token != "" {
		opts = append(opts, client.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))
	}
	return client.New(url, opts...)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&url, "url", "http://localhost:8080/rpc", "endpoint URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("RPCBIND_TOKEN"), "bearer token")
	rootCmd.PersistentFlags().BoolVar(&useCBOR, "cbor", false, "encode requests as CBOR")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(notifyCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

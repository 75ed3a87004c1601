package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/config"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/core"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/logger"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/rpcclient"
)

// Set via -ldflags at build time
var (
	Version = "dev"
	Commit  = ""
)

func InitRootCmd(rootCmd *cobra.Command, v *viper.Viper) {
	rootCmd.AddCommand(initCmd(v))
	rootCmd.AddCommand(startCmd(v))
	rootCmd.AddCommand(callCmd(v))
	rootCmd.AddCommand(versionCmd())
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	home := v.GetString(flagHome)
	cfg, err := config.Load(home)
	if err != nil {
		return nil, fmt.Errorf("%w (run `%s init` first)", err, appName)
	}
	cfg.NodeHome = home

	if urls := rpcURLOverride(v); len(urls) > 0 {
		cfg.RPCURLs = urls
		if err := config.Validate(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func initCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config to the home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefaultConfig()
			if err != nil {
				return err
			}
			home := v.GetString(flagHome)
			cfg.NodeHome = home
			if urls := rpcURLOverride(v); len(urls) > 0 {
				cfg.RPCURLs = urls
			}
			if err := config.Save(cfg, home); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config written to %s/config\n", home)
			return nil
		},
	}
}

func startCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the orchestrator RPC client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			log := logger.Init(*cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := core.NewOrchestratorClient(ctx, log, cfg)
			if err != nil {
				return err
			}
			return client.Start()
		},
	}
}

func callCmd(v *viper.Viper) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "call <method> [json-param...]",
		Short: "Send one call through a reconnecting client and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			log := logger.Init(*cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			dialer, err := core.NewDialer(cfg, log)
			if err != nil {
				return err
			}
			worker, client, err := rpcclient.New(ctx, cfg.RPCURLs, dialer,
				rpcclient.WithLogger(log),
				rpcclient.WithDialTimeout(cfg.DialTimeout()),
				rpcclient.WithReconnectPolicy(cfg.ReconnectCycles, cfg.ReconnectBackoff()),
			)
			if err != nil {
				return err
			}
			runErr := make(chan error, 1)
			go func() { runErr <- worker.Run(ctx) }()
			defer func() {
				client.Close()
				<-worker.Done()
			}()

			result, err := client.Call(ctx, args[0], params...)
			if errors.Is(err, rpcclient.ErrCancelled) {
				// The worker stopped underneath the call; report why.
				if stopErr := <-runErr; stopErr != nil {
					return fmt.Errorf("%s: %w", args[0], stopErr)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(result))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall time limit for the call")
	return cmd
}

// parseParams decodes each argument as JSON, falling back to a plain string
func parseParams(args []string) ([]any, error) {
	params := make([]any, len(args))
	for i, arg := range args {
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(arg), &raw); err != nil {
			b, err := json.Marshal(arg)
			if err != nil {
				return nil, err
			}
			raw = b
		}
		params[i] = raw
	}
	return params, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print orchestratord version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Name:       %s\n", appName)
			fmt.Fprintf(cmd.OutOrStdout(), "Version:    %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit:     %s\n", Commit)
		},
	}
}

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	appName   = "orchestratord"
	envPrefix = "ORCHD"

	flagHome    = "home"
	flagRPCURLs = "rpc-urls"
)

func defaultNodeHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}

func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "Orchestrator chain RPC client daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(flagHome, defaultNodeHome(), "directory for config and data")
	rootCmd.PersistentFlags().StringSlice(flagRPCURLs, nil, "orchestrator endpoints, overriding the config file")
	_ = v.BindPFlag(flagHome, rootCmd.PersistentFlags().Lookup(flagHome))
	_ = v.BindPFlag(flagRPCURLs, rootCmd.PersistentFlags().Lookup(flagRPCURLs))

	InitRootCmd(rootCmd, v) // add subcommands like `start` and `version`

	return rootCmd
}

// rpcURLOverride returns the endpoints given on the command line or in
// ORCHD_RPC_URLS, if any
func rpcURLOverride(v *viper.Viper) []string {
	var urls []string
	for _, u := range v.GetStringSlice(flagRPCURLs) {
		for _, part := range strings.Split(u, ",") {
			if part = strings.TrimSpace(part); part != "" {
				urls = append(urls, part)
			}
		}
	}
	return urls
}

package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chatlink/chatlink-go/chatlink/rest"
)

var (
	flagServer  string
	flagConfig  string
	flagVerbose bool
)

func Execute() error {
	root := &cobra.Command{
		Use:           "chatlink",
		Short:         "Chatlink command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&flagServer, "server", "", "server base URL (default from profile, else http://localhost:8080)")
	root.PersistentFlags().StringVar(&flagConfig, "config", defaultProfilePath(), "profile file path")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(registerCmd())
	root.AddCommand(loginCmd())
	root.AddCommand(roomsCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(chatCmd())

	return root.Execute()
}

// resolveServer picks the server address: flag, then profile, then default.
func resolveServer(p profile) string {
	if flagServer != "" {
		return flagServer
	}
	if p.Server != "" {
		return p.Server
	}
	return "http://localhost:8080"
}

// apiClient builds an authenticated REST client from the stored profile.
func apiClient() (*rest.Client, profile, error) {
	p, err := loadProfile(flagConfig)
	if err != nil {
		return nil, p, err
	}
	c := rest.NewClient(resolveServer(p) + "/api")
	if p.Token != "" {
		c.SetToken(p.Token)
	}
	return c, p, nil
}

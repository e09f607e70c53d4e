package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatlink/chatlink-go/chatlink/rest"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <username> <password>",
		Short: "Create an account and store the token in the profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticate(cmd, args, func(c *rest.Client, creds rest.Credentials) (*rest.TokenResponse, error) {
				return c.Register(cmd.Context(), creds)
			})
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Authenticate and store the token in the profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticate(cmd, args, func(c *rest.Client, creds rest.Credentials) (*rest.TokenResponse, error) {
				return c.Login(cmd.Context(), creds)
			})
		},
	}
}

func authenticate(cmd *cobra.Command, args []string, fn func(*rest.Client, rest.Credentials) (*rest.TokenResponse, error)) error {
	client, p, err := apiClient()
	if err != nil {
		return err
	}
	resp, err := fn(client, rest.Credentials{Username: args[0], Password: args[1]})
	if err != nil {
		return err
	}

	p.Server = resolveServer(p)
	p.Token = resp.Token
	p.Username = args[0]
	if err := p.save(flagConfig); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s, token stored in %s\n", args[0], flagConfig)
	return nil
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func roomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage rooms",
	}
	cmd.AddCommand(roomsListCmd(), roomsCreateCmd(), roomsDeleteCmd())
	return cmd
}

func roomsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accessible rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := apiClient()
			if err != nil {
				return err
			}
			rooms, err := client.ListRooms(cmd.Context())
			if err != nil {
				return err
			}
			for _, room := range rooms {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", room.ID, room.Name)
			}
			return nil
		},
	}
}

func roomsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := apiClient()
			if err != nil {
				return err
			}
			room, err := client.CreateRoom(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created room %d (%s)\n", room.ID, room.Name)
			return nil
		},
	}
}

func roomsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <roomID>",
		Short: "Delete a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid room id %q", args[0])
			}
			client, _, err := apiClient()
			if err != nil {
				return err
			}
			if err := client.DeleteRoom(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted room %d\n", id)
			return nil
		},
	}
}

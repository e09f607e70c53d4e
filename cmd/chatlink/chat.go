package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chatlink/chatlink-go/chatlink"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <roomID>",
		Short: "Join a room and chat interactively",
		Long:  "Connects to the room's live session, prints incoming messages and sends each stdin line as a message. Ctrl+C or EOF leaves the room.",
		Args:  cobra.ExactArgs(1),
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(flagConfig)
	if err != nil {
		return err
	}
	if p.Token == "" {
		return fmt.Errorf("not logged in, run `chatlink login` first")
	}

	cfg := chatlink.DefaultConfig()
	cfg.BaseURL = resolveServer(p)
	cfg.RoomID = args[0]
	cfg.Token = p.Token

	client := chatlink.NewClient(cfg)
	client.SetLogger(log.Logger)

	out := cmd.OutOrStdout()
	fatal := make(chan error, 1)

	client.OnConnect(func() {
		fmt.Fprintf(out, "* joined room %s\n", cfg.RoomID)
	})
	client.OnDisconnect(func() {
		fmt.Fprintln(out, "* disconnected")
	})
	client.OnMessage(func(msg chatlink.ChatMessage) {
		ts := time.UnixMilli(msg.Timestamp).Format("15:04:05")
		fmt.Fprintf(out, "[%s] %s: %s\n", ts, msg.Username, msg.Content)
	})
	client.OnStateChange(func(ev chatlink.StateEvent) {
		log.Debug().Stringer("from", ev.From).Stringer("to", ev.To).Msg("state change")
		if ev.To == chatlink.StateReconnectWait {
			fmt.Fprintf(out, "* connection lost, retrying in %s (attempt %d/%d)\n",
				cfg.ReconnectDelay, client.Attempt(), cfg.MaxReconnectTries)
		}
	})
	client.OnError(func(err error) {
		if chatlink.IsExhausted(err) {
			fatal <- err
		}
	})

	if err := client.Open(cmd.Context()); err != nil {
		return err
	}
	defer client.Close()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			if !client.Send(line) {
				fmt.Fprintln(out, "* not connected, message dropped")
			}
		case err := <-fatal:
			return fmt.Errorf("session cannot recover: %w", err)
		case <-sig:
			return nil
		case <-cmd.Context().Done():
			return nil
		}
	}
}

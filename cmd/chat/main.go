// Command chat is a terminal client for the relay server. It follows the same
// conversation rules as the web UI: one user and one assistant message per turn,
// with the reply revealed word by word.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"relaychat-backend/internal/conversation"
	"relaychat-backend/internal/logging"
	"relaychat-backend/internal/models"
	"relaychat-backend/internal/render"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "relay server base URL")
	withSession := flag.Bool("session", false, "open a session so the turns are kept in history")
	delay := flag.Duration("delay", 60*time.Millisecond, "pause between revealed words")
	flag.Parse()

	logging.Setup("warn", false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	httpClient := &http.Client{Timeout: 90 * time.Second}

	var token string
	if *withSession {
		session, err := openSession(ctx, httpClient, *server)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open session")
		}
		token = session.Token
	}

	conv := conversation.New(conversation.NewHTTPSender(*server, token, httpClient), conversation.DefaultGreeting)
	printMessage(ctx, conv.Messages()[0], *delay)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nyou> ")
		if !scanner.Scan() {
			return
		}

		reply, err := conv.Submit(ctx, scanner.Text())
		if err == conversation.ErrEmptyInput {
			continue
		}
		if err != nil {
			log.Debug().Err(err).Msg("submit failed")
		}
		printMessage(ctx, reply, *delay)

		if ctx.Err() != nil {
			return
		}
	}
}

func printMessage(ctx context.Context, m models.ChatMessage, delay time.Duration) {
	fmt.Printf("\n[%s] assistant> ", m.Timestamp.Format("15:04"))
	render.Reveal(ctx, os.Stdout, render.RevealWords(m.Content, false), delay)
	fmt.Println()
}

func openSession(ctx context.Context, c *http.Client, server string) (*models.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(server, "/")+"/api/sessions", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var session models.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tenshi-bot/tenshi/pkg/bot"
	"github.com/tenshi-bot/tenshi/pkg/config"
	"github.com/tenshi-bot/tenshi/pkg/store"
	"github.com/tenshi-bot/tenshi/pkg/tier"
)

const (
	consoleUserID  = "console"
	consoleChannel = "console"
)

// console is a local stdin/stdout harness around the message facade,
// used for development and smoke testing without a platform transport.
type console struct {
	bot     *bot.Bot
	linker  *tier.Linker
	tiers   *tier.Resolver
	store   *store.Store
	runtime *config.Runtime
	log     zerolog.Logger
}

func newConsole(b *bot.Bot, linker *tier.Linker, tiers *tier.Resolver, s *store.Store, runtime *config.Runtime, log zerolog.Logger) *console {
	return &console{
		bot:     b,
		linker:  linker,
		tiers:   tiers,
		store:   s,
		runtime: runtime,
		log:     log.With().Str("component", "console").Logger(),
	}
}

func (c *console) loop(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			c.handleCommand(ctx, line)
			continue
		}
		evt := bot.Event{
			AuthorID:    consoleUserID,
			ChannelID:   consoleChannel,
			Body:        line,
			DisplayName: "console",
		}
		if _, err := c.bot.HandleMessage(ctx, evt, c); err != nil {
			c.log.Error().Err(err).Msg("Message handling failed")
		}
	}
	if err := scanner.Err(); err != nil {
		c.log.Error().Err(err).Msg("Console input closed")
	}
}

func (c *console) handleCommand(ctx context.Context, line string) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/auth":
		if arg == "" {
			fmt.Println("usage: /auth <one-time code>")
			return
		}
		if err := c.linker.Exchange(ctx, consoleUserID, arg); err != nil {
			fmt.Println("linking failed:", err)
			return
		}
		fmt.Println("account linked")
	case "/revoke":
		revoked, err := c.tiers.Revoke(ctx, consoleUserID)
		if err != nil {
			fmt.Println("revoke failed:", err)
			return
		}
		if !revoked {
			fmt.Println("no linked account")
			return
		}
		fmt.Println("account unlinked")
	case "/reset":
		if err := c.tiers.Reset(ctx, consoleUserID); err != nil {
			fmt.Println("reset failed:", err)
			return
		}
		fmt.Println("free quota reset")
	case "/status":
		dec, err := c.tiers.Classify(ctx, consoleUserID)
		if err != nil {
			fmt.Println("status failed:", err)
			return
		}
		fmt.Printf("tier=%s used=%d remaining=%d\n", dec.State, dec.Count, dec.Remaining)
	case "/trigger":
		if arg != "" {
			c.bot.SetTriggerWord(arg)
		}
		fmt.Println("trigger word:", c.bot.TriggerWord())
	case "/clear":
		if c.bot.ClearContext(consoleChannel) {
			fmt.Println("context cleared")
		} else {
			fmt.Println("no context to clear")
		}
	case "/activate":
		if err := c.store.ActivateChannel(ctx, consoleChannel); err != nil {
			fmt.Println("activate failed:", err)
			return
		}
		fmt.Println("channel activated, responding to everything here")
	case "/deactivate":
		if err := c.store.DeactivateChannel(ctx, consoleChannel); err != nil {
			fmt.Println("deactivate failed:", err)
			return
		}
		fmt.Println("channel deactivated")
	case "/backend":
		if arg != "" {
			if err := c.runtime.SetPrimaryBackend(config.Backend(arg)); err != nil {
				fmt.Println(err)
				return
			}
		}
		fmt.Println("primary backend:", c.runtime.PrimaryBackend())
	case "/client":
		if arg != "" {
			if err := c.runtime.SetShapesClient(config.ClientImpl(arg)); err != nil {
				fmt.Println(err)
				return
			}
		}
		fmt.Println("shapes client:", c.runtime.ShapesClient())
	case "/diagnostics":
		switch arg {
		case "on":
			c.runtime.SetDiagnostics(true)
		case "off":
			c.runtime.SetDiagnostics(false)
		}
		fmt.Println("diagnostics enabled:", c.runtime.DiagnosticsEnabled())
	default:
		fmt.Println("commands: /auth /revoke /reset /status /trigger /clear /activate /deactivate /backend /client /diagnostics")
	}
}

func (c *console) SendTyping(ctx context.Context, channelID string) error {
	fmt.Println("…")
	return nil
}

func (c *console) Reply(ctx context.Context, channelID, text string) error {
	fmt.Println(text)
	return nil
}

func (c *console) PromptAuth(ctx context.Context, channelID, text string) error {
	fmt.Println(text)
	fmt.Println("(link your account with /auth <code>)")
	return nil
}

// Command display runs an unattended slideshow client for one group: it
// bootstraps the media sequence over HTTP, subscribes to the server's
// realtime channel, and logs each rendered slide. A real installation points
// a fullscreen browser or media player at the rendered output; this binary is
// the headless reference client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tkanok/slidewall/internal/domain"
	"github.com/tkanok/slidewall/internal/player"
)

func main() {
	var (
		serverURL = flag.String("server", os.Getenv("SERVER_URL"), "Server base URL, e.g. https://slides.example (or set SERVER_URL env)")
		groupSlug = flag.String("group", os.Getenv("GROUP"), "Group slug to display (or set GROUP env)")
		reconnect = flag.Duration("reconnect", time.Second, "Delay between reconnect attempts")
		noRefresh = flag.Bool("no-refresh", false, "Skip the full re-bootstrap after reconnects")
		verbose   = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *serverURL == "" {
		log.Fatal("Server URL required (--server or SERVER_URL env)")
	}
	if *groupSlug == "" {
		log.Fatal("Group slug required (--group or GROUP env)")
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	wsURL, err := websocketURL(*serverURL)
	if err != nil {
		log.Fatalf("Invalid server URL: %v", err)
	}

	clock := clockwork.NewRealClock()
	p := player.New(&logRenderer{group: *groupSlug}, clock, player.Config{})
	defer p.Stop()

	session := player.NewSession(player.SessionConfig{
		GroupSlug:          *groupSlug,
		WebsocketURL:       wsURL,
		ReconnectDelay:     *reconnect,
		RefreshOnReconnect: !*noRefresh,
	}, player.NewLoader(strings.TrimSuffix(*serverURL, "/")), p, clock)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Display starting", "server", *serverURL, "group", *groupSlug)
	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Display session failed: %v", err)
	}
	slog.Info("Display stopped")
}

// websocketURL derives the realtime endpoint from the HTTP base URL.
func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// logRenderer writes each slide change to the log. It stands in for the
// surface that an installation would actually draw on.
type logRenderer struct {
	group string
}

func (r *logRenderer) Render(item domain.MediaItem) {
	slog.Info("Showing slide",
		"group", r.group,
		"media_id", item.ID.String(),
		"kind", string(item.Kind),
		"url", fmt.Sprintf("%s?v=%d", item.URL, item.Version),
		"duration_seconds", item.DurationSeconds,
	)
}

func (r *logRenderer) RenderEmpty() {
	slog.Info("No media to show", "group", r.group)
}

package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/apispec/internal/ctxlog"
)

// Follow connects to a docs server and prints a line for the current build
// and for every later update or failed rebuild, until ctx is done.
func Follow(ctx context.Context, rawURL string, w io.Writer) error {
	logger := ctxlog.Component(ctx, "docs").With("url", rawURL)

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid docs server URL %q", rawURL)
	}

	opts := socket.DefaultOptions()
	opts.SetPath("/socket.io/")
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(u.Scheme+"://"+u.Host, opts)
	client := manager.Socket("/", opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		client.Disconnect()
	}()

	lines := make(chan string, 16)
	failed := make(chan error, 1)
	send := func(line string) {
		select {
		case lines <- line:
		default:
			logger.Warn("Dropping docs update, output is not keeping up.")
		}
	}
	summaryLine := func(data ...any) {
		if s, ok := decodeSummary(data); ok {
			send(s.String())
		}
	}

	client.On(types.EventName("connect"), func(...any) {
		logger.Info("Connected to docs server.", "sid", client.Id())
	})
	client.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connection refused")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case failed <- err:
		default:
		}
	})
	client.On(types.EventName(CurrentEvent), summaryLine)
	client.On(types.EventName(UpdateEvent), summaryLine)
	client.On(types.EventName(ErrorEvent), func(data ...any) {
		if len(data) > 0 {
			send(fmt.Sprintf("rebuild failed: %v", data[0]))
		}
	})

	client.Connect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-failed:
			return fmt.Errorf("socket.io connection failed: %w", err)
		case line := <-lines:
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
}

// decodeSummary converts an event payload back into a Summary.
func decodeSummary(data []any) (Summary, bool) {
	var s Summary
	if len(data) == 0 {
		return s, false
	}
	b, err := json.Marshal(data[0])
	if err != nil {
		return s, false
	}
	return s, json.Unmarshal(b, &s) == nil
}

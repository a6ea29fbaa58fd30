package livereload

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/vk/tlxgo/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Follow connects to the preview server at rawURL and calls fn with every
// document it publishes until ctx is done. A connection failure ends Follow
// with an error.
func Follow(ctx context.Context, rawURL string, fn func(doc string)) error {
	ctx = ctxlog.With(ctx, "url", rawURL)
	logger := ctxlog.FromContext(ctx)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("follow %q: URL needs a scheme and host", rawURL)
	}

	path := parsed.Path
	if path == "" || path == "/" {
		path = Path
	}
	opts := socket.DefaultOptions()
	opts.SetPath(path)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), opts)
	io := manager.Socket("/", opts)
	defer func() {
		logger.Debug("Disconnecting preview follower.")
		io.Disconnect()
	}()

	failed := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Following preview server.", "sid", io.Id())
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection failed")
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
	io.On(types.EventName(EventRender), func(data ...any) {
		if len(data) == 0 {
			return
		}
		doc, ok := data[0].(string)
		if !ok {
			logger.Warn("Ignoring non-text document.", "type", fmt.Sprintf("%T", data[0]))
			return
		}
		fn(doc)
	})

	io.Connect()

	select {
	case <-ctx.Done():
		return nil
	case err := <-failed:
		return fmt.Errorf("follow %s: %w", rawURL, err)
	}
}

package app

import (
	"context"
	"fmt"

	"github.com/vk/tlxgo/internal/ctxlog"
	"github.com/vk/tlxgo/internal/livereload"
)

// Run renders the template once and, in watch or serve mode, keeps the output
// current until ctx is done. In follow mode it prints every document published
// by a remote preview server instead.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")
	defer a.logger.Debug("App.Run method finished.")

	if a.config.FollowURL != "" {
		return livereload.Follow(ctx, a.config.FollowURL, func(doc string) {
			fmt.Fprintln(a.outW, doc)
		})
	}

	if a.config.ServePort > 0 {
		a.preview = livereload.NewServer(a.logger)
	}

	a.mu.Lock()
	err := a.load()
	a.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}
	if err := a.flush(); err != nil {
		return err
	}

	if !a.config.Watch && a.config.ServePort == 0 {
		return nil
	}

	if a.config.ServePort > 0 {
		a.startPreviewServer()
		defer a.closePreviewServer()
	}
	if a.config.Watch {
		w, err := a.watch(ctx)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	<-ctx.Done()
	return nil
}

package main

import (
	"context"
	"errors"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/ghsweep/ghsweep/internal/fetch"
	"github.com/ghsweep/ghsweep/internal/logging"
)

// runSupervised drives one pass (an enrichment pass or the collector's
// scan) under a suture supervisor, so a panic in one worker goroutine is
// logged and the pass restarts its remaining work instead of taking down
// the whole process.
// It blocks until the pass stops for good (clean completion or a terminal
// error) or the outer context is cancelled, then tears the supervisor down
// and surfaces the pass's recorded failure, if any.
func runSupervised(ctx context.Context, name string, pass fetch.Pass) error {
	supervised := fetch.Supervise(name, pass)

	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
	sup := suture.New(name, suture.Spec{EventHook: handler.MustHook()})
	sup.Add(supervised)

	supCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := sup.ServeBackground(supCtx)

	select {
	case <-supervised.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case <-ctx.Done():
		cancel()
		<-errCh
		return ctx.Err()
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(10 * time.Second):
		logging.Ctx(ctx).Warn().Str("pass", name).Msg("fetch: supervisor did not shut down within timeout")
	}

	return supervised.LastFailure()
}

func (a *app) fetchContent(ctx context.Context) error {
	pass := fetch.NewContentPass(a.client, a.store, a.cfg.Store, a.cfg.Fetch)
	return runSupervised(ctx, "fetch-content", pass)
}

func (a *app) fetchMetadata(ctx context.Context) error {
	pass, err := fetch.NewMetadataPass(a.client, a.store, "repo_metadata.json", a.cfg.Fetch)
	if err != nil {
		return err
	}
	return runSupervised(ctx, "fetch-metadata", pass)
}

func (a *app) fetchHistory(ctx context.Context) error {
	pass, err := fetch.NewHistoryPass(a.client, a.store, "file_history.json", a.cfg.Fetch)
	if err != nil {
		return err
	}
	return runSupervised(ctx, "fetch-history", pass)
}

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchReviews []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow live comment updates for one or more reviews",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchReviews, "also", nil, "Additional reviews to follow")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireReview(); err != nil {
		return err
	}
	reviews := append([]string{reviewID}, watchReviews...)

	s, err := newSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	changed := make(chan string, 64)
	s.engine.Store.OnChange(func(id string) {
		select {
		case changed <- id:
		default:
		}
	})

	for _, id := range reviews {
		s.engine.Query.Observe(id)
		defer s.engine.Query.Unobserve(id)

		comments, err := s.engine.Query.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load review %s: %w", id, err)
		}
		renderThread(out, id, comments)
	}

	s.engine.Reconciler.Watch(reviews)
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %v as %s, Ctrl-C to stop\n", s.engine.Reconciler.Watched(), s.viewerID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case id := <-changed:
			if comments, ok := s.engine.Store.Get(id); ok {
				renderThread(out, id, comments)
			}
		}
	}
}

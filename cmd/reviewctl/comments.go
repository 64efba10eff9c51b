package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qs3c/review_comments/internal/model"
	"github.com/qs3c/review_comments/internal/reviewcache"
)

var (
	trackID     string
	assumeYes   bool
	moveBefore  int64
	moveAfter   int64
	refreshView bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the comment thread of a review",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var commentCmd = &cobra.Command{
	Use:   "comment <text>",
	Short: "Add a root comment anchored to a track",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runComment,
}

var replyCmd = &cobra.Command{
	Use:   "reply <parent-id> <text>",
	Short: "Reply to a comment",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runReply,
}

var editCmd = &cobra.Command{
	Use:   "edit <comment-id> <text>",
	Short: "Edit one of your comments",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runEdit,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <comment-id>",
	Short: "Delete one of your comments after confirmation",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var moveCmd = &cobra.Command{
	Use:   "move <comment-id>",
	Short: "Move one of your comments before or after a sibling",
	Args:  cobra.ExactArgs(1),
	RunE:  runMove,
}

func init() {
	commentCmd.Flags().StringVarP(&trackID, "track", "t", "", "Track the comment is anchored to")
	commentCmd.MarkFlagRequired("track")

	for _, cmd := range []*cobra.Command{commentCmd, replyCmd, editCmd, deleteCmd} {
		cmd.Flags().BoolVar(&refreshView, "refresh", false, "Invalidate the local cache instead of waiting for the live update")
	}

	deleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")

	moveCmd.Flags().Int64Var(&moveBefore, "before", 0, "Sibling to place the comment above")
	moveCmd.Flags().Int64Var(&moveAfter, "after", 0, "Sibling to place the comment below")
	moveCmd.MarkFlagsMutuallyExclusive("before", "after")
	moveCmd.MarkFlagsOneRequired("before", "after")
}

// withReview 建立会话并加载评审评论
func withReview(cmd *cobra.Command, fn func(ctx context.Context, s *session, comments []model.Comment) error) error {
	if err := requireReview(); err != nil {
		return err
	}

	s, err := newSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	comments, err := s.engine.Query.Load(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("failed to load comments: %w", err)
	}

	return fn(ctx, s, comments)
}

func runList(cmd *cobra.Command, args []string) error {
	return withReview(cmd, func(ctx context.Context, s *session, comments []model.Comment) error {
		renderThread(cmd.OutOrStdout(), reviewID, comments)
		return nil
	})
}

func runComment(cmd *cobra.Command, args []string) error {
	return withReview(cmd, func(ctx context.Context, s *session, _ []model.Comment) error {
		s.engine.Mutations.OpenCreate(reviewID, trackID)

		c, err := s.engine.Mutations.Create(ctx, reviewcache.CreateInput{
			ReviewID:   reviewID,
			TrackID:    trackID,
			Text:       strings.Join(args, " "),
			Invalidate: refreshView,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created comment #%d\n", c.ID)
		return nil
	})
}

func runReply(cmd *cobra.Command, args []string) error {
	parentID, err := parseCommentID(args[0])
	if err != nil {
		return err
	}

	return withReview(cmd, func(ctx context.Context, s *session, comments []model.Comment) error {
		parent, ok := findComment(comments, parentID)
		if !ok {
			return fmt.Errorf("comment #%d not found in review %s", parentID, reviewID)
		}

		s.engine.Mutations.OpenReply(parent)
		modal := s.engine.Mutations.Modal()

		c, err := s.engine.Mutations.Create(ctx, reviewcache.CreateInput{
			ReviewID:        modal.ReviewID,
			ParentCommentID: modal.ParentCommentID,
			TrackID:         modal.TrackID,
			Text:            strings.Join(args[1:], " "),
			Invalidate:      refreshView,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Replied to #%d with #%d\n", parentID, c.ID)
		return nil
	})
}

func runEdit(cmd *cobra.Command, args []string) error {
	commentID, err := parseCommentID(args[0])
	if err != nil {
		return err
	}

	return withReview(cmd, func(ctx context.Context, s *session, comments []model.Comment) error {
		existing, ok := findComment(comments, commentID)
		if !ok {
			return fmt.Errorf("comment #%d not found in review %s", commentID, reviewID)
		}

		s.engine.Mutations.OpenEdit(existing)
		if _, err := s.engine.Mutations.Update(ctx, reviewcache.UpdateInput{
			ReviewID:   reviewID,
			CommentID:  commentID,
			Text:       strings.Join(args[1:], " "),
			Invalidate: refreshView,
		}); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated comment #%d\n", commentID)
		return nil
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	commentID, err := parseCommentID(args[0])
	if err != nil {
		return err
	}

	return withReview(cmd, func(ctx context.Context, s *session, comments []model.Comment) error {
		target, ok := findComment(comments, commentID)
		if !ok {
			return fmt.Errorf("comment #%d not found in review %s", commentID, reviewID)
		}

		deletion := s.engine.Mutations.Deletion()
		if err := deletion.Request(reviewID, commentID, refreshView); err != nil {
			return err
		}

		if !assumeYes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete #%d %q?", commentID, target.Text)) {
			deletion.Cancel()
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}

		if err := deletion.Confirm(ctx); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted comment #%d\n", commentID)
		return nil
	})
}

func runMove(cmd *cobra.Command, args []string) error {
	commentID, err := parseCommentID(args[0])
	if err != nil {
		return err
	}

	targetID, geometry := moveAfter, dropBelow
	if moveBefore != 0 {
		targetID, geometry = moveBefore, dropAbove
	}

	return withReview(cmd, func(ctx context.Context, s *session, comments []model.Comment) error {
		dragged, ok := findComment(comments, commentID)
		if !ok {
			return fmt.Errorf("comment #%d not found in review %s", commentID, reviewID)
		}
		target, ok := findComment(comments, targetID)
		if !ok {
			return fmt.Errorf("comment #%d not found in review %s", targetID, reviewID)
		}

		item, err := s.engine.Ordering.BeginDrag(dragged)
		if err != nil {
			return err
		}

		moved, err := s.engine.Ordering.Reorder(ctx, item, target, geometry)
		if err != nil {
			return err
		}
		if !moved {
			fmt.Fprintln(cmd.OutOrStdout(), "Already in place")
			return nil
		}

		refreshed, err := s.engine.Query.Load(ctx, reviewID)
		if err != nil {
			return err
		}
		renderThread(cmd.OutOrStdout(), reviewID, refreshed)
		return nil
	})
}

// 终端里没有真实的拖拽坐标，用固定的几何位置表示放在目标上方或下方
var (
	dropAbove = reviewcache.DropGeometry{Top: 0, Bottom: 2, PointerY: 0}
	dropBelow = reviewcache.DropGeometry{Top: 0, Bottom: 2, PointerY: 2}
)

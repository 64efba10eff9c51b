package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/qs3c/review_comments/internal/model"
	"github.com/qs3c/review_comments/internal/reviewcache"
)

// renderThread 按线程缩进输出评论
func renderThread(w io.Writer, reviewID string, comments []model.Comment) {
	fmt.Fprintf(w, "review %s (%d comments)\n", reviewID, len(comments))

	reviewcache.GroupByParent(comments).Walk(func(c model.Comment, depth int) {
		indent := strings.Repeat("  ", depth+1)
		text := c.Text
		if c.Deleted {
			text = model.DeletedPlaceholder
		}

		track := ""
		if id := c.TrackID(); id != "" {
			track = " @" + id
		}

		fmt.Fprintf(w, "%s#%d [%d] %s%s: %s\n", indent, c.ID, c.CommentIndex, c.CommenterID, track, text)
	})
}

func printToast(w io.Writer, t reviewcache.Toast) {
	line := fmt.Sprintf("[%s] %s", t.Level, t.Title)
	if t.Description != "" {
		line += ": " + t.Description
	}
	if t.Action != nil {
		line += fmt.Sprintf(" (%s)", strings.ToLower(t.Action.Label))
	}
	fmt.Fprintln(w, line)
}

// confirm 读取一行 y/N 回答，默认否
func confirm(r io.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", prompt)

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func parseCommentID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid comment id %q", arg)
	}
	return id, nil
}

func findComment(comments []model.Comment, id int64) (model.Comment, bool) {
	for _, c := range comments {
		if c.ID == id {
			return c, true
		}
	}
	return model.Comment{}, false
}

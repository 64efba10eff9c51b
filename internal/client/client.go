package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qs3c/review_comments/config"
	"github.com/qs3c/review_comments/internal/model"
	"github.com/qs3c/review_comments/internal/model/dto"
	"github.com/qs3c/review_comments/internal/pkg/response"
)

var ErrMissingBaseURL = errors.New("client base url is empty")

// APIError 服务端返回的业务错误
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// IsNotFound 资源不存在
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == response.CodeResourceNotFound
}

// envelope 与 response.Response 对应，Data 延迟解析
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client 评论 API 客户端
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(cfg *config.ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// DetailedReviewComments 获取评审的全部评论
func (c *Client) DetailedReviewComments(ctx context.Context, reviewID string) ([]model.Comment, error) {
	var comments []model.Comment
	if err := c.do(ctx, http.MethodGet, commentsPath(reviewID), nil, &comments); err != nil {
		return nil, fmt.Errorf("detailedReviewComments: %w", err)
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	return comments, nil
}

// CreateComment 发表评论，entity 目前只支持曲目
func (c *Client) CreateComment(ctx context.Context, reviewID string, parentCommentID *int64, entity model.EntityRef, text string) (*model.Comment, error) {
	req := dto.CreateCommentRequest{
		ParentCommentID: parentCommentID,
		TrackID:         entity.ID,
		Text:            text,
	}

	var comment model.Comment
	if err := c.do(ctx, http.MethodPost, commentsPath(reviewID), req, &comment); err != nil {
		return nil, fmt.Errorf("createComment: %w", err)
	}
	return &comment, nil
}

func (c *Client) UpdateComment(ctx context.Context, reviewID string, commentID int64, text string) (*model.Comment, error) {
	var comment model.Comment
	req := dto.UpdateCommentRequest{Text: text}
	if err := c.do(ctx, http.MethodPut, commentPath(reviewID, commentID), req, &comment); err != nil {
		return nil, fmt.Errorf("updateComment: %w", err)
	}
	return &comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, reviewID string, commentID int64) error {
	if err := c.do(ctx, http.MethodDelete, commentPath(reviewID, commentID), nil, nil); err != nil {
		return fmt.Errorf("deleteComment: %w", err)
	}
	return nil
}

func (c *Client) UpdateCommentIndex(ctx context.Context, reviewID string, commentID int64, targetIndex int) (*model.Comment, error) {
	var comment model.Comment
	req := dto.UpdateCommentIndexRequest{TargetIndex: &targetIndex}
	if err := c.do(ctx, http.MethodPut, commentPath(reviewID, commentID)+"/index", req, &comment); err != nil {
		return nil, fmt.Errorf("updateCommentIndex: %w", err)
	}
	return &comment, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Code != response.CodeSuccess {
		return &APIError{Code: env.Code, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func commentsPath(reviewID string) string {
	return "/reviews/" + url.PathEscape(reviewID) + "/comments"
}

func commentPath(reviewID string, commentID int64) string {
	return commentsPath(reviewID) + "/" + strconv.FormatInt(commentID, 10)
}

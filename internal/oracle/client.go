package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/setkov/alisabot/internal/domain"
)

// Provider is one chat-completion backend. Providers are consulted in
// order; 429 from one moves to the next.
type Provider struct {
	Name   string
	URL    string
	APIKey string
	Model  string
}

// Options tune how requests are built. Zero values are not usable; main
// fills them from the config package.
type Options struct {
	PersonaName        string
	IgnoreToken        string
	ReplyTemperature   float64
	VerdictTemperature float64
	MaxTokens          int
	TopP               float64
	ContextWindow      int
	RequestTimeout     time.Duration
}

// Client produces persona replies and winner verdicts, absorbing provider
// failures. Reply never surfaces an error: failure is always a value.
type Client struct {
	providers []Provider
	opts      Options
	httpc     *http.Client
}

func New(providers []Provider, opts Options) *Client {
	return &Client{
		providers: providers,
		opts:      opts,
		httpc:     &http.Client{Timeout: opts.RequestTimeout},
	}
}

type ReplyKind int

const (
	// ReplyNormal carries dialogue text to persist and send.
	ReplyNormal ReplyKind = iota
	// ReplySuppressed means the persona chose to ignore the message;
	// nothing is recorded or sent.
	ReplySuppressed
	// ReplyExhausted means every provider is rate-limited; the game
	// cannot proceed.
	ReplyExhausted
)

type ReplyResult struct {
	Kind ReplyKind
	Text string
}

type ReplyRequest struct {
	Difficulty    domain.Difficulty
	History       []domain.ConversationTurn
	SenderName    string
	SenderOrdinal int
	Roster        []domain.ParticipantStat
	Text          string
}

// Verdict is the oracle's structured judgment. InLove=false is a valid
// "no winner" answer, distinct from a failed call.
type Verdict struct {
	InLove     bool    `json:"in_love"`
	WinnerID   *int64  `json:"winner_user_id"`
	WinnerName *string `json:"winner_name"`
	Reason     string  `json:"reason"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Reply asks the providers, in order, for an in-character reply.
func (c *Client) Reply(ctx context.Context, req ReplyRequest) ReplyResult {
	messages := c.buildReplyMessages(req)

	rateLimited := 0
	for _, p := range c.providers {
		status, content, err := c.complete(ctx, p, messages, c.opts.ReplyTemperature)
		if err != nil {
			slog.Error("oracle provider failed", "provider", p.Name, "error", err)
			continue
		}
		if status == http.StatusTooManyRequests {
			slog.Info("oracle provider rate limited, trying next", "provider", p.Name)
			rateLimited++
			continue
		}
		if status != http.StatusOK {
			slog.Warn("oracle provider error", "provider", p.Name, "status", status)
			continue
		}

		text := strings.TrimSpace(content)
		// Models sometimes echo the speaker name back.
		if prefix := c.opts.PersonaName + ":"; strings.HasPrefix(text, prefix) {
			text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
		if text == c.opts.IgnoreToken {
			return ReplyResult{Kind: ReplySuppressed}
		}
		return ReplyResult{Kind: ReplyNormal, Text: text}
	}

	if len(c.providers) > 0 && rateLimited == len(c.providers) {
		return ReplyResult{Kind: ReplyExhausted}
	}
	return ReplyResult{Kind: ReplyNormal, Text: fallbackReply}
}

// DecideWinner asks the providers whether the persona has fallen for
// someone. Returns nil without error when there is nothing to judge.
func (c *Client) DecideWinner(ctx context.Context, roster []domain.ParticipantStat, transcript []domain.ParticipantMessage, difficulty domain.Difficulty) (*Verdict, error) {
	if len(roster) == 0 {
		return nil, nil
	}

	messages := []chatMessage{
		{Role: domain.RoleSystem, Content: systemPrompt(difficulty, c.opts.PersonaName)},
		{Role: domain.RoleUser, Content: verdictPrompt(c.opts.PersonaName, roster, transcript)},
	}

	var lastErr error
	for _, p := range c.providers {
		status, content, err := c.complete(ctx, p, messages, c.opts.VerdictTemperature)
		if err != nil {
			lastErr = err
			slog.Error("verdict provider failed", "provider", p.Name, "error", err)
			continue
		}
		if status != http.StatusOK {
			lastErr = fmt.Errorf("provider %s: status %d", p.Name, status)
			continue
		}
		verdict, err := parseVerdict(content)
		if err != nil {
			lastErr = fmt.Errorf("provider %s: %w", p.Name, err)
			continue
		}
		return verdict, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return nil, fmt.Errorf("decide winner: %w", lastErr)
}

// parseVerdict extracts the first top-level JSON object from the model
// output, tolerating surrounding prose.
func parseVerdict(content string) (*Verdict, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, errors.New("no JSON object in response")
	}
	var v Verdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("parse verdict: %w", err)
	}
	return &v, nil
}

func (c *Client) buildReplyMessages(req ReplyRequest) []chatMessage {
	system := systemPrompt(req.Difficulty, c.opts.PersonaName)
	if len(req.Roster) > 0 {
		system += rosterSuffix(req.Roster)
	}

	messages := []chatMessage{{Role: domain.RoleSystem, Content: system}}

	history := req.History
	if c.opts.ContextWindow > 0 && len(history) > c.opts.ContextWindow {
		history = history[len(history)-c.opts.ContextWindow:]
	}
	for _, t := range history {
		messages = append(messages, chatMessage{Role: t.Role, Content: t.Content})
	}

	messages = append(messages, chatMessage{
		Role:    domain.RoleUser,
		Content: fmt.Sprintf("%s (сообщение #%d): %s", req.SenderName, req.SenderOrdinal, req.Text),
	})
	return messages
}

func (c *Client) complete(ctx context.Context, p Provider, messages []chatMessage, temperature float64) (int, string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       p.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   c.opts.MaxTokens,
		TopP:        c.opts.TopP,
	})
	if err != nil {
		return 0, "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return 0, "", fmt.Errorf("parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return 0, "", errors.New("empty choices in response")
	}
	return http.StatusOK, chatResp.Choices[0].Message.Content, nil
}

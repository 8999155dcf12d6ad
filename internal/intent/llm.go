package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/ykvlv/taskbot/internal/domain"
)

const systemPrompt = `You turn chat messages sent to a to-do bot into one JSON object:
{"action": "create"|"list"|"complete"|"delete"|"unknown",
 "description": string, "due": string, "task_id": number, "status": "pending"|"done"}
Rules:
- "create": description is the task without the date words; due is the date
  phrase exactly as the user wrote it, or a local time "YYYY-MM-DD HH:MM", or "".
- "list": status is "done" only when the user asks for finished tasks.
- "complete" and "delete" need task_id.
- Anything else is "unknown".
Reply with JSON only.`

// completer is the slice of an LLM client the translator uses.
type completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type langchainCompleter struct{ model llms.Model }

func (c langchainCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		{Role: schema.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextPart(system)}},
		{Role: schema.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(user)}},
	}
	resp, err := c.model.GenerateContent(ctx, messages, llms.WithTemperature(0))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return resp.Choices[0].Content, nil
}

// LLMConfig configures an OpenAI-compatible endpoint.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLM asks a language model for the intent and falls back to another
// translator on any error.
type LLM struct {
	client   completer
	dates    *DateParser
	fallback Translator
	timeout  time.Duration
	log      *zap.Logger
}

// NewLLM creates a translator backed by an OpenAI-compatible chat model.
func NewLLM(cfg LLMConfig, dates *DateParser, fallback Translator, log *zap.Logger) (*LLM, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithResponseFormat(&openai.ResponseFormat{Type: "json_object"}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	return newLLM(langchainCompleter{model: model}, dates, fallback, cfg.Timeout, log), nil
}

func newLLM(client completer, dates *DateParser, fallback Translator, timeout time.Duration, log *zap.Logger) *LLM {
	if dates == nil {
		dates = NewDateParser()
	}
	if fallback == nil {
		fallback = NewRules(dates)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LLM{client: client, dates: dates, fallback: fallback, timeout: timeout, log: log}
}

type llmReply struct {
	Action      string          `json:"action"`
	Description string          `json:"description"`
	Due         string          `json:"due"`
	TaskID      json.RawMessage `json:"task_id"`
	Status      string          `json:"status"`
}

// Translate implements Translator.
func (l *LLM) Translate(ctx context.Context, req Request) Intent {
	in, err := l.ask(ctx, req)
	if err != nil {
		l.log.Warn("llm translation failed, using rules",
			zap.Int64("user_id", req.UserID), zap.Error(err))
		return l.fallback.Translate(ctx, req)
	}
	return in
}

func (l *LLM) ask(ctx context.Context, req Request) (Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	loc := req.location()
	user := fmt.Sprintf("Current local time: %s (%s)\nMessage: %s",
		req.Now.In(loc).Format("2006-01-02 15:04 Monday"), loc, req.Text)
	raw, err := l.client.Complete(ctx, systemPrompt, user)
	if err != nil {
		return Intent{}, err
	}

	var reply llmReply
	if err := json.Unmarshal([]byte(stripFence(raw)), &reply); err != nil {
		return Intent{}, fmt.Errorf("decode reply: %w", err)
	}

	switch strings.ToLower(reply.Action) {
	case "create":
		desc := cleanDescription(reply.Description)
		if desc == "" {
			return Intent{}, errors.New("create without description")
		}
		in := Intent{Kind: KindCreate, Description: desc}
		if phrase := strings.TrimSpace(reply.Due); phrase != "" {
			due := l.dates.Parse(phrase, req.Now, loc)
			if !due.Found() {
				due = Due{Phrase: phrase, Problem: fmt.Errorf("%w: %q", ErrUnparsableDate, phrase)}
			}
			in.Due, in.DuePhrase, in.DueProblem = due.At, due.Phrase, due.Problem
		}
		return in, nil
	case "list":
		status := domain.StatusPending
		if strings.EqualFold(reply.Status, string(domain.StatusDone)) {
			status = domain.StatusDone
		}
		return Intent{Kind: KindList, Status: status}, nil
	case "complete", "delete":
		id, ok := parseID(strings.Trim(string(reply.TaskID), `" `))
		if !ok {
			return Intent{}, fmt.Errorf("%s without task id", reply.Action)
		}
		kind := KindComplete
		if strings.EqualFold(reply.Action, "delete") {
			kind = KindDelete
		}
		return Intent{Kind: kind, TaskID: id}, nil
	case "unknown", "":
		return unrecognized(), nil
	default:
		return Intent{}, fmt.Errorf("unknown action %q", reply.Action)
	}
}

// stripFence removes a ```json fence some models add despite JSON mode.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

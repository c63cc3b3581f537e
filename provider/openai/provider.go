package openai

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/casualjim/codelens/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const finishReasonContentFilter = "content_filter"

var (
	// ErrEmptyResponse is returned when a completion carries no choices.
	ErrEmptyResponse = errors.New("openai: response contained no choices")
	// ErrContentFilter is returned when the model output was withheld by the content filter.
	ErrContentFilter = errors.New("openai: content_filter")
)

var _ provider.Provider = (*Provider)(nil)

type Provider struct {
	client *openai.Client
	model  string
}

func New(options ...option.RequestOption) *Provider {
	client := openai.NewClient(options...)
	return &Provider{
		client: client,
		model:  DefaultModel,
	}
}

// WithModel returns a copy of the provider that targets model.
func (p *Provider) WithModel(model string) *Provider {
	cp := *p
	if strings.TrimSpace(model) != "" {
		cp.model = model
	}
	return &cp
}

func (p *Provider) Kind() provider.Kind {
	return provider.KindOpenAI
}

// Model returns the chat model the requests are sent to.
func (p *Provider) Model() string {
	return p.model
}

func (p *Provider) buildRequest(req provider.Request) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.Instructions) != "" {
		msgs = append(msgs, openai.SystemMessage(req.Instructions))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: openai.F(msgs),
		Model:    openai.F(p.model),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	return params
}

func (p *Provider) Complete(ctx context.Context, req provider.Request) (string, error) {
	chat, err := p.client.Chat.Completions.New(ctx, p.buildRequest(req))
	if err != nil {
		return "", err
	}
	if len(chat.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	choice := chat.Choices[0]
	if string(choice.FinishReason) == finishReasonContentFilter && choice.Message.Content == "" {
		return "", ErrContentFilter
	}
	return choice.Message.Content, nil
}

func (p *Provider) Stream(ctx context.Context, req provider.Request) iter.Seq2[string, error] {
	params := p.buildRequest(req)

	return func(yield func(string, error) bool) {
		strm := p.client.Chat.Completions.NewStreaming(ctx, params)
		defer strm.Close()

		if err := strm.Err(); err != nil {
			yield("", err)
			return
		}

		for strm.Next() {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			chunk := strm.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if string(choice.FinishReason) == finishReasonContentFilter {
				yield("", ErrContentFilter)
				return
			}
			if choice.Delta.Content == "" {
				continue
			}
			if !yield(choice.Delta.Content, nil) {
				return
			}
		}

		if err := strm.Err(); err != nil {
			yield("", err)
			return
		}
		if err := ctx.Err(); err != nil {
			yield("", err)
		}
	}
}

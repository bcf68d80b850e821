package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"today-planner/internal/logging"
	"today-planner/internal/model"
	"today-planner/internal/service"
)

// FallbackReply is shown in place of an answer when the model call fails.
const FallbackReply = "Sorry, I encountered an error while processing your request. Please try again."

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type ContextBuilder interface {
	Snapshot(ctx context.Context, owner string) (service.ChatContext, error)
	Prompt(c service.ChatContext) string
}

type TaskCreator interface {
	Create(ctx context.Context, owner string, in service.CreateTaskInput) (*model.Task, error)
}

// ChatResult is one assistant turn. Task is set when the reply carried a valid directive.
type ChatResult struct {
	Reply          string      `json:"reply"`
	Task           *model.Task `json:"task,omitempty"`
	DirectiveError string      `json:"directiveError,omitempty"`
}

// Bridge answers chat messages with the owner's planner as context.
type Bridge struct {
	gen      Generator
	contexts ContextBuilder
	tasks    TaskCreator
	log      logging.Logger
}

func NewBridge(gen Generator, contexts ContextBuilder, tasks TaskCreator, l logging.Logger) *Bridge {
	return &Bridge{gen: gen, contexts: contexts, tasks: tasks, log: l}
}

func (b *Bridge) Chat(ctx context.Context, owner, message string) (ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatResult{}, &service.ValidationError{Field: "message", Message: "is required"}
	}

	snapshot, err := b.contexts.Snapshot(ctx, owner)
	if err != nil {
		return ChatResult{}, fmt.Errorf("build chat context: %w", err)
	}
	prompt := b.contexts.Prompt(snapshot) + "\n\nUser Question: " + message

	reply, err := b.gen.Generate(ctx, prompt)
	if err != nil {
		return ChatResult{}, err
	}

	directive, text, ok := ExtractDirective(reply)
	if !ok {
		return ChatResult{Reply: reply}, nil
	}

	result := ChatResult{Reply: text}
	in, err := directive.Input()
	if err == nil {
		result.Task, err = b.tasks.Create(ctx, owner, in)
	}

	var verr *service.ValidationError
	switch {
	case err == nil:
		b.log.Info("assistant created task", "id", result.Task.ID, "title", result.Task.Title)
	case errors.As(err, &verr), errors.Is(err, service.ErrNotFound):
		b.log.Warn("assistant directive rejected", "err", err)
		result.DirectiveError = err.Error()
	default:
		return ChatResult{}, fmt.Errorf("create task from directive: %w", err)
	}
	return result, nil
}

// Package orchestrator runs question-answering exchanges: one question, one
// answer or error, appended to the conversation in that order.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/internal/types"
	"github.com/xhad/docchat/pkg/client"
	"github.com/xhad/docchat/pkg/conversation"
	"github.com/xhad/docchat/pkg/logger"
	"github.com/xhad/docchat/pkg/session"
)

const ThinkingMessage = "Thinking..."

// ErrInputDisabled is returned when there is no document to ask about.
var ErrInputDisabled = errors.New("input is disabled: select a document first")

type State int

const (
	Idle State = iota
	Submitting
	Answered
	Failed
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Answered:
		return "answered"
	case Failed:
		return "failed"
	}
	return "idle"
}

type OrchestratorConfig struct {
	Answers      types.AnswerService
	Session      *session.Session
	Conversation *conversation.Log
	Timeout      time.Duration
	Logger       *zap.Logger
	OnTransition func(from, to State)
}

type Orchestrator struct {
	config OrchestratorConfig
	log    *zap.Logger

	mu    sync.Mutex
	state State
	input string
}

func NewWithConfig(config OrchestratorConfig) (*Orchestrator, error) {
	if config.Answers == nil {
		return nil, errors.New("answer service is required")
	}
	if config.Session == nil {
		return nil, errors.New("session is required")
	}
	if config.Conversation == nil {
		return nil, errors.New("conversation log is required")
	}

	return &Orchestrator{
		config: config,
		log:    logger.OrNop(config.Logger).With(zap.String("module", "orchestrator")),
	}, nil
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SetInput replaces the pending question text.
func (o *Orchestrator) SetInput(text string) {
	o.mu.Lock()
	o.input = text
	o.mu.Unlock()
}

func (o *Orchestrator) Input() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.input
}

// Submit sets the input to question and submits it.
func (o *Orchestrator) Submit(ctx context.Context, question string) (bool, error) {
	o.SetInput(question)
	return o.SubmitInput(ctx)
}

// SubmitInput runs one exchange for the pending input. Blank input is
// ignored and reports false with no error. While another operation holds
// the session busy the input is kept and session.ErrBusy is returned.
// Once accepted, the outcome is recorded in the conversation and the
// returned error is nil.
func (o *Orchestrator) SubmitInput(ctx context.Context) (bool, error) {
	question := strings.TrimSpace(o.Input())
	if question == "" {
		return false, nil
	}

	release, err := o.config.Session.TryAcquire(ThinkingMessage)
	if err != nil {
		return false, err
	}
	defer release()

	scope := o.config.Session.Snapshot()
	if len(scope.Documents) == 0 || len(scope.Selection) == 0 {
		return false, ErrInputDisabled
	}

	o.config.Conversation.Append(models.UserMessage(question))
	o.SetInput("")
	o.transition(Submitting)

	answer, err := o.ask(ctx, question, scope.Selection)
	if err != nil {
		o.log.Warn("exchange failed", zap.Strings("doc_ids", scope.Selection), zap.Error(err))
		o.config.Conversation.Append(models.ErrorMessage(client.UserMessage(err, client.AskFallback)))
		o.transition(Failed)
	} else {
		o.log.Info("exchange answered", zap.Strings("doc_ids", scope.Selection), zap.String("source", answer.SourceDocument))
		o.config.Conversation.Append(models.AnswerMessage(answer.Text, answer.SourceDocument, answer.Confidence))
		o.transition(Answered)
	}
	o.transition(Idle)

	return true, nil
}

func (o *Orchestrator) ask(ctx context.Context, question string, docIDs []string) (models.Answer, error) {
	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}
	return o.config.Answers.Ask(ctx, question, docIDs)
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()

	o.log.Debug("state change", zap.Stringer("from", from), zap.Stringer("to", to))
	if o.config.OnTransition != nil {
		o.config.OnTransition(from, to)
	}
}

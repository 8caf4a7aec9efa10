// Package controller turns front-end events into typed commands, applies
// them through the owning components and returns the derived view.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/conversation"
	"github.com/xhad/docchat/pkg/docsync"
	"github.com/xhad/docchat/pkg/logger"
	"github.com/xhad/docchat/pkg/orchestrator"
	"github.com/xhad/docchat/pkg/session"
	"github.com/xhad/docchat/pkg/status"
)

// Command is one user intent.
type Command interface {
	command()
}

type (
	LoadDocuments  struct{}
	UploadDocument struct{ Path string }
	ToggleDocument struct{ ID string }
	SetInput       struct{ Text string }
	SubmitQuestion struct{}
	AskQuestion    struct{ Text string }
)

func (LoadDocuments) command()  {}
func (UploadDocument) command() {}
func (ToggleDocument) command() {}
func (SetInput) command()       {}
func (SubmitQuestion) command() {}
func (AskQuestion) command()    {}

// View is everything a renderer needs after a command.
type View struct {
	Session  session.Snapshot
	Facts    models.UIFacts
	Status   string
	Input    string
	State    orchestrator.State
	Messages int
}

type ControllerConfig struct {
	Session      *session.Session
	Synchronizer *docsync.Synchronizer
	Orchestrator *orchestrator.Orchestrator
	Conversation *conversation.Log
	Status       *status.Status
	Logger       *zap.Logger
}

type Controller struct {
	config ControllerConfig
	log    *zap.Logger
}

func NewWithConfig(config ControllerConfig) (*Controller, error) {
	if config.Session == nil || config.Synchronizer == nil || config.Orchestrator == nil ||
		config.Conversation == nil || config.Status == nil {
		return nil, errors.New("controller requires session, synchronizer, orchestrator, conversation and status")
	}
	return &Controller{
		config: config,
		log:    logger.OrNop(config.Logger).With(zap.String("module", "controller")),
	}, nil
}

// Start performs the initial document load.
func (c *Controller) Start(ctx context.Context) (View, error) {
	return c.Dispatch(ctx, LoadDocuments{})
}

// Dispatch applies cmd and returns the view derived from the resulting
// state. Network-triggering commands fail with session.ErrBusy while
// another operation is in flight.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) (View, error) {
	var err error

	switch cmd := cmd.(type) {
	case LoadDocuments:
		err = c.config.Synchronizer.LoadAll(ctx)
	case UploadDocument:
		_, err = c.config.Synchronizer.Upload(ctx, cmd.Path)
	case ToggleDocument:
		_, err = c.config.Session.Toggle(cmd.ID)
	case SetInput:
		c.config.Orchestrator.SetInput(cmd.Text)
	case SubmitQuestion:
		_, err = c.config.Orchestrator.SubmitInput(ctx)
	case AskQuestion:
		_, err = c.config.Orchestrator.Submit(ctx, cmd.Text)
	default:
		err = fmt.Errorf("unknown command %T", cmd)
	}

	if err != nil {
		c.log.Debug("command finished with error", zap.String("command", fmt.Sprintf("%T", cmd)), zap.Error(err))
	}
	return c.View(), err
}

func (c *Controller) View() View {
	snap := c.config.Session.Snapshot()
	return View{
		Session:  snap,
		Facts:    session.DeriveUIFacts(snap),
		Status:   c.config.Status.Text(),
		Input:    c.config.Orchestrator.Input(),
		State:    c.config.Orchestrator.State(),
		Messages: c.config.Conversation.Len(),
	}
}

// ResolveDocument maps a user reference (id, 1-based position or filename)
// to a document id.
func (v View) ResolveDocument(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	for _, d := range v.Session.Documents {
		if d.ID == ref {
			return d.ID, true
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(v.Session.Documents) {
		return v.Session.Documents[n-1].ID, true
	}
	for _, d := range v.Session.Documents {
		if strings.EqualFold(d.Filename, ref) {
			return d.ID, true
		}
	}
	return "", false
}

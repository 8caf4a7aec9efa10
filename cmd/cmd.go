package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/client"
	"github.com/xhad/docchat/pkg/controller"
	"github.com/xhad/docchat/pkg/conversation"
	"github.com/xhad/docchat/pkg/docsync"
	"github.com/xhad/docchat/pkg/logger"
	"github.com/xhad/docchat/pkg/orchestrator"
	"github.com/xhad/docchat/pkg/session"
	"github.com/xhad/docchat/pkg/status"
)

const helpText = `Commands:
  /docs            list documents and the current selection
  /reload          fetch the document list again
  /upload <path>   upload a PDF, it becomes the only selection
  /toggle <ref>    select or deselect a document by id, number or filename
  /help            show this help
  exit             quit
Anything else is sent as a question about the selected documents.`

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

// terminal serializes everything written to stdout so the busy spinner never
// interleaves with messages or status lines.
type terminal struct {
	mu      sync.Mutex
	out     io.Writer
	spinner bool
	bar     *progressbar.ProgressBar
	stop    chan struct{}
	done    chan struct{}
}

// observe starts the spinner when the session turns busy and removes it when
// the session is idle again.
func (t *terminal) observe(snap session.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !snap.Busy {
		t.stopSpinnerLocked()
		return
	}
	if !t.spinner || t.bar != nil {
		return
	}

	t.bar = getSpinner(snap.BusyMessage)
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go func(bar *progressbar.ProgressBar, stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bar.Add(1)
			}
		}
	}(t.bar, t.stop, t.done)
}

func (t *terminal) stopSpinnerLocked() {
	if t.bar == nil {
		return
	}
	close(t.stop)
	<-t.done
	t.bar.Finish()
	fmt.Fprint(t.out, "\r")
	t.bar = nil
}

// Write implements io.Writer for the conversation renderer.
func (t *terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopSpinnerLocked()
	return t.out.Write(p)
}

// showStatus prints status changes. Progress text ("Uploading...") while the
// spinner runs becomes its description instead.
func (t *terminal) showStatus(text string) {
	if text == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bar != nil && strings.HasSuffix(text, "...") {
		t.bar.Describe(color.CyanString(text))
		return
	}

	t.stopSpinnerLocked()
	if strings.HasPrefix(text, models.ErrorPrefix) {
		color.New(color.FgRed).Fprintln(t.out, text)
		return
	}
	color.New(color.FgYellow).Fprintln(t.out, text)
}

func run(config Config) error {
	if config.NoColor {
		color.NoColor = true
	}

	log := logger.New(logger.LoggerConfig{
		FilePath: config.LogFile,
		Console:  config.LogConsole,
		Debug:    config.Debug,
	})
	defer log.Sync()

	policy, err := session.ParsePolicy(config.SelectionPolicy)
	if err != nil {
		return err
	}

	api, err := client.NewWithConfig(client.ClientConfig{
		BaseURL:   config.BaseURL,
		Timeout:   config.RequestTimeout,
		RateLimit: config.RateLimit,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize client: %w", err)
	}

	term := &terminal{out: os.Stdout, spinner: config.Spinner}

	sess := session.NewWithConfig(session.SessionConfig{Policy: policy, Logger: log})
	sess.Observe(term.observe)

	st := status.NewWithConfig(status.StatusConfig{
		ClearDelay: config.StatusClearDelay,
		OnChange:   term.showStatus,
	})
	defer st.Close()

	conv := conversation.NewLog()
	conversation.NewRenderer(term, conversation.RendererConfig{SkipUser: true}).Attach(conv)

	syncer, err := docsync.NewWithConfig(docsync.SyncConfig{
		Store:          api,
		Session:        sess,
		Status:         st,
		MaxUploadBytes: config.MaxUploadBytes,
		Timeout:        config.RequestTimeout,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize document synchronizer: %w", err)
	}

	orch, err := orchestrator.NewWithConfig(orchestrator.OrchestratorConfig{
		Answers:      api,
		Session:      sess,
		Conversation: conv,
		Timeout:      config.RequestTimeout,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	ctrl, err := controller.NewWithConfig(controller.ControllerConfig{
		Session:      sess,
		Synchronizer: syncer,
		Orchestrator: orch,
		Conversation: conv,
		Status:       st,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize controller: %w", err)
	}

	ctx := context.Background()
	log.Info("starting", zap.String("api", config.BaseURL), zap.Stringer("policy", policy))

	color.Cyan("\nChat with your documents at %s (type /help for commands, 'exit' to quit)", config.BaseURL)

	view, _ := ctrl.Start(ctx)
	for _, path := range config.Uploads {
		view, _ = ctrl.Dispatch(ctx, controller.UploadDocument{Path: path})
	}
	printDocuments(view)

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	hintPrompt := color.New(color.Faint).PrintfFunc()

	for {
		view = ctrl.View()
		if view.Facts.InputEnabled {
			userPrompt("\nYou: ")
		} else {
			hintPrompt("\n(%s) > ", view.Facts.Placeholder)
		}

		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.ToLower(line) == "exit" {
			break
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			handleCommand(ctx, ctrl, line)
			continue
		}

		if !view.Facts.InputEnabled {
			color.Yellow(view.Facts.Placeholder)
			continue
		}
		if _, err := ctrl.Dispatch(ctx, controller.AskQuestion{Text: line}); err != nil {
			reportCommandError(err)
		}
	}

	return scanner.Err()
}

func handleCommand(ctx context.Context, ctrl *controller.Controller, line string) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/help":
		fmt.Println(helpText)
	case "/docs":
		printDocuments(ctrl.View())
	case "/reload":
		view, err := ctrl.Dispatch(ctx, controller.LoadDocuments{})
		if err != nil {
			reportCommandError(err)
			return
		}
		printDocuments(view)
	case "/upload":
		if arg == "" {
			color.Yellow("usage: /upload <path>")
			return
		}
		view, err := ctrl.Dispatch(ctx, controller.UploadDocument{Path: arg})
		if err != nil {
			reportCommandError(err)
			return
		}
		printDocuments(view)
	case "/toggle":
		if arg == "" {
			color.Yellow("usage: /toggle <id|number|filename>")
			return
		}
		id, ok := ctrl.View().ResolveDocument(arg)
		if !ok {
			id = arg
		}
		view, err := ctrl.Dispatch(ctx, controller.ToggleDocument{ID: id})
		if err != nil {
			reportCommandError(err)
			return
		}
		printDocuments(view)
	default:
		color.Yellow("unknown command %s, type /help", name)
	}
}

// reportCommandError prints errors that the status line does not already
// show to the user.
func reportCommandError(err error) {
	switch {
	case errors.Is(err, session.ErrBusy):
		color.Yellow("Still working, try again in a moment")
	case errors.Is(err, session.ErrUnknownDocument):
		color.Red("%v", err)
	case errors.Is(err, orchestrator.ErrInputDisabled):
		color.Yellow(session.PlaceholderNoSelection)
	}
}

func printDocuments(view controller.View) {
	if len(view.Session.Documents) == 0 {
		color.Yellow("\nNo documents yet. %s", view.Facts.Placeholder)
		return
	}

	faint := color.New(color.Faint).SprintFunc()
	fmt.Println()
	for i, doc := range view.Session.Documents {
		mark := "[ ]"
		if view.Session.IsSelected(doc.ID) {
			mark = color.GreenString("[x]")
		}
		fmt.Printf("  %s %d. %s %s\n", mark, i+1, doc.Filename, faint("("+doc.ID+")"))
	}
	if !view.Facts.InputEnabled {
		color.Yellow(view.Facts.Placeholder)
	}
}

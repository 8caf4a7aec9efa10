package conversation

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/fatih/color"

	"github.com/xhad/docchat/internal/models"
)

var lineBreaks = regexp.MustCompile(`\n+`)

// Paragraphs splits a system message into display paragraphs. User text and
// single-line answers come back whole.
func Paragraphs(msg models.Message) []string {
	if msg.Sender != models.SenderSystem {
		return []string{msg.Text}
	}

	parts := lineBreaks.Split(msg.Text, -1)
	if len(parts) <= 1 {
		return []string{msg.Text}
	}

	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// ConfidenceLabel renders confidence as "NN% confidence", or "" when the
// answer carried none.
func ConfidenceLabel(msg models.Message) string {
	if msg.Confidence == nil || *msg.Confidence == 0 {
		return ""
	}
	return fmt.Sprintf("%d%% confidence", int(math.Round(*msg.Confidence*100)))
}

// SourceLine is the provenance footer of an answer. Answers without a source
// document have no footer, even when they carry a confidence.
func SourceLine(msg models.Message) string {
	if msg.Sender != models.SenderSystem || msg.SourceDocument == "" {
		return ""
	}

	parts := []string{"Source: " + msg.SourceDocument}
	if label := ConfidenceLabel(msg); label != "" {
		parts = append(parts, label)
	}
	return strings.Join(parts, " ")
}

type RendererConfig struct {
	UserLabel   string
	SystemLabel string
	// SkipUser leaves user messages out, for terminals that already echo input.
	SkipUser bool
}

// Renderer writes messages to a terminal. Each message is written below
// the previous one, so the newest entry is always the last thing on screen.
type Renderer struct {
	w      io.Writer
	config RendererConfig
	user   *color.Color
	system *color.Color
	errs   *color.Color
	source *color.Color
}

func NewRenderer(w io.Writer, config RendererConfig) *Renderer {
	if config.UserLabel == "" {
		config.UserLabel = "You"
	}
	if config.SystemLabel == "" {
		config.SystemLabel = "Assistant"
	}

	return &Renderer{
		w:      w,
		config: config,
		user:   color.New(color.FgGreen),
		system: color.New(color.FgCyan),
		errs:   color.New(color.FgRed),
		source: color.New(color.Faint, color.Italic),
	}
}

// Attach renders every message appended to log from now on.
func (r *Renderer) Attach(log *Log) {
	log.OnAppend(func(msg models.Message) {
		r.Render(msg)
	})
}

func (r *Renderer) Render(msg models.Message) {
	if msg.Sender == models.SenderUser {
		if r.config.SkipUser {
			return
		}
		r.user.Fprintf(r.w, "\n%s: ", r.config.UserLabel)
		fmt.Fprintln(r.w, msg.Text)
		return
	}

	label := r.system
	if msg.IsError {
		label = r.errs
	}
	label.Fprintf(r.w, "\n%s:\n", r.config.SystemLabel)

	for _, p := range Paragraphs(msg) {
		if msg.IsError {
			r.errs.Fprintln(r.w, p)
		} else {
			fmt.Fprintln(r.w, p)
		}
	}

	if line := SourceLine(msg); line != "" {
		r.source.Fprintln(r.w, line)
	}
}

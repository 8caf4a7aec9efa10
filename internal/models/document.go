package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Document is a server-held PDF known to the client.
type Document struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// DocID is a server-assigned identifier. The document store may emit ids as
// JSON strings or numbers; both decode to their textual form.
type DocID string

func (id *DocID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = DocID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid document id %s: %w", string(data), err)
	}
	*id = DocID(n.String())
	return nil
}

type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// ErrorPrefix marks system messages produced by a failed exchange.
const ErrorPrefix = "Error: "

// Message is one immutable conversation entry.
type Message struct {
	Text           string
	Sender         Sender
	SourceDocument string
	Confidence     *float64
	IsError        bool
	CreatedAt      time.Time
}

func UserMessage(text string) Message {
	return Message{Text: text, Sender: SenderUser, CreatedAt: time.Now()}
}

func AnswerMessage(text, source string, confidence *float64) Message {
	return Message{
		Text:           text,
		Sender:         SenderSystem,
		SourceDocument: source,
		Confidence:     confidence,
		CreatedAt:      time.Now(),
	}
}

func ErrorMessage(description string) Message {
	return Message{
		Text:      ErrorPrefix + strings.TrimSpace(description),
		Sender:    SenderSystem,
		IsError:   true,
		CreatedAt: time.Now(),
	}
}

// Answer is what the answer service returns for one question.
type Answer struct {
	Text           string
	Confidence     *float64
	SourceDocument string
}

// UIFacts are the enablement facts derived from session state.
type UIFacts struct {
	InputEnabled bool
	Placeholder  string
}

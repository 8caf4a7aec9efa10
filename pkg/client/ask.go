package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/xhad/docchat/internal/models"
)

const AskFallback = "Failed to get answer"

type askRequest struct {
	Question string   `json:"question"`
	DocIDs   []string `json:"doc_ids"`
}

type askResponse struct {
	Answer         *string  `json:"answer"`
	Confidence     *float64 `json:"confidence"`
	SourceDocument *string  `json:"source_document"`
}

// Ask sends one question scoped to docIDs.
func (c *Client) Ask(ctx context.Context, question string, docIDs []string) (models.Answer, error) {
	const op = "ask"

	if docIDs == nil {
		docIDs = []string{}
	}
	payload, err := json.Marshal(askRequest{Question: question, DocIDs: docIDs})
	if err != nil {
		return models.Answer{}, fmt.Errorf("failed to encode question: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint(askPath), bytes.NewReader(payload))
	if err != nil {
		return models.Answer{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, op, req)
	if err != nil {
		return models.Answer{}, err
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Answer{}, decodeError(op, resp, AskFallback)
	}

	var result askResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Answer{}, &MalformedResponseError{Op: op, Err: err}
	}
	if result.Answer == nil {
		return models.Answer{}, &MalformedResponseError{Op: op, Err: errors.New("missing answer")}
	}

	answer := models.Answer{Text: *result.Answer}
	if conf := result.Confidence; conf != nil {
		if *conf >= 0 && *conf <= 1 {
			answer.Confidence = conf
		} else {
			c.log.Warn("ignoring out of range confidence", zap.Float64("confidence", *conf))
		}
	}
	if result.SourceDocument != nil {
		answer.SourceDocument = *result.SourceDocument
	}

	c.log.Debug("answer received", zap.Int("doc_count", len(docIDs)), zap.Bool("has_source", answer.SourceDocument != ""))
	return answer, nil
}

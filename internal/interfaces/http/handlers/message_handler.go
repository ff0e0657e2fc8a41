package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/internal/normalize"
	"github.com/biograph-io/nodenorm/internal/trapi"
)

// messageOptions are the conflation settings applied to message
// normalization. Both overlays are applied; message callers cannot opt out.
var messageOptions = normalize.Options{
	ConflateGeneProtein:  true,
	ConflateDrugChemical: true,
}

// MessageHandler serves TRAPI message normalization, synchronous and
// callback-based.
type MessageHandler struct {
	normalizer *trapi.Normalizer
	logger     logging.Logger
	client     *http.Client

	// asyncTimeout bounds one background normalization plus delivery.
	asyncTimeout time.Duration
}

func NewMessageHandler(normalizer *trapi.Normalizer, logger logging.Logger) *MessageHandler {
	return &MessageHandler{
		normalizer:   normalizer,
		logger:       logger,
		client:       &http.Client{Timeout: 60 * time.Second},
		asyncTimeout: 10 * time.Minute,
	}
}

// queryEnvelope keeps every request field it does not understand, so the
// response mirrors the request with only message replaced.
type queryEnvelope map[string]json.RawMessage

func decodeEnvelope(r *http.Request) (queryEnvelope, *trapi.Message, error) {
	var envelope queryEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	raw, ok := envelope["message"]
	if !ok {
		return nil, nil, fmt.Errorf("request has no message")
	}
	var msg trapi.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, nil, fmt.Errorf("invalid message: %w", err)
	}
	return envelope, &msg, nil
}

// Query handles POST /query.
func (h *MessageHandler) Query(w http.ResponseWriter, r *http.Request) {
	envelope, msg, err := decodeEnvelope(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	normalized, err := h.normalizer.NormalizeMessage(r.Context(), msg, messageOptions)
	if err != nil {
		h.logger.Error("Message normalization failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		writeAppError(w, err)
		return
	}
	envelope["message"] = raw
	writeJSON(w, http.StatusOK, envelope)
}

// AsyncQuery handles POST /asyncquery. The response acknowledges receipt;
// the normalized message is delivered to the callback URL.
func (h *MessageHandler) AsyncQuery(w http.ResponseWriter, r *http.Request) {
	envelope, msg, err := decodeEnvelope(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var callback string
	if raw, ok := envelope["callback"]; ok {
		_ = json.Unmarshal(raw, &callback)
	}
	if callback == "" {
		writeValidationError(w, ValidationDetail{
			Loc:  []string{"body", "callback"},
			Msg:  "field required",
			Type: "value_error.missing",
		})
		return
	}

	go h.runAsyncQuery(envelope, msg, callback)

	writeJSON(w, http.StatusOK, map[string]string{
		"description": fmt.Sprintf("Query commenced. Will send result to %s", callback),
	})
}

func (h *MessageHandler) runAsyncQuery(envelope queryEnvelope, msg *trapi.Message, callback string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.asyncTimeout)
	defer cancel()

	log := h.logger.With(logging.String("callback", callback))

	normalized, err := h.normalizer.NormalizeMessage(ctx, msg, messageOptions)
	if err != nil {
		log.Error("Background normalization failed", logging.Err(err))
		return
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		log.Error("Background serialization failed", logging.Err(err))
		return
	}
	envelope["message"] = raw
	body, err := json.Marshal(envelope)
	if err != nil {
		log.Error("Background serialization failed", logging.Err(err))
		return
	}

	if err := h.deliver(ctx, callback, body); err != nil {
		log.Error("Callback delivery failed", logging.Err(err))
		return
	}
	log.Info("Callback delivered")
}

// deliver posts the result to the callback, retrying 429 and 5xx responses
// with exponential backoff.
func (h *MessageHandler) deliver(ctx context.Context, callback string, body []byte) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.Multiplier = 3

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, callback, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := h.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("callback responded %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("callback responded %d", resp.StatusCode))
		}
		return nil
	}
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, 3), ctx))
}

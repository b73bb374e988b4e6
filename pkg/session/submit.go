package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/chat"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/logger"
)

// ErrUnsupportedContent rejects submissions carrying anything but plain
// text. Deliberate scope limitation, checked before any mutation.
var ErrUnsupportedContent = errors.New("unsupported content: only text messages can be submitted")

// ErrEmptyContent rejects submissions with no text.
var ErrEmptyContent = errors.New("message content must not be empty")

// Sender is the outbound message call the submitter depends on.
type Sender interface {
	SendMessage(ctx context.Context, sessionID, content string) error
}

// Submitter turns a user utterance into an optimistic history entry and a
// backend request, rolling the entry back when the request fails.
type Submitter struct {
	store  *chat.Store
	sender Sender
	log    *logger.Logger
}

// NewSubmitter creates a submission pipeline writing to the given store.
func NewSubmitter(store *chat.Store, sender Sender) *Submitter {
	return &Submitter{
		store:  store,
		sender: sender,
		log:    logger.WithComponent("submitter"),
	}
}

// Submit validates parts, optimistically appends a user message and sends
// it. On send failure the optimistic message is removed by its synthesized
// id and running is cleared. Returns the synthesized message id.
func (s *Submitter) Submit(ctx context.Context, sessionID string, parts []chat.Part) (string, error) {
	content, err := textContent(parts)
	if err != nil {
		return "", err
	}

	id := "local-" + uuid.NewString()
	s.store.Append(chat.NewUserMessage(id, content))
	s.store.SetRunning(true)
	s.log.Debug("Optimistic message appended", "id", id, "session", sessionID)

	if err := s.sender.SendMessage(ctx, sessionID, content); err != nil {
		s.store.Remove(id)
		s.store.SetRunning(false)
		s.log.Warn("Send failed, optimistic message rolled back", "id", id, "error", err)
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	// Running stays set on success; only the reconciler clears it once the
	// streamed turn finalizes.
	return id, nil
}

// SubmitText submits a single plain-text utterance.
func (s *Submitter) SubmitText(ctx context.Context, sessionID, text string) (string, error) {
	return s.Submit(ctx, sessionID, []chat.Part{chat.NewTextPart(text)})
}

// textContent flattens parts to plain text, rejecting anything else.
func textContent(parts []chat.Part) (string, error) {
	if len(parts) == 0 {
		return "", ErrEmptyContent
	}
	var content string
	for _, p := range parts {
		if p.Type != chat.PartText {
			return "", ErrUnsupportedContent
		}
		content += p.Text
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	return content, nil
}

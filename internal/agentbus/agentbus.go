// Package agentbus implements the Agent Bus (C11): organization-scoped
// messaging and task delegation between registered agents, with signed
// envelopes. See spec.md §4.11, §4.12 (tasks).
package agentbus

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/quoth-dev/quoth-mcp/internal/apperr"
	"github.com/quoth-dev/quoth-mcp/internal/model"
	"github.com/quoth-dev/quoth-mcp/internal/repository"
)

const signatureLength = 16
const defaultInboxLimit = 10

// Bus wires C11 to the agent repository. organization_id is always
// derived from the active project's organization, never taken from the
// caller directly.
type Bus struct {
	store     *repository.Store
	busSecret string
}

// New constructs a Bus.
func New(store *repository.Store, busSecret string) *Bus {
	return &Bus{store: store, busSecret: busSecret}
}

// Register creates a new agent within an organization.
func (b *Bus) Register(ctx context.Context, a *model.Agent) error {
	if err := b.store.Agents.Register(ctx, a); err != nil {
		if err == repository.ErrConflict {
			return apperr.New(apperr.Conflict, "agent_name already registered in this organization")
		}
		return apperr.Wrap(apperr.Internal, err, "failed to register agent")
	}
	return nil
}

// Send resolves the target agent, signs, and enqueues a message (§4.11
// send steps 1-3).
func (b *Bus) Send(ctx context.Context, organizationID, fromAgentID, toAgentID uuid.UUID, msgType model.MessageType, priority model.Priority, channel *string, replyTo *uuid.UUID, payload json.RawMessage) (*model.AgentMessage, error) {
	if _, err := b.store.Agents.GetByID(ctx, organizationID, toAgentID); err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.New(apperr.NotFound, "target agent not found")
		}
		return nil, apperr.Wrap(apperr.Internal, err, "failed to resolve target agent")
	}

	now := time.Now().UTC()
	sig := b.signature(fromAgentID, toAgentID, now)

	m := &model.AgentMessage{
		OrganizationID: organizationID,
		FromAgentID:    fromAgentID,
		ToAgentID:      toAgentID,
		Type:           msgType,
		Priority:       priority,
		Channel:        channel,
		ReplyTo:        replyTo,
		Payload:        payload,
		Signature:      sig,
	}
	if err := b.store.Agents.SendMessage(ctx, m); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to enqueue message")
	}
	return m, nil
}

// signature computes HMAC-SHA256(bus_secret, from || to || now_iso ||
// bus_secret) truncated to 16 hex chars (§4.11 step 2).
func (b *Bus) signature(from, to uuid.UUID, now time.Time) string {
	mac := hmac.New(sha256.New, []byte(b.busSecret))
	mac.Write([]byte(from.String()))
	mac.Write([]byte(to.String()))
	mac.Write([]byte(now.Format(time.RFC3339)))
	mac.Write([]byte(b.busSecret))
	return hex.EncodeToString(mac.Sum(nil))[:signatureLength]
}

// Inbox returns up to limit messages for agentID (default 10), optionally
// marking the returned set read (§4.11 inbox).
func (b *Bus) Inbox(ctx context.Context, organizationID, agentID uuid.UUID, limit int, includeRead, markRead bool) ([]*model.AgentMessage, error) {
	if limit <= 0 {
		limit = defaultInboxLimit
	}

	msgs, err := b.store.Agents.Inbox(ctx, organizationID, agentID, includeRead)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load inbox")
	}
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}

	if markRead {
		for _, m := range msgs {
			if err := b.store.Agents.MarkRead(ctx, m.ID); err != nil {
				return nil, apperr.Wrap(apperr.Internal, err, "failed to mark message read")
			}
		}
	}
	return msgs, nil
}

// CreateTask inserts a new delegated task (§4.12).
func (b *Bus) CreateTask(ctx context.Context, t *model.AgentTask) error {
	if err := b.store.Agents.CreateTask(ctx, t); err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to create task")
	}
	return nil
}

// UpdateTaskStatus transitions a task's status, stamping started_at on
// first entry to in_progress and completed_at on any terminal state
// (§4.11: "update on status=in_progress sets started_at if unset;
// transition to any terminal state sets completed_at").
func (b *Bus) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status model.TaskStatus, result *string) error {
	if err := b.store.Agents.UpdateTaskStatus(ctx, taskID, status, result); err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to update task")
	}
	return nil
}

// Tasks returns every task assigned to agentID.
func (b *Bus) Tasks(ctx context.Context, organizationID, agentID uuid.UUID) ([]*model.AgentTask, error) {
	tasks, err := b.store.Agents.TasksForAgent(ctx, organizationID, agentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load tasks")
	}
	return tasks, nil
}

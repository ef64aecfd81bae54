// Package mcp implements the Tool Dispatcher (C9): the registry of MCP
// tools, their JSON schemas, and the handlers that enforce tenant
// resolution, role authority, and activity timing around every call
// (§4.9). Modeled on the teacher's ToolRegistry/ToolDefinition pattern.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quoth-dev/quoth-mcp/internal/activity"
	"github.com/quoth-dev/quoth-mcp/internal/agentbus"
	"github.com/quoth-dev/quoth-mcp/internal/analytics"
	"github.com/quoth-dev/quoth-mcp/internal/apperr"
	"github.com/quoth-dev/quoth-mcp/internal/auth"
	"github.com/quoth-dev/quoth-mcp/internal/genesis"
	"github.com/quoth-dev/quoth-mcp/internal/indexer"
	"github.com/quoth-dev/quoth-mcp/internal/model"
	"github.com/quoth-dev/quoth-mcp/internal/proposal"
	"github.com/quoth-dev/quoth-mcp/internal/repository"
	"github.com/quoth-dev/quoth-mcp/internal/retrieval"
	"github.com/quoth-dev/quoth-mcp/internal/session"
	"github.com/quoth-dev/quoth-mcp/internal/tier"
)

// ToolDefinition is the MCP tool descriptor sent in tools/list responses.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func ok(text string) (string, bool)   { return text, false }
func fail(text string) (string, bool) { return text, true }
func failf(format string, a ...any) (string, bool) {
	return fmt.Sprintf(format, a...), true
}

// CallerContext is the resolved tenant for one tool call: the active
// project/role from C8, plus the organization that scopes agent-bus
// traffic.
type CallerContext struct {
	ConnectionID   string
	UserID         uuid.UUID
	ProjectID      uuid.UUID
	OrganizationID uuid.UUID
	Role           model.Role
}

// Registry holds every tool definition and wires handlers to the
// underlying components.
type Registry struct {
	store      *repository.Store
	sessions   *session.Manager
	pipeline   *retrieval.Pipeline
	indexer    *indexer.Indexer
	proposals  *proposal.Engine
	bus        *agentbus.Bus
	meter      *tier.Meter
	analytics  *analytics.Engine
	activityLog *activity.Logger
	log        *zap.Logger

	defs []ToolDefinition
}

// New constructs a Registry with every tool definition populated.
func New(store *repository.Store, sessions *session.Manager, pipeline *retrieval.Pipeline, ix *indexer.Indexer, proposals *proposal.Engine, bus *agentbus.Bus, meter *tier.Meter, analyticsEngine *analytics.Engine, activityLog *activity.Logger, log *zap.Logger) *Registry {
	r := &Registry{
		store: store, sessions: sessions, pipeline: pipeline, indexer: ix,
		proposals: proposals, bus: bus, meter: meter, analytics: analyticsEngine, activityLog: activityLog, log: log,
	}
	r.defs = toolDefinitions()
	return r
}

// Definitions returns the list of tool definitions for tools/list
// responses.
func (r *Registry) Definitions() []ToolDefinition {
	return r.defs
}

// writeTools is the set of tools that require editor-or-above authority.
var writeTools = map[string]bool{
	"quoth_propose_update":         true,
	"quoth_project_create":         true,
	"quoth_project_update":         true,
	"quoth_project_delete":         true,
	"quoth_agent_register":         true,
	"quoth_agent_update":           true,
	"quoth_agent_remove":           true,
	"quoth_agent_assign_project":   true,
	"quoth_agent_unassign_project": true,
	"quoth_agent_message":          true,
	"quoth_task_create":            true,
	"quoth_task_update":            true,
}

// adminOnlyTools additionally require admin authority.
var adminOnlyTools = map[string]bool{
	"quoth_project_create": true,
	"quoth_project_update": true,
	"quoth_project_delete": true,
}

// Call dispatches a tool call by name. It resolves the active tenant via
// C8, enforces role authority, records timing via C13 regardless of
// outcome, and returns a structured text result (§4.9 steps 1-4).
func (r *Registry) Call(ctx context.Context, connectionID, name string, args json.RawMessage) (string, bool) {
	stop := activity.Timer()

	sess, err := r.sessions.Active(connectionID)
	if err != nil {
		return fail("unauthenticated: no active session")
	}
	cc := CallerContext{
		ConnectionID: connectionID,
		UserID:       sess.UserID,
		ProjectID:    sess.ActiveProjectID,
		Role:         sess.ActiveRole,
	}
	if project, perr := r.store.Projects.GetProject(ctx, cc.ProjectID); perr == nil {
		cc.OrganizationID = project.OrganizationID
	}

	if writeTools[name] && !auth.CanWrite(cc.Role) {
		r.logCall(cc, name, nil, 0, stop())
		return fail("forbidden: this tool requires editor or admin authority")
	}
	if adminOnlyTools[name] && !auth.CanApprove(cc.Role) {
		r.logCall(cc, name, nil, 0, stop())
		return fail("forbidden: this tool requires admin authority")
	}

	out, isErr := r.dispatch(ctx, cc, name, args)
	r.logCall(cc, name, nil, 0, stop())
	return out, isErr
}

func (r *Registry) logCall(cc CallerContext, toolName string, query *string, resultCount int, elapsedMs int) {
	r.activityLog.Log(activity.Entry{
		ProjectID:      cc.ProjectID,
		UserID:         &cc.UserID,
		EventType:      eventTypeFor(toolName),
		ToolName:       &toolName,
		Query:          query,
		ResultCount:    &resultCount,
		ResponseTimeMs: &elapsedMs,
	})
}

func eventTypeFor(toolName string) model.EventType {
	switch toolName {
	case "quoth_search_index":
		return model.EventSearch
	case "quoth_read_doc":
		return model.EventRead
	case "quoth_read_chunks":
		return model.EventReadChunks
	case "quoth_propose_update":
		return model.EventPropose
	case "quoth_genesis":
		return model.EventGenesis
	case "quoth_project_create":
		return model.EventProjectCreate
	case "quoth_project_update":
		return model.EventProjectUpdate
	case "quoth_project_delete":
		return model.EventProjectDelete
	case "quoth_agent_register":
		return model.EventAgentRegister
	case "quoth_agent_update":
		return model.EventAgentUpdate
	case "quoth_agent_remove":
		return model.EventAgentRemove
	case "quoth_agent_assign_project":
		return model.EventAgentAssignProject
	case "quoth_agent_unassign_project":
		return model.EventAgentUnassignProject
	case "quoth_agent_message":
		return model.EventAgentMessageSent
	case "quoth_agent_inbox":
		return model.EventAgentInboxRead
	case "quoth_task_create":
		return model.EventAgentTaskCreated
	case "quoth_task_update":
		return model.EventAgentTaskUpdated
	default:
		return model.EventRead
	}
}

func (r *Registry) dispatch(ctx context.Context, cc CallerContext, name string, args json.RawMessage) (string, bool) {
	switch name {
	case "quoth_search_index":
		return r.searchIndex(ctx, cc, args)
	case "quoth_read_doc":
		return r.readDoc(ctx, cc, args)
	case "quoth_read_chunks":
		return r.readChunks(ctx, cc, args)
	case "quoth_propose_update":
		return r.proposeUpdate(ctx, cc, args)
	case "quoth_list_templates":
		return r.listTemplates(ctx, cc, args)
	case "quoth_get_template":
		return r.getTemplate(ctx, cc, args)
	case "quoth_list_accounts":
		return r.listAccounts(cc)
	case "quoth_switch_account":
		return r.switchAccount(cc, args)
	case "quoth_guidelines":
		return r.guidelines(args)
	case "quoth_project_create":
		return r.projectCreate(ctx, cc, args)
	case "quoth_project_update":
		return r.projectUpdate(ctx, cc, args)
	case "quoth_project_delete":
		return r.projectDelete(ctx, cc, args)
	case "quoth_genesis":
		return r.genesisPrompt(args)
	case "quoth_agent_register":
		return r.agentRegister(ctx, cc, args)
	case "quoth_agent_update":
		return r.agentUpdate(ctx, cc, args)
	case "quoth_agent_remove":
		return r.agentRemove(ctx, cc, args)
	case "quoth_agent_list":
		return r.agentList(ctx, cc)
	case "quoth_agent_assign_project":
		return r.agentAssignProject(ctx, cc, args)
	case "quoth_agent_unassign_project":
		return r.agentUnassignProject(ctx, cc, args)
	case "quoth_agent_message":
		return r.agentMessage(ctx, cc, args)
	case "quoth_agent_inbox":
		return r.agentInbox(ctx, cc, args)
	case "quoth_task_create":
		return r.taskCreate(ctx, cc, args)
	case "quoth_task_update":
		return r.taskUpdate(ctx, cc, args)
	case "quoth_health":
		return r.health(ctx, cc)
	case "quoth_coverage":
		return r.coverage(ctx, cc)
	case "quoth_drift":
		return r.drift(ctx, cc)
	default:
		return failf("unknown tool: %q", name)
	}
}

func errToResult(err error) (string, bool) {
	if e, ok := err.(*apperr.Error); ok {
		return failf("%s: %s", e.Kind, e.Message)
	}
	return failf("internal error: %v", err)
}

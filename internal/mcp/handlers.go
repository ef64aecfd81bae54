package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quoth-dev/quoth-mcp/internal/apperr"
	"github.com/quoth-dev/quoth-mcp/internal/genesis"
	"github.com/quoth-dev/quoth-mcp/internal/indexer"
	"github.com/quoth-dev/quoth-mcp/internal/model"
	"github.com/quoth-dev/quoth-mcp/internal/repository"
	"github.com/quoth-dev/quoth-mcp/internal/session"
)

func decode(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return apperr.Wrap(apperr.ValidationError, err, "invalid tool arguments")
	}
	return nil
}

func (r *Registry) searchIndex(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		Query string `json:"query"`
		Scope string `json:"scope"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	if in.Query == "" || len(in.Query) > 1000 {
		return fail("query is required and must be at most 1000 characters")
	}

	outcome, err := r.pipeline.SearchDocuments(ctx, cc.ProjectID, in.Query, false)
	if err != nil {
		return errToResult(err)
	}

	var b strings.Builder
	if len(outcome.Results) == 0 {
		b.WriteString("No results.")
	}
	for _, res := range outcome.Results {
		fmt.Fprintf(&b, "[%s] %s (%s) relevance=%.2f trust=%s\n%s\n\n", res.ChunkID, res.Title, res.FilePath, res.Relevance, res.Trust, res.ContentChunk)
	}
	if outcome.UsedFallback {
		b.WriteString("\n(keyword fallback used — semantic search quota exhausted)")
	}
	if outcome.TierMessage != "" {
		b.WriteString("\n" + outcome.TierMessage)
	}
	return ok(b.String())
}

func (r *Registry) readDoc(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		DocID string `json:"doc_id"`
		Scope string `json:"scope"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	if in.DocID == "" || len(in.DocID) > 500 {
		return fail("doc_id is required and must be at most 500 characters")
	}

	doc, err := r.pipeline.ReadDocument(ctx, cc.ProjectID, cc.OrganizationID, in.DocID, in.Scope)
	if err != nil {
		return errToResult(err)
	}
	return ok(fmt.Sprintf("%s (v%d, %s)\n\n%s", doc.FilePath, doc.Version, doc.LastUpdated.Format("2006-01-02"), doc.Content))
}

func (r *Registry) readChunks(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		ChunkIDs []string `json:"chunk_ids"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	ids := make([]uuid.UUID, 0, len(in.ChunkIDs))
	for _, s := range in.ChunkIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			return failf("invalid chunk id %q", s)
		}
		ids = append(ids, id)
	}

	results, err := r.pipeline.ReadChunks(ctx, cc.ProjectID, ids)
	if err != nil {
		return errToResult(err)
	}
	var b strings.Builder
	for _, res := range results {
		fmt.Fprintf(&b, "[%s] %s chunk %d\n%s\n\n", res.ChunkID, res.FilePath, res.Metadata.ChunkIndex, res.ContentChunk)
	}
	return ok(b.String())
}

func (r *Registry) proposeUpdate(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		DocID           string `json:"doc_id"`
		NewContent      string `json:"new_content"`
		EvidenceSnippet string `json:"evidence_snippet"`
		Reasoning       string `json:"reasoning"`
		AgentID         string `json:"agent_id"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	if in.DocID == "" || in.NewContent == "" || in.Reasoning == "" {
		return fail("doc_id, new_content, and reasoning are required")
	}
	if len(in.NewContent) > 500000 {
		return fail("new_content exceeds the 500KB limit")
	}
	if len(in.EvidenceSnippet) > 10000 {
		return fail("evidence_snippet exceeds the 10KB limit")
	}
	if len(in.Reasoning) > 5000 {
		return fail("reasoning exceeds the 5000 character limit")
	}

	var agentID *uuid.UUID
	if in.AgentID != "" {
		id, err := uuid.Parse(in.AgentID)
		if err != nil {
			return fail("invalid agent_id")
		}
		agentID = &id
	}

	out, err := r.proposals.Propose(ctx, cc.ProjectID, cc.Role, in.DocID, in.NewContent, in.Reasoning, in.EvidenceSnippet, agentID)
	if err != nil {
		return errToResult(err)
	}
	if out.Applied {
		return ok(fmt.Sprintf("applied directly: document %s now at version %d (%d chunks embedded, %d reused, %d removed)",
			out.SyncResult.DocumentID, out.SyncResult.Version, out.SyncResult.ChunksEmbedded, out.SyncResult.ChunksReused, out.SyncResult.ChunksRemoved))
	}
	return ok(fmt.Sprintf("proposal %s created, pending admin approval", out.ProposalID))
}

func (r *Registry) listTemplates(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	docs, err := r.store.Documents.ListByDocType(ctx, cc.ProjectID, model.DocTypeTemplate)
	if err != nil {
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to list templates"))
	}
	if len(docs) == 0 {
		return ok("No templates indexed for this project.")
	}
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "%s  %s\n", d.ID, d.FilePath)
	}
	return ok(b.String())
}

func (r *Registry) getTemplate(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		TemplateID string `json:"template_id"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	id, err := uuid.Parse(in.TemplateID)
	if err != nil {
		return fail("invalid template_id")
	}
	doc, err := r.store.Documents.ByID(ctx, cc.ProjectID, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return fail("template not found")
		}
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to load template"))
	}
	if doc.DocType == nil || *doc.DocType != model.DocTypeTemplate {
		return fail("document is not categorized as a template")
	}
	return ok(doc.Content)
}

func (r *Registry) listAccounts(cc CallerContext) (string, bool) {
	sess, err := r.sessions.ListAccounts(cc.ConnectionID)
	if err != nil {
		return errToResult(err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "active: %s\n", sess.ActiveProjectID)
	for _, a := range sess.AvailableAccounts {
		fmt.Fprintf(&b, "%s (%s)\n", a.ProjectID, a.Role)
	}
	return ok(b.String())
}

func (r *Registry) switchAccount(cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		ProjectID string `json:"project_id"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	id, err := uuid.Parse(in.ProjectID)
	if err != nil {
		return fail("invalid project_id")
	}
	sess, err := r.sessions.Switch(cc.ConnectionID, id)
	if err != nil {
		return errToResult(err)
	}
	return ok(fmt.Sprintf("active project is now %s (%s)", sess.ActiveProjectID, sess.ActiveRole))
}

const guidelineCodeCompact = `Write code that matches the surrounding file's idioms. Name things by what they do. Handle errors at the boundary where they're actionable.`
const guidelineCodeFull = guidelineCodeCompact + `

Prefer small, composable functions over large ones that branch on mode.
Keep side effects (I/O, network, mutation) visible at the call site; don't
bury them behind innocuous-looking helpers. Tests live beside the code
they exercise.`

const guidelineReviewCompact = `Check correctness first, then clarity, then style. A review that only nitpicks style while missing a logic error has failed its purpose.`
const guidelineReviewFull = guidelineReviewCompact + `

Flag anything that silently swallows an error or broadens a permission
check. Prefer one clear comment over a long thread restating the same
point. Approve once the remaining comments are nits, not blockers.`

const guidelineDocumentCompact = `Write for a reader who has never seen this codebase. Cite real file paths and real code, not generic advice.`
const guidelineDocumentFull = guidelineDocumentCompact + `

State the invariant or constraint a design decision protects, not a
restatement of what the code already says. Prefer short, concrete
documents scoped to one architectural concern over a single sprawling
overview.`

func (r *Registry) guidelines(args json.RawMessage) (string, bool) {
	var in struct {
		Mode string `json:"mode"`
		Full bool   `json:"full"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	switch in.Mode {
	case "code":
		if in.Full {
			return ok(guidelineCodeFull)
		}
		return ok(guidelineCodeCompact)
	case "review":
		if in.Full {
			return ok(guidelineReviewFull)
		}
		return ok(guidelineReviewCompact)
	case "document":
		if in.Full {
			return ok(guidelineDocumentFull)
		}
		return ok(guidelineDocumentCompact)
	default:
		return failf("unknown guidelines mode %q", in.Mode)
	}
}

var slugPattern = func(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
			return false
		}
	}
	return true
}

func (r *Registry) projectCreate(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		Name       string `json:"name"`
		Slug       string `json:"slug"`
		GithubRepo string `json:"github_repo"`
		IsPublic   bool   `json:"is_public"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	if in.Name == "" || !slugPattern(in.Slug) {
		return fail("name is required and slug must match ^[a-z0-9-]+$")
	}

	org, err := r.store.Projects.OrganizationForUser(ctx, cc.UserID)
	if err == repository.ErrNotFound {
		org = &model.Organization{Slug: in.Slug, Name: in.Name, OwnerUserID: cc.UserID}
		if cerr := r.store.Projects.CreateOrganization(ctx, org); cerr != nil {
			return errToResult(apperr.Wrap(apperr.Internal, cerr, "failed to create organization"))
		}
	} else if err != nil {
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to resolve organization"))
	}

	p := &model.Project{
		Slug:           in.Slug,
		OrganizationID: org.ID,
		OwnerUserID:    cc.UserID,
		IsPublic:       in.IsPublic,
		Tier:           model.TierFree,
	}
	if err := r.store.Projects.CreateProject(ctx, p); err != nil {
		if err == repository.ErrConflict {
			return fail("a project with this slug already exists")
		}
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to create project"))
	}

	if err := r.store.Projects.AddMember(ctx, model.ProjectMember{ProjectID: p.ID, UserID: cc.UserID, Role: model.RoleAdmin}); err != nil {
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to assign creator as admin"))
	}

	return ok(fmt.Sprintf("created project %s (%s)", p.ID, p.Slug))
}

func (r *Registry) projectUpdate(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		IsPublic        *bool   `json:"is_public"`
		RequireApproval *bool   `json:"require_approval"`
		Tier            *string `json:"tier"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}

	p, err := r.store.Projects.GetProject(ctx, cc.ProjectID)
	if err != nil {
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to load project"))
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}
	if in.RequireApproval != nil {
		p.RequireApproval = *in.RequireApproval
	}
	if in.Tier != nil {
		t := model.Tier(*in.Tier)
		if t != model.TierFree && t != model.TierPro && t != model.TierTeam {
			return fail("tier must be one of free, pro, team")
		}
		p.Tier = t
	}
	if err := r.store.Projects.UpdateProject(ctx, p); err != nil {
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to update project"))
	}
	return ok(fmt.Sprintf("updated project %s", p.ID))
}

func (r *Registry) projectDelete(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	if err := r.store.Projects.DeleteProject(ctx, cc.ProjectID); err != nil {
		if err == repository.ErrNotFound {
			return fail("project not found")
		}
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to delete project"))
	}
	return ok(fmt.Sprintf("deleted project %s", cc.ProjectID))
}

func (r *Registry) genesisPrompt(args json.RawMessage) (string, bool) {
	var in struct {
		Focus        string `json:"focus"`
		LanguageHint string `json:"language_hint"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	var focus genesis.Focus
	switch in.Focus {
	case "full_scan":
		focus = genesis.FocusFullScan
	case "update_only":
		focus = genesis.FocusUpdateOnly
	default:
		return fail("focus must be full_scan or update_only")
	}
	return ok(genesis.Prompt(focus, in.LanguageHint))
}

func (r *Registry) agentRegister(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		AgentName   string `json:"agent_name"`
		Instance    string `json:"instance"`
		DisplayName string `json:"display_name"`
		Model       string `json:"model"`
		Role        string `json:"role"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	if in.AgentName == "" || in.Instance == "" {
		return fail("agent_name and instance are required")
	}
	a := &model.Agent{
		OrganizationID: cc.OrganizationID,
		AgentName:      in.AgentName,
		DisplayName:    in.DisplayName,
		Instance:       in.Instance,
		Model:          in.Model,
		Role:           in.Role,
	}
	if err := r.bus.Register(ctx, a); err != nil {
		return errToResult(err)
	}
	return ok(fmt.Sprintf("registered agent %s (%s)", a.ID, a.AgentName))
}

func (r *Registry) agentUpdate(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		AgentID     string  `json:"agent_id"`
		DisplayName *string `json:"display_name"`
		Role        *string `json:"role"`
		Status      *string `json:"status"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	id, err := uuid.Parse(in.AgentID)
	if err != nil {
		return fail("invalid agent_id")
	}
	a, err := r.store.Agents.GetByID(ctx, cc.OrganizationID, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return fail("agent not found")
		}
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to load agent"))
	}
	if in.DisplayName != nil {
		a.DisplayName = *in.DisplayName
	}
	if in.Role != nil {
		a.Role = *in.Role
	}
	if in.Status != nil {
		a.Status = model.AgentStatus(*in.Status)
	}
	if err := r.store.Agents.Update(ctx, a); err != nil {
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to update agent"))
	}
	return ok(fmt.Sprintf("updated agent %s", a.ID))
}

func (r *Registry) agentRemove(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		AgentID string `json:"agent_id"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	id, err := uuid.Parse(in.AgentID)
	if err != nil {
		return fail("invalid agent_id")
	}
	if err := r.store.Agents.Archive(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return fail("agent not found")
		}
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to archive agent"))
	}
	return ok(fmt.Sprintf("archived agent %s", id))
}

func (r *Registry) agentList(ctx context.Context, cc CallerContext) (string, bool) {
	agents, err := r.store.Agents.ListByOrganization(ctx, cc.OrganizationID)
	if err != nil {
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to list agents"))
	}
	var b strings.Builder
	for _, a := range agents {
		fmt.Fprintf(&b, "%s  %s  %s\n", a.ID, a.AgentName, a.Status)
	}
	if b.Len() == 0 {
		return ok("No agents registered.")
	}
	return ok(b.String())
}

func (r *Registry) agentAssignProject(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		AgentID string `json:"agent_id"`
		Role    string `json:"role"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	agentID, err := uuid.Parse(in.AgentID)
	if err != nil {
		return fail("invalid agent_id")
	}
	role := model.AssignmentRole(in.Role)
	if role != model.AssignmentOwner && role != model.AssignmentContributor && role != model.AssignmentReadonly {
		return fail("role must be one of owner, contributor, readonly")
	}
	assignment := model.AgentProjectAssignment{AgentID: agentID, ProjectID: cc.ProjectID, Role: role, AssignedBy: cc.UserID}
	if err := r.store.Agents.AssignProject(ctx, assignment); err != nil {
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to assign agent to project"))
	}
	return ok(fmt.Sprintf("assigned agent %s as %s on project %s", agentID, role, cc.ProjectID))
}

func (r *Registry) agentUnassignProject(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		AgentID string `json:"agent_id"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	agentID, err := uuid.Parse(in.AgentID)
	if err != nil {
		return fail("invalid agent_id")
	}
	if err := r.store.Agents.UnassignProject(ctx, agentID, cc.ProjectID); err != nil {
		if err == repository.ErrNotFound {
			return fail("assignment not found")
		}
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to unassign agent"))
	}
	return ok(fmt.Sprintf("unassigned agent %s from project %s", agentID, cc.ProjectID))
}

func (r *Registry) agentMessage(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		To       string `json:"to"`
		Message  string `json:"message"`
		Type     string `json:"type"`
		Priority string `json:"priority"`
		Channel  string `json:"channel"`
		ReplyTo  string `json:"reply_to"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	toID, err := uuid.Parse(in.To)
	if err != nil {
		return fail("invalid to")
	}

	msgType := model.MessageType(in.Type)
	if msgType == "" {
		msgType = model.MessageKindMessage
	}
	priority := model.Priority(in.Priority)
	if priority == "" {
		priority = model.PriorityNormal
	}

	var channel *string
	if in.Channel != "" {
		channel = &in.Channel
	}
	var replyTo *uuid.UUID
	if in.ReplyTo != "" {
		id, err := uuid.Parse(in.ReplyTo)
		if err != nil {
			return fail("invalid reply_to")
		}
		replyTo = &id
	}

	payload, _ := json.Marshal(map[string]string{"text": in.Message})

	fromID := cc.UserID // the authenticated user is always the sender; no separate agent identity is resolved
	m, err := r.bus.Send(ctx, cc.OrganizationID, fromID, toID, msgType, priority, channel, replyTo, payload)
	if err != nil {
		return errToResult(err)
	}
	return ok(fmt.Sprintf("sent message %s to agent %s", m.ID, toID))
}

func (r *Registry) agentInbox(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		Agent    string `json:"agent"`
		Limit    int    `json:"limit"`
		MarkRead bool   `json:"mark_read"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	agentID, err := uuid.Parse(in.Agent)
	if err != nil {
		return fail("invalid agent")
	}

	msgs, err := r.bus.Inbox(ctx, cc.OrganizationID, agentID, in.Limit, false, in.MarkRead)
	if err != nil {
		return errToResult(err)
	}
	if len(msgs) == 0 {
		return ok("Inbox is empty.")
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] from=%s type=%s priority=%s\n%s\n\n", m.ID, m.FromAgentID, m.Type, m.Priority, string(m.Payload))
	}
	return ok(b.String())
}

func (r *Registry) taskCreate(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		AssignedTo  string `json:"assigned_to"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    int    `json:"priority"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	if in.Title == "" {
		return fail("title is required")
	}
	assignedTo, err := uuid.Parse(in.AssignedTo)
	if err != nil {
		return fail("invalid assigned_to")
	}
	priority := in.Priority
	if priority <= 0 {
		priority = 3
	}

	var desc *string
	if in.Description != "" {
		desc = &in.Description
	}

	t := &model.AgentTask{
		OrganizationID: cc.OrganizationID,
		AssignedTo:     assignedTo,
		CreatedBy:      cc.UserID,
		Title:          in.Title,
		Description:    desc,
		Priority:       priority,
	}
	if err := r.bus.CreateTask(ctx, t); err != nil {
		return errToResult(err)
	}
	return ok(fmt.Sprintf("created task %s for agent %s", t.ID, assignedTo))
}

func (r *Registry) taskUpdate(ctx context.Context, cc CallerContext, args json.RawMessage) (string, bool) {
	var in struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
		Result string `json:"result"`
	}
	if err := decode(args, &in); err != nil {
		return errToResult(err)
	}
	taskID, err := uuid.Parse(in.TaskID)
	if err != nil {
		return fail("invalid task_id")
	}
	status := model.TaskStatus(in.Status)
	switch status {
	case model.TaskPending, model.TaskInProgress, model.TaskDone, model.TaskFailed, model.TaskCancelled:
	default:
		return fail("invalid status")
	}
	var result *string
	if in.Result != "" {
		result = &in.Result
	}
	if err := r.bus.UpdateTaskStatus(ctx, taskID, status, result); err != nil {
		return errToResult(err)
	}
	return ok(fmt.Sprintf("task %s now %s", taskID, status))
}

func (r *Registry) health(ctx context.Context, cc CallerContext) (string, bool) {
	h, err := r.analytics.Health(ctx, cc.ProjectID)
	if err != nil {
		return errToResult(err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "health score: %d/100 across %d documents\n", h.Score, h.DocumentCount)
	if len(h.StaleDocuments) > 0 {
		b.WriteString("stale or critical:\n")
		for _, p := range h.StaleDocuments {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}
	return ok(b.String())
}

func (r *Registry) coverage(ctx context.Context, cc CallerContext) (string, bool) {
	snap, err := r.analytics.Coverage(ctx, cc.ProjectID, model.ScanManual, indexer.InferDocType)
	if err != nil {
		return errToResult(err)
	}
	return ok(fmt.Sprintf("%.1f%% coverage (%d/%d documented)\nbreakdown: %s",
		snap.CoveragePercentage*100, snap.TotalDocumented, snap.TotalDocumentable, string(snap.Breakdown)))
}

func (r *Registry) drift(ctx context.Context, cc CallerContext) (string, bool) {
	events, err := r.store.Activity.UnresolvedDrift(ctx, cc.ProjectID)
	if err != nil {
		return errToResult(apperr.Wrap(apperr.Internal, err, "failed to list drift events"))
	}
	if len(events) == 0 {
		return ok("No unresolved drift.")
	}
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "[%s] %s %s: %s\n", e.Severity, e.DriftType, e.FilePath, e.Description)
	}
	return ok(b.String())
}

// OpenSession is called by the transport on a new connection after
// auth.Verify succeeds, loading the caller's available accounts (§4.7
// step 4, §4.8 Open).
func (r *Registry) OpenSession(ctx context.Context, connectionID string, userID, defaultProjectID uuid.UUID) (*session.Session, error) {
	memberships, err := r.store.Projects.MembershipsForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load project memberships")
	}
	accounts := make([]session.Account, len(memberships))
	for i, m := range memberships {
		accounts[i] = session.Account{ProjectID: m.ProjectID, Role: m.Role}
	}
	return r.sessions.Open(connectionID, userID, defaultProjectID, accounts), nil
}

// Package model holds the entities of the system's data model (spec §3).
// Ownership is explicit and non-cyclic: Organization owns Projects and
// Agents; Project owns Documents and Proposals.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role is a ProjectMember's authority level within a project.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Tier controls per-day usage quotas and whether reranking is available.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
	TierTeam Tier = "team"
)

// Visibility controls whether a document is reachable from org-wide shared
// search (§4.5 read_document scope=org) or only within its own project.
type Visibility string

const (
	VisibilityProject Visibility = "project"
	VisibilityShared  Visibility = "shared"
)

// DocType classifies a document for coverage breakdown and template
// inventory purposes. The zero value means "uncategorized" and is inferred
// from the file path at sync time (§4.4 step 3, §4.14 coverage).
type DocType string

const (
	DocTypeArchitecture   DocType = "architecture"
	DocTypeTestingPattern DocType = "testing-pattern"
	DocTypeContract       DocType = "contract"
	DocTypeMeta           DocType = "meta"
	DocTypeTemplate       DocType = "template"
)

// Organization is the tenant boundary for agents, messages, tasks, and
// shared documents.
type Organization struct {
	ID          uuid.UUID `db:"id"`
	Slug        string    `db:"slug"`
	Name        string    `db:"name"`
	OwnerUserID uuid.UUID `db:"owner_user_id"`
	CreatedAt   time.Time `db:"created_at"`
}

// Project is the tenant boundary for documents and proposals. Every tool
// call operates within exactly one active project.
type Project struct {
	ID               uuid.UUID `db:"id"`
	Slug             string    `db:"slug"`
	OrganizationID   uuid.UUID `db:"organization_id"`
	OwnerUserID      uuid.UUID `db:"owner_user_id"`
	IsPublic         bool      `db:"is_public"`
	RequireApproval  bool      `db:"require_approval"`
	Tier             Tier      `db:"tier"`
	CreatedAt        time.Time `db:"created_at"`
}

// User cross-references Projects via ProjectMember.
type User struct {
	ID               uuid.UUID  `db:"id"`
	Email            string     `db:"email"`
	DefaultProjectID *uuid.UUID `db:"default_project_id"`
}

// ProjectMember is the composite-key join between a User and a Project.
type ProjectMember struct {
	ProjectID uuid.UUID `db:"project_id"`
	UserID    uuid.UUID `db:"user_id"`
	Role      Role      `db:"role"`
}

// Document is a single file-backed unit of knowledge within a project.
// Invariant: (ProjectID, FilePath) is unique. Checksum matches Content at
// rest. Version increments on every successful content change.
type Document struct {
	ID          uuid.UUID  `db:"id"`
	ProjectID   uuid.UUID  `db:"project_id"`
	FilePath    string     `db:"file_path"`
	Title       string     `db:"title"`
	Content     string     `db:"content"`
	Checksum    string     `db:"checksum"` // md5(Content)
	DocType     *DocType   `db:"doc_type"`
	Visibility  Visibility `db:"visibility"`
	Version     int        `db:"version"`
	LastUpdated time.Time  `db:"last_updated"`
	AgentID     *uuid.UUID `db:"agent_id"`
}

// ChunkMetadata is the free-form metadata attached to a chunk: chunk
// position, source language (code chunks), line span, enclosing construct,
// and provenance.
type ChunkMetadata struct {
	ChunkIndex    int     `json:"chunk_index"`
	Language      string  `json:"language,omitempty"`
	StartLine     int     `json:"start_line,omitempty"`
	EndLine       int     `json:"end_line,omitempty"`
	ParentContext string  `json:"parent_context,omitempty"`
	Source        string  `json:"source,omitempty"`
	ContentType   string  `json:"content_type,omitempty"`
}

// DocumentChunk is the unit of embedding and retrieval (§3 "DocumentChunk
// (embedding)"). Its ID is stable across re-syncs as long as its content
// hash is unchanged, so external references (chunk_id) remain valid.
type DocumentChunk struct {
	ID             uuid.UUID     `db:"id"`
	DocumentID     uuid.UUID     `db:"document_id"`
	ContentChunk   string        `db:"content_chunk"`
	ChunkHash      string        `db:"chunk_hash"` // md5(ContentChunk)
	Embedding      []float32     `db:"embedding"`
	EmbeddingModel string        `db:"embedding_model"`
	Metadata       ChunkMetadata `db:"metadata"`
}

// ProposalStatus is a node in the Proposal lifecycle DAG: pending is the
// only state a new proposal starts in, and approved/rejected are terminal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// Proposal is a pending edit to a document (or a new document) held for
// admin approval. DocumentID == nil means "new document".
type Proposal struct {
	ID               uuid.UUID      `db:"id"`
	ProjectID        uuid.UUID      `db:"project_id"`
	DocumentID       *uuid.UUID     `db:"document_id"`
	FilePath         string         `db:"file_path"`
	OriginalContent  *string        `db:"original_content"`
	ProposedContent  string         `db:"proposed_content"`
	Reasoning        string         `db:"reasoning"`
	EvidenceSnippet  string         `db:"evidence_snippet"`
	Status           ProposalStatus `db:"status"`
	AgentID          *uuid.UUID     `db:"agent_id"`
	Signature        *string        `db:"signature"`
	CreatedAt        time.Time      `db:"created_at"`
}

// AgentStatus is the lifecycle state of a registered agent.
type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
	AgentArchived AgentStatus = "archived"
)

// Agent is a registered AI participant within an organization, able to
// exchange messages/tasks and submit proposals.
type Agent struct {
	ID             uuid.UUID       `db:"id"`
	OrganizationID uuid.UUID       `db:"organization_id"`
	AgentName      string          `db:"agent_name"` // unique within org
	DisplayName    string          `db:"display_name"`
	Instance       string          `db:"instance"`
	Model          string          `db:"model"`
	Role           string          `db:"role"`
	Capabilities   json.RawMessage `db:"capabilities"`
	Status         AgentStatus     `db:"status"`
	LastSeenAt     *time.Time      `db:"last_seen_at"`
	Metadata       json.RawMessage `db:"metadata"`
}

// AssignmentRole is an Agent's authority over a specific Project.
type AssignmentRole string

const (
	AssignmentOwner      AssignmentRole = "owner"
	AssignmentContributor AssignmentRole = "contributor"
	AssignmentReadonly   AssignmentRole = "readonly"
)

// AgentProjectAssignment is a many-to-many join between Agent and Project.
type AgentProjectAssignment struct {
	AgentID    uuid.UUID      `db:"agent_id"`
	ProjectID  uuid.UUID      `db:"project_id"`
	Role       AssignmentRole `db:"role"`
	AssignedBy uuid.UUID      `db:"assigned_by"`
}

// MessageType distinguishes the kind of envelope on the Agent Bus.
type MessageType string

const (
	MessageKindMessage  MessageType = "message"
	MessageKindTask     MessageType = "task"
	MessageKindResult   MessageType = "result"
	MessageKindAlert    MessageType = "alert"
	MessageKindKnowledge MessageType = "knowledge"
	MessageKindCurator  MessageType = "curator"
)

// Priority orders an AgentMessage or AgentTask.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// MessageStatus is the delivery state of an AgentMessage.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// AgentMessage is an org-scoped, signed envelope between two agents.
type AgentMessage struct {
	ID             uuid.UUID       `db:"id"`
	OrganizationID uuid.UUID       `db:"organization_id"`
	FromAgentID    uuid.UUID       `db:"from_agent_id"`
	ToAgentID      uuid.UUID       `db:"to_agent_id"`
	Type           MessageType     `db:"type"`
	Priority       Priority        `db:"priority"`
	Channel        *string         `db:"channel"`
	ReplyTo        *uuid.UUID      `db:"reply_to"`
	Payload        json.RawMessage `db:"payload"`
	Signature      string          `db:"signature"` // truncated HMAC-SHA256, 16 hex chars
	Status         MessageStatus   `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
	ReadAt         *time.Time      `db:"read_at"`
}

// TaskStatus is a node in the AgentTask lifecycle.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// AgentTask is an org-scoped unit of delegated work between agents.
type AgentTask struct {
	ID             uuid.UUID       `db:"id"`
	OrganizationID uuid.UUID       `db:"organization_id"`
	AssignedTo     uuid.UUID       `db:"assigned_to"`
	CreatedBy      uuid.UUID       `db:"created_by"`
	Title          string          `db:"title"`
	Description    *string         `db:"description"`
	Priority       int             `db:"priority"` // 1 = highest
	Deadline       *time.Time      `db:"deadline"`
	Payload        json.RawMessage `db:"payload"`
	Status         TaskStatus      `db:"status"`
	Result         *string         `db:"result"`
	StartedAt      *time.Time      `db:"started_at"`
	CompletedAt    *time.Time      `db:"completed_at"`
}

// EventType enumerates the allowed ActivityEvent.EventType values (§4.13).
type EventType string

const (
	EventSearch               EventType = "search"
	EventRead                 EventType = "read"
	EventReadChunks           EventType = "read_chunks"
	EventPropose              EventType = "propose"
	EventGenesis              EventType = "genesis"
	EventPatternMatch         EventType = "pattern_match"
	EventPatternInject        EventType = "pattern_inject"
	EventDriftDetected        EventType = "drift_detected"
	EventCoverageScan         EventType = "coverage_scan"
	EventProjectCreate        EventType = "project_create"
	EventProjectUpdate        EventType = "project_update"
	EventProjectDelete        EventType = "project_delete"
	EventAgentRegister        EventType = "agent_register"
	EventAgentUpdate          EventType = "agent_update"
	EventAgentRemove          EventType = "agent_remove"
	EventAgentAssignProject   EventType = "agent_assign_project"
	EventAgentUnassignProject EventType = "agent_unassign_project"
	EventAgentMessageSent     EventType = "agent_message_sent"
	EventAgentInboxRead       EventType = "agent_inbox_read"
	EventReindex              EventType = "reindex"
	EventAgentTaskCreated     EventType = "agent_task_created"
	EventAgentTaskUpdated     EventType = "agent_task_updated"
)

// ActivityEvent is an append-only record of one tool or pipeline action.
type ActivityEvent struct {
	ID              uuid.UUID       `db:"id"`
	ProjectID       uuid.UUID       `db:"project_id"`
	UserID          *uuid.UUID      `db:"user_id"`
	EventType       EventType       `db:"event_type"`
	Query           *string         `db:"query"`
	DocumentID      *uuid.UUID      `db:"document_id"`
	ToolName        *string         `db:"tool_name"`
	PatternsMatched *int            `db:"patterns_matched"`
	DriftDetected   bool            `db:"drift_detected"`
	ResultCount     *int            `db:"result_count"`
	RelevanceScore  *float64        `db:"relevance_score"`
	ResponseTimeMs  *int            `db:"response_time_ms"`
	FilePath        *string         `db:"file_path"`
	Context         json.RawMessage `db:"context"`
	CreatedAt       time.Time       `db:"created_at"`
}

// DriftSeverity grades a DriftEvent.
type DriftSeverity string

const (
	DriftInfo     DriftSeverity = "info"
	DriftWarning  DriftSeverity = "warning"
	DriftCritical DriftSeverity = "critical"
)

// DriftType classifies the kind of discrepancy a DriftEvent records.
type DriftType string

const (
	DriftCodeDiverged     DriftType = "code_diverged"
	DriftMissingDoc       DriftType = "missing_doc"
	DriftStaleDoc         DriftType = "stale_doc"
	DriftPatternViolation DriftType = "pattern_violation"
)

// DriftEvent records a detected discrepancy between code and documented
// pattern.
type DriftEvent struct {
	ID              uuid.UUID     `db:"id"`
	ProjectID       uuid.UUID     `db:"project_id"`
	DocumentID      *uuid.UUID    `db:"document_id"`
	Severity        DriftSeverity `db:"severity"`
	DriftType       DriftType     `db:"drift_type"`
	FilePath        string        `db:"file_path"`
	DocPath         *string       `db:"doc_path"`
	Description     string        `db:"description"`
	ExpectedPattern *string       `db:"expected_pattern"`
	ActualCode      *string       `db:"actual_code"`
	Resolved        bool          `db:"resolved"`
	ResolvedAt      *time.Time    `db:"resolved_at"`
	ResolvedBy      *uuid.UUID    `db:"resolved_by"`
	DetectedAt      time.Time     `db:"detected_at"`
}

// ScanType distinguishes what triggered a CoverageSnapshot.
type ScanType string

const (
	ScanManual    ScanType = "manual"
	ScanScheduled ScanType = "scheduled"
	ScanGenesis   ScanType = "genesis"
)

// CoverageSnapshot is an append-only point-in-time documentation coverage
// measurement for a project.
type CoverageSnapshot struct {
	ID                 uuid.UUID       `db:"id"`
	ProjectID          uuid.UUID       `db:"project_id"`
	TotalDocumentable  int             `db:"total_documentable"`
	TotalDocumented    int             `db:"total_documented"`
	CoveragePercentage float64         `db:"coverage_percentage"`
	Breakdown          json.RawMessage `db:"breakdown"` // keyed by doc_type
	ScanType           ScanType        `db:"scan_type"`
	CreatedAt          time.Time       `db:"created_at"`
}

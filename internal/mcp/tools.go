package mcp

func toolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "quoth_search_index",
			Description: "Search the active project's documentation index. Embeds the query, runs an approximate-nearest-neighbor search over indexed chunks, and (tier permitting) reranks before returning results.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "Search text, up to 1000 characters.", "maxLength": 1000},
					"scope": map[string]any{"type": "string", "enum": []string{"project", "shared", "org"}, "description": "Accepted but not applied: every search covers only the active project's documents."},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "quoth_read_doc",
			Description: "Read a full document by exact file path or title. On a miss, falls back to a fuzzy substring match and (scope=org) a shared-document search across the organization.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"doc_id": map[string]any{"type": "string", "maxLength": 500},
					"scope":  map[string]any{"type": "string", "enum": []string{"project", "org"}},
				},
				"required": []string{"doc_id"},
			},
		},
		{
			Name:        "quoth_read_chunks",
			Description: "Read up to 20 chunks by id, grouped by document and ordered by chunk index.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"chunk_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 1, "maxItems": 20},
				},
				"required": []string{"chunk_ids"},
			},
		},
		{
			Name:        "quoth_propose_update",
			Description: "Propose a new or updated document. Direct-applies when the project does not require approval; otherwise creates a pending proposal for an admin to review.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"doc_id":           map[string]any{"type": "string", "description": "file_path of the document to create or update."},
					"new_content":      map[string]any{"type": "string", "maxLength": 500000},
					"evidence_snippet": map[string]any{"type": "string", "maxLength": 10000},
					"reasoning":        map[string]any{"type": "string", "maxLength": 5000},
					"agent_id":         map[string]any{"type": "string"},
					"source_instance":  map[string]any{"type": "string"},
					"visibility":       map[string]any{"type": "string", "enum": []string{"project", "shared"}},
				},
				"required": []string{"doc_id", "new_content", "reasoning"},
			},
		},
		{
			Name:        "quoth_list_templates",
			Description: "List documents categorized as templates in the active project. The category argument is accepted but not applied; every template is listed.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"category": map[string]any{"type": "string", "enum": []string{"all", "architecture", "patterns", "contracts"}},
				},
			},
		},
		{
			Name:        "quoth_get_template",
			Description: "Fetch one template's content by its document id.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"template_id": map[string]any{"type": "string"}},
				"required":   []string{"template_id"},
			},
		},
		{
			Name:        "quoth_list_accounts",
			Description: "List the connection's available project accounts and the currently active one.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "quoth_switch_account",
			Description: "Switch the connection's active project to another account the caller has access to.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"project_id": map[string]any{"type": "string"}},
				"required":   []string{"project_id"},
			},
		},
		{
			Name:        "quoth_guidelines",
			Description: "Return canonical authoring/review guideline text for the given mode.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"mode": map[string]any{"type": "string", "enum": []string{"code", "review", "document"}},
					"full": map[string]any{"type": "boolean"},
				},
				"required": []string{"mode"},
			},
		},
		{
			Name:        "quoth_project_create",
			Description: "Create a new project, auto-assigning the caller as admin. Creates an organization for the caller if they own none yet.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string"},
					"slug":        map[string]any{"type": "string", "pattern": "^[a-z0-9-]+$"},
					"github_repo": map[string]any{"type": "string"},
					"is_public":   map[string]any{"type": "boolean"},
				},
				"required": []string{"name", "slug"},
			},
		},
		{
			Name:        "quoth_project_update",
			Description: "Update a project's visibility, approval policy, or tier.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"is_public":        map[string]any{"type": "boolean"},
					"require_approval": map[string]any{"type": "boolean"},
					"tier":             map[string]any{"type": "string", "enum": []string{"free", "pro", "team"}},
				},
			},
		},
		{
			Name:        "quoth_project_delete",
			Description: "Permanently delete the active project and all of its documents, chunks, and proposals.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "quoth_genesis",
			Description: "Return the Genesis Architect persona prompt, instructing the calling AI to scan the repository and submit an initial documentation set via propose_update.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"focus":         map[string]any{"type": "string", "enum": []string{"full_scan", "update_only"}},
					"language_hint": map[string]any{"type": "string"},
				},
				"required": []string{"focus"},
			},
		},
		{
			Name:        "quoth_agent_register",
			Description: "Register a new agent within the active project's organization.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"agent_name":   map[string]any{"type": "string"},
					"instance":     map[string]any{"type": "string"},
					"display_name": map[string]any{"type": "string"},
					"model":        map[string]any{"type": "string"},
					"role":         map[string]any{"type": "string"},
				},
				"required": []string{"agent_name", "instance"},
			},
		},
		{
			Name:        "quoth_agent_update",
			Description: "Update a registered agent's profile or status.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"agent_id":     map[string]any{"type": "string"},
					"display_name": map[string]any{"type": "string"},
					"role":         map[string]any{"type": "string"},
					"status":       map[string]any{"type": "string", "enum": []string{"active", "inactive", "archived"}},
				},
				"required": []string{"agent_id"},
			},
		},
		{
			Name:        "quoth_agent_remove",
			Description: "Archive an agent, preserving its message and task history.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"agent_id": map[string]any{"type": "string"}},
				"required":   []string{"agent_id"},
			},
		},
		{
			Name:        "quoth_agent_list",
			Description: "List every agent registered in the active project's organization.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "quoth_agent_assign_project",
			Description: "Assign or update an agent's role on the active project.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"agent_id": map[string]any{"type": "string"},
					"role":     map[string]any{"type": "string", "enum": []string{"owner", "contributor", "readonly"}},
				},
				"required": []string{"agent_id", "role"},
			},
		},
		{
			Name:        "quoth_agent_unassign_project",
			Description: "Remove an agent's assignment from the active project.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"agent_id": map[string]any{"type": "string"}},
				"required":   []string{"agent_id"},
			},
		},
		{
			Name:        "quoth_agent_message",
			Description: "Send a signed message to another agent in the organization.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"to":       map[string]any{"type": "string"},
					"message":  map[string]any{"type": "string"},
					"type":     map[string]any{"type": "string", "enum": []string{"message", "task", "result", "alert", "knowledge", "curator"}},
					"priority": map[string]any{"type": "string", "enum": []string{"low", "normal", "high", "urgent"}},
					"channel":  map[string]any{"type": "string"},
					"reply_to": map[string]any{"type": "string"},
				},
				"required": []string{"to", "message"},
			},
		},
		{
			Name:        "quoth_agent_inbox",
			Description: "Read an agent's message inbox, optionally marking the returned set as read.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"agent":     map[string]any{"type": "string"},
					"limit":     map[string]any{"type": "integer"},
					"status":    map[string]any{"type": "string"},
					"mark_read": map[string]any{"type": "boolean"},
				},
				"required": []string{"agent"},
			},
		},
		{
			Name:        "quoth_task_create",
			Description: "Delegate a task to another agent.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"assigned_to": map[string]any{"type": "string"},
					"title":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"priority":    map[string]any{"type": "integer"},
				},
				"required": []string{"assigned_to", "title"},
			},
		},
		{
			Name:        "quoth_task_update",
			Description: "Transition a delegated task's status.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_id": map[string]any{"type": "string"},
					"status":  map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "done", "failed", "cancelled"}},
					"result":  map[string]any{"type": "string"},
				},
				"required": []string{"task_id", "status"},
			},
		},
		{
			Name:        "quoth_health",
			Description: "Report the active project's weighted documentation health score and the documents driving it down.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "quoth_coverage",
			Description: "Run a coverage scan over the active project and return the per-doc-type breakdown and embedding coverage percentage.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "quoth_drift",
			Description: "List unresolved drift events for the active project, most severe and most recent first.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
	}
}

package linear

// IssueFilter narrows an issue listing. Empty fields do not filter.
type IssueFilter struct {
	TeamID     string
	AssigneeID string
	StateID    string
	ProjectID  string
}

func (f IssueFilter) variables() map[string]any {
	filter := map[string]any{}

	if f.TeamID != "" {
		filter["team"] = map[string]any{"id": map[string]any{"eq": f.TeamID}}
	}

	if f.AssigneeID != "" {
		filter["assignee"] = map[string]any{"id": map[string]any{"eq": f.AssigneeID}}
	}

	if f.StateID != "" {
		filter["state"] = map[string]any{"id": map[string]any{"eq": f.StateID}}
	}

	if f.ProjectID != "" {
		filter["project"] = map[string]any{"id": map[string]any{"eq": f.ProjectID}}
	}

	return map[string]any{"filter": filter}
}

// IssuesRequest returns the paginated issue listing for filter.
func IssuesRequest(filter IssueFilter) PageRequest {
	nodes, pageInfo := catalogPaths("issues")

	return PageRequest{
		Document: `query Issues($filter: IssueFilter, ` + pageArgs + `) {
  issues(filter: $filter, ` + pageArgsUse + `) {
    nodes {
      id identifier title priority createdAt updatedAt
      state { id name type }
      assignee { id name email }
      team { id key }
      project { id name }
      labels { nodes { id name } }
    }
    ` + pageInfoSelection + `
  }
}`,
		Variables:    filter.variables(),
		NodesPath:    nodes,
		PageInfoPath: pageInfo,
	}
}

// CreateLabelDocument creates an issue label. The labels cache must be
// cleared after it succeeds.
const CreateLabelDocument = `mutation CreateLabel($input: IssueLabelCreateInput!) {
  issueLabelCreate(input: $input) {
    success
    issueLabel { id name color team { id } }
  }
}`

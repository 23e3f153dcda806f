package linear

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/linctl/internal/constants"
)

const pageInfoSelection = `pageInfo { hasNextPage hasPreviousPage startCursor endCursor }`

const pageArgs = `$first: Int, $after: String, $last: Int, $before: String`

const pageArgsUse = `first: $first, after: $after, last: $last, before: $before`

func catalogPaths(root string) ([]string, []string) {
	return []string{root, "nodes"}, []string{root, "pageInfo"}
}

func listHint(plural string) string {
	return fmt.Sprintf("run 'linctl list %s' to see available %s", plural, plural)
}

// TeamResolver resolves a team key or name. Key matches win over name matches.
type TeamResolver struct{}

func (TeamResolver) Entity() string       { return "team" }
func (TeamResolver) CacheType() CacheType { return CacheTypeTeams }
func (TeamResolver) CacheKey() string     { return "" }
func (TeamResolver) NotFoundHint() string { return listHint("teams") }

func (TeamResolver) FilterQuery(input string) (ResolverQuery, bool) {
	return ResolverQuery{
		Document: `query TeamLookup($filter: String!) {
  teams(filter: { or: [{ key: { eqIgnoreCase: $filter } }, { name: { eqIgnoreCase: $filter } }] }) {
    nodes { id key name }
  }
}`,
		Variables: map[string]any{"filter": input},
		NodesPath: []string{"teams", "nodes"},
	}, true
}

func (TeamResolver) CatalogQuery() PageRequest {
	nodes, pageInfo := catalogPaths("teams")

	return PageRequest{
		Document: `query Teams(` + pageArgs + `) {
  teams(` + pageArgsUse + `) {
    nodes { id key name }
    ` + pageInfoSelection + `
  }
}`,
		NodesPath:    nodes,
		PageInfoPath: pageInfo,
	}
}

func (TeamResolver) Match(nodes []any, input string) (string, bool) {
	return MatchFields(nodes, input, "key", "name")
}

// UserResolver resolves an email, display name or name. "me" resolves to the
// authenticated user through the viewer query and the isMe flag.
type UserResolver struct{}

const selfAlias = "me"

func (UserResolver) Entity() string       { return "user" }
func (UserResolver) CacheType() CacheType { return CacheTypeUsers }
func (UserResolver) CacheKey() string     { return "" }
func (UserResolver) NotFoundHint() string { return listHint("users") }

func (UserResolver) FilterQuery(input string) (ResolverQuery, bool) {
	if strings.EqualFold(input, selfAlias) {
		return ResolverQuery{
			Document:  `query Viewer { viewer { id name displayName email isMe } }`,
			NodesPath: []string{"viewer"},
		}, true
	}

	return ResolverQuery{
		Document: `query UserLookup($filter: String!) {
  users(filter: { or: [{ email: { eqIgnoreCase: $filter } }, { displayName: { eqIgnoreCase: $filter } }, { name: { eqIgnoreCase: $filter } }] }) {
    nodes { id name displayName email isMe }
  }
}`,
		Variables: map[string]any{"filter": input},
		NodesPath: []string{"users", "nodes"},
	}, true
}

func (UserResolver) CatalogQuery() PageRequest {
	nodes, pageInfo := catalogPaths("users")

	return PageRequest{
		Document: `query Users(` + pageArgs + `) {
  users(` + pageArgsUse + `) {
    nodes { id name displayName email isMe }
    ` + pageInfoSelection + `
  }
}`,
		NodesPath:    nodes,
		PageInfoPath: pageInfo,
	}
}

func (UserResolver) Match(nodes []any, input string) (string, bool) {
	if strings.EqualFold(input, selfAlias) {
		for _, node := range nodes {
			if LookupBool(node, "isMe") {
				if id := LookupString(node, "id"); id != "" {
					return id, true
				}
			}
		}

		return "", false
	}

	return MatchFields(nodes, input, "email", "displayName", "name")
}

// StatusResolver resolves a workflow state name within one team. Its catalog
// is cached per team under the team ID.
type StatusResolver struct {
	TeamID string
}

func (StatusResolver) Entity() string       { return "status" }
func (StatusResolver) CacheType() CacheType { return CacheTypeStatuses }
func (s StatusResolver) CacheKey() string   { return s.TeamID }
func (StatusResolver) NotFoundHint() string { return listHint("statuses") + " for the team" }

func (s StatusResolver) FilterQuery(input string) (ResolverQuery, bool) {
	return ResolverQuery{
		Document: `query StatusLookup($filter: String!, $teamId: ID!) {
  workflowStates(filter: { team: { id: { eq: $teamId } }, name: { eqIgnoreCase: $filter } }) {
    nodes { id name type position }
  }
}`,
		Variables: map[string]any{"filter": input, "teamId": s.TeamID},
		NodesPath: []string{"workflowStates", "nodes"},
	}, true
}

func (s StatusResolver) CatalogQuery() PageRequest {
	nodes, pageInfo := catalogPaths("workflowStates")

	return PageRequest{
		Document: `query Statuses($teamId: ID!, ` + pageArgs + `) {
  workflowStates(filter: { team: { id: { eq: $teamId } } }, ` + pageArgsUse + `) {
    nodes { id name type position }
    ` + pageInfoSelection + `
  }
}`,
		Variables:    map[string]any{"teamId": s.TeamID},
		NodesPath:    nodes,
		PageInfoPath: pageInfo,
	}
}

func (StatusResolver) Match(nodes []any, input string) (string, bool) {
	return MatchFields(nodes, input, "name")
}

// LabelResolver resolves a label name. With TeamID set, labels owned by other
// teams are ignored; workspace labels always qualify.
type LabelResolver struct {
	TeamID string
}

func (LabelResolver) Entity() string       { return "label" }
func (LabelResolver) CacheType() CacheType { return CacheTypeLabels }
func (LabelResolver) CacheKey() string     { return "" }
func (LabelResolver) NotFoundHint() string { return listHint("labels") }

func (LabelResolver) FilterQuery(input string) (ResolverQuery, bool) {
	return ResolverQuery{
		Document: `query LabelLookup($filter: String!) {
  issueLabels(filter: { name: { eqIgnoreCase: $filter } }) {
    nodes { id name team { id } }
  }
}`,
		Variables: map[string]any{"filter": input},
		NodesPath: []string{"issueLabels", "nodes"},
	}, true
}

func (LabelResolver) CatalogQuery() PageRequest {
	nodes, pageInfo := catalogPaths("issueLabels")

	return PageRequest{
		Document: `query Labels(` + pageArgs + `) {
  issueLabels(` + pageArgsUse + `) {
    nodes { id name team { id } }
    ` + pageInfoSelection + `
  }
}`,
		NodesPath:    nodes,
		PageInfoPath: pageInfo,
	}
}

func (l LabelResolver) Match(nodes []any, input string) (string, bool) {
	if l.TeamID == "" {
		return MatchFields(nodes, input, "name")
	}

	scoped := make([]any, 0, len(nodes))

	for _, node := range nodes {
		owner := LookupString(node, "team", "id")
		if owner == "" || owner == l.TeamID {
			scoped = append(scoped, node)
		}
	}

	return MatchFields(scoped, input, "name")
}

// ProjectResolver resolves a project name or slug.
type ProjectResolver struct{}

func (ProjectResolver) Entity() string       { return "project" }
func (ProjectResolver) CacheType() CacheType { return CacheTypeProjects }
func (ProjectResolver) CacheKey() string     { return "" }
func (ProjectResolver) NotFoundHint() string { return listHint("projects") }

func (ProjectResolver) FilterQuery(input string) (ResolverQuery, bool) {
	return ResolverQuery{
		Document: `query ProjectLookup($filter: String!) {
  projects(filter: { or: [{ name: { eqIgnoreCase: $filter } }, { slugId: { eq: $filter } }] }) {
    nodes { id name slugId }
  }
}`,
		Variables: map[string]any{"filter": input},
		NodesPath: []string{"projects", "nodes"},
	}, true
}

func (ProjectResolver) CatalogQuery() PageRequest {
	nodes, pageInfo := catalogPaths("projects")

	return PageRequest{
		Document: `query Projects(` + pageArgs + `) {
  projects(` + pageArgsUse + `) {
    nodes { id name slugId }
    ` + pageInfoSelection + `
  }
}`,
		NodesPath:    nodes,
		PageInfoPath: pageInfo,
	}
}

func (ProjectResolver) Match(nodes []any, input string) (string, bool) {
	return MatchFields(nodes, input, "name", "slugId")
}

// ViewResolver resolves a custom view name.
type ViewResolver struct{}

func (ViewResolver) Entity() string       { return "view" }
func (ViewResolver) CacheType() CacheType { return CacheTypeViews }
func (ViewResolver) CacheKey() string     { return "" }
func (ViewResolver) NotFoundHint() string { return listHint("views") }

func (ViewResolver) FilterQuery(input string) (ResolverQuery, bool) {
	return ResolverQuery{
		Document: `query ViewLookup($filter: String!) {
  customViews(filter: { name: { eqIgnoreCase: $filter } }) {
    nodes { id name }
  }
}`,
		Variables: map[string]any{"filter": input},
		NodesPath: []string{"customViews", "nodes"},
	}, true
}

func (ViewResolver) CatalogQuery() PageRequest {
	nodes, pageInfo := catalogPaths("customViews")

	return PageRequest{
		Document: `query Views(` + pageArgs + `) {
  customViews(` + pageArgsUse + `) {
    nodes { id name }
    ` + pageInfoSelection + `
  }
}`,
		NodesPath:    nodes,
		PageInfoPath: pageInfo,
	}
}

func (ViewResolver) Match(nodes []any, input string) (string, bool) {
	return MatchFields(nodes, input, "name")
}

// entityAliases maps accepted CLI spellings to a canonical entity name.
var entityAliases = map[string]string{
	"team": "team", "teams": "team",
	"user": "user", "users": "user",
	"status": "status", "statuses": "status", "state": "status", "states": "status",
	"label": "label", "labels": "label",
	"project": "project", "projects": "project",
	"view": "view", "views": "view",
}

// EntityNames lists the canonical entity names.
func EntityNames() []string {
	return []string{"team", "user", "status", "label", "project", "view"}
}

// NeedsTeam reports whether entity must be scoped to a team.
func NeedsTeam(entity string) bool {
	return entityAliases[strings.ToLower(entity)] == "status"
}

// NewEntityResolver returns the resolver for a CLI entity name. teamID scopes
// statuses (required) and labels (optional).
func NewEntityResolver(entity, teamID string) (EntityResolver, error) {
	switch entityAliases[strings.ToLower(entity)] {
	case "team":
		return TeamResolver{}, nil
	case "user":
		return UserResolver{}, nil
	case "status":
		if teamID == "" {
			return nil, constants.ErrTeamRequired
		}

		return StatusResolver{TeamID: teamID}, nil
	case "label":
		return LabelResolver{TeamID: teamID}, nil
	case "project":
		return ProjectResolver{}, nil
	case "view":
		return ViewResolver{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", constants.ErrUnknownEntity, entity)
	}
}

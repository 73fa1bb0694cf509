package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const commitFields = `
fragment commitFields on Commit {
  oid
  message
  additions
  deletions
  changedFiles
  parents(first: 3) { nodes { oid } }
  author { name email avatarUrl date }
  committer { name email date }
}`

const branchesQuery = `
query($owner: String!, $repo: String!, $cursor: String, $limit: Int!) {
  repository(owner: $owner, name: $repo) {
    refs(refPrefix: "refs/heads/", first: $limit, after: $cursor, orderBy: {field: TAG_COMMIT_DATE, direction: DESC}) {
      pageInfo { endCursor hasNextPage }
      nodes {
        name
        target { oid ... on Commit { committedDate } }
      }
    }
  }
}`

const tagsQuery = `
query($owner: String!, $repo: String!, $cursor: String, $limit: Int!) {
  repository(owner: $owner, name: $repo) {
    refs(refPrefix: "refs/tags/", first: $limit, after: $cursor, orderBy: {field: TAG_COMMIT_DATE, direction: DESC}) {
      pageInfo { endCursor hasNextPage }
      nodes {
        name
        target {
          oid
          ... on Commit { message committedDate }
          ... on Tag {
            message
            tagger { date }
            target { oid ... on Commit { committedDate } }
          }
        }
      }
    }
  }
}`

const historyQuery = `
query($owner: String!, $repo: String!, $ref: String!, $path: String, $cursor: String, $limit: Int!, $since: GitTimestamp, $author: CommitAuthor) {
  repository(owner: $owner, name: $repo) {
    object(expression: $ref) {
      ... on Commit {
        history(first: $limit, after: $cursor, path: $path, since: $since, author: $author) {
          pageInfo { endCursor hasNextPage }
          nodes { ...commitFields }
        }
      }
    }
  }
}` + commitFields

const blameQuery = `
query($owner: String!, $repo: String!, $ref: String!, $path: String!) {
  repository(owner: $owner, name: $repo) {
    object(expression: $ref) {
      ... on Commit {
        oid
        blame(path: $path) {
          ranges {
            startingLine
            endingLine
            commit { ...commitFields }
          }
        }
      }
    }
  }
}` + commitFields

const resolveQuery = `
query($owner: String!, $repo: String!, $ref: String!) {
  repository(owner: $owner, name: $repo) {
    object(expression: $ref) { oid }
  }
}`

const resolvePathQuery = `
query($owner: String!, $repo: String!, $ref: String!, $path: String!) {
  repository(owner: $owner, name: $repo) {
    object(expression: $ref) {
      ... on Commit {
        history(first: 1, path: $path) { nodes { oid } }
      }
    }
  }
}`

const repositoryQuery = `
query($owner: String!, $repo: String!) {
  repository(owner: $owner, name: $repo) {
    defaultBranchRef { name target { oid } }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type pageInfo struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

func (p pageInfo) paging() *Paging {
	if !p.HasNextPage {
		return nil
	}
	return &Paging{Cursor: p.EndCursor, More: true}
}

type gqlIdentity struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatarUrl"`
	Date      time.Time `json:"date"`
}

func (i gqlIdentity) identity() Identity {
	return Identity{Name: i.Name, Email: i.Email, Date: i.Date, AvatarURL: i.AvatarURL}
}

type gqlCommit struct {
	OID          string `json:"oid"`
	Message      string `json:"message"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
	ChangedFiles int    `json:"changedFiles"`
	Parents      struct {
		Nodes []struct {
			OID string `json:"oid"`
		} `json:"nodes"`
	} `json:"parents"`
	Author    gqlIdentity `json:"author"`
	Committer gqlIdentity `json:"committer"`
}

func (c gqlCommit) commit() Commit {
	out := Commit{
		SHA:          c.OID,
		Message:      c.Message,
		Author:       c.Author.identity(),
		Committer:    c.Committer.identity(),
		Additions:    c.Additions,
		Deletions:    c.Deletions,
		ChangedFiles: c.ChangedFiles,
	}
	for _, p := range c.Parents.Nodes {
		out.Parents = append(out.Parents, p.OID)
	}
	return out
}

// graphql posts query and decodes the data member into out. A NOT_FOUND
// error, or a null repository, becomes a 404 *HTTPError.
func (g *GitHub) graphql(ctx context.Context, query string, vars map[string]any, out any) error {
	req, err := g.client.NewRequest(http.MethodPost, g.graphqlURL, graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("building graphql request: %w", err)
	}

	var resp graphqlResponse
	if _, err := g.client.Do(ctx, req, &resp); err != nil {
		return classify(ctx, err)
	}

	if len(resp.Errors) > 0 {
		e := resp.Errors[0]
		he := &HTTPError{StatusCode: http.StatusUnprocessableEntity, Message: e.Message}
		switch e.Type {
		case "NOT_FOUND":
			he.StatusCode = http.StatusNotFound
		case "FORBIDDEN":
			he.StatusCode = http.StatusForbidden
		case "RATE_LIMITED":
			he.StatusCode = http.StatusForbidden
			he.RateLimited = true
		}
		return he
	}

	if err := json.Unmarshal(resp.Data, out); err != nil {
		return &HTTPError{Message: "malformed graphql response", Err: err}
	}
	return nil
}

func notFound(format string, args ...any) error {
	return &HTTPError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func repoVars(repo Repo) map[string]any {
	return map[string]any{"owner": repo.Owner, "repo": repo.Name}
}

func pageVars(vars map[string]any, opts PageOptions) map[string]any {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	vars["limit"] = limit
	if opts.Cursor != "" {
		vars["cursor"] = opts.Cursor
	} else {
		vars["cursor"] = nil
	}
	return vars
}

type refNode struct {
	Name   string `json:"name"`
	Target struct {
		OID           string    `json:"oid"`
		Message       string    `json:"message"`
		CommittedDate time.Time `json:"committedDate"`
		Tagger        *struct {
			Date time.Time `json:"date"`
		} `json:"tagger"`
		Target *struct {
			OID           string    `json:"oid"`
			CommittedDate time.Time `json:"committedDate"`
		} `json:"target"`
	} `json:"target"`
}

type refsData struct {
	Repository *struct {
		Refs struct {
			PageInfo pageInfo  `json:"pageInfo"`
			Nodes    []refNode `json:"nodes"`
		} `json:"refs"`
	} `json:"repository"`
}

func (g *GitHub) refs(ctx context.Context, repo Repo, query string, opts PageOptions) (*refsData, error) {
	var data refsData
	if err := g.graphql(ctx, query, pageVars(repoVars(repo), opts), &data); err != nil {
		return nil, err
	}
	if data.Repository == nil {
		return nil, notFound("repository %s", repo)
	}
	return &data, nil
}

// Branches lists branch tips, most recently committed first.
func (g *GitHub) Branches(ctx context.Context, repo Repo, opts PageOptions) (*Page[Branch], error) {
	g.logger.Debug("listing branches", "repo", repo.String(), "cursor", opts.Cursor)

	data, err := g.refs(ctx, repo, branchesQuery, opts)
	if err != nil {
		return nil, err
	}

	refs := data.Repository.Refs
	out := &Page[Branch]{Values: make([]Branch, 0, len(refs.Nodes)), Paging: refs.PageInfo.paging()}
	for _, n := range refs.Nodes {
		out.Values = append(out.Values, Branch{Name: n.Name, SHA: n.Target.OID, Date: n.Target.CommittedDate})
	}
	return out, nil
}

// Tags lists tags. Annotated tags are peeled to their commit.
func (g *GitHub) Tags(ctx context.Context, repo Repo, opts PageOptions) (*Page[Tag], error) {
	g.logger.Debug("listing tags", "repo", repo.String(), "cursor", opts.Cursor)

	data, err := g.refs(ctx, repo, tagsQuery, opts)
	if err != nil {
		return nil, err
	}

	refs := data.Repository.Refs
	out := &Page[Tag]{Values: make([]Tag, 0, len(refs.Nodes)), Paging: refs.PageInfo.paging()}
	for _, n := range refs.Nodes {
		t := Tag{
			Name:       n.Name,
			SHA:        n.Target.OID,
			Message:    n.Target.Message,
			Date:       n.Target.CommittedDate,
			CommitDate: n.Target.CommittedDate,
		}
		if n.Target.Target != nil {
			t.SHA = n.Target.Target.OID
			t.CommitDate = n.Target.Target.CommittedDate
		}
		if n.Target.Tagger != nil {
			t.Date = n.Target.Tagger.Date
		}
		out.Values = append(out.Values, t)
	}
	return out, nil
}

type objectData[T any] struct {
	Repository *struct {
		Object *T `json:"object"`
	} `json:"repository"`
}

func (d objectData[T]) object(repo Repo, ref string) (*T, error) {
	if d.Repository == nil {
		return nil, notFound("repository %s", repo)
	}
	if d.Repository.Object == nil {
		return nil, notFound("revision %s in %s", ref, repo)
	}
	return d.Repository.Object, nil
}

type historyObject struct {
	History *struct {
		PageInfo pageInfo    `json:"pageInfo"`
		Nodes    []gqlCommit `json:"nodes"`
	} `json:"history"`
}

// Commits lists history reachable from ref, newest first.
func (g *GitHub) Commits(ctx context.Context, repo Repo, ref string, opts CommitsOptions) (*Page[Commit], error) {
	g.logger.Debug("listing commits", "repo", repo.String(), "ref", ref, "path", opts.Path, "cursor", opts.Cursor)

	vars := pageVars(repoVars(repo), opts.PageOptions)
	vars["ref"] = ref
	vars["path"] = nil
	if opts.Path != "" {
		vars["path"] = opts.Path
	}
	vars["since"] = nil
	if !opts.Since.IsZero() {
		vars["since"] = opts.Since.UTC().Format(time.RFC3339)
	}
	vars["author"] = nil
	if len(opts.Authors) > 0 {
		vars["author"] = map[string]any{"emails": opts.Authors}
	}

	var data objectData[historyObject]
	if err := g.graphql(ctx, historyQuery, vars, &data); err != nil {
		return nil, err
	}
	obj, err := data.object(repo, ref)
	if err != nil {
		return nil, err
	}

	out := &Page[Commit]{}
	if obj.History == nil {
		return out, nil
	}
	out.Paging = obj.History.PageInfo.paging()
	out.Values = make([]Commit, 0, len(obj.History.Nodes))
	for _, n := range obj.History.Nodes {
		out.Values = append(out.Values, n.commit())
	}
	return out, nil
}

type blameObject struct {
	OID   string `json:"oid"`
	Blame *struct {
		Ranges []struct {
			StartingLine int       `json:"startingLine"`
			EndingLine   int       `json:"endingLine"`
			Commit       gqlCommit `json:"commit"`
		} `json:"ranges"`
	} `json:"blame"`
}

// Blame returns line attribution for path at ref. With opts.Line set only
// the range covering that line is returned.
func (g *GitHub) Blame(ctx context.Context, repo Repo, ref, path string, opts BlameOptions) (*Blame, error) {
	g.logger.Debug("fetching blame", "repo", repo.String(), "ref", ref, "path", path, "line", opts.Line)

	vars := repoVars(repo)
	vars["ref"] = ref
	vars["path"] = path

	var data objectData[blameObject]
	if err := g.graphql(ctx, blameQuery, vars, &data); err != nil {
		return nil, err
	}
	obj, err := data.object(repo, ref)
	if err != nil {
		return nil, err
	}
	if obj.Blame == nil {
		return nil, notFound("blame for %s at %s", path, ref)
	}

	out := &Blame{SHA: obj.OID}
	for _, r := range obj.Blame.Ranges {
		if opts.Line > 0 && (opts.Line < r.StartingLine || opts.Line > r.EndingLine) {
			continue
		}
		out.Ranges = append(out.Ranges, BlameRange{
			StartingLine: r.StartingLine,
			EndingLine:   r.EndingLine,
			Commit:       r.Commit.commit(),
		})
	}
	return out, nil
}

// ResolveReference returns the sha ref points at. With a path, it returns
// the most recent commit at or before ref that touched path.
func (g *GitHub) ResolveReference(ctx context.Context, repo Repo, ref, path string) (string, error) {
	g.logger.Debug("resolving reference", "repo", repo.String(), "ref", ref, "path", path)

	vars := repoVars(repo)
	vars["ref"] = ref

	if path == "" {
		var data objectData[struct {
			OID string `json:"oid"`
		}]
		if err := g.graphql(ctx, resolveQuery, vars, &data); err != nil {
			return "", err
		}
		obj, err := data.object(repo, ref)
		if err != nil {
			return "", err
		}
		return obj.OID, nil
	}

	vars["path"] = strings.TrimPrefix(path, "/")
	var data objectData[historyObject]
	if err := g.graphql(ctx, resolvePathQuery, vars, &data); err != nil {
		return "", err
	}
	obj, err := data.object(repo, ref)
	if err != nil {
		return "", err
	}
	if obj.History == nil || len(obj.History.Nodes) == 0 {
		return "", notFound("%s at %s", path, ref)
	}
	return obj.History.Nodes[0].OID, nil
}

// Repository returns the default branch and its tip.
func (g *GitHub) Repository(ctx context.Context, repo Repo) (*RepositoryInfo, error) {
	var data struct {
		Repository *struct {
			DefaultBranchRef *struct {
				Name   string `json:"name"`
				Target struct {
					OID string `json:"oid"`
				} `json:"target"`
			} `json:"defaultBranchRef"`
		} `json:"repository"`
	}
	if err := g.graphql(ctx, repositoryQuery, repoVars(repo), &data); err != nil {
		return nil, err
	}
	if data.Repository == nil {
		return nil, notFound("repository %s", repo)
	}

	info := &RepositoryInfo{Repo: repo}
	if ref := data.Repository.DefaultBranchRef; ref != nil {
		info.DefaultBranch = ref.Name
		info.HeadSHA = ref.Target.OID
	}
	return info, nil
}

package remote

import (
	"context"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/revision"
)

const originPrefix = "origin/"

// StripOrigin removes the synthetic "origin/" prefix from a ref, or from
// each side of a range. The remote has no notion of a local remote name, so
// "origin/main" and "main" address the same branch.
func StripOrigin(ref string) string {
	if r, ok := revision.SplitRange(ref); ok {
		r.Left = strings.TrimPrefix(r.Left, originPrefix)
		r.Right = strings.TrimPrefix(r.Right, originPrefix)
		return r.String()
	}
	return strings.TrimPrefix(ref, originPrefix)
}

// WithoutOrigin wraps api so every ref and range it receives is passed
// through StripOrigin first.
func WithoutOrigin(api API) API {
	if _, ok := api.(originStripper); ok {
		return api
	}
	return originStripper{api}
}

type originStripper struct {
	API
}

func (o originStripper) Commits(ctx context.Context, repo Repo, ref string, opts CommitsOptions) (*Page[Commit], error) {
	return o.API.Commits(ctx, repo, StripOrigin(ref), opts)
}

func (o originStripper) Commit(ctx context.Context, repo Repo, ref string) (*Commit, error) {
	return o.API.Commit(ctx, repo, StripOrigin(ref))
}

func (o originStripper) Compare(ctx context.Context, repo Repo, base, head string) ([]File, error) {
	return o.API.Compare(ctx, repo, StripOrigin(base), StripOrigin(head))
}

func (o originStripper) Blame(ctx context.Context, repo Repo, ref, path string, opts BlameOptions) (*Blame, error) {
	return o.API.Blame(ctx, repo, StripOrigin(ref), path, opts)
}

func (o originStripper) ResolveReference(ctx context.Context, repo Repo, ref, path string) (string, error) {
	return o.API.ResolveReference(ctx, repo, StripOrigin(ref), path)
}

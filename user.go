package hostedgit

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
)

// User is the signed-in account.
type User struct {
	Login string
	Name  string
	Email string
}

// GetCurrentUser returns the account the session belongs to. A user the
// remote reports as absent is cached as nil so it is not looked up again
// until the current-user cache is reset.
func (p *Provider) GetCurrentUser(ctx context.Context, repoPath string) (*User, error) {
	rc, err := p.EnsureContext(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	return p.currentUser(ctx, rc)
}

func (p *Provider) currentUser(ctx context.Context, rc *RepositoryContext) (*User, error) {
	user, err := p.caches.users.Do(ctx, rc.RepoPath, func(ctx context.Context) (*User, error) {
		u, err := rc.API.CurrentUser(ctx)
		if remote.IsNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &User{Login: u.Login, Name: u.Name, Email: u.Email}, nil
	})
	if err != nil {
		return nil, p.handleRemoteError(err, "failed to get current user", "repo", rc.RepoPath)
	}
	return user, nil
}

// viewerName is the name compared against identities for the You
// substitution. An unknown viewer yields "".
func (p *Provider) viewerName(ctx context.Context, rc *RepositoryContext) (string, error) {
	user, err := p.currentUser(ctx, rc)
	if err != nil || user == nil {
		return "", err
	}
	if user.Name != "" {
		return user.Name, nil
	}
	return user.Login, nil
}


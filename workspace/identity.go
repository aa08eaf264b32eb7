package workspace

import (
	"context"
	"sync"

	"slack-summariser/models"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type User = models.User

// IdentityResolver maps user ids to display names. Entries live as long as
// the owning client; nothing is evicted.
type IdentityResolver struct {
	transport *transport

	mu    sync.Mutex
	users map[string]User
	me    string
	group singleflight.Group
}

func newIdentityResolver(t *transport) *IdentityResolver {
	return &IdentityResolver{
		transport: t,
		users:     make(map[string]User),
	}
}

// Resolve never fails. A backend rejection yields the "Unknown User"
// placeholder, which is cached like a real profile. Transient failures
// also yield the placeholder but are not cached so a later call can
// succeed.
func (r *IdentityResolver) Resolve(ctx context.Context, userID string) User {
	if userID == "" {
		return models.UnknownUser(userID)
	}
	r.mu.Lock()
	user, ok := r.users[userID]
	r.mu.Unlock()
	if ok {
		return user
	}

	resolved, _, _ := r.group.Do("user:"+userID, func() (any, error) {
		r.mu.Lock()
		cached, ok := r.users[userID]
		r.mu.Unlock()
		if ok {
			return cached, nil
		}

		info, getUserInfoError := read(ctx, r.transport, "users.info", func(ctx context.Context) (*slack.User, error) {
			return r.transport.api.GetUserInfoContext(ctx, userID)
		})
		if getUserInfoError != nil {
			r.transport.logger.Warn("User lookup failed, using placeholder",
				zap.String("user", userID),
				zap.Error(getUserInfoError))
			placeholder := models.UnknownUser(userID)
			if classify(getUserInfoError) == KindTransient {
				return placeholder, nil
			}
			r.store(placeholder)
			return placeholder, nil
		}

		user := userFromSlack(userID, info)
		r.store(user)
		return user, nil
	})
	return resolved.(User)
}

func (r *IdentityResolver) store(user User) {
	r.mu.Lock()
	r.users[user.ID] = user
	r.mu.Unlock()
}

// Me returns the authenticated user's id. Unlike Resolve it propagates
// failures: without it mentions cannot be detected at all.
func (r *IdentityResolver) Me(ctx context.Context) (string, error) {
	r.mu.Lock()
	me := r.me
	r.mu.Unlock()
	if me != "" {
		return me, nil
	}

	id, err, _ := r.group.Do("me", func() (any, error) {
		resp, authTestError := read(ctx, r.transport, "auth.test", func(ctx context.Context) (*slack.AuthTestResponse, error) {
			return r.transport.api.AuthTestContext(ctx)
		})
		if authTestError != nil {
			return "", wrap("auth.test", "", authTestError)
		}
		r.mu.Lock()
		r.me = resp.UserID
		r.mu.Unlock()
		return resp.UserID, nil
	})
	if err != nil {
		return "", err
	}
	return id.(string), nil
}

func userFromSlack(userID string, info *slack.User) User {
	if info == nil {
		return models.UnknownUser(userID)
	}
	handle := info.Name
	if handle == "" {
		handle = "unknown"
	}
	displayName := info.RealName
	if displayName == "" {
		displayName = info.Profile.RealName
	}
	if displayName == "" {
		displayName = info.Profile.DisplayName
	}
	if displayName == "" {
		displayName = info.Name
	}
	if displayName == "" {
		displayName = "Unknown"
	}
	return User{
		ID:          userID,
		Handle:      handle,
		DisplayName: displayName,
		IsBot:       info.IsBot,
	}
}

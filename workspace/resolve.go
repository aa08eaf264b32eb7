package workspace

import (
	"context"
	"regexp"
	"strings"

	"slack-summariser/models"
)

// conversationIDPattern matches raw channel (C), direct message (D) and
// group (G) ids.
var conversationIDPattern = regexp.MustCompile(`^[CDG][A-Z0-9]{6,}$`)

var (
	directMessageKinds = models.NewKindSet(models.KindDirectMessage)
	namedChannelKinds  = models.NewKindSet(models.KindChannel, models.KindPrivateChannel)
)

// ResolveConversationRef maps "#general", "general", "@jen" or a raw id to a
// conversation id. It scans the cached directory.
func (c *Client) ResolveConversationRef(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if conversationIDPattern.MatchString(ref) {
		return ref, nil
	}

	name := strings.TrimPrefix(ref, "#")
	if strings.HasPrefix(name, "@") {
		id, _, err := c.FindDirectMessage(ctx, name)
		if err != nil {
			return "", err
		}
		return id, nil
	}

	channels, err := c.directory.List(ctx, namedChannelKinds)
	if err != nil {
		return "", err
	}
	for _, conv := range channels {
		if strings.TrimPrefix(conv.DisplayName, "#") == name {
			return conv.ID, nil
		}
	}
	return "", resolutionError("channel", name)
}

// FindDirectMessage finds the direct message conversation with a person.
// An exact case-insensitive name match wins over a substring match, so
// "jen" picks "Jen" even when "Jennifer" is listed first.
func (c *Client) FindDirectMessage(ctx context.Context, person string) (string, string, error) {
	needle := strings.TrimLeft(strings.ToLower(strings.TrimSpace(person)), "@")
	if needle == "" {
		return "", "", resolutionError("DM with", person)
	}

	dms, err := c.directory.List(ctx, directMessageKinds)
	if err != nil {
		return "", "", err
	}

	type candidate struct {
		id, name, handle string
	}
	candidates := make([]candidate, 0, len(dms))
	for _, conv := range dms {
		name, handle := c.directMessagePeer(ctx, conv)
		candidates = append(candidates, candidate{id: conv.ID, name: name, handle: handle})
	}

	for _, cand := range candidates {
		if strings.TrimLeft(strings.ToLower(cand.name), "@") == needle || strings.ToLower(cand.handle) == needle {
			return cand.id, cand.name, nil
		}
	}
	for _, cand := range candidates {
		if strings.Contains(strings.TrimLeft(strings.ToLower(cand.name), "@"), needle) ||
			strings.Contains(strings.ToLower(cand.handle), needle) {
			return cand.id, cand.name, nil
		}
	}
	return "", "", resolutionError("DM with", person)
}

// ResolveDirectMessageName upgrades a direct message placeholder name to
// "@<display name>". Other conversations are returned unchanged.
func (c *Client) ResolveDirectMessageName(ctx context.Context, conv Conversation) string {
	name, _ := c.directMessagePeer(ctx, conv)
	return name
}

func (c *Client) directMessagePeer(ctx context.Context, conv Conversation) (string, string) {
	if !conv.NeedsNameResolution() {
		return conv.DisplayName, ""
	}
	user := c.identity.Resolve(ctx, conv.PlaceholderUserID())
	return "@" + user.DisplayName, user.Handle
}

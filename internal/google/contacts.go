// Package google wraps the two Google API collaborators: the People API for
// mention contacts and Gmail for sending composed drafts. Callers pass the
// user's OAuth access token per request; no token acquisition happens here.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	people "google.golang.org/api/people/v1"

	chatModels "intelligence/internal/domain/models/chat"
)

const personFields = "names,emailAddresses,photos"

// ContactsClient lists the user's contacts. Results are cached per access
// token for the process lifetime; a new token (new login, refreshed grant)
// refetches and replaces.
type ContactsClient struct {
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string][]chatModels.Contact
}

// NewContactsClient creates a new People API client wrapper.
func NewContactsClient(logger *slog.Logger) *ContactsClient {
	return &ContactsClient{
		logger: logger,
		cache:  make(map[string][]chatModels.Contact),
	}
}

// List returns the user's connections, one contact per email address: a
// person with three addresses yields three entries sharing name and photo.
// People without an email address are skipped.
func (c *ContactsClient) List(ctx context.Context, accessToken string) ([]chatModels.Contact, error) {
	c.mu.Lock()
	if cached, ok := c.cache[accessToken]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	svc, err := people.NewService(ctx,
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create people client: %w", err)
	}

	resp, err := svc.People.Connections.List("people/me").
		PersonFields(personFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	contacts := make([]chatModels.Contact, 0, len(resp.Connections))
	for _, person := range resp.Connections {
		var name, photo string
		if len(person.Names) > 0 {
			name = person.Names[0].DisplayName
		}
		if len(person.Photos) > 0 {
			photo = person.Photos[0].Url
		}
		for _, email := range person.EmailAddresses {
			if email.Value == "" {
				continue
			}
			contacts = append(contacts, chatModels.Contact{
				Name:  name,
				Email: email.Value,
				Photo: photo,
			})
		}
	}

	c.mu.Lock()
	c.cache[accessToken] = contacts
	c.mu.Unlock()

	c.logger.Debug("contacts fetched", "count", len(contacts))
	return contacts, nil
}

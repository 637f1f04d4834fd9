// ABOUTME: Google People API directory client for contacts sync
// ABOUTME: Lists one page of people/me connections and maps 410 responses to cursor invalidation
package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
)

const (
	// pageSize is the People API maximum for connections.list.
	pageSize = 1000

	// personFields is the field mask requested for every record.
	personFields = "names,nicknames,organizations,biographies,coverPhotos,metadata,emailAddresses,phoneNumbers,imClients,urls"

	directoryResource = "people/me"
)

// PageRequest selects where an enumeration resumes. Both tokens empty starts
// a full listing; a SyncToken alone requests the delta since that token.
type PageRequest struct {
	PageToken string
	SyncToken string
}

// Page is one response of the directory listing.
type Page struct {
	Records       []RawRecord
	NextPageToken string
	NextSyncToken string
}

// DirectoryClient lists pages of the remote directory. Implementations return
// ErrCursorInvalid when a token has expired and a *TransientError for any
// other failure. They never retry.
type DirectoryClient interface {
	ListPage(ctx context.Context, accessToken string, req PageRequest) (*Page, error)
}

// PeopleDirectory is the DirectoryClient backed by the Google People API.
type PeopleDirectory struct {
	endpoint   string
	httpClient *http.Client
}

// NewPeopleDirectory creates a People API directory client. An empty
// endpoint uses Google's production API.
func NewPeopleDirectory(endpoint string) *PeopleDirectory {
	return &PeopleDirectory{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
	}
}

// ListPage fetches one page of connections.
func (d *PeopleDirectory) ListPage(ctx context.Context, accessToken string, req PageRequest) (*Page, error) {
	if accessToken == "" {
		return nil, &TransientError{Op: "list connections", Err: errors.New("access token cannot be empty")}
	}

	service, err := d.service(ctx, accessToken)
	if err != nil {
		return nil, &TransientError{Op: "create People service", Err: err}
	}

	call := service.People.Connections.List(directoryResource).
		PageSize(pageSize).
		PersonFields(personFields).
		RequestSyncToken(true).
		Context(ctx)

	if req.SyncToken != "" {
		call = call.SyncToken(req.SyncToken)
	}
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}

	response, err := call.Do()
	if err != nil {
		if isCursorExpired(err) {
			return nil, fmt.Errorf("%w: %v", ErrCursorInvalid, err)
		}
		return nil, &TransientError{Op: "list connections", Err: err}
	}

	page := &Page{}
	if response == nil {
		return page, nil
	}

	page.NextPageToken = response.NextPageToken
	page.NextSyncToken = response.NextSyncToken
	page.Records = make([]RawRecord, 0, len(response.Connections))
	for _, person := range response.Connections {
		if person == nil {
			continue
		}
		page.Records = append(page.Records, recordFromPerson(person))
	}

	return page, nil
}

func (d *PeopleDirectory) service(ctx context.Context, accessToken string) (*people.Service, error) {
	// The base client carries no credentials; the token source adds them per call
	base := context.WithValue(ctx, oauth2.HTTPClient, d.httpClient)
	client := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if d.endpoint != "" {
		opts = append(opts, option.WithEndpoint(d.endpoint))
	}

	service, err := people.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create People service: %w", err)
	}
	return service, nil
}

// isCursorExpired recognizes the remote's "sync token expired" signal. The
// People API answers 410 Gone, and some deployments answer 400 with an
// EXPIRED_SYNC_TOKEN reason instead.
func isCursorExpired(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}

	if apiErr.Code == http.StatusGone {
		return true
	}

	if apiErr.Code == http.StatusBadRequest {
		if strings.Contains(apiErr.Message, "EXPIRED_SYNC_TOKEN") || strings.Contains(apiErr.Body, "EXPIRED_SYNC_TOKEN") {
			return true
		}
		for _, item := range apiErr.Errors {
			if strings.Contains(item.Reason, "EXPIRED_SYNC_TOKEN") {
				return true
			}
		}
	}

	return false
}

// ABOUTME: Lazy page iterator over one directory enumeration
// ABOUTME: Tracks the cursor to persist after each page is reconciled
package sync

import (
	"context"
)

// pager walks one enumeration, either a full listing or a delta since a
// sync token. It fetches nothing until Next is called.
type pager struct {
	client      DirectoryClient
	accessToken string

	// syncToken is the token this enumeration was started from; empty for a
	// full listing.
	syncToken string
	next      PageRequest
	last      *Page
	exhausted bool
}

func newPager(client DirectoryClient, accessToken string, start PageRequest) *pager {
	return &pager{
		client:      client,
		accessToken: accessToken,
		syncToken:   start.SyncToken,
		next:        start,
	}
}

// Next fetches the following page. It must not be called once Done is true.
func (p *pager) Next(ctx context.Context) (*Page, error) {
	page, err := p.client.ListPage(ctx, p.accessToken, p.next)
	if err != nil {
		return nil, err
	}

	p.last = page
	if page.NextPageToken == "" {
		p.exhausted = true
		return page, nil
	}

	p.next = PageRequest{PageToken: page.NextPageToken, SyncToken: p.syncToken}
	return page, nil
}

// Done reports whether the last fetched page ended the enumeration.
func (p *pager) Done() bool {
	return p.exhausted
}

// Cursor returns the page and sync tokens to persist after the last fetched
// page. The sync token falls back to the one the enumeration started from
// until the remote issues a new one on the final page.
func (p *pager) Cursor() (pageToken, syncToken string) {
	if p.last == nil {
		return p.next.PageToken, p.syncToken
	}
	syncToken = p.last.NextSyncToken
	if syncToken == "" {
		syncToken = p.syncToken
	}
	return p.last.NextPageToken, syncToken
}

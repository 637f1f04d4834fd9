// ABOUTME: Tests for the lazy page iterator
// ABOUTME: Verifies request chaining and the cursor persisted after each page
package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagerFullListing(t *testing.T) {
	dir := &fakeDirectory{steps: []directoryStep{
		{page: &Page{Records: []RawRecord{person("a", "A")}, NextPageToken: "p2"}},
		{page: &Page{Records: []RawRecord{person("b", "B")}, NextSyncToken: "s1"}},
	}}
	p := newPager(dir, "tok", PageRequest{})
	ctx := context.Background()

	_, err := p.Next(ctx)
	require.NoError(t, err)
	assert.False(t, p.Done())
	pageToken, syncToken := p.Cursor()
	assert.Equal(t, "p2", pageToken)
	assert.Empty(t, syncToken)

	_, err = p.Next(ctx)
	require.NoError(t, err)
	assert.True(t, p.Done())
	pageToken, syncToken = p.Cursor()
	assert.Empty(t, pageToken)
	assert.Equal(t, "s1", syncToken)

	assert.Equal(t, []PageRequest{{}, {PageToken: "p2"}}, dir.requests)
}

func TestPagerDeltaKeepsStartingSyncToken(t *testing.T) {
	dir := &fakeDirectory{steps: []directoryStep{
		{page: &Page{NextPageToken: "p2"}},
		{page: &Page{}},
	}}
	p := newPager(dir, "tok", PageRequest{SyncToken: "s0"})
	ctx := context.Background()

	_, err := p.Next(ctx)
	require.NoError(t, err)
	_, syncToken := p.Cursor()
	assert.Equal(t, "s0", syncToken)

	_, err = p.Next(ctx)
	require.NoError(t, err)
	assert.True(t, p.Done())
	// No new sync token issued, so the enumeration's token stays current
	pageToken, syncToken := p.Cursor()
	assert.Empty(t, pageToken)
	assert.Equal(t, "s0", syncToken)

	assert.Equal(t, PageRequest{PageToken: "p2", SyncToken: "s0"}, dir.requests[1])
}

func TestPagerPropagatesErrors(t *testing.T) {
	dir := &fakeDirectory{steps: []directoryStep{{err: ErrCursorInvalid}}}
	p := newPager(dir, "tok", PageRequest{SyncToken: "s0"})

	_, err := p.Next(context.Background())
	assert.ErrorIs(t, err, ErrCursorInvalid)
	assert.False(t, p.Done())
}

package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/replyflow/replyflow/internal/store"
	"github.com/replyflow/replyflow/pkg/logging"
)

func newTestResolver(ds *fakeDataStore, media MediaAnalyzer, indexer VectorIndexer) *Resolver {
	return NewResolver(ds, media, indexer, logging.New("error"), ResolverOptions{
		SelfIDs:           map[string]string{PlatformFacebook: "page-1"},
		SiblingFetchLimit: 2,
		SiblingFetchDelay: time.Millisecond,
	})
}

func TestResolveSelfLoopDiscarded(t *testing.T) {
	ds := newFakeDataStore()
	r := newTestResolver(ds, nil, nil)

	in := InboundInteraction{
		ID:       "c1",
		Platform: PlatformFacebook,
		Channel:  ChannelFacebookComment,
		SenderID: "page-1",
	}

	_, err := r.Resolve(context.Background(), newFakePlatformClient(), in)
	if !errors.Is(err, ErrSelfLoop) {
		t.Fatalf("expected ErrSelfLoop, got %v", err)
	}
}

func TestResolveSelfSenderAdminAllowed(t *testing.T) {
	ds := newFakeDataStore()
	ds.admins["page-1"] = true
	r := newTestResolver(ds, nil, nil)

	in := InboundInteraction{
		ID:       "c1",
		Platform: PlatformFacebook,
		Channel:  ChannelFacebookComment,
		SenderID: "page-1",
	}

	rc, err := r.Resolve(context.Background(), newFakePlatformClient(), in)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !rc.IsAdmin {
		t.Error("expected admin sender")
	}
}

func TestResolveCachedMediaAnalysisPreferred(t *testing.T) {
	ds := newFakeDataStore()
	ds.posts["post-1"] = &store.Post{
		ID:            "post-1",
		Content:       "New spring menu",
		MediaURL:      "https://cdn.example.com/menu.jpg",
		MediaAnalysis: "A photo of a printed menu",
	}
	media := &fakeMediaAnalyzer{result: "should not be used"}
	r := newTestResolver(ds, media, nil)

	in := InboundInteraction{
		ID:       "c1",
		Platform: PlatformFacebook,
		Channel:  ChannelFacebookComment,
		PostID:   "post-1",
		SenderID: "u1",
	}

	rc, err := r.Resolve(context.Background(), newFakePlatformClient(), in)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if media.imageCalls != 0 || media.videoCalls != 0 {
		t.Errorf("analyzer invoked despite cached analysis: image=%d video=%d", media.imageCalls, media.videoCalls)
	}
	if !strings.Contains(rc.PostContent, "A photo of a printed menu") {
		t.Errorf("cached analysis missing from post content: %q", rc.PostContent)
	}
}

func TestResolveAnalyzesUncachedImageOnceAndFillsCache(t *testing.T) {
	ds := newFakeDataStore()
	ds.posts["post-1"] = &store.Post{
		ID:       "post-1",
		Content:  "Check this out",
		MediaURL: "https://cdn.example.com/pic.png?token=abc",
	}
	media := &fakeMediaAnalyzer{result: "A dog on a beach"}
	r := newTestResolver(ds, media, nil)

	in := InboundInteraction{
		ID:       "c1",
		Platform: PlatformFacebook,
		Channel:  ChannelFacebookComment,
		PostID:   "post-1",
		SenderID: "u1",
	}

	rc, err := r.Resolve(context.Background(), newFakePlatformClient(), in)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if media.imageCalls != 1 {
		t.Errorf("expected exactly one image analysis, got %d", media.imageCalls)
	}
	if got := ds.analysisWrites["post-1"]; got != "A dog on a beach" {
		t.Errorf("cache fill missing, analysisWrites=%q", got)
	}
	if !strings.Contains(rc.PostContent, "A dog on a beach") {
		t.Errorf("analysis missing from post content: %q", rc.PostContent)
	}
}

func TestResolveVideoExtensionUsesVideoAnalyzer(t *testing.T) {
	ds := newFakeDataStore()
	ds.posts["post-1"] = &store.Post{ID: "post-1", MediaURL: "https://cdn.example.com/clip.mp4"}
	media := &fakeMediaAnalyzer{result: "A short product demo"}
	r := newTestResolver(ds, media, nil)

	in := InboundInteraction{ID: "c1", Platform: PlatformFacebook, Channel: ChannelFacebookComment, PostID: "post-1", SenderID: "u1"}
	if _, err := r.Resolve(context.Background(), newFakePlatformClient(), in); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if media.videoCalls != 1 || media.imageCalls != 0 {
		t.Errorf("expected one video analysis, got video=%d image=%d", media.videoCalls, media.imageCalls)
	}
}

func TestResolveFallsBackToPlatformFetch(t *testing.T) {
	ds := newFakeDataStore()
	client := newFakePlatformClient()
	client.postContent["post-9"] = "Text fetched from the platform"
	r := newTestResolver(ds, nil, nil)

	in := InboundInteraction{ID: "c1", Platform: PlatformFacebook, Channel: ChannelFacebookComment, PostID: "post-9", SenderID: "u1"}
	rc, err := r.Resolve(context.Background(), client, in)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if rc.PostContent != "Text fetched from the platform" {
		t.Errorf("unexpected post content: %q", rc.PostContent)
	}

	// The fetched post is backfilled locally so the next comment on it skips
	// the platform round trip.
	if len(ds.postUpserts) != 1 || ds.postUpserts[0].ID != "post-9" || ds.postUpserts[0].Platform != PlatformFacebook {
		t.Fatalf("post not backfilled: %+v", ds.postUpserts)
	}
	if ds.postUpserts[0].Content != "Text fetched from the platform" {
		t.Errorf("backfilled content = %q", ds.postUpserts[0].Content)
	}
}

func TestResolveThreadWithParentAndSiblings(t *testing.T) {
	ds := newFakeDataStore()
	client := newFakePlatformClient()
	client.comments["parent-1"] = &ThreadComment{ID: "parent-1", Text: "Does anyone know the price?", AuthorName: "Ann"}
	client.replies["parent-1"] = []ThreadComment{
		{ID: "c1", Text: "ai help", AuthorID: "u1"},
		{ID: "sib-1", Text: "Me too!", AuthorName: "Bob"},
	}
	r := newTestResolver(ds, nil, nil)

	in := InboundInteraction{
		ID:              "c1",
		Platform:        PlatformFacebook,
		Channel:         ChannelFacebookComment,
		SenderID:        "u1",
		SenderName:      "Uma",
		ParentCommentID: "parent-1",
	}

	rc, err := r.Resolve(context.Background(), client, in)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(rc.Thread) != 2 {
		t.Fatalf("expected parent + one sibling, got %d: %+v", len(rc.Thread), rc.Thread)
	}
	for _, c := range rc.Thread {
		if c.ID == "c1" {
			t.Error("interaction's own comment should be excluded from thread")
		}
	}
	if !strings.Contains(rc.ContextNote, "Uma") || !strings.Contains(rc.ContextNote, "Me too!") {
		t.Errorf("context note incomplete: %q", rc.ContextNote)
	}
}

func TestResolveThreadFetchFailureDegrades(t *testing.T) {
	ds := newFakeDataStore()
	client := newFakePlatformClient()
	client.repliesErr = errors.New("rate limited")
	r := newTestResolver(ds, nil, nil)

	in := InboundInteraction{ID: "c1", Platform: PlatformFacebook, Channel: ChannelFacebookComment, SenderID: "u1"}
	rc, err := r.Resolve(context.Background(), client, in)
	if err != nil {
		t.Fatalf("expected degraded resolve, got error: %v", err)
	}
	if len(rc.Thread) != 0 {
		t.Errorf("expected empty thread, got %+v", rc.Thread)
	}
}

func TestResolveIndexesPostContent(t *testing.T) {
	ds := newFakeDataStore()
	ds.posts["post-1"] = &store.Post{ID: "post-1", Content: "Grand opening Friday"}
	indexer := newFakeVectorIndexer()
	r := newTestResolver(ds, nil, indexer)

	in := InboundInteraction{ID: "c1", Platform: PlatformFacebook, Channel: ChannelFacebookComment, PostID: "post-1", SenderID: "u1"}
	if _, err := r.Resolve(context.Background(), newFakePlatformClient(), in); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	select {
	case <-indexer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("vector indexing never ran")
	}
	indexer.mu.Lock()
	defer indexer.mu.Unlock()
	if indexer.indexed["post-1"] != "Grand opening Friday" {
		t.Errorf("indexed content = %q", indexer.indexed["post-1"])
	}
}

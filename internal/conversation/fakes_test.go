package conversation

import (
	"context"
	"errors"
	"sync"

	"github.com/replyflow/replyflow/internal/store"
)

// fakeDataStore is an in-memory DataStore for pipeline and resolver tests.
type fakeDataStore struct {
	mu sync.Mutex

	posts          map[string]*store.Post
	postUpserts    []store.Post
	admins         map[string]bool
	existing       map[string]bool
	config         *store.PromptConfiguration
	analysisWrites map[string]string
	comments       []store.Comment
	sessions       map[string]*store.ChatSession
	completed      map[string][]store.SessionMessage
	intents        []store.DetectedIntent

	adminErr    error
	insertErr   error
	completeErr error
}

func newFakeDataStore() *fakeDataStore {
	return &fakeDataStore{
		posts:          map[string]*store.Post{},
		admins:         map[string]bool{},
		existing:       map[string]bool{},
		analysisWrites: map[string]string{},
		sessions:       map[string]*store.ChatSession{},
		completed:      map[string][]store.SessionMessage{},
	}
}

func (f *fakeDataStore) GetPost(ctx context.Context, id string) (*store.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeDataStore) UpsertPost(ctx context.Context, p store.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postUpserts = append(f.postUpserts, p)
	cp := p
	f.posts[p.ID] = &cp
	return nil
}

func (f *fakeDataStore) SetPostMediaAnalysis(ctx context.Context, id, analysis string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analysisWrites[id] = analysis
	if p, ok := f.posts[id]; ok && p.MediaAnalysis == "" {
		p.MediaAnalysis = analysis
	}
	return nil
}

func (f *fakeDataStore) InsertComment(ctx context.Context, c store.Comment) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if f.existing[c.ID] {
		return false, nil
	}
	f.existing[c.ID] = true
	f.comments = append(f.comments, c)
	return true, nil
}

func (f *fakeDataStore) UpsertProcessingSession(ctx context.Context, chatID, channelType, userRole string) (*store.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[chatID]
	if !ok {
		s = &store.ChatSession{ChatID: chatID, ChannelType: channelType, UserRole: userRole}
		f.sessions[chatID] = s
	}
	s.Status = store.SessionProcessing
	cp := *s
	return &cp, nil
}

func (f *fakeDataStore) AppendSessionMessages(ctx context.Context, chatID string, msgs []store.SessionMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[chatID]
	if !ok {
		return store.ErrNotFound
	}
	s.Messages = append(s.Messages, msgs...)
	return nil
}

func (f *fakeDataStore) CompleteSession(ctx context.Context, chatID string, msgs []store.SessionMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	s, ok := f.sessions[chatID]
	if !ok {
		return store.ErrNotFound
	}
	s.Status = store.SessionCompleted
	f.completed[chatID] = msgs
	return nil
}

func (f *fakeDataStore) GetActiveConfiguration(ctx context.Context) (*store.PromptConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config, nil
}

func (f *fakeDataStore) InsertDetectedIntent(ctx context.Context, rec store.DetectedIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, rec)
	return nil
}

func (f *fakeDataStore) IsAdmin(ctx context.Context, platformUserID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.adminErr != nil {
		return false, f.adminErr
	}
	return f.admins[platformUserID], nil
}

// fakePlatformClient records calls and serves canned thread data.
type fakePlatformClient struct {
	mu sync.Mutex

	postContent map[string]string
	comments    map[string]*ThreadComment
	replies     map[string][]ThreadComment

	replyIDs      []string
	replyTexts    []string
	messagesTo    []string
	messagesText  []string
	replyErr      error
	replyErrFor   map[string]error
	sendErr       error
	postErr       error
	repliesErr    error
	replyFetchCnt int
}

func newFakePlatformClient() *fakePlatformClient {
	return &fakePlatformClient{
		postContent: map[string]string{},
		comments:    map[string]*ThreadComment{},
		replies:     map[string][]ThreadComment{},
	}
}

func (f *fakePlatformClient) GetPostContent(ctx context.Context, postID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return "", f.postErr
	}
	text, ok := f.postContent[postID]
	if !ok {
		return "", errors.New("post not found")
	}
	return text, nil
}

func (f *fakePlatformClient) GetComment(ctx context.Context, commentID string) (*ThreadComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[commentID]
	if !ok {
		return nil, errors.New("comment not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakePlatformClient) GetCommentReplies(ctx context.Context, commentID string) ([]ThreadComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replyFetchCnt++
	if f.repliesErr != nil {
		return nil, f.repliesErr
	}
	return f.replies[commentID], nil
}

func (f *fakePlatformClient) ReplyToComment(ctx context.Context, commentID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return "", f.replyErr
	}
	if err, ok := f.replyErrFor[commentID]; ok {
		return "", err
	}
	f.replyIDs = append(f.replyIDs, commentID)
	f.replyTexts = append(f.replyTexts, text)
	return "reply-" + commentID, nil
}

func (f *fakePlatformClient) SendMessage(ctx context.Context, recipientID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.messagesTo = append(f.messagesTo, recipientID)
	f.messagesText = append(f.messagesText, text)
	return "msg-" + recipientID, nil
}

// fakeMediaAnalyzer counts invocations per media kind.
type fakeMediaAnalyzer struct {
	mu         sync.Mutex
	imageCalls int
	videoCalls int
	result     string
	err        error
}

func (f *fakeMediaAnalyzer) AnalyzeImage(ctx context.Context, mediaURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls++
	return f.result, f.err
}

func (f *fakeMediaAnalyzer) AnalyzeVideo(ctx context.Context, mediaURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoCalls++
	return f.result, f.err
}

// fakeVectorIndexer records indexed posts and signals on each call.
type fakeVectorIndexer struct {
	mu           sync.Mutex
	indexed      map[string]string
	files        []string
	relatedPosts []string
	postQueries  []string
	done         chan struct{}
}

func newFakeVectorIndexer() *fakeVectorIndexer {
	return &fakeVectorIndexer{indexed: map[string]string{}, done: make(chan struct{}, 8)}
}

func (f *fakeVectorIndexer) IndexPost(ctx context.Context, postID, content string) error {
	f.mu.Lock()
	f.indexed[postID] = content
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeVectorIndexer) SearchPosts(ctx context.Context, query string, topK int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postQueries = append(f.postQueries, query)
	return f.relatedPosts, nil
}

func (f *fakeVectorIndexer) SearchFiles(ctx context.Context, query string, fileRefs []string, topK int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files, nil
}

// fakeWebSearcher returns canned web results.
type fakeWebSearcher struct {
	results []string
	err     error
	queries []string
}

func (f *fakeWebSearcher) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

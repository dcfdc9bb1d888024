package instagram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boostlyhq/boostly-golang/internal/models"
)

type fakeStore struct {
	tokens      []models.OAuthToken
	automations map[string]*models.DMAutomation // keyed "userID:postID"
	processed   map[string]bool                 // keyed "automationID:commentID"
	history     []models.CommentHistory
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		automations: make(map[string]*models.DMAutomation),
		processed:   make(map[string]bool),
	}
}

func (s *fakeStore) ValidTokens(ctx context.Context) ([]models.OAuthToken, error) {
	return s.tokens, nil
}

func (s *fakeStore) FindAutomation(ctx context.Context, userID int64, postID string) (*models.DMAutomation, error) {
	return s.automations[fmt.Sprintf("%d:%s", userID, postID)], nil
}

func (s *fakeStore) HasProcessedComment(ctx context.Context, automationID int64, commentID string) (bool, error) {
	return s.processed[fmt.Sprintf("%d:%s", automationID, commentID)], nil
}

func (s *fakeStore) RecordComment(ctx context.Context, h *models.CommentHistory) error {
	s.processed[fmt.Sprintf("%d:%s", h.AutomationID, h.CommentID)] = true
	s.history = append(s.history, *h)
	return nil
}

type fakeGraph struct {
	accountID string
	sendErr   error
	sentTo    []string
	sentMsgs  []string
}

func (g *fakeGraph) BusinessAccountID(ctx context.Context, accessToken string) (string, error) {
	return g.accountID, nil
}

func (g *fakeGraph) SendDM(ctx context.Context, accessToken, businessID, recipientUsername, message string) error {
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sentTo = append(g.sentTo, recipientUsername)
	g.sentMsgs = append(g.sentMsgs, message)
	return nil
}

func newTestProcessor(t *testing.T, store *fakeStore, graph *fakeGraph) *Processor {
	t.Helper()
	cipher, err := NewTokenCipher("test-passphrase")
	require.NoError(t, err)

	sealed, err := cipher.Encrypt("ig-access-token")
	require.NoError(t, err)
	store.tokens = []models.OAuthToken{
		{ID: 1, UserID: 42, Platform: "instagram", AccessToken: sealed, IsValid: true},
	}
	return NewProcessor(store, graph, cipher, slog.Default())
}

func liveComment(commentID, mediaID, username, text string) Change {
	var v ChangeValue
	v.ID = commentID
	v.Text = text
	v.From.Username = username
	v.Media.ID = mediaID
	return Change{Field: FieldLiveComments, Value: v}
}

func boolPtr(b bool) *bool { return &b }

func TestLiveCommentMatchSendsDM(t *testing.T) {
	store := newFakeStore()
	store.automations["42:media-1"] = &models.DMAutomation{
		ID: 7, UserID: 42, PostID: "media-1", IsEnabled: true,
		DMRules: []models.DMRule{
			{TriggerKeyword: "price", Message: "DM with our pricing!"},
		},
	}
	graph := &fakeGraph{accountID: "acct-1"}
	p := newTestProcessor(t, store, graph)

	err := p.HandleChange(context.Background(), "acct-1",
		liveComment("c-1", "media-1", "alice", "What is the PRICE of this?"))
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, graph.sentTo)
	assert.Equal(t, []string{"DM with our pricing!"}, graph.sentMsgs)
	require.Len(t, store.history, 1)
	assert.Equal(t, "sent", store.history[0].ResponseStatus)
	assert.True(t, store.history[0].MatchedRules)
	assert.NotNil(t, store.history[0].RespondedAt)
}

func TestLiveCommentNoMatchRecordsSkip(t *testing.T) {
	store := newFakeStore()
	store.automations["42:media-1"] = &models.DMAutomation{
		ID: 7, UserID: 42, PostID: "media-1", IsEnabled: true,
		DMRules: []models.DMRule{{TriggerKeyword: "price", Message: "pricing"}},
	}
	graph := &fakeGraph{accountID: "acct-1"}
	p := newTestProcessor(t, store, graph)

	err := p.HandleChange(context.Background(), "acct-1",
		liveComment("c-2", "media-1", "bob", "nice photo"))
	require.NoError(t, err)

	assert.Empty(t, graph.sentTo)
	require.Len(t, store.history, 1)
	assert.Equal(t, "skipped", store.history[0].ResponseStatus)
	assert.False(t, store.history[0].MatchedRules)
}

func TestLiveCommentFallsBackToDefaultAutomation(t *testing.T) {
	store := newFakeStore()
	store.automations["42:default"] = &models.DMAutomation{
		ID: 9, UserID: 42, PostID: "default", IsEnabled: true,
		DMRules: []models.DMRule{{TriggerKeyword: "info", Message: "Here you go"}},
	}
	graph := &fakeGraph{accountID: "acct-1"}
	p := newTestProcessor(t, store, graph)

	err := p.HandleChange(context.Background(), "acct-1",
		liveComment("c-3", "some-other-post", "carol", "info please"))
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, graph.sentTo)
}

func TestLiveCommentReplayIsIgnored(t *testing.T) {
	store := newFakeStore()
	store.automations["42:media-1"] = &models.DMAutomation{
		ID: 7, UserID: 42, PostID: "media-1", IsEnabled: true,
		DMRules: []models.DMRule{{TriggerKeyword: "price", Message: "pricing"}},
	}
	graph := &fakeGraph{accountID: "acct-1"}
	p := newTestProcessor(t, store, graph)

	change := liveComment("c-4", "media-1", "dave", "price?")
	require.NoError(t, p.HandleChange(context.Background(), "acct-1", change))
	require.NoError(t, p.HandleChange(context.Background(), "acct-1", change))

	assert.Len(t, graph.sentTo, 1)
	assert.Len(t, store.history, 1)
}

func TestInactiveRuleDoesNotFire(t *testing.T) {
	store := newFakeStore()
	store.automations["42:media-1"] = &models.DMAutomation{
		ID: 7, UserID: 42, PostID: "media-1", IsEnabled: true,
		DMRules: []models.DMRule{
			{TriggerKeyword: "price", Message: "pricing", IsActive: boolPtr(false)},
		},
	}
	graph := &fakeGraph{accountID: "acct-1"}
	p := newTestProcessor(t, store, graph)

	err := p.HandleChange(context.Background(), "acct-1",
		liveComment("c-5", "media-1", "erin", "price?"))
	require.NoError(t, err)
	assert.Empty(t, graph.sentTo)
	require.Len(t, store.history, 1)
	assert.Equal(t, "skipped", store.history[0].ResponseStatus)
}

func TestSendFailureRecordedAndPropagated(t *testing.T) {
	store := newFakeStore()
	store.automations["42:media-1"] = &models.DMAutomation{
		ID: 7, UserID: 42, PostID: "media-1", IsEnabled: true,
		DMRules: []models.DMRule{{TriggerKeyword: "price", Message: "pricing"}},
	}
	graph := &fakeGraph{accountID: "acct-1", sendErr: errors.New("graph api: rate limited")}
	p := newTestProcessor(t, store, graph)

	err := p.HandleChange(context.Background(), "acct-1",
		liveComment("c-6", "media-1", "frank", "price?"))
	require.Error(t, err)

	require.Len(t, store.history, 1)
	assert.Equal(t, "failed", store.history[0].ResponseStatus)
	require.NotNil(t, store.history[0].ErrorMessage)
	assert.Equal(t, "graph api: rate limited", *store.history[0].ErrorMessage)
}

func TestUnknownAccountIsIgnored(t *testing.T) {
	store := newFakeStore()
	graph := &fakeGraph{accountID: "someone-else"}
	p := newTestProcessor(t, store, graph)

	err := p.HandleChange(context.Background(), "acct-1",
		liveComment("c-7", "media-1", "gina", "price?"))
	require.NoError(t, err)
	assert.Empty(t, store.history)
}

func TestNonLiveCommentFieldsAreLoggedOnly(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(t, store, &fakeGraph{accountID: "acct-1"})

	for _, field := range []string{FieldComments, FieldMentions, FieldMessages, "story_insights"} {
		err := p.HandleChange(context.Background(), "acct-1", Change{Field: field})
		require.NoError(t, err)
	}
	assert.Empty(t, store.history)
}

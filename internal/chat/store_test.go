package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aihub/chat-go/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo 内存仓库，按需注入失败
type fakeRepo struct {
	conversations map[string]*models.Conversation
	messages      map[string][]models.Message
	order         []string

	failInsert bool
	failDelete bool
	created    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]models.Message),
	}
}

func (f *fakeRepo) CreateConversation(ctx context.Context, userID uint) (*models.Conversation, error) {
	f.created++
	now := time.Now()
	c := &models.Conversation{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	f.conversations[c.ID] = c
	f.order = append([]string{c.ID}, f.order...)
	return c, nil
}

func (f *fakeRepo) GetConversation(ctx context.Context, id string, userID uint) (*models.Conversation, error) {
	c, ok := f.conversations[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return c, nil
}

func (f *fakeRepo) ListConversations(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, id := range f.order {
		out = append(out, *f.conversations[id])
	}
	return out, nil
}

func (f *fakeRepo) SetTitleIfUnset(ctx context.Context, id string, userID uint, title string) (bool, error) {
	c, ok := f.conversations[id]
	if !ok {
		return false, errors.New("record not found")
	}
	if c.Title != nil {
		return false, nil
	}
	c.Title = &title
	return true, nil
}

func (f *fakeRepo) DeleteConversation(ctx context.Context, id string, userID uint) error {
	if f.failDelete {
		return errors.New("db down")
	}
	if _, ok := f.conversations[id]; !ok {
		return errors.New("record not found")
	}
	delete(f.conversations, id)
	delete(f.messages, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRepo) InsertMessage(ctx context.Context, userID uint, message *models.Message) (*models.Message, error) {
	if f.failInsert {
		return nil, errors.New("db down")
	}
	saved := *message
	saved.ID = uuid.NewString()
	f.messages[saved.ConversationID] = append(f.messages[saved.ConversationID], saved)
	return &saved, nil
}

func (f *fakeRepo) ListMessages(ctx context.Context, conversationID string, userID uint) ([]models.Message, error) {
	return f.messages[conversationID], nil
}

func TestStore_EnsureConversationIdempotent(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, 1)
	ctx := context.Background()

	first, err := store.EnsureConversation(ctx)
	require.NoError(t, err)
	second, err := store.EnsureConversation(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.created)
}

func TestStore_InsertUserMessageReplacesInPlace(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, 1)
	ctx := context.Background()
	_, err := store.EnsureConversation(ctx)
	require.NoError(t, err)

	msg, err := store.InsertUserMessage(ctx, "Hello", "")
	require.NoError(t, err)

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, EntryPersisted, entries[0].State)
	assert.Equal(t, msg.ID, entries[0].Message.ID)
	assert.Equal(t, "Hello", entries[0].Message.Content)
}

func TestStore_InsertUserMessageFailureRemovesEntry(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, 1)
	ctx := context.Background()
	_, err := store.EnsureConversation(ctx)
	require.NoError(t, err)

	repo.failInsert = true
	_, err = store.InsertUserMessage(ctx, "Hello", "")
	require.Error(t, err)

	// 失败对本轮可见，乐观条目不残留
	assert.Empty(t, store.Entries())
}

func TestStore_PlaceholderLifecycle(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, 1)
	ctx := context.Background()
	_, err := store.EnsureConversation(ctx)
	require.NoError(t, err)

	localID := store.InsertAssistantPlaceholder()
	store.UpdatePlaceholder(localID, "partial tex")

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, EntryPending, entries[0].State)
	assert.Equal(t, "partial tex", entries[0].Message.Content)

	persisted, err := store.ReconcileAssistant(ctx, localID, "partial text done")
	require.NoError(t, err)

	entries = store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, EntryPersisted, entries[0].State)
	assert.Equal(t, persisted.ID, entries[0].Message.ID)
	assert.Equal(t, "partial text done", entries[0].Message.Content)
}

func TestStore_ReconcileFailureKeepsPlaceholder(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, 1)
	ctx := context.Background()
	_, err := store.EnsureConversation(ctx)
	require.NoError(t, err)

	localID := store.InsertAssistantPlaceholder()
	store.UpdatePlaceholder(localID, "rendered so far")

	repo.failInsert = true
	_, err = store.ReconcileAssistant(ctx, localID, "full answer")
	require.Error(t, err)

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, EntryPending, entries[0].State)
	assert.Equal(t, "rendered so far", entries[0].Message.Content)
}

func TestStore_TitleIfUnset(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, 1)
	ctx := context.Background()
	id, err := store.EnsureConversation(ctx)
	require.NoError(t, err)

	require.NoError(t, store.TitleIfUnset(ctx, id, "first question"))
	require.NotNil(t, repo.conversations[id].Title)
	assert.Equal(t, "first question", *repo.conversations[id].Title)

	// 已设置标题后不再覆盖
	require.NoError(t, store.TitleIfUnset(ctx, id, "second question"))
	assert.Equal(t, "first question", *repo.conversations[id].Title)
}

func TestStore_TitleTruncation(t *testing.T) {
	long := ""
	for i := 0; i < 80; i++ {
		long += "x"
	}
	got := truncateTitle(long)
	assert.Equal(t, 61, len([]rune(got)))
	assert.Equal(t, titleEllipsis, string([]rune(got)[60]))

	assert.Equal(t, "short", truncateTitle("short"))
}

func TestStore_DeleteActiveFallsBackToMostRecent(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, 1)
	ctx := context.Background()

	older, err := repo.CreateConversation(ctx, 1)
	require.NoError(t, err)
	repo.messages[older.ID] = []models.Message{{ID: "m1", ConversationID: older.ID, Role: "user", Content: "old"}}
	require.NoError(t, store.RefreshConversations(ctx))

	active, err := store.EnsureConversation(ctx)
	require.NoError(t, err)

	require.NoError(t, store.DeleteConversation(ctx, active))

	assert.Equal(t, older.ID, store.ActiveConversation())
	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "old", entries[0].Message.Content)
}

func TestStore_DeleteLastConversationLeavesNoActive(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, 1)
	ctx := context.Background()
	active, err := store.EnsureConversation(ctx)
	require.NoError(t, err)

	require.NoError(t, store.DeleteConversation(ctx, active))

	assert.Empty(t, store.ActiveConversation())
	assert.Empty(t, store.Entries())
	assert.Empty(t, store.Conversations())
}

func TestStore_DeleteFailureKeepsState(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, 1)
	ctx := context.Background()
	active, err := store.EnsureConversation(ctx)
	require.NoError(t, err)

	repo.failDelete = true
	err = store.DeleteConversation(ctx, active)
	require.Error(t, err)

	assert.Equal(t, active, store.ActiveConversation())
	assert.Len(t, store.Conversations(), 1)
}

func TestStore_PersistedMessagesSkipsPending(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, 1)
	ctx := context.Background()
	_, err := store.EnsureConversation(ctx)
	require.NoError(t, err)

	_, err = store.InsertUserMessage(ctx, "Hello", "")
	require.NoError(t, err)
	store.InsertAssistantPlaceholder()

	history := store.PersistedMessages()
	require.Len(t, history, 1)
	assert.Equal(t, "Hello", history[0].Content)
}

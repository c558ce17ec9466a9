package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aihub/chat-go/internal/attachment"
	"github.com/aihub/chat-go/internal/config"
	"github.com/aihub/chat-go/internal/prefs"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompletion 固定回复的补全客户端
type fakeCompletion struct {
	content  string
	err      error
	gotModel string
	gotWeb   bool
	gotUnits []openai.ChatCompletionMessage
	calls    int
}

func (f *fakeCompletion) Complete(ctx context.Context, model string, enableWeb bool, messages []openai.ChatCompletionMessage) (string, error) {
	f.calls++
	f.gotModel = model
	f.gotWeb = enableWeb
	f.gotUnits = messages
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func testConfig() *config.Config {
	return &config.Config{
		AI: config.AIConfig{
			DefaultModel:         "qwen-turbo",
			AllowedModels:        []string{"qwen-turbo", "qwen-plus"},
			NativeSearchPrefixes: []string{"qwen"},
			MaxTokens:            2048,
		},
		Upload: config.UploadConfig{
			MaxFilesPerTurn: 5,
			MaxFileSize:     10 * 1024 * 1024,
			MaxExtractChars: 20000,
		},
	}
}

func newTestOrchestrator(t *testing.T, repo *fakeRepo, completion CompletionClient) *Orchestrator {
	t.Helper()
	cfg := testConfig()
	store := NewStore(repo, 1)
	processor := attachment.NewProcessor(&cfg.Upload, nil)
	return NewOrchestrator(store, processor, completion, prefs.NewService(nil), NewRenderer(time.Microsecond), cfg, 1)
}

func TestOrchestrator_SendHappyPath(t *testing.T) {
	repo := newFakeRepo()
	completion := &fakeCompletion{content: "Hi there"}
	o := newTestOrchestrator(t, repo, completion)
	ctx := context.Background()

	require.NoError(t, o.Send(ctx, "Hello"))

	entries := o.Store().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, EntryPersisted, entries[0].State)
	assert.Equal(t, "user", entries[0].Message.Role)
	assert.Equal(t, "Hello", entries[0].Message.Content)
	assert.Equal(t, EntryPersisted, entries[1].State)
	assert.Equal(t, "assistant", entries[1].Message.Role)
	assert.Equal(t, "Hi there", entries[1].Message.Content)

	// 首条消息生成标题
	id := o.Store().ActiveConversation()
	require.NotNil(t, repo.conversations[id].Title)
	assert.Equal(t, "Hello", *repo.conversations[id].Title)

	// 偏好未设置时回退到默认模型
	assert.Equal(t, "qwen-turbo", completion.gotModel)
	assert.False(t, completion.gotWeb)
	require.Len(t, completion.gotUnits, 1)
	assert.Equal(t, "Hello", completion.gotUnits[0].Content)

	assert.Equal(t, StateIdle, o.Session().State())
}

func TestOrchestrator_SendWithAttachment(t *testing.T) {
	repo := newFakeRepo()
	completion := &fakeCompletion{content: "summary"}
	o := newTestOrchestrator(t, repo, completion)
	ctx := context.Background()

	rejected := o.Stage(ctx, []attachment.File{
		{Name: "note.txt", MediaType: "text/plain", Data: []byte("abc")},
	})
	assert.Empty(t, rejected)
	require.Len(t, o.Staged(), 1)

	require.NoError(t, o.Send(ctx, ""))

	// 暂存区在发送后清空
	assert.Empty(t, o.Staged())

	entries := o.Store().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Attached files: note.txt", entries[0].Message.Content)
	assert.Contains(t, entries[0].Message.Attachments, "note.txt")

	require.Len(t, completion.gotUnits, 1)
	assert.Contains(t, completion.gotUnits[0].Content, "--- File: note.txt ---\nabc")
}

func TestOrchestrator_EmptyTurnRejected(t *testing.T) {
	repo := newFakeRepo()
	o := newTestOrchestrator(t, repo, &fakeCompletion{content: "x"})

	err := o.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyTurn)
	assert.Equal(t, 0, repo.created)
}

func TestOrchestrator_SecondSendBlockedWhileInFlight(t *testing.T) {
	repo := newFakeRepo()
	o := newTestOrchestrator(t, repo, &fakeCompletion{content: "x"})

	require.NoError(t, o.Session().BeginSend())
	err := o.Send(context.Background(), "Hello")
	assert.ErrorIs(t, err, ErrSendInFlight)
	o.Session().EndSend()
}

func TestOrchestrator_CompletionFailureKeepsUserMessage(t *testing.T) {
	repo := newFakeRepo()
	completion := &fakeCompletion{err: errors.New("upstream error: HTTP 500 - boom")}
	o := newTestOrchestrator(t, repo, completion)

	err := o.Send(context.Background(), "Hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")

	// 用户消息留在对话里，没有助手占位条目
	entries := o.Store().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "user", entries[0].Message.Role)
	assert.Equal(t, EntryPersisted, entries[0].State)

	// 状态机回到空闲，可以重新发送
	assert.Equal(t, StateIdle, o.Session().State())
	assert.Equal(t, 1, completion.calls)
}

func TestOrchestrator_UserInsertFailureRestoresStaged(t *testing.T) {
	repo := newFakeRepo()
	o := newTestOrchestrator(t, repo, &fakeCompletion{content: "x"})
	ctx := context.Background()

	o.Stage(ctx, []attachment.File{
		{Name: "note.txt", MediaType: "text/plain", Data: []byte("abc")},
	})

	repo.failInsert = true
	err := o.Send(ctx, "Hello")
	require.Error(t, err)

	// 附件回到暂存区，条目没有残留
	assert.Len(t, o.Staged(), 1)
	assert.Empty(t, o.Store().Entries())
}

func TestOrchestrator_PrefsDriveModelAndWebSearch(t *testing.T) {
	repo := newFakeRepo()
	completion := &fakeCompletion{content: "ok"}
	cfg := testConfig()
	store := NewStore(repo, 1)
	processor := attachment.NewProcessor(&cfg.Upload, nil)
	prefsSvc := prefs.NewService(nil)
	o := NewOrchestrator(store, processor, completion, prefsSvc, NewRenderer(time.Microsecond), cfg, 1)

	ctx := context.Background()
	require.NoError(t, prefsSvc.SetModel(ctx, 1, "qwen-plus"))
	require.NoError(t, prefsSvc.SetWebSearch(ctx, 1, true))

	require.NoError(t, o.Send(ctx, "search something"))

	assert.Equal(t, "qwen-plus", completion.gotModel)
	assert.True(t, completion.gotWeb)
}

func TestOrchestrator_DisallowedModelFallsBackToDefault(t *testing.T) {
	repo := newFakeRepo()
	completion := &fakeCompletion{content: "ok"}
	cfg := testConfig()
	store := NewStore(repo, 1)
	processor := attachment.NewProcessor(&cfg.Upload, nil)
	prefsSvc := prefs.NewService(nil)
	o := NewOrchestrator(store, processor, completion, prefsSvc, NewRenderer(time.Microsecond), cfg, 1)

	ctx := context.Background()
	require.NoError(t, prefsSvc.SetModel(ctx, 1, "gpt-oss-unknown"))

	require.NoError(t, o.Send(ctx, "hello"))
	assert.Equal(t, "qwen-turbo", completion.gotModel)
}

func TestOrchestrator_DeleteBlockedWhileSending(t *testing.T) {
	repo := newFakeRepo()
	o := newTestOrchestrator(t, repo, &fakeCompletion{content: "x"})
	ctx := context.Background()

	id, err := o.Store().EnsureConversation(ctx)
	require.NoError(t, err)

	require.NoError(t, o.Session().BeginSend())
	err = o.DeleteConversation(ctx, id)
	assert.ErrorIs(t, err, ErrSendInFlight)
	o.Session().EndSend()

	require.NoError(t, o.DeleteConversation(ctx, id))
	assert.Empty(t, o.Store().ActiveConversation())
}

func TestOrchestrator_SecondTurnCarriesHistory(t *testing.T) {
	repo := newFakeRepo()
	completion := &fakeCompletion{content: "Hi there"}
	o := newTestOrchestrator(t, repo, completion)
	ctx := context.Background()

	require.NoError(t, o.Send(ctx, "Hello"))
	completion.content = "It is sunny"
	require.NoError(t, o.Send(ctx, "How is the weather?"))

	require.Len(t, completion.gotUnits, 3)
	assert.Equal(t, "Hello", completion.gotUnits[0].Content)
	assert.Equal(t, "Hi there", completion.gotUnits[1].Content)
	assert.Equal(t, "How is the weather?", completion.gotUnits[2].Content)

	// 标题保持首轮内容
	id := o.Store().ActiveConversation()
	assert.Equal(t, "Hello", *repo.conversations[id].Title)
}

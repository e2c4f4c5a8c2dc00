package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"myworld-planner/internal/gateway"
	"myworld-planner/internal/model"
	"myworld-planner/internal/repository"
)

const testChat int64 = 42

type tgCall struct {
	method string
	form   url.Values
}

// fakeTelegram answers Bot API calls and records them.
type fakeTelegram struct {
	mu     sync.Mutex
	calls  []tgCall
	nextID int
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := path.Base(r.URL.Path)

	f.mu.Lock()
	f.calls = append(f.calls, tgCall{method: method, form: r.Form})
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Planner","username":"myworld_bot"}}`))
	case "sendMessage":
		_, _ = fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":0,"chat":{"id":%s,"type":"private"}}}`,
			id, r.Form.Get("chat_id"))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

func (f *fakeTelegram) sent(method string) []tgCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTelegram) texts() []string {
	var out []string
	for _, c := range f.sent("sendMessage") {
		out = append(out, c.form.Get("text"))
	}
	return out
}

func (f *fakeTelegram) lastMessage(t *testing.T) tgCall {
	t.Helper()
	msgs := f.sent("sendMessage")
	require.NotEmpty(t, msgs, "no message sent")
	return msgs[len(msgs)-1]
}

func (f *fakeTelegram) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// fakeAPI is the MyWorld backend keyed by "METHOD path".
type fakeAPI struct {
	mu     sync.Mutex
	hits   map[string]int
	routes map[string]http.HandlerFunc
}

func (a *fakeAPI) handle(route string, fn http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[route] = fn
}

func (a *fakeAPI) json(route string, status int, body any) {
	a.handle(route, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	})
}

func (a *fakeAPI) count(route string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[route]
}

func (a *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	a.mu.Lock()
	a.hits[route]++
	fn, ok := a.routes[route]
	a.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no route"}`))
		return
	}
	fn(w, r)
}

type harness struct {
	bot   *Bot
	tg    *fakeTelegram
	api   *fakeAPI
	chats *repository.ChatRepository
	msgID int
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tg := &fakeTelegram{}
	tgServer := httptest.NewServer(tg)
	t.Cleanup(tgServer.Close)

	backend := &fakeAPI{hits: make(map[string]int), routes: make(map[string]http.HandlerFunc)}
	apiServer := httptest.NewServer(backend)
	t.Cleanup(apiServer.Close)

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "bot.db"), zap.NewNop())
	require.NoError(t, err)
	chats := repository.NewChatRepository(db)

	botAPI, err := tgbotapi.NewBotAPIWithClient("TOKEN", tgServer.URL+"/bot%s/%s", tgServer.Client())
	require.NoError(t, err)

	gw, err := gateway.New(gateway.Config{BaseURL: apiServer.URL})
	require.NoError(t, err)

	b, err := New(botAPI, Deps{
		Gateway:  gw,
		Chats:    chats,
		Logger:   zaptest.NewLogger(t),
		CacheTTL: time.Minute,
		SendRate: rate.Inf,
	})
	require.NoError(t, err)
	b.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }

	tg.reset()
	return &harness{bot: b, tg: tg, api: backend, chats: chats}
}

func (h *harness) signIn(t *testing.T, chatID int64, token string) {
	t.Helper()
	err := h.chats.SessionStorage(chatID).Save(context.Background(), model.SessionRecord{
		User:        model.User{ID: "u1", Email: "ann@example.com", EmailVerified: true},
		AccessToken: token,
	})
	require.NoError(t, err)
}

func (h *harness) send(text string) {
	h.sendFrom(testChat, text)
}

func (h *harness) sendFrom(chatID int64, text string) {
	h.msgID++
	msg := &tgbotapi.Message{
		MessageID: h.msgID,
		From:      &tgbotapi.User{ID: chatID, FirstName: "Ann"},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: h.msgID, Message: msg})
}

func (h *harness) press(data string) {
	h.msgID++
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{
		UpdateID: h.msgID,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      fmt.Sprintf("cb%d", h.msgID),
			From:    &tgbotapi.User{ID: testChat},
			Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: testChat, Type: "private"}},
			Data:    data,
		},
	})
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "t1", Title: "write report", Priority: model.PriorityHigh, Status: model.StatusTodo, DueDate: "2025-03-01"},
		{ID: "t2", Title: "review PR", Status: model.StatusInProgress},
		{ID: "t3", Title: "ship release", Status: model.StatusCompleted},
	}
}

func TestProtectedCommandRequiresLogin(t *testing.T) {
	h := newHarness(t)

	h.send("/tasks")

	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Please /login first")
	assert.Zero(t, h.api.count("GET /api/v1/tasks"))
}

func TestGroupChatsAreIgnored(t *testing.T) {
	h := newHarness(t)

	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 1},
		Chat:      &tgbotapi.Chat{ID: -100, Type: "group"},
		Text:      "/help",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 5}},
	}})

	assert.Empty(t, h.tg.sent("sendMessage"))
}

func TestLoginConversation(t *testing.T) {
	h := newHarness(t)
	h.api.handle("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req model.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "ann@example.com", req.Email)
		assert.Equal(t, "hunter22", req.Password)
		_ = json.NewEncoder(w).Encode(model.LoginResponse{
			AccessToken: "tok-1",
			User:        model.User{ID: "u1", Email: req.Email, EmailVerified: true},
		})
	})

	h.send("/login")
	h.send("not-an-email")
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "valid email")

	h.send("ann@example.com")
	h.send("hunter22")

	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Signed in as <b>ann@example.com</b>")
	deleted := h.tg.sent("deleteMessage")
	require.Len(t, deleted, 1)
	assert.Equal(t, fmt.Sprint(h.msgID), deleted[0].form.Get("message_id"))

	chat, err := h.chats.FindByTelegramID(context.Background(), testChat)
	require.NoError(t, err)
	assert.Contains(t, chat.Session, "tok-1")
	assert.False(t, h.bot.hasConversation(testChat))
}

func TestLoginRejectedShowsServerMessage(t *testing.T) {
	h := newHarness(t)
	h.api.json("POST /auth/login", http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})

	h.send("/login")
	h.send("ann@example.com")
	h.send("wrong")

	texts := h.tg.texts()
	assert.Contains(t, texts[len(texts)-1], "Invalid credentials")
	for _, text := range texts {
		assert.NotContains(t, text, "session has expired")
	}
}

func TestRegisterConversationValidatesLocally(t *testing.T) {
	h := newHarness(t)

	h.send("/register")
	h.send("ann@example.com")
	h.send("longenough")
	h.send("different1")

	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Passwords do not match")
	assert.Zero(t, h.api.count("POST /auth/register"))
	assert.Len(t, h.tg.sent("deleteMessage"), 2)
}

func TestListTasksGroupsByStatus(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")
	h.api.json("GET /api/v1/tasks", http.StatusOK, sampleTasks())

	h.send("/tasks")

	last := h.tg.lastMessage(t)
	text := last.form.Get("text")
	assert.Contains(t, text, "Your tasks")
	assert.Contains(t, text, "To do")
	assert.Contains(t, text, "In progress")
	assert.Contains(t, text, "<b>overdue</b>")
	assert.Less(t, strings.Index(text, "To do"), strings.Index(text, "Completed"))

	markup := last.form.Get("reply_markup")
	assert.Contains(t, markup, "done:t1")
	assert.Contains(t, markup, "del:t2")
	assert.NotContains(t, markup, "done:t3")

	h.send(menuLabelTasks)
	assert.Equal(t, 1, h.api.count("GET /api/v1/tasks"), "second listing comes from the cache")
}

func TestListTasksRejectsBadDates(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")

	h.send("/tasks todo 03/01/2025")

	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "YYYY-MM-DD")
	assert.Zero(t, h.api.count("GET /api/v1/tasks"))
}

func TestUnauthorizedResponseEndsSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "stale")
	h.api.json("GET /api/v1/tasks", http.StatusUnauthorized, map[string]string{"message": "Token expired"})

	h.send("/tasks")

	texts := h.tg.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "session has expired")
	assert.Equal(t, 1, h.api.count("GET /api/v1/tasks"))

	chat, err := h.chats.FindByTelegramID(context.Background(), testChat)
	require.NoError(t, err)
	assert.Empty(t, chat.Session)

	h.send("/tasks")
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Please /login first")
}

func TestServerErrorShowsReference(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")
	h.api.handle("GET /api/v1/tasks", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(gateway.CorrelationIDHeader, "corr-123")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Database unavailable"}`))
	})

	h.send("/tasks")

	text := h.tg.lastMessage(t).form.Get("text")
	assert.Contains(t, text, "Failed to load tasks")
	assert.Contains(t, text, "Database unavailable")
	assert.Contains(t, text, "corr-123")
}

func TestNotFoundTask(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")

	h.send("/task nope")

	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Failed to load the task: not found")
}

func TestNewTaskConversation(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")

	var got model.CreateTaskRequest
	h.api.handle("POST /api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(model.Task{
			ID: "t9", Title: got.Title, Priority: got.Priority, DueDate: got.DueDate, Tags: got.Tags,
		})
	})

	h.send(menuLabelNewTask)
	h.send("Write report")
	h.send("-")
	h.send("soon")
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "LOW, MEDIUM, HIGH, URGENT")
	h.send("high")
	h.send("2025-11-30")
	h.send(btnSkip)
	h.send("work, q4")

	assert.Equal(t, "Write report", got.Title)
	assert.Empty(t, got.Description)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Equal(t, "2025-11-30", got.DueDate)
	assert.Empty(t, got.RecurrenceRule)
	assert.Equal(t, []string{"work", "q4"}, got.Tags)
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Task saved")
}

func TestEditKeepsSkippedFields(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")
	h.api.json("GET /api/v1/tasks/t1", http.StatusOK, sampleTasks()[0])

	var raw map[string]any
	h.api.handle("PUT /api/v1/tasks/t1", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_ = json.NewEncoder(w).Encode(model.Task{ID: "t1", Title: "write report", Status: model.StatusInProgress, Priority: model.PriorityUrgent})
	})

	h.send("/edit t1")
	for _, step := range []string{btnSkip, btnSkip, "urgent", btnSkip, btnSkip, btnSkip} {
		h.send(step)
	}

	assert.Equal(t, map[string]any{"priority": "URGENT"}, raw)
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Task updated")
}

func TestCancelInputStopsConversation(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")

	h.send("/newtask")
	h.send(btnCancelDialog)

	assert.False(t, h.bot.hasConversation(testChat))
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Input cancelled")
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")
	h.api.json("GET /api/v1/tasks/t1", http.StatusOK, sampleTasks()[0])
	h.api.json("DELETE /api/v1/tasks/t1", http.StatusNoContent, nil)
	h.api.json("GET /api/v1/tasks", http.StatusOK, []model.Task{})

	h.send("/delete t1")
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Delete task «Write report»?")

	h.send("maybe")
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Confirm or cancel")
	assert.Zero(t, h.api.count("DELETE /api/v1/tasks/t1"))

	h.send(btnConfirm)
	assert.Equal(t, 1, h.api.count("DELETE /api/v1/tasks/t1"))
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "No tasks here yet")
}

func TestDeleteCancelled(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")
	h.api.json("GET /api/v1/tasks/t1", http.StatusOK, sampleTasks()[0])

	h.press(cbDeletePrefix + "t1")
	h.send(btnCancel)

	assert.Zero(t, h.api.count("DELETE /api/v1/tasks/t1"))
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Cancelled")
	_, pending := h.bot.getConfirmation(testChat)
	assert.False(t, pending)
}

func TestDoneCallbackCompletesWithoutConfirmation(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")

	var raw map[string]any
	h.api.handle("PUT /api/v1/tasks/t1", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_ = json.NewEncoder(w).Encode(model.Task{ID: "t1", Title: "write report", Status: model.StatusCompleted})
	})

	h.press(cbDonePrefix + "t1")

	assert.Len(t, h.tg.sent("answerCallbackQuery"), 1)
	assert.Equal(t, map[string]any{"status": "COMPLETED"}, raw)
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "«Write report» is done")
}

func TestCancelSubscriptionOnlyWhenActive(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")
	h.api.json("GET /api/v1/subscriptions/s1", http.StatusOK, model.Subscription{
		ID: "s1", ModuleName: "Planner", Status: model.SubscriptionCancelled,
	})

	h.press(cbUnsubscribePrefix + "s1")

	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "cannot be cancelled")
	_, pending := h.bot.getConfirmation(testChat)
	assert.False(t, pending)
}

func TestCancelActiveSubscription(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")
	h.api.json("GET /api/v1/subscriptions/s1", http.StatusOK, model.Subscription{
		ID: "s1", ModuleName: "Planner", Status: model.SubscriptionActive,
	})
	h.api.json("DELETE /api/v1/subscriptions/s1", http.StatusNoContent, nil)

	h.press(cbUnsubscribePrefix + "s1")
	h.send("yes")

	assert.Equal(t, 1, h.api.count("DELETE /api/v1/subscriptions/s1"))
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Subscription cancelled")
}

func TestSubscriptionsOfferCancelOnlyForActive(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")
	h.api.json("GET /api/v1/subscriptions", http.StatusOK, []model.Subscription{
		{ID: "s1", ModuleName: "Planner", Status: model.SubscriptionActive, QuotaRemaining: 5},
		{ID: "s2", ModuleName: "Coach", Status: model.SubscriptionExpired},
	})

	h.send("/subscriptions")

	markup := h.tg.lastMessage(t).form.Get("reply_markup")
	assert.Contains(t, markup, cbUnsubscribePrefix+"s1")
	assert.NotContains(t, markup, cbUnsubscribePrefix+"s2")
}

func TestAnalyzeUsageAndResult(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")
	h.api.json("POST /api/v1/ai/analyze", http.StatusOK, model.AnalysisResponse{Content: "Keep going", InputTokens: 10, OutputTokens: 5})

	h.send("/analyze weekly stuff")
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "Usage: /analyze")

	h.send("/analyze summary my week")
	text := h.tg.lastMessage(t).form.Get("text")
	assert.Contains(t, text, "Summary")
	assert.Contains(t, text, "Keep going")
	assert.Contains(t, text, "15 tokens")
}

func TestAIRegenerateShowsNewContent(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")
	h.api.handle("POST /api/v1/ai/cache/c1/regenerate", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","type":"SUMMARY","responseContent":"fresh analysis","inputTokens":10,"outputTokens":20,"estimatedCost":"0.0015","isRegenerated":true}`))
	})

	h.send("/airegen c1 summary my week")

	text := h.tg.lastMessage(t).form.Get("text")
	assert.Contains(t, text, "Summary</b> · regenerated")
	assert.Contains(t, text, "fresh analysis")
	assert.Contains(t, text, "30 tokens · $0.0015")
	assert.Equal(t, 1, h.api.count("POST /api/v1/ai/cache/c1/regenerate"))
}

func TestDigestToggle(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")

	h.send("/digest off")
	chat, err := h.chats.FindByTelegramID(context.Background(), testChat)
	require.NoError(t, err)
	assert.False(t, chat.DigestEnabled)

	h.send("/digest")
	assert.Contains(t, h.tg.lastMessage(t).form.Get("text"), "<b>off</b>")
}

func TestSendDigests(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")
	h.signIn(t, 43, "tok")
	require.NoError(t, h.chats.SetDigest(context.Background(), 43, false))
	h.api.json("GET /api/v1/tasks", http.StatusOK, sampleTasks())

	require.NoError(t, h.bot.SendDigests(context.Background()))

	msgs := h.tg.sent("sendMessage")
	require.Len(t, msgs, 1)
	assert.Equal(t, fmt.Sprint(testChat), msgs[0].form.Get("chat_id"))
	assert.Contains(t, msgs[0].form.Get("text"), "Task digest")
}

func TestRefreshTokens(t *testing.T) {
	h := newHarness(t)
	h.bot.now = time.Now
	h.signIn(t, testChat, signedToken(t, time.Now().Add(5*time.Minute)))
	h.signIn(t, 43, signedToken(t, time.Now().Add(2*time.Hour)))
	h.api.json("POST /auth/refresh", http.StatusOK, model.RefreshResponse{AccessToken: "fresh-token"})

	require.NoError(t, h.bot.RefreshTokens(context.Background()))

	assert.Equal(t, 1, h.api.count("POST /auth/refresh"))
	chat, err := h.chats.FindByTelegramID(context.Background(), testChat)
	require.NoError(t, err)
	assert.Contains(t, chat.Session, "fresh-token")
}

func TestLogoutWithExpiredTokenSendsOneMessage(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "stale")
	h.api.json("POST /auth/logout", http.StatusUnauthorized, map[string]string{"message": "Token expired"})

	h.send("/logout")

	texts := h.tg.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Signed out")
	assert.Equal(t, 1, h.api.count("POST /auth/logout"))

	chat, err := h.chats.FindByTelegramID(context.Background(), testChat)
	require.NoError(t, err)
	assert.Empty(t, chat.Session)
}

func TestLogoutAllSignsOut(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, testChat, "tok")
	h.api.json("DELETE /api/v1/sessions", http.StatusNoContent, nil)

	h.send("/logoutall")
	h.send(btnConfirm)

	assert.Equal(t, 1, h.api.count("DELETE /api/v1/sessions"))
	chat, err := h.chats.FindByTelegramID(context.Background(), testChat)
	require.NoError(t, err)
	assert.Empty(t, chat.Session)
}

func TestParseTaskFilter(t *testing.T) {
	f, err := parseTaskFilter("in-progress 2025-01-01 2025-02-01")
	require.NoError(t, err)
	assert.Equal(t, model.TaskFilter{Status: model.StatusInProgress, From: "2025-01-01", To: "2025-02-01"}, f)

	f, err = parseTaskFilter("2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, model.TaskFilter{From: "2025-01-01"}, f)

	_, err = parseTaskFilter("todo 2025-01-01 2025-02-01 extra")
	assert.Error(t, err)
}

func TestSplitCallback(t *testing.T) {
	prefix, target, ok := splitCallback("unsub:s1")
	assert.True(t, ok)
	assert.Equal(t, cbUnsubscribePrefix, prefix)
	assert.Equal(t, "s1", target)

	_, _, ok = splitCallback("done:")
	assert.False(t, ok)
	_, _, ok = splitCallback("bogus")
	assert.False(t, ok)
}

func TestIsPublicPath(t *testing.T) {
	assert.True(t, isPublicPath("/auth/login"))
	assert.True(t, isPublicPath("/api/auth/register/"))
	assert.False(t, isPublicPath("/api/v1/tasks"))
	assert.True(t, isLogoutPath("/auth/logout/"))
	assert.False(t, isLogoutPath("/api/v1/sessions"))
}

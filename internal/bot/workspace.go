package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"myworld-planner/internal/api"
	"myworld-planner/internal/cache"
	"myworld-planner/internal/gateway"
	"myworld-planner/internal/service"
	"myworld-planner/internal/session"
)

// publicPaths answer 401 for bad credentials rather than an expired session.
var publicPaths = []string{"/auth/login", "/auth/register"}

// logoutPath may answer 401 for a token the user is discarding anyway.
const logoutPath = "/auth/logout"

func isPublicPath(p string) bool {
	p = strings.TrimRight(p, "/")
	for _, public := range publicPaths {
		if strings.HasSuffix(p, public) {
			return true
		}
	}
	return false
}

func isLogoutPath(p string) bool {
	return strings.HasSuffix(strings.TrimRight(p, "/"), logoutPath)
}

// workspace is everything one chat needs to talk to the API.
type workspace struct {
	chatID       int64
	store        *session.Store
	svc          *service.Suite
	pendingPhone string
}

// workspace returns the chat's workspace, restoring its persisted session on first use.
func (b *Bot) workspace(ctx context.Context, chatID int64) (*workspace, error) {
	b.mu.Lock()
	if ws, ok := b.workspaces[chatID]; ok {
		b.mu.Unlock()
		return ws, nil
	}
	b.mu.Unlock()

	logger := b.logger.With(zap.Int64("chat_id", chatID))
	store := session.NewStore(b.chats.SessionStorage(chatID), logger)
	if err := store.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restore chat %d: %w", chatID, err)
	}

	gw := b.gateway.With(
		gateway.WithSession(store),
		gateway.WithUnauthorizedHandler(func(_ context.Context, apiErr *gateway.Error) {
			b.onUnauthorized(chatID, apiErr)
		}),
		gateway.WithLogger(logger),
	)
	ws := &workspace{
		chatID: chatID,
		store:  store,
		svc:    service.NewSuite(api.New(gw), store, cache.New(b.cacheTTL), logger),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.workspaces[chatID]; ok {
		return existing, nil
	}
	b.workspaces[chatID] = ws
	return ws, nil
}

func (b *Bot) onUnauthorized(chatID int64, apiErr *gateway.Error) {
	if isPublicPath(apiErr.Path) || isLogoutPath(apiErr.Path) {
		return
	}
	b.logger.Info("session expired",
		zap.Int64("chat_id", chatID),
		zap.String("path", apiErr.Path),
		zap.String("correlation_id", apiErr.CorrelationID),
	)
	b.clearConversation(chatID)
	b.clearConfirmation(chatID)
	if err := b.sendText(chatID, "🔒 Your session has expired. Please /login again."); err != nil {
		b.logger.Warn("notify session expiry", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"myworld-planner/internal/forms"
	"myworld-planner/internal/model"
	"myworld-planner/internal/service"
)

type conversationKind int

const (
	kindRegister conversationKind = iota + 1
	kindLogin
	kindNewTask
	kindEditTask
	kindPassword
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageEmail
	stagePassword
	stageConfirmPassword
	stageOldPassword
	stageNewPassword
	stageTitle
	stageDescription
	stagePriority
	stageDueDate
	stageRecurrence
	stageTags
)

type conversationState struct {
	kind  conversationKind
	stage conversationStage

	email       string
	password    string
	oldPassword string

	input   service.TaskInput
	current model.Task
	update  model.UpdateTaskRequest
}

type confirmationAction int

const (
	actionDeleteTask confirmationAction = iota + 1
	actionCancelSubscription
	actionDeleteAICache
	actionClearAICache
	actionEndSession
	actionLogoutAll
)

type confirmationRequest struct {
	action confirmationAction
	target string
	label  string
	aiType model.AnalysisType
}

func (b *Bot) startRegisterConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureChat(ctx, msg.From); err != nil {
		return err
	}
	b.logger.Info("start register conversation", zap.Int64("chat_id", msg.Chat.ID))
	b.setConversation(msg.Chat.ID, &conversationState{kind: kindRegister, stage: stageEmail})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Creating a MyWorld account.\n<b>Step 1:</b> what is your email?", cancelKeyboard())
}

func (b *Bot) startLoginConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureChat(ctx, msg.From); err != nil {
		return err
	}
	b.logger.Info("start login conversation", zap.Int64("chat_id", msg.Chat.ID))
	b.setConversation(msg.Chat.ID, &conversationState{kind: kindLogin, stage: stageEmail})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🔑 Signing in.\n<b>Step 1:</b> your email?", cancelKeyboard())
}

func (b *Bot) startNewTaskConversation(_ context.Context, _ *workspace, msg *tgbotapi.Message) error {
	b.logger.Info("start new task conversation", zap.Int64("chat_id", msg.Chat.ID))
	b.setConversation(msg.Chat.ID, &conversationState{kind: kindNewTask, stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Creating a new task.\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
}

func (b *Bot) startEditConversation(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return b.sendText(msg.Chat.ID, "Give the task ID: /edit &lt;id&gt;")
	}
	task, err := ws.svc.Tasks.Get(ctx, id)
	if err != nil {
		return b.replyError(msg.Chat.ID, "load the task", err)
	}

	b.setConversation(msg.Chat.ID, &conversationState{kind: kindEditTask, stage: stageTitle, current: task})
	text := fmt.Sprintf("✏️ Editing <b>%s</b>. Press «Skip» to keep a value.\n<b>Step 1:</b> new title?", escape(normalizeTitle(task.Title)))
	return b.sendWithReplyMarkup(msg.Chat.ID, text, skipKeyboard())
}

func (b *Bot) startPasswordConversation(_ context.Context, _ *workspace, msg *tgbotapi.Message) error {
	b.setConversation(msg.Chat.ID, &conversationState{kind: kindPassword, stage: stageOldPassword})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🔐 Changing password. Your messages with passwords will be deleted.\n<b>Step 1:</b> current password?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.Chat.ID)
	if state == nil {
		return nil
	}

	switch state.kind {
	case kindRegister, kindLogin:
		return b.handleCredentialsStep(ctx, msg, state)
	case kindPassword:
		return b.handlePasswordStep(ctx, msg, state)
	case kindNewTask, kindEditTask:
		return b.handleTaskStep(ctx, msg, state)
	default:
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "The dialog was reset. Please start again.")
	}
}

func (b *Bot) handleCredentialsStep(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch state.stage {
	case stageEmail:
		if err := forms.Validate(forms.LoginForm{Email: text, Password: "-"}); err != nil {
			return b.sendWithReplyMarkup(chatID, "⚠️ "+escape(err.Error()), cancelKeyboard())
		}
		state.email = text
		state.stage = stagePassword
		return b.sendWithReplyMarkup(chatID, "🔒 <b>Step 2:</b> password? The message will be deleted.", cancelKeyboard())
	case stagePassword:
		b.deleteMessage(chatID, msg.MessageID)
		state.password = msg.Text
		if state.kind == kindLogin {
			b.clearConversation(chatID)
			return b.finishLogin(ctx, chatID, state)
		}
		state.stage = stageConfirmPassword
		return b.sendWithReplyMarkup(chatID, "🔒 <b>Step 3:</b> repeat the password.", cancelKeyboard())
	case stageConfirmPassword:
		b.deleteMessage(chatID, msg.MessageID)
		b.clearConversation(chatID)
		return b.finishRegister(ctx, chatID, state, msg.Text)
	default:
		b.clearConversation(chatID)
		return b.sendText(chatID, "The dialog was reset. Please start again.")
	}
}

func (b *Bot) finishLogin(ctx context.Context, chatID int64, state *conversationState) error {
	ws, err := b.workspace(ctx, chatID)
	if err != nil {
		return err
	}
	user, err := ws.svc.Account.Login(ctx, forms.LoginForm{Email: state.email, Password: state.password})
	if err != nil {
		return b.replyError(chatID, "sign in", err)
	}
	b.logger.Info("signed in", zap.Int64("chat_id", chatID), zap.String("user_id", user.ID))

	text := fmt.Sprintf("✅ Signed in as <b>%s</b>.", escape(user.Email))
	if !user.EmailVerified {
		text += "\nYour email is not verified yet: /verifyemail &lt;code&gt;"
	}
	return b.sendText(chatID, text)
}

func (b *Bot) finishRegister(ctx context.Context, chatID int64, state *conversationState, confirm string) error {
	ws, err := b.workspace(ctx, chatID)
	if err != nil {
		return err
	}
	resp, err := ws.svc.Account.Register(ctx, forms.RegisterForm{
		Email:           state.email,
		Password:        state.password,
		ConfirmPassword: confirm,
	})
	if err != nil {
		return b.replyError(chatID, "register", err)
	}
	b.logger.Info("registered", zap.Int64("chat_id", chatID))

	text := "✅ Account created. Check your inbox for the verification code, then /login."
	if resp.Message != "" {
		text = "✅ " + escape(resp.Message) + "\nNext: /login"
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handlePasswordStep(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	chatID := msg.Chat.ID
	b.deleteMessage(chatID, msg.MessageID)

	switch state.stage {
	case stageOldPassword:
		state.oldPassword = msg.Text
		state.stage = stageNewPassword
		return b.sendWithReplyMarkup(chatID, "🔐 <b>Step 2:</b> new password (at least 8 characters)?", cancelKeyboard())
	case stageNewPassword:
		state.password = msg.Text
		state.stage = stageConfirmPassword
		return b.sendWithReplyMarkup(chatID, "🔐 <b>Step 3:</b> repeat the new password.", cancelKeyboard())
	case stageConfirmPassword:
		b.clearConversation(chatID)
		ws, ok, err := b.authorized(ctx, chatID)
		if err != nil || !ok {
			return err
		}
		message, err := ws.svc.Account.ChangePassword(ctx, forms.PasswordChangeForm{
			OldPassword:     state.oldPassword,
			NewPassword:     state.password,
			ConfirmPassword: msg.Text,
		})
		if err != nil {
			return b.replyError(chatID, "change the password", err)
		}
		if message == "" {
			message = "Password changed."
		}
		return b.sendText(chatID, "✅ "+escape(message))
	default:
		b.clearConversation(chatID)
		return b.sendText(chatID, "The dialog was reset. Please start again.")
	}
}

func (b *Bot) handleTaskStep(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	skip := isSkipInput(text)
	editing := state.kind == kindEditTask

	switch state.stage {
	case stageTitle:
		switch {
		case editing && skip:
		case text == "" || skip:
			return b.sendWithReplyMarkup(chatID, "The title cannot be empty.", cancelKeyboard())
		case editing:
			state.update.Title = &text
		default:
			state.input.Title = text
		}
		state.stage = stageDescription
		return b.sendWithReplyMarkup(chatID, "✏️ Add a short description (or press «Skip»).", skipKeyboard())
	case stageDescription:
		if !skip {
			if editing {
				state.update.Description = &text
			} else {
				state.input.Description = text
			}
		}
		state.stage = stagePriority
		return b.sendWithReplyMarkup(chatID, "🎯 Pick a priority (or «Skip»).", priorityKeyboard())
	case stagePriority:
		if !skip {
			p, ok := model.ParseTaskPriority(text)
			if !ok {
				return b.sendWithReplyMarkup(chatID, "Pick one of LOW, MEDIUM, HIGH, URGENT.", priorityKeyboard())
			}
			if editing {
				state.update.Priority = &p
			} else {
				state.input.Priority = p
			}
		}
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(chatID, "⏰ Due date as <code>2025-11-30</code> (or «Skip»).", skipKeyboard())
	case stageDueDate:
		if !skip {
			if _, err := time.Parse(model.DateLayout, text); err != nil {
				return b.sendWithReplyMarkup(chatID, "I cannot read that date. Use <code>2025-11-30</code> or «Skip».", skipKeyboard())
			}
			if editing {
				state.update.DueDate = &text
			} else {
				state.input.DueDate = text
			}
		}
		state.stage = stageRecurrence
		return b.sendWithReplyMarkup(chatID, "🔁 Recurrence rule, e.g. <code>FREQ=WEEKLY;BYDAY=MO</code> (or «Skip»).", skipKeyboard())
	case stageRecurrence:
		if !skip {
			rule := strings.ToUpper(text)
			if editing {
				state.update.RecurrenceRule = &rule
			} else {
				state.input.RecurrenceRule = rule
			}
		}
		state.stage = stageTags
		return b.sendWithReplyMarkup(chatID, "🏷 Tags separated by commas (or «Skip»).", skipKeyboard())
	case stageTags:
		if !skip {
			tags := parseTags(text)
			if editing {
				state.update.Tags = tags
			} else {
				state.input.Tags = tags
			}
		}
		b.clearConversation(chatID)
		if editing {
			return b.finishTaskEdit(ctx, chatID, state)
		}
		return b.finishTaskCreation(ctx, chatID, state.input)
	default:
		b.clearConversation(chatID)
		return b.sendText(chatID, "The dialog was reset. Try /newtask again.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, input service.TaskInput) error {
	ws, ok, err := b.authorized(ctx, chatID)
	if err != nil || !ok {
		return err
	}

	task, err := ws.svc.Tasks.Create(ctx, input)
	if err != nil {
		return b.replyError(chatID, "save the task", err)
	}
	b.logger.Info("task created", zap.Int64("chat_id", chatID), zap.String("task_id", task.ID))

	return b.sendText(chatID, "✅ <b>Task saved</b>\n"+formatTaskDetail(task, b.now()))
}

func (b *Bot) finishTaskEdit(ctx context.Context, chatID int64, state *conversationState) error {
	if isEmptyUpdate(state.update) {
		return b.sendText(chatID, "Nothing to change.")
	}
	ws, ok, err := b.authorized(ctx, chatID)
	if err != nil || !ok {
		return err
	}

	task, err := ws.svc.Tasks.Update(ctx, state.current.ID, state.update)
	if err != nil {
		return b.replyError(chatID, "update the task", err)
	}
	b.logger.Info("task updated", zap.Int64("chat_id", chatID), zap.String("task_id", task.ID))

	return b.sendText(chatID, "✅ <b>Task updated</b>\n"+formatTaskDetail(task, b.now()))
}

func isEmptyUpdate(u model.UpdateTaskRequest) bool {
	return u.Title == nil && u.Description == nil && u.Priority == nil && u.Status == nil &&
		u.DueDate == nil && u.RecurrenceRule == nil && u.Tags == nil
}

func parseTags(text string) []string {
	var tags []string
	for _, part := range strings.Split(text, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (b *Bot) askConfirmation(chatID int64, req confirmationRequest, prompt string) error {
	b.setConfirmation(chatID, req)
	return b.sendWithReplyMarkup(chatID, prompt, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(chatID)
		ws, ok, err := b.authorized(ctx, chatID)
		if err != nil || !ok {
			return err
		}
		return b.performConfirmed(ctx, ws, chatID, req)
	case isCancelInput(text):
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "↩️ Cancelled.")
	default:
		return b.sendWithReplyMarkup(chatID, fmt.Sprintf("Confirm or cancel: %s", req.label), confirmKeyboard())
	}
}

func (b *Bot) performConfirmed(ctx context.Context, ws *workspace, chatID int64, req confirmationRequest) error {
	switch req.action {
	case actionDeleteTask:
		return b.deleteTask(ctx, ws, chatID, req.target)
	case actionCancelSubscription:
		return b.cancelSubscription(ctx, ws, chatID, req.target)
	case actionDeleteAICache:
		return b.deleteAICache(ctx, ws, chatID, req.target)
	case actionClearAICache:
		return b.clearAICache(ctx, ws, chatID, req.aiType)
	case actionEndSession:
		return b.endSession(ctx, ws, chatID, req.target)
	case actionLogoutAll:
		return b.logoutAll(ctx, ws, chatID)
	default:
		return nil
	}
}

func (b *Bot) getConfirmation(chatID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[chatID]
	return req, ok
}

func (b *Bot) setConfirmation(chatID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[chatID] = req
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, chatID)
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

// Package webhook is the inbound entry point of the platform: it resolves
// the tenant bot an update is addressed to, classifies the sender as owner
// or subscriber, and routes to the authoring flow or the navigation engine.
package webhook

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/chatforge/chatforge/authoring"
	coreconfig "github.com/chatforge/chatforge/core/config"
	"github.com/chatforge/chatforge/core/logger"
	"github.com/chatforge/chatforge/menu"
	"github.com/chatforge/chatforge/navigation"
	"github.com/chatforge/chatforge/subscriber"
	"github.com/chatforge/chatforge/tenant"
	"github.com/chatforge/chatforge/transport"
	"github.com/chatforge/chatforge/transport/sender"
)

// Outcome is the transport-level result of handling one update. Non-2xx
// statuses signal the bot platform to redeliver; client errors are
// acknowledged so they are never retried.
type Outcome struct {
	Status int
}

var (
	outcomeOK        = Outcome{Status: http.StatusOK}
	outcomeNotFound  = Outcome{Status: http.StatusNotFound}
	outcomeRetriable = Outcome{Status: http.StatusInternalServerError}
)

// Dispatcher routes inbound updates. It holds no per-tenant state: tenant
// credentials and menu data are resolved per request, which keeps concurrent
// updates for different tenants fully independent.
type Dispatcher struct {
	tenants  *tenant.Store
	subs     *subscriber.Store
	engine   *navigation.Engine
	flow     *authoring.Flow
	sender   *sender.Dispatcher
	delegate Delegator
	limiter  *rateLimiter
	client   *http.Client
}

// NewDispatcher wires the webhook dispatcher over its collaborators.
func NewDispatcher(
	tenants *tenant.Store,
	subs *subscriber.Store,
	engine *navigation.Engine,
	flow *authoring.Flow,
	snd *sender.Dispatcher,
	delegate Delegator,
	rateCfg coreconfig.RateLimitConfig,
) *Dispatcher {
	if delegate == nil {
		delegate = LogDelegator{}
	}
	return &Dispatcher{
		tenants:  tenants,
		subs:     subs,
		engine:   engine,
		flow:     flow,
		sender:   snd,
		delegate: delegate,
		limiter:  newRateLimiter(rateCfg),
		client:   transport.BuildHTTPClient(),
	}
}

// Handle processes one inbound update addressed to the tenant bot behind
// username. Unknown tenants and malformed updates are terminal; transient
// storage failures report retriable so the platform redelivers.
func (d *Dispatcher) Handle(ctx context.Context, username string, upd tele.Update) Outcome {
	t, err := d.tenants.ByUsername(ctx, username)
	if errors.Is(err, tenant.ErrNotFound) {
		logger.Warn(ctx, "webhook", "tenant.unknown", slog.String("tenant", username))
		return outcomeNotFound
	}
	if err != nil {
		return outcomeRetriable
	}

	user, chat, kind := classifyUpdate(upd)
	if user == nil || chat == nil {
		logger.Warn(ctx, "webhook", "update.malformed",
			slog.Int64("tenant_id", t.ID),
			slog.Int("update_id", upd.ID),
		)
		return outcomeOK
	}

	ctx = logger.WithUpdateMeta(ctx, upd.ID, t.ID, user.ID)

	if !d.limiter.Allow(t.ID, user.ID, kind) {
		logger.Warn(ctx, "webhook", "rate_limited",
			slog.Int64("tenant_id", t.ID),
			slog.Int64("user_id", user.ID),
		)
		return outcomeOK
	}

	token, err := d.tenants.DecryptedToken(ctx, t.ID)
	if err != nil {
		return outcomeRetriable
	}
	bot, err := transport.NewTenantBot(token, d.client)
	if err != nil {
		logger.Error(ctx, "webhook", "bot.init_failed",
			slog.Int64("tenant_id", t.ID),
			slog.String("err", err.Error()),
		)
		return outcomeRetriable
	}

	if upd.Callback != nil {
		d.ackCallback(ctx, bot, upd.Callback)
	}

	if t.IsOwner(user.ID) && upd.Message != nil {
		return d.handleOwner(ctx, t, bot, chat, user.ID, upd.Message.Text)
	}
	return d.handleSubscriber(ctx, t, bot, chat, user, upd)
}

func classifyUpdate(upd tele.Update) (*tele.User, *tele.Chat, string) {
	switch {
	case upd.Callback != nil:
		var chat *tele.Chat
		if upd.Callback.Message != nil {
			chat = upd.Callback.Message.Chat
		}
		return upd.Callback.Sender, chat, coreconfig.UpdateCallback
	case upd.Message != nil:
		return upd.Message.Sender, upd.Message.Chat, coreconfig.UpdateMessage
	}
	return nil, nil, ""
}

func (d *Dispatcher) handleOwner(ctx context.Context, t *tenant.Tenant, bot *tele.Bot, chat *tele.Chat, userID int64, text string) Outcome {
	reply, err := d.flow.HandleText(ctx, t, userID, text)
	if err != nil && !errors.Is(err, tenant.ErrLimitExceeded) {
		logger.Error(ctx, "webhook", "authoring.failed",
			slog.Int64("tenant_id", t.ID),
			slog.String("err", err.Error()),
		)
		return outcomeRetriable
	}
	if reply.Text != "" {
		d.send(ctx, bot, chat, Outbound{Text: reply.Text}, "authoring.reply")
	}
	return outcomeOK
}

func (d *Dispatcher) handleSubscriber(ctx context.Context, t *tenant.Tenant, bot *tele.Bot, chat *tele.Chat, user *tele.User, upd tele.Update) Outcome {
	if !t.IsOwner(user.ID) {
		if _, err := d.subs.Upsert(ctx, t.ID, subscriber.Profile{
			TelegramID: user.ID,
			Username:   user.Username,
			FirstName:  user.FirstName,
			LastName:   user.LastName,
			Language:   user.LanguageCode,
		}); err != nil {
			logger.Error(ctx, "webhook", "subscriber.upsert_failed",
				slog.Int64("tenant_id", t.ID),
				slog.String("err", err.Error()),
			)
			return outcomeRetriable
		}
	}

	eff, err := d.route(ctx, t, user.ID, upd)
	if err != nil {
		if errors.Is(err, navigation.ErrStorageUnavailable) || errors.Is(err, navigation.ErrStorageConflict) {
			return outcomeRetriable
		}
		logger.Error(ctx, "webhook", "navigation.failed",
			slog.Int64("tenant_id", t.ID),
			slog.String("err", err.Error()),
		)
		return outcomeRetriable
	}

	if eff.Kind == navigation.EffectDelegate {
		d.delegate.Delegate(ctx, eff.Collaborator, t.ID, user.ID, eff.Payload)
	}
	d.send(ctx, bot, chat, RenderEffect(eff), "nav.render")
	return outcomeOK
}

// route maps the update to the matching engine transition.
func (d *Dispatcher) route(ctx context.Context, t *tenant.Tenant, userID int64, upd tele.Update) (navigation.Effect, error) {
	if upd.Callback != nil {
		key, payload := parseCallbackData(upd.Callback.Data)
		switch key {
		case cbBack:
			return d.engine.Back(ctx, t.ID, userID)
		case cbNavigate:
			menuID, buttonID, err := parseNavPayload(payload)
			if err != nil {
				logger.Warn(ctx, "webhook", "callback.malformed",
					slog.Int64("tenant_id", t.ID),
					slog.String("err", err.Error()),
				)
				return d.engine.Entry(ctx, t.ID, userID)
			}
			return d.engine.Press(ctx, t.ID, userID, menuID, buttonID)
		}
		return d.engine.Entry(ctx, t.ID, userID)
	}

	text := strings.TrimSpace(upd.Message.Text)
	switch {
	case text == "/start":
		return d.engine.Entry(ctx, t.ID, userID)
	case isBackText(text):
		return d.engine.Back(ctx, t.ID, userID)
	case strings.HasPrefix(text, "/"):
		eff, err := d.engine.Command(ctx, t.ID, userID, text)
		if errors.Is(err, menu.ErrNotFound) {
			return d.engine.Entry(ctx, t.ID, userID)
		}
		return eff, err
	}
	// Free text from a subscriber re-shows their menu.
	return d.engine.Entry(ctx, t.ID, userID)
}

func (d *Dispatcher) ackCallback(ctx context.Context, bot *tele.Bot, cb *tele.Callback) {
	err := d.sender.Enqueue(ctx, "callback.ack", func() error {
		return bot.Respond(cb)
	})
	if err != nil {
		logger.Warn(ctx, "webhook", "callback.ack_dropped", slog.String("err", err.Error()))
	}
}

func (d *Dispatcher) send(ctx context.Context, bot *tele.Bot, chat *tele.Chat, out Outbound, action string) {
	recipient := tele.ChatID(chat.ID)
	err := d.sender.Enqueue(ctx, action, func() error {
		if out.Markup != nil {
			_, err := bot.Send(recipient, out.Text, out.Markup)
			return err
		}
		_, err := bot.Send(recipient, out.Text)
		return err
	})
	if err != nil {
		logger.Error(ctx, "webhook", "send.enqueue_failed",
			slog.String("op", action),
			slog.String("err", err.Error()),
		)
	}
}

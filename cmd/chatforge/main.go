package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/chatforge/chatforge/authoring"
	"github.com/chatforge/chatforge/core/bootstrap"
	corecmd "github.com/chatforge/chatforge/core/cmd"
	coreconfig "github.com/chatforge/chatforge/core/config"
	"github.com/chatforge/chatforge/menu"
	"github.com/chatforge/chatforge/navigation"
	"github.com/chatforge/chatforge/subscriber"
	"github.com/chatforge/chatforge/tenant"
	"github.com/chatforge/chatforge/transport/sender"
	"github.com/chatforge/chatforge/webhook"
	"github.com/chatforge/chatforge/wizard"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        coreconfig.Load,
		Bootstrap:         buildApp,
	})
	if err != nil {
		log.Fatalf("chatforge: %v", err)
	}
}

type app struct {
	db     *sqlx.DB
	sender *sender.Dispatcher
	server *webhook.Server
}

func buildApp(cfg *coreconfig.Config) (corecmd.App, error) {
	res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}

	cipher, err := tenant.NewCipher(cfg.Security.EncryptionKey)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	tenants := tenant.NewStore(res.DB, cipher)
	subs := subscriber.NewStore(res.DB)
	menus := menu.NewStore(res.DB)
	wizards := wizard.NewStore(res.DB)

	contexts := navigation.NewSQLContextStore(res.DB)
	events := navigation.NewSQLEventLog(res.DB)
	engine := navigation.NewEngine(menus, contexts, events)

	flow := authoring.NewFlow(tenants, menus, wizards, events)
	snd := sender.NewDispatcher(sender.Options{})

	dispatcher := webhook.NewDispatcher(tenants, subs, engine, flow, snd, nil, cfg.RateLimit)
	server := webhook.NewServer(cfg.Server, dispatcher, tenants)

	return &app{db: res.DB, sender: snd, server: server}, nil
}

func (a *app) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *app) Close(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.sender.Close()
	if dbErr := a.db.Close(); dbErr != nil && err == nil {
		err = dbErr
	}
	return err
}

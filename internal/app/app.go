// Package app assembles the mall bot: storage, cart, checkout flow, and the
// Telegram wiring on top of the reusable core.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	tele "gopkg.in/telebot.v4"

	"mallbot/core/bootstrap"
	corecmd "mallbot/core/cmd"
	coreconfig "mallbot/core/config"
	"mallbot/core/logger"
	coretelegram "mallbot/core/telegram"
	"mallbot/core/telegram/callbacks"
	"mallbot/core/telegram/commands"
	"mallbot/core/telegram/format"
	tghelpers "mallbot/core/telegram/helpers"
	"mallbot/core/telegram/middleware"
	"mallbot/core/telegram/router"
	"mallbot/core/telegram/state"
	"mallbot/internal/cart"
	"mallbot/internal/checkout"
	"mallbot/internal/models"
	"mallbot/internal/orders"
	"mallbot/internal/storage/pg"
	"mallbot/internal/views"
)

// App holds the assembled application.
type App struct {
	cfg      *Config
	sessions state.Manager
	cart     *cart.Store
	store    *pg.Storage
	flow     *checkout.Flow
	views    *views.Views

	closeDB func() error
}

// Bootstrap initializes infrastructure and builds the application graph.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	store := pg.New(res.DB)
	carts := cart.NewStore()
	sessions, err := buildSessions(cfg.CoreConfig())
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		sessions: sessions,
		cart:     carts,
		store:    store,
		flow:     checkout.NewFlow(sessions, carts, orders.NewService(store), presenter{}),
		views:    views.New(store, carts),
		closeDB:  res.DB.Close,
	}
	app.registerStateHandlers()
	return app, nil
}

func buildSessions(cfg *coreconfig.Config) (state.Manager, error) {
	switch cfg.Session.Backend {
	case coreconfig.SessionBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("app: redis session backend unreachable: %w", err)
		}
		ttl := time.Duration(cfg.Session.IdleMinutes) * time.Minute
		return state.NewRedisManager(rdb, ttl), nil
	default:
		return state.NewMemoryManager(), nil
	}
}

// registerStateHandlers binds every checkout state to the flow's text entry.
// The flow itself decides what each state does with the message.
func (a *App) registerStateHandlers() {
	textHandler := func(c tele.Context) error {
		a.flow.HandleText(a.flowCtx(c), c.Sender().ID, c.Text())
		return nil
	}
	for _, st := range []state.State{
		checkout.StateCollectingAddress,
		checkout.StateCollectingPhone,
		checkout.StateConfirming,
		checkout.StateCollectingTxRef,
	} {
		state.RegisterHandler(st, textHandler)
	}
}

func (a *App) flowCtx(c tele.Context) context.Context {
	return withTele(tghelpers.BuildContext(c), c)
}

func profileOf(c tele.Context) checkout.Profile {
	s := c.Sender()
	if s == nil {
		return checkout.Profile{}
	}
	return checkout.Profile{
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Username:  s.Username,
	}
}

// TelegramRunOptions builds the bot wiring for the core runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)
	a.registerCallbacks(reg)
	reg.SetTextFallback(func(c tele.Context) error {
		return tghelpers.SendText(c, "I didn't understand that. Use /start to browse stores or /help for commands.")
	})

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(a.sessions, reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.views.Welcome,
		Description: "Browse the mall",
	})
	reg.RegisterCommand("/stores", commands.Command{
		Handler:     a.views.Stores,
		Description: "List all stores",
	})
	reg.RegisterCommand("/cart", commands.Command{
		Handler:     a.views.Cart,
		Description: "View your cart",
	})
	reg.RegisterCommand("/checkout", commands.Command{
		Handler:     a.startCheckout,
		Description: "Checkout your cart",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.cancelCommand,
		Description: "Cancel the current checkout",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.help,
		Description: "Show available commands",
	})
	reg.RegisterCommand("/orders", commands.Command{
		Handler:     a.recentOrders,
		Description: "Show recent orders",
		AdminOnly:   true,
		Hidden:      true,
	})
}

func (a *App) registerCallbacks(reg *coretelegram.Registry) {
	paymentGuard := middleware.State(a.sessions, string(checkout.StateConfirming))

	_ = reg.RegisterCallback(views.CBStoresPage, a.views.StoresPage)
	_ = reg.RegisterCallback(views.CBStore, a.views.StoreDetails)
	_ = reg.RegisterCallback(views.CBProducts, a.views.Products)
	_ = reg.RegisterCallback(views.CBProductNav, a.views.ProductNav)
	_ = reg.RegisterCallback(views.CBAddToCart, a.views.AddToCart)
	_ = reg.RegisterCallback(views.CBViewCart, a.views.Cart)
	_ = reg.RegisterCallback(views.CBClearCart, a.views.ClearCart)
	_ = reg.RegisterCallback(views.CBCheckout, a.startCheckout)
	_ = reg.RegisterCallback(checkout.ActionCancel, a.cancelCheckout)
	_ = reg.RegisterCallback(checkout.ActionPayment, paymentGuard(a.selectPayment))
}

func (a *App) startCheckout(c tele.Context) error {
	a.flow.Start(a.flowCtx(c), c.Sender().ID, profileOf(c))
	return nil
}

func (a *App) cancelCheckout(c tele.Context) error {
	a.flow.Cancel(a.flowCtx(c), c.Sender().ID)
	return nil
}

func (a *App) cancelCommand(c tele.Context) error {
	if !a.flow.InCheckout(c.Sender().ID) {
		return tghelpers.SendText(c, "Nothing to cancel.")
	}
	return a.cancelCheckout(c)
}

func (a *App) selectPayment(c tele.Context) error {
	method, ok := models.ParsePaymentMethod(callbacks.CallbackPayload(c))
	if !ok {
		return nil
	}
	a.flow.SelectPayment(a.flowCtx(c), c.Sender().ID, method)
	return nil
}

func (a *App) help(c tele.Context) error {
	return tghelpers.SendMD(c,
		"*Mall Bot Commands*\n\n"+
			"/start - Browse the mall\n"+
			"/stores - List all stores\n"+
			"/cart - View your cart\n"+
			"/checkout - Checkout your cart\n"+
			"/cancel - Cancel the current checkout\n"+
			"/help - Show this message")
}

func (a *App) recentOrders(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	list, err := a.store.ListRecent(ctx, 10)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return tghelpers.SendText(c, "No orders yet.")
	}

	var b strings.Builder
	b.WriteString("📦 *Recent Orders*\n")
	for _, o := range list {
		fmt.Fprintf(&b, "\n`%s`\n%s, %s, %s\n%s at %s\n",
			o.ID,
			format.EscapeMD(o.DisplayName),
			format.FormatCurrency(o.Total),
			o.PaymentMethod.Label(),
			o.Status,
			o.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return tghelpers.SendMD(c, b.String())
}

// onStart launches the periodic session sweep for backends that need it.
func (a *App) onStart(ctx context.Context, _ coretelegram.Runtime) error {
	idle := time.Duration(a.cfg.Core.Session.IdleMinutes) * time.Minute
	interval := time.Duration(a.cfg.Core.Session.SweepMinutes) * time.Minute

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := a.sessions.Sweep(idle); removed > 0 {
					logger.Info(ctx, "tg.state", "session.sweep",
						slog.Int("sessions_removed", removed),
					)
				}
			}
		}
	}()
	return nil
}

func (a *App) onStop(_ context.Context, _ coretelegram.Runtime) error {
	if a.closeDB != nil {
		return a.closeDB()
	}
	return nil
}

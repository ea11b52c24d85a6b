package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"settlers-lite/apps/server/internal/auth"
	"settlers-lite/apps/server/internal/codec"
	"settlers-lite/apps/server/internal/config"
	"settlers-lite/apps/server/internal/gateway"
	"settlers-lite/apps/server/internal/ledger"
	"settlers-lite/apps/server/internal/lobby"
	"settlers-lite/apps/server/internal/sqldb"
	"settlers-lite/apps/server/internal/table"
	"settlers-lite/board"
	"settlers-lite/settlers"
	"settlers-lite/settlers/npc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Server] Invalid configuration: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[Server] Failed to open %s store: %v", cfg.Store, err)
	}
	if db != nil {
		defer db.Close()
	}

	authService, authMode, err := auth.NewService(ctx, db, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("[Server] Failed to init auth service: %v", err)
	}
	defer authService.Close()
	ledgerService, ledgerMode, err := ledger.NewService(ctx, db, cfg.RecentLimit)
	if err != nil {
		log.Fatalf("[Server] Failed to init ledger service: %v", err)
	}
	defer ledgerService.Close()

	tableCfg, err := loadTableConfig(cfg)
	if err != nil {
		log.Fatalf("[Server] Failed to load rules: %v", err)
	}
	personas := npc.DefaultRegistry()
	if cfg.PersonasPath != "" {
		if err := personas.LoadFromFile(cfg.PersonasPath); err != nil {
			log.Fatalf("[Server] Failed to load personas: %v", err)
		}
	}
	npcManager := npc.NewManager(personas, time.Now().UnixNano())

	gw := gateway.New(authService, cfg.AllowedOrigins)
	var lby *lobby.Lobby
	lby = lobby.New(lobby.Options{
		Table:     tableCfg,
		Broadcast: gw.SendToUser,
		Ledger:    ledgerService,
		NPC:       npcManager,
		OnMatchEnd: func(rec ledger.MatchRecord) {
			gw.Broadcast(codec.TypeTables, lby.ListTables())
		},
	})
	defer lby.Close()
	gw.SetLobby(lby)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	auth.NewHTTPHandler(authService).RegisterRoutes(mux)
	ledger.NewHTTPHandler(authService, ledgerService).RegisterRoutes(mux)

	go sweepTables(ctx, lby, cfg.TableIdleTTL)

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[Server] Auth mode: %s", authMode)
	log.Printf("[Server] Ledger mode: %s", ledgerMode)
	log.Printf("[Server] Personas: %d", personas.Count())
	log.Printf("[Server] Starting WebSocket server on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
	log.Printf("[Server] Stopped")
}

func openStore(ctx context.Context, cfg config.Server) (*sqldb.DB, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return sqldb.OpenSQLite(ctx, cfg.LocalDBPath)
	case config.StorePostgres:
		return sqldb.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, nil
	}
}

func loadTableConfig(cfg config.Server) (table.TableConfig, error) {
	rules := settlers.DefaultConfig()
	if cfg.RulesPath != "" {
		var err error
		if rules, err = settlers.LoadConfig(cfg.RulesPath); err != nil {
			return table.TableConfig{}, err
		}
	}
	if cfg.ActionTimeout > 0 {
		rules.ActionTimeout = cfg.ActionTimeout
	}
	layout := board.StandardLayout()
	if cfg.LayoutPath != "" {
		var err error
		if layout, err = board.LoadLayout(cfg.LayoutPath); err != nil {
			return table.TableConfig{}, err
		}
	}
	if _, err := board.New(layout); err != nil {
		return table.TableConfig{}, err
	}
	return table.TableConfig{Rules: rules, Layout: layout, JournalDir: cfg.JournalDir}, rules.Validate()
}

func sweepTables(ctx context.Context, lby *lobby.Lobby, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := lby.Sweep(ttl); n > 0 {
				log.Printf("[Server] Swept %d idle tables", n)
			}
		}
	}
}

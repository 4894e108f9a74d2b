package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"tilefarm/db"
	staticassets "tilefarm/internal/adapter/assets/static"
	httpadapter "tilefarm/internal/adapter/http"
	staticmarket "tilefarm/internal/adapter/market/static"
	metricsinmem "tilefarm/internal/adapter/metrics/inmemory"
	gormrepo "tilefarm/internal/adapter/repo/gorm"
	"tilefarm/internal/adapter/repo/memory"
	"tilefarm/internal/adapter/repo/sqlite"
	"tilefarm/internal/adapter/stream"
	"tilefarm/internal/app/auth"
	"tilefarm/internal/app/catalogview"
	"tilefarm/internal/app/game"
	"tilefarm/internal/app/history"
	"tilefarm/internal/app/ports"
	"tilefarm/internal/config"
	"tilefarm/internal/domain/catalog"

	"github.com/cloudwego/hertz/pkg/app/server"
)

type stores struct {
	snapshots   ports.SnapshotStore
	cloud       ports.SnapshotStore
	credentials ports.CredentialRepository
	events      ports.EventLog
	tx          ports.TxManager
	close       func()
}

func main() {
	cfg, err := config.Load(os.Getenv("TILEFARM_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}
	st := mustBuildStores(cfg)
	defer st.close()

	logger := log.New(os.Stderr, "[tilefarm] ", log.LstdFlags)
	kpiRecorder := metricsinmem.NewRecorder()
	verifyUC := auth.VerifyUseCase{Credentials: st.credentials}
	hub := stream.NewHub(logger, func(ctx context.Context, playerID, key string) error {
		return verifyUC.Execute(ctx, auth.VerifyRequest{PlayerID: playerID, PlayerKey: key})
	})

	uc := game.New(game.Deps{
		Store:         st.snapshots,
		Cloud:         st.cloud,
		Events:        st.events,
		Notify:        hub,
		Metrics:       kpiRecorder,
		Prices:        staticmarket.NewFeed(cfg.Prices),
		Catalog:       cat,
		Bounds:        cfg.Grid,
		StartingMoney: cfg.StartingMoney,
		Logger:        logger,
		SaveDebounce:  cfg.SaveDebounce,
		Debug:         cfg.Debug,
	})

	validator, err := httpadapter.NewValidator()
	if err != nil {
		log.Fatalf("compile request schemas: %v", err)
	}
	var assets ports.AssetProvider
	if root := resolveAssetsRoot(cfg.AssetsRoot); root != "" {
		assets = staticassets.Provider{Root: root}
	}

	h := httpadapter.Handler{
		RegisterUC: auth.RegisterUseCase{
			Credentials: st.credentials,
			TxManager:   st.tx,
			Seed: func(ctx context.Context, playerID string) error {
				_, err := uc.Open(ctx, playerID)
				return err
			},
			Now: time.Now,
		},
		AuthUC:    verifyUC,
		Game:      uc,
		HistoryUC: history.UseCase{Events: st.events},
		CatalogUC: catalogview.UseCase{Catalog: cat, Assets: assets},
		KPI:       kpiRecorder,
		Validator: validator,
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		uc.Run(ctx, cfg.TickInterval)
	}()

	var streamSrv *http.Server
	if cfg.StreamAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/stream", hub.Handler())
		streamSrv = &http.Server{Addr: cfg.StreamAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Printf("tilefarm stream listening on %s", cfg.StreamAddr)
			if err := streamSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("stream server: %v", err)
			}
		}()
	}

	s := server.Default(server.WithHostPorts(cfg.HTTPAddr))
	h.RegisterRoutes(s)

	log.Printf("tilefarm server listening on %s (grid %dx%d)", cfg.HTTPAddr, cfg.Grid.Rows, cfg.Grid.Cols)
	s.Spin()

	if streamSrv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		_ = streamSrv.Shutdown(shutdownCtx)
		done()
	}
	cancel()
	<-stopped
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// mustBuildStores keeps snapshots on this machine (sqlite, or memory when no
// path is set). With a postgres DSN, credentials and history move to the
// shared database and snapshots are mirrored there.
func mustBuildStores(cfg config.Config) stores {
	var out stores
	closers := []func(){}
	if cfg.SQLitePath != "" {
		sdb, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("open sqlite: %v", err)
		}
		closers = append(closers, func() { _ = sdb.Close() })
		out.snapshots = sqlite.NewSnapshotRepo(sdb)
		out.credentials = sqlite.NewCredentialRepo(sdb)
		out.events = sqlite.NewEventRepo(sdb)
		out.tx = sqlite.NewTxManager(sdb)
	} else {
		mem := memory.NewStore()
		out.snapshots = memory.NewSnapshotRepo(mem)
		out.credentials = memory.NewCredentialRepo(mem)
		out.events = memory.NewEventRepo(mem)
		out.tx = memory.NewTxManager(mem)
	}

	if cfg.PostgresDSN != "" {
		gdb, err := gormrepo.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		applied, err := gormrepo.ApplyMigrations(context.Background(), gdb, migrationsFS(cfg.MigrationsDir))
		if err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
		if len(applied) > 0 {
			log.Printf("applied migrations: %s", strings.Join(applied, ", "))
		}
		out.cloud = gormrepo.NewSnapshotRepo(gdb)
		out.credentials = gormrepo.NewCredentialRepo(gdb)
		out.events = gormrepo.NewEventRepo(gdb)
		out.tx = gormrepo.NewTxManager(gdb)
		if sqlDB, err := gdb.DB(); err == nil {
			closers = append(closers, func() { _ = sqlDB.Close() })
		}
	}

	out.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return out
}

func migrationsFS(dir string) fs.FS {
	if strings.TrimSpace(dir) != "" {
		return os.DirFS(dir)
	}
	return db.Migrations()
}

// resolveAssetsRoot returns root when it is a readable directory, else "".
func resolveAssetsRoot(root string) string {
	root = strings.TrimSpace(root)
	if root == "" {
		return ""
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return ""
	}
	return root
}

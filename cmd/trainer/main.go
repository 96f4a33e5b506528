package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/danielpatrickdp/battle-trainer/internal/agent"
	"github.com/danielpatrickdp/battle-trainer/internal/config"
	"github.com/danielpatrickdp/battle-trainer/internal/decision"
	"github.com/danielpatrickdp/battle-trainer/internal/ipc"
	"github.com/danielpatrickdp/battle-trainer/internal/knowledge"
	"github.com/danielpatrickdp/battle-trainer/internal/logging"
	"github.com/danielpatrickdp/battle-trainer/internal/oracle"
	"github.com/danielpatrickdp/battle-trainer/internal/orchestrator"
	"github.com/danielpatrickdp/battle-trainer/internal/plan"
	"github.com/danielpatrickdp/battle-trainer/internal/policy"
	"github.com/danielpatrickdp/battle-trainer/internal/prompt"
	"github.com/danielpatrickdp/battle-trainer/internal/store"
)

// #region main
func main() {
	cfgPath := flag.String("config", os.Getenv("TRAINER_CONFIG"), "path to trainer YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	st, err := store.NewStore(cfg.DB)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	ks, err := knowledge.NewStore(st.DB())
	if err != nil {
		log.Fatalf("failed to open knowledge store: %v", err)
	}
	registry := knowledge.NewRegistry(cfg.Team.Name, cfg.Team.Notes, ks)
	if err := registry.Load(); err != nil {
		log.Printf("[KNOW] load failed, starting empty: %v", err)
	}

	pol, err := policy.CompileTeamOrder(cfg.TeamOrderPolicy)
	if err != nil {
		log.Fatalf("team order policy: %v", err)
	}

	oc, err := oracle.Dial(cfg.Oracle)
	if err != nil {
		log.Fatalf("failed to connect to oracle at %s: %v", cfg.Oracle, err)
	}
	defer oc.Close()

	w := &wiring{
		cfg:        cfg,
		store:      st,
		oracle:     oc,
		plans:      plan.NewManager(oc, plan.Efforts{Create: cfg.Efforts.Plan, Evaluate: cfg.Efforts.Evaluate, Adjust: cfg.Efforts.Adjust}),
		translator: decision.NewTranslator(pol),
		knowledge:  registry,
	}

	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(cfg.Socket); err != nil {
		log.Fatalf("failed to clean up socket %s: %v", cfg.Socket, err)
	}
	listener, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", cfg.Socket, err)
	}
	defer os.Remove(cfg.Socket)

	fmt.Println("Battle trainer ready.")
	fmt.Printf("  DB: %s | Oracle: %s | Socket: %s | Policy: %s\n", cfg.DB, cfg.Oracle, cfg.Socket, pol)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var conns sync.WaitGroup
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			log.Printf("[IPC] accept: %v", err)
			continue
		}
		log.Println("[IPC] bridge connected")
		conns.Add(1)
		go func() {
			defer conns.Done()
			w.serve(ctx, conn)
		}()
	}

	log.Println("shutting down")
	conns.Wait()
}
// #endregion main

// #region wiring
// wiring holds the process-wide collaborators shared by every bridge connection.
type wiring struct {
	cfg        config.Config
	store      *store.Store
	oracle     oracle.Client
	plans      *plan.Manager
	translator *decision.Translator
	knowledge  *knowledge.Registry
}

func (w *wiring) serve(ctx context.Context, nc net.Conn) {
	conn := ipc.NewConnection(nc, nil)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	a := agent.New(ctx, conn, w.newSession, w.cfg.DefaultSelectSize)
	a.Register()
	conn.ReadLoop()
	a.Wait()
}

func (w *wiring) newSession(hello ipc.HelloMessage, client orchestrator.Client) *orchestrator.Session {
	series := hello.SeriesKey
	if series == "" {
		series = hello.Battle
	}
	db := w.store.DB()
	return orchestrator.NewSession(hello.Battle, orchestrator.Deps{
		Client: client,
		Oracle: w.oracle,
		Plans:  w.plans,
		Store:  w.store,
		LogTurn: func(e logging.TurnEntry) error {
			return logging.LogTurn(db, e)
		},
		Prompts:        prompt.Default{OpenSheet: w.cfg.OpenSheet},
		Translator:     w.translator,
		Knowledge:      w.knowledge,
		SeriesKey:      series,
		Format:         hello.Format,
		PollInterval:   w.cfg.Poll(),
		DecisionEffort: w.cfg.Efforts.Decision,
		SummaryEffort:  w.cfg.Efforts.Summary,
		MaxRetries:     w.cfg.MaxRetries,
	})
}
// #endregion wiring

// relaychat service entry point.
//
// Usage:
//
//	relaychat serve                        # start the service
//	relaychat serve --config config.yaml   # with a config file
//	relaychat serve --agents agents.yaml   # preload agent definitions
//	relaychat version                      # show version
//	relaychat health                       # probe a running instance
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/relaychat/api"
	"github.com/BaSui01/relaychat/config"
	"github.com/BaSui01/relaychat/internal/metrics"
	"github.com/BaSui01/relaychat/internal/server"
	"github.com/BaSui01/relaychat/internal/tlsutil"
	"github.com/BaSui01/relaychat/memory"
	"github.com/BaSui01/relaychat/relay"
	"github.com/BaSui01/relaychat/responder"
	"github.com/BaSui01/relaychat/store"
)

// Injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	agentsPath := fs.String("agents", "", "Path to agent definitions file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Log.BuildLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting relaychat",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	chatStore, err := store.New(cfg.Store.ToStore(), logger)
	if err != nil {
		logger.Fatal("failed to open chat store", zap.Error(err))
	}
	defer chatStore.Close()

	memService := buildMemory(chatStore, logger)
	resp := responder.NewHTTPResponder(cfg.Responder.ToResponder(), logger)
	collector := metrics.NewCollector("relaychat", logger)

	orch := relay.New(chatStore, memService, resp, cfg.Relay.ToRelay(), logger).
		WithCollector(collector)

	router := api.NewRouter(chatStore, orch, logger)
	if *agentsPath != "" {
		if err := preloadAgents(*agentsPath, router); err != nil {
			logger.Fatal("failed to preload agents", zap.Error(err))
		}
	}

	mgr := server.NewManager(router, server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	if err := mgr.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
	mgr.WaitForShutdown()
	orch.Wait()
	logger.Info("relaychat stopped")
}

// buildMemory picks the memory backend: the store's Redis connection when it
// has one, an in-process service otherwise.
func buildMemory(chatStore store.ChatStore, logger *zap.Logger) memory.Service {
	if rs, ok := chatStore.(*store.RedisStore); ok {
		return memory.NewRedisService(rs.Client(), logger)
	}
	return memory.NewInMemoryService()
}

// preloadAgents registers a fixed roster from a YAML file.
func preloadAgents(path string, router *api.Router) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var agents []relay.Agent
	if err := yaml.Unmarshal(data, &agents); err != nil {
		return fmt.Errorf("parse agents file: %w", err)
	}
	for _, a := range agents {
		if a.ID == "" || a.Name == "" {
			return fmt.Errorf("agent definitions need id and name, got %+v", a)
		}
		router.Chat.RegisterAgent(a)
	}
	return nil
}

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	fs.Parse(args)

	client := tlsutil.SecureHTTPClient(5 * time.Second)
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func printVersion() {
	fmt.Printf("relaychat %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`relaychat - multi-agent conversation relay service

Usage:
  relaychat <command> [options]

Commands:
  serve     Start the relaychat server
  version   Show version information
  health    Check server health
  help      Show this help message

Options for 'serve':
  --config <path>   Path to configuration file (YAML)
  --agents <path>   Path to agent definitions file (YAML list)`)
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"

	"storyweave/internal/adapter/api"
	"storyweave/internal/adapter/library"
	"storyweave/internal/adapter/tui"
	"storyweave/internal/domain"
	"storyweave/internal/infra/config"
	"storyweave/internal/infra/logger"
	"storyweave/internal/infra/tracer"
	"storyweave/internal/usecase"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 {
		showUsage()
		return
	}

	switch os.Args[1] {
	case "generate":
		if err := runGenerate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "generate: %v\n", err)
			os.Exit(1)
		}
	case "library":
		if err := runLibrary(); err != nil {
			fmt.Fprintf(os.Stderr, "library: %v\n", err)
			os.Exit(1)
		}
	case "get":
		if err := runGet(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "get: %v\n", err)
			os.Exit(1)
		}
	case "login":
		if err := runLogin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "login: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'storyweave --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`storyweave - generate and read illustrated stories from your terminal

USAGE:
    storyweave COMMAND [FLAGS]

COMMANDS:
    generate [PROMPT]   Generate a new story and watch it unfold
                        Flags: --image PATH   generate from a photo
                               --style NAME   e.g. fairy-tale, sci-fi
                               --length NAME  short, medium, long
    library             List your saved stories
    get ID              Read a story by id
    login EMAIL         Sign in and print an API token

FLAGS:
    -h, --help          Show this help message
    --config PATH       Config file path (default: ~/.storyweave/config.yaml)

CONFIGURATION:
    Environment: STORYWEAVE_* variables override config
    (STORYWEAVE_API_URL, STORYWEAVE_API_TOKEN, STORYWEAVE_LOG_LEVEL)

EXAMPLES:
    storyweave generate "a dragon who is afraid of heights"
    storyweave generate --image ./drawing.png --style fairy-tale
    storyweave library
    storyweave get st_01HZXK`)
}

// app bundles the wired components shared by every subcommand.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	client  *api.Client
	library domain.StoryStore
}

func newApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, nil, err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		closeLog()
		return nil, nil, fmt.Errorf("tracer: %w", err)
	}

	lib, err := library.NewSQLiteStore(cfg.Library.Path)
	if err != nil {
		closeLog()
		return nil, nil, fmt.Errorf("library: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		client:  api.NewClient(cfg.API, log),
		library: lib,
	}
	cleanup := func() {
		a.library.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Error("tracer shutdown error", "error", err)
		}
		closeLog()
	}
	return a, cleanup, nil
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	imagePath := fs.String("image", "", "generate from a photo")
	style := fs.String("style", "", "story style")
	length := fs.String("length", "", "story length")
	fs.String("config", "", "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	params := domain.GenerationParams{
		Prompt:    strings.Join(fs.Args(), " "),
		ImagePath: *imagePath,
		Style:     *style,
		Length:    *length,
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("a story prompt or --image is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	store := usecase.NewSessionStore()
	coordinator := usecase.NewCoordinator(usecase.CoordinatorDeps{
		Streamer: a.client,
		Store:    store,
		Logger:   a.log,
	})

	screen := tui.NewApp(tui.AppDeps{
		Controller: coordinator,
		Navigator:  coordinator,
		Service:    a.client,
		Library:    a.library,
		Store:      store,
		Logger:     a.log,
		ResetDelay: a.cfg.UI.PhaseResetDelay(),
	})
	return screen.Run(ctx, params)
}

func runLibrary() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := a.client.ListLibrary(ctx)
	if err != nil {
		// Offline: fall back to the local cache.
		entries, err = a.library.List(ctx)
		if err != nil {
			return err
		}
	}

	if len(entries) == 0 {
		fmt.Println("No stories yet. Try: storyweave generate \"a brave snail\"")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%-26s  %s", e.ID, e.Title)
		if e.Synopsis != "" {
			line += "  - " + e.Synopsis
		}
		fmt.Println(line)
	}
	return nil
}

func runGet(args []string) error {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("usage: storyweave get ID")
	}
	id := args[0]

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	story, err := a.client.GetStory(ctx, id)
	if err == nil {
		_ = a.library.Put(ctx, story)
	} else {
		story, err = a.library.Get(ctx, id)
		if err != nil {
			return err
		}
	}

	r, rerr := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if rerr != nil {
		fmt.Println(story.Content)
		return nil
	}
	rendered, rerr := r.Render(story.Content)
	if rerr != nil {
		fmt.Println(story.Content)
		return nil
	}
	fmt.Print(rendered)
	return nil
}

func runLogin(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: storyweave login EMAIL")
	}
	email := args[0]

	fmt.Print("Password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	token, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Println("Signed in. Add this to your environment to stay signed in:")
	fmt.Printf("  export STORYWEAVE_API_TOKEN=%s\n", token)
	return nil
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			return v
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return home + "/.storyweave/config.yaml"
}

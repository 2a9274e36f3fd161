package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/arjunmehta/captchapay/internal/config"
	"github.com/arjunmehta/captchapay/internal/logging"
	"github.com/arjunmehta/captchapay/internal/session"
	"github.com/arjunmehta/captchapay/internal/tui"
	"github.com/arjunmehta/captchapay/pkg/client"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("CAPTCHAPAY_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "version", "-v":
			fmt.Println("captchapay " + version)
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "login":
			return runLogin(cfg)
		case "logout":
			return runLogout()
		case "whoami":
			return runWhoami(cfg)
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
			printHelp()
			os.Exit(2)
		}
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath, err = logging.DefaultPath()
		if err != nil {
			return err
		}
	}
	log, closer, err := logging.Open(logPath, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck

	store, err := session.DefaultStore()
	if err != nil {
		return err
	}
	if err := store.Load(); err != nil {
		log.Warn().Err(err).Msg("session load failed, starting logged out")
	}
	likes, err := session.DefaultLikes()
	if err != nil {
		return err
	}
	if err := likes.Load(); err != nil {
		log.Warn().Err(err).Msg("likes load failed, starting empty")
	}

	c := client.New(cfg.APIURL, store.Token())
	c.SetLogger(log)

	app := tui.NewApp(c, cfg, store, likes)
	p := tea.NewProgram(app, tea.WithAltScreen())

	// Any 401 anywhere invalidates the whole session.
	c.OnUnauthorized(func() {
		store.Logout() //nolint:errcheck
		p.Send(tui.SessionExpiredMsg{})
	})

	log.Info().Str("version", version).Str("api", cfg.APIURL).Msg("starting")
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// runLogin authenticates from the plain terminal, outside the TUI, and
// persists the session for later runs.
func runLogin(cfg *config.Config) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read email: %w", err)
	}
	email = strings.TrimSpace(email)

	fmt.Print("password: ")
	pwBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	c := client.New(cfg.APIURL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	resp, err := c.Login(ctx, email, string(pwBytes))
	if err != nil {
		if msg := client.ErrorMessage(err); msg != "" {
			return fmt.Errorf("login failed: %s", msg)
		}
		return fmt.Errorf("login failed: %w", err)
	}

	store, err := session.DefaultStore()
	if err != nil {
		return err
	}
	if err := store.Login(resp.Token, resp.User); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Printf("Logged in as %s <%s>\n", resp.User.Name, resp.User.Email)
	return nil
}

func runLogout() error {
	store, err := session.DefaultStore()
	if err != nil {
		return err
	}
	if err := store.Load(); err != nil {
		return err
	}
	if !store.Authenticated() {
		fmt.Println("Already logged out.")
		return nil
	}
	if err := store.Logout(); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	fmt.Println("Logged out.")
	return nil
}

func runWhoami(cfg *config.Config) error {
	store, err := session.DefaultStore()
	if err != nil {
		return err
	}
	if err := store.Load(); err != nil {
		return err
	}
	if !store.Authenticated() {
		fmt.Println("Not logged in. Run: captchapay login")
		return nil
	}

	if u := store.User(); u != nil {
		fmt.Printf("%s <%s>\n", u.Name, u.Email)
		if u.IsAdmin {
			fmt.Println("role: admin")
		}
	}
	if exp := store.TokenExpiry(); !exp.IsZero() {
		if time.Now().After(exp) {
			fmt.Printf("token: expired %s\n", exp.Format(time.RFC3339))
		} else {
			fmt.Printf("token: valid until %s\n", exp.Format(time.RFC3339))
		}
	}

	// Confirm the server agrees.
	c := client.New(cfg.APIURL, store.Token())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	u, err := c.Me(ctx)
	if err != nil {
		if client.IsStatus(err, 401) {
			fmt.Println("server: session rejected, log in again")
			return nil
		}
		fmt.Printf("server: unreachable (%v)\n", err)
		return nil
	}
	fmt.Printf("server: ok, %d captchas solved, %s earned\n", u.SolvedTotal, fmt.Sprintf("₹%.2f", u.TotalEarnings))
	return nil
}

func printHelp() {
	fmt.Print(`captchapay — solve captchas, earn money, from your terminal

usage:
  captchapay            launch the interactive app
  captchapay login      authenticate and save the session
  captchapay logout     discard the saved session
  captchapay whoami     show the current session
  captchapay version    print the version

configuration:
  ~/.captchapay/config.yaml, overridable with CAPTCHAPAY_* env vars
  (CAPTCHAPAY_API_URL, CAPTCHAPAY_LOG_LEVEL, ...)
`)
}

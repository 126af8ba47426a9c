package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/hongminglow/agentauth/internal/auth"
	"github.com/hongminglow/agentauth/internal/client"
	"github.com/hongminglow/agentauth/internal/config"
	"github.com/hongminglow/agentauth/internal/logging"
	"github.com/hongminglow/agentauth/internal/models/dto"
	"github.com/hongminglow/agentauth/internal/session"
	"github.com/hongminglow/agentauth/internal/storage"
	"github.com/hongminglow/agentauth/internal/storage/selector"
	"github.com/hongminglow/agentauth/internal/tui"
	"github.com/hongminglow/agentauth/internal/users"
)

var errNotLoggedIn = errors.New("not logged in")

// app carries the state shared by every subcommand for a single invocation.
type app struct {
	cfg    config.ChatConfig
	logger *zap.Logger
	store  storage.Store
	holder *session.Holder
	client *client.Client
}

func newRootCmd(cfg config.ChatConfig) *cobra.Command {
	a := &app{cfg: cfg}

	root := &cobra.Command{
		Use:   "agentauth-chat",
		Short: "Chat with the auth-aware agent as one of the demo users",
		Long: `Terminal client for the agent auth demo.

Pick one of the fixed demo users, and every message you send carries a mock
token describing that user. The agent greets you by name when a token is
present and treats you as anonymous otherwise.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.ServerURL, "server", cfg.ServerURL, "forwarder base URL")
	flags.StringVar(&a.cfg.AgentName, "agent", cfg.AgentName, "agent name to run")
	flags.StringVar(&a.cfg.Endpoint, "endpoint", cfg.Endpoint, "runtime endpoint path on the forwarder")
	flags.StringVar(&a.cfg.Store, "store", cfg.Store, "session store: memory, file or postgres")
	flags.StringVar(&a.cfg.StoreFile, "session-file", cfg.StoreFile, "session file for the file store")
	flags.StringVar(&a.cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "postgres connection string for the postgres store")
	flags.StringVar(&a.cfg.Namespace, "namespace", cfg.Namespace, "key namespace for the postgres store")
	flags.StringVar(&a.cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(
		&cobra.Command{
			Use:   "users",
			Short: "List the demo users",
			Args:  cobra.NoArgs,
			RunE:  a.run(a.runUsers),
		},
		&cobra.Command{
			Use:   "login <user-id>",
			Short: "Log in as a demo user",
			Args:  cobra.ExactArgs(1),
			RunE:  a.run(a.runLogin),
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Clear the current session",
			Args:  cobra.NoArgs,
			RunE:  a.run(a.runLogout),
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Print the current session as JSON",
			Args:  cobra.NoArgs,
			RunE:  a.run(a.runWhoami),
		},
		newTokenCmd(a),
		&cobra.Command{
			Use:   "send <message>",
			Short: "Send one message and print the streamed reply",
			Args:  cobra.MinimumNArgs(1),
			RunE:  a.run(a.runSend),
		},
		newChatCmd(a),
	)
	return root
}

func newTokenCmd(a *app) *cobra.Command {
	var decode bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the mock token attached to requests",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		token, ok := a.holder.Token()
		if !ok {
			return errNotLoggedIn
		}
		if !decode {
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		}
		id, err := auth.DecodeToken(token)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), id)
	})
	cmd.Flags().BoolVar(&decode, "decode", false, "print the decoded claims instead of the raw token")
	return cmd
}

func newChatCmd(a *app) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Long: `Start an interactive chat. On a terminal this opens the full screen UI
(ctrl+u switches user, ctrl+o logs out). Otherwise lines are read from stdin,
with /users, /login <id>, /logout, /whoami and /quit available.`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		cv := a.client.NewConversation()
		if !plain && isTerminal(cmd.InOrStdin(), cmd.OutOrStdout()) {
			return a.runTUI(cmd.Context(), cv)
		}
		return a.runLines(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cv)
	})
	cmd.Flags().BoolVar(&plain, "plain", false, "read lines from stdin even on a terminal")
	return cmd
}

// run wraps a subcommand so the session is opened before it and closed after it.
func (a *app) run(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd.Context()); err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args)
	}
}

func (a *app) open(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(a.cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger

	store, kind, err := selector.Open(ctx, selector.Options{
		Kind:        a.cfg.Store,
		FilePath:    a.cfg.StoreFile,
		DatabaseURL: a.cfg.DatabaseURL,
		Namespace:   a.cfg.Namespace,
	}, logger)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	a.store = store

	a.holder = session.New(users.NewStatic(), store)
	if u, ok := a.holder.Restore(ctx); ok {
		logger.Debug("session restored", zap.String("store", kind), zap.String("user_id", u.ID))
	}
	a.client = client.New(a.cfg.RuntimeURL(), a.cfg.AgentName, a.holder, nil)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close session store", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) runUsers(cmd *cobra.Command, _ []string) error {
	a.printUsers(cmd.OutOrStdout())
	return nil
}

func (a *app) printUsers(out io.Writer) {
	cur, loggedIn := a.holder.Current()
	for _, u := range a.holder.Users() {
		marker := " "
		if loggedIn && u.ID == cur.ID {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-8s %-22s %s\n", marker, u.ID, u.Label(), u.Email)
	}
}

func (a *app) runLogin(cmd *cobra.Command, args []string) error {
	return a.login(cmd.Context(), cmd.OutOrStdout(), args[0])
}

func (a *app) login(ctx context.Context, out io.Writer, id string) error {
	u, err := a.holder.Login(ctx, id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return fmt.Errorf("login %q: %w", id, err)
		}
		return fmt.Errorf("login: %w", err)
	}
	fmt.Fprintf(out, "Logged in as %s\n", u.Label())
	return nil
}

func (a *app) runLogout(cmd *cobra.Command, _ []string) error {
	a.logout(cmd.Context(), cmd.OutOrStdout())
	return nil
}

// logout always clears the session; a persisted id that could not be removed
// is only logged.
func (a *app) logout(ctx context.Context, out io.Writer) {
	if err := a.holder.Logout(ctx); err != nil {
		a.logger.Warn("logout: clear persisted session", zap.Error(err))
	}
	fmt.Fprintln(out, "Logged out")
}

func (a *app) runWhoami(cmd *cobra.Command, _ []string) error {
	resp := dto.SessionResponse{}
	if u, ok := a.holder.Current(); ok {
		resp.LoggedIn = true
		resp.User = &u
		resp.Token, _ = a.holder.Token()
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

func (a *app) runSend(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cv := a.client.NewConversation()
	_, err := cv.Say(cmd.Context(), strings.Join(args, " "), func(d string) { fmt.Fprint(out, d) })
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	return nil
}

func (a *app) runTUI(ctx context.Context, cv *client.Conversation) error {
	m, err := tui.New(ctx, a.holder, cv, a.logger)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// runLines is the chat loop used when stdin or stdout is not a terminal.
func (a *app) runLines(ctx context.Context, in io.Reader, out io.Writer, cv *client.Conversation) error {
	fmt.Fprintf(out, "Chatting with %s as %s. Commands: /users /login <id> /logout /whoami /quit\n",
		a.cfg.AgentName, a.describe())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/users":
			a.printUsers(out)
		case "/login":
			if err := a.login(ctx, out, strings.TrimSpace(arg)); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "/logout":
			a.logout(ctx, out)
		case "/whoami":
			fmt.Fprintln(out, a.describe())
		default:
			fmt.Fprint(out, "agent: ")
			if _, err := cv.Say(ctx, line, func(d string) { fmt.Fprint(out, d) }); err != nil {
				fmt.Fprintf(out, "\nerror: %v\n", err)
				continue
			}
			fmt.Fprintln(out)
		}
	}
	return scanner.Err()
}

func (a *app) describe() string {
	u, ok := a.holder.Current()
	if !ok {
		return "Not logged in"
	}
	return fmt.Sprintf("%s <%s> Role: %s", u.Name, u.Email, u.Role)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(in io.Reader, out io.Writer) bool {
	fin, ok := in.(*os.File)
	if !ok {
		return false
	}
	fout, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(fin.Fd())) && term.IsTerminal(int(fout.Fd()))
}

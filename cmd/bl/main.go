package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bankline/internal/app"
	"bankline/internal/config"
	"bankline/internal/db"
	"bankline/internal/domain"
	"bankline/internal/migrate"
	"bankline/internal/nlu"
	"bankline/internal/repo"
	"bankline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "bl",
	Short: "Bankline CLI",
	Long: `Bankline is a rule-based banking assistant.
It understands plain-text requests ("transfer $100 from savings to checking"),
asks for missing details one at a time, and executes transfers, deposits and
balance checks against a local SQLite ledger.
- Chat: 'bl chat' starts an interactive session; 'bl say' runs one turn.
- NLU: 'bl nlu "<text>"' shows the intent and entities a message resolves to.
- Ledger: 'bl accounts' lists accounts with balances.
- Server: 'bl serve' exposes the same bot over HTTP with JWT auth.
- Config: the intent catalog lives in bankline.yml; 'bl config init' writes
  the built-in defaults so you can tune keywords, prompts and vocabularies.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("BANKLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(sayCmd())
	rootCmd.AddCommand(nluCmd())
	rootCmd.AddCommand(accountsCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
}

func chatCmd() *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat session",
		Long:  "Starts a REPL. Type messages, 'reset' to clear the session, 'quit' to leave.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if session == "" {
				session = uuid.NewString()
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				fmt.Printf("%s ready (session %s). Type 'quit' to exit.\n", a.Config.Bot.Name, session)
				scanner := bufio.NewScanner(os.Stdin)
				for {
					fmt.Print("you> ")
					if !scanner.Scan() {
						fmt.Println()
						return scanner.Err()
					}
					line := strings.TrimSpace(scanner.Text())
					if line == "" {
						continue
					}
					switch strings.ToLower(line) {
					case "quit", "exit":
						fmt.Println("bot> Goodbye!")
						return nil
					case "reset":
						a.Dialogue.Reset(session)
						fmt.Println("bot> Session reset.")
						continue
					}
					reply, err := a.Dialogue.Handle(ctx, session, line)
					if err != nil {
						return err
					}
					fmt.Println("bot>", reply.Text)
				}
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id (random if omitted)")
	return cmd
}

func sayCmd() *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "say <message>",
		Short: "Run one dialogue turn",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if session == "" {
				session = uuid.NewString()
			}
			message := strings.Join(args, " ")
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				reply, err := a.Dialogue.Handle(ctx, session, message)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"session_id": session,
						"reply":      reply.Text,
						"nlu":        reply.NLU,
						"needed":     reply.Needed,
					})
				}
				fmt.Println(reply.Text)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id (random if omitted; reuse to continue a conversation)")
	return cmd
}

func nluCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nlu <message>",
		Short: "Show intent and entities for a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			res := nlu.New(cfg).Parse(strings.Join(args, " "))
			return printJSON(res)
		},
	}
	return cmd
}

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List ledger accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				accounts, err := a.Repo.ListAccounts(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(accounts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Kind", "Owner", "Balance"})
				for _, acc := range accounts {
					tw.AppendRow(table.Row{acc.ID, acc.Kind, acc.Owner, fmt.Sprintf("%.2f", acc.Balance)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage API users"}
	user.AddCommand(userRegisterCmd())
	return user
}

func userRegisterCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an API user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				err := a.Repo.InsertUser(ctx, domain.User{
					Username:     username,
					PasswordHash: repo.HashPassword(password),
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"ok": true, "username": username})
				}
				fmt.Printf("Registered %s\n", username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "Every chat turn and ledger mutation is recorded; tail them here.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, sessionID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				events, err := a.Repo.LatestEvents(ctx, n, evtType, sessionID)
				if err != nil {
					return err
				}
				return printJSON(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter (chat.turn, bank.transfer, bank.deposit)")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id filter")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				authCfg := server.AuthConfig{JWTSecret: os.Getenv("BANKLINE_JWT_SECRET")}
				if authCfg.JWTSecret == "" {
					return fmt.Errorf("BANKLINE_JWT_SECRET is required for bearer auth")
				}
				handler, err := server.New(server.Config{App: a, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Bankline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect and generate config",
		Long:  "bankline.yml holds the intent catalog, prompts and entity vocabularies. The bot falls back to built-in defaults when the file is absent.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default bankline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate bankline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	a, err := app.New(conn, cfg)
	if err != nil {
		return err
	}
	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

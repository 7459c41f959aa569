package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dukerupert/boardcal/internal/auth"
	"github.com/dukerupert/boardcal/internal/calendar"
	"github.com/dukerupert/boardcal/internal/config"
	"github.com/dukerupert/boardcal/internal/database"
	"github.com/dukerupert/boardcal/internal/ical"
	"github.com/dukerupert/boardcal/internal/logging"
	"github.com/dukerupert/boardcal/internal/permission"
	"github.com/dukerupert/boardcal/internal/server"
	"github.com/dukerupert/boardcal/internal/store"
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "boardcal",
		Usage: "Forum calendar server and tools.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "boardcal.yaml",
				EnvVars: []string{"BOARDCAL_CONFIG"},
				Usage:   "path to the YAML config file",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			upcomingCommand(),
			holidaysCommand(),
			tokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("boardcal failed", "error", err)
		os.Exit(1)
	}
}

// env is what every command starts from: config, logger and an open
// database.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "listen address, overrides the config"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.db.Close()

			if c.IsSet("listen") {
				e.cfg.Listen = c.String("listen")
			}

			srv, err := server.New(e.db, e.cfg, e.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			srv.Start(ctx)

			httpServer := &http.Server{
				Addr:         e.cfg.Listen,
				Handler:      srv.Router(),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				e.logger.Info("boardcal listening", "addr", e.cfg.Listen, "timezone", e.cfg.DefaultTimezone)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			case <-ctx.Done():
			}

			e.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			srv.Stop()
			return nil
		},
	}
}

func upcomingCommand() *cli.Command {
	return &cli.Command{
		Name:  "upcoming",
		Usage: "Print the upcoming events, holidays and birthdays.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Usage: "days to cover, default from config"},
			&cli.Int64Flag{Name: "member", Usage: "view as this member id; 0 is a guest"},
			&cli.StringFlag{Name: "tz", Usage: "viewer timezone"},
			&cli.BoolFlag{Name: "no-holidays", Usage: "leave holidays out"},
			&cli.BoolFlag{Name: "no-birthdays", Usage: "leave birthdays out"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.db.Close()

			srv, err := server.New(e.db, e.cfg, e.logger)
			if err != nil {
				return err
			}

			checker := permission.NewChecker(store.NewMemberStore(e.db), store.NewBoardStore(e.db))
			perms, err := checker.For(c.Int64("member"))
			if err != nil {
				return err
			}
			viewer := calendar.Viewer{MemberID: perms.MemberID(), Timezone: c.String("tz"), Perms: perms}
			if viewer.Timezone == "" && perms.Member() != nil {
				viewer.Timezone = perms.Member().Timezone
			}

			days := e.cfg.UpcomingDays
			if c.IsSet("days") {
				days = c.Int("days")
			}
			u, err := srv.Service().GetUpcoming(calendar.UpcomingOptions{
				Days:             days,
				IncludeEvents:    e.cfg.ShowEvents,
				IncludeHolidays:  e.cfg.ShowHolidays && !c.Bool("no-holidays"),
				IncludeBirthdays: e.cfg.ShowBirthdays && !c.Bool("no-birthdays"),
			}, viewer)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "%s to %s\n\n", u.Start, u.End)
			return writeTable(c.App.Writer, []string{"DATE", "KIND", "WHAT", "WHEN"}, upcomingRows(u))
		},
	}
}

func holidaysCommand() *cli.Command {
	return &cli.Command{
		Name:  "holidays",
		Usage: "Manage holidays.",
		Subcommands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import all-day events from an iCalendar file as holidays.",
				ArgsUsage: "<file.ics>",
				Flags: []cli.Flag{
					&cli.TimestampFlag{Name: "from", Layout: "2006-01-02", Usage: "expand non-yearly rules from this date"},
					&cli.TimestampFlag{Name: "to", Layout: "2006-01-02", Usage: "expand non-yearly rules up to this date"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("expected one iCalendar file", 2)
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.db.Close()

					f, err := os.Open(c.Args().First())
					if err != nil {
						return fmt.Errorf("open calendar file: %w", err)
					}
					defer f.Close()

					opts := ical.ImportOptions{Logger: e.logger}
					if t := c.Timestamp("from"); t != nil {
						opts.From = *t
					}
					if t := c.Timestamp("to"); t != nil {
						opts.To = *t
					}
					holidays, err := ical.ImportHolidays(f, opts)
					if err != nil {
						return err
					}

					n, err := store.NewHolidayStore(e.db).CreateMany(holidays)
					if err != nil {
						return err
					}
					e.logger.Info("holidays imported", "file", c.Args().First(), "parsed", len(holidays), "stored", n)
					fmt.Fprintf(c.App.Writer, "imported %d holidays\n", n)
					return nil
				},
			},
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Manage member API tokens.",
		Subcommands: []*cli.Command{
			{
				Name:      "issue",
				Usage:     "Issue a new token for a member, replacing any previous one.",
				ArgsUsage: "<member-id>",
				Action: func(c *cli.Context) error {
					memberID, err := strconv.ParseInt(c.Args().First(), 10, 64)
					if err != nil || memberID <= 0 {
						return cli.Exit("expected a positive member id", 2)
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.db.Close()

					members := store.NewMemberStore(e.db)
					m, err := members.GetByID(memberID)
					if err != nil {
						return err
					}
					if m == nil {
						return cli.Exit(fmt.Sprintf("member %d not found", memberID), 1)
					}

					token, hash, err := auth.IssueToken(memberID)
					if err != nil {
						return err
					}
					if err := members.SetTokenHash(memberID, hash); err != nil {
						return err
					}
					e.logger.Info("token issued", "member_id", memberID)
					fmt.Fprintln(c.App.Writer, token)
					return nil
				},
			},
		},
	}
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"research-assistant-be/internal/bootstrap"
	"research-assistant-be/internal/config"
	"research-assistant-be/internal/dto"
	"research-assistant-be/internal/mcp"
	"research-assistant-be/internal/pkg/apperror"
	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/internal/service"
	"research-assistant-be/pkg/events"
	"research-assistant-be/pkg/research/pipeline"

	pktNats "research-assistant-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	paperColor   = color.New(color.FgYellow)
	scoreColor   = color.New(color.FgGreen)
	summaryColor = color.New(color.FgWhite)
	promptColor  = color.New(color.FgMagenta, color.Bold)
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	app := &cli.App{
		Name:    "research",
		Usage:   "Conversational research assistant for academic papers",
		Version: Version,
		Commands: []*cli.Command{
			searchCmd(),
			chatCmd(),
			mcpCmd(),
			watchCmd(),
		},
	}
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// withService boots the full container for one command.
func withService(fn func(ctx context.Context, svc service.IResearchService) error) error {
	cfg := config.Load()
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		return outputError(err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, container.ResearchService)
}

func searchCmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search papers and stream ranked summaries",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "year", Aliases: []string{"y"}, Usage: "Year filter: 2020, 2020-, -2020 or 2019-2021"},
			&cli.BoolFlag{Name: "json", Usage: "Print raw NDJSON events"},
		},
		Action: func(c *cli.Context) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return outputError(apperror.NewInvalidRequest("query is required"))
			}
			return withService(func(ctx context.Context, svc service.IResearchService) error {
				return runSearch(ctx, svc, &dto.SearchRequest{Query: query, YearFilter: c.String("year")}, c.Bool("json"), os.Stdout)
			})
		},
	}
}

func runSearch(ctx context.Context, svc service.IResearchService, req *dto.SearchRequest, raw bool, out io.Writer) error {
	job, err := svc.PrepareSearch(ctx, req)
	if err != nil {
		return outputError(err)
	}

	emit := func(ev pipeline.Event) error { return printEvent(out, ev) }
	if raw {
		enc := json.NewEncoder(out)
		emit = func(ev pipeline.Event) error { return enc.Encode(ev) }
	}

	if _, err := job.Run(ctx, emit); err != nil {
		return outputError(err)
	}
	return nil
}

// printEvent renders one search event for a terminal.
func printEvent(w io.Writer, ev pipeline.Event) error {
	var err error
	switch data := ev.Data.(type) {
	case []string:
		_, err = headerColor.Fprintf(w, "Searching: %s\n", strings.Join(data, " | "))
	case []pipeline.PaperCard:
		for _, p := range data {
			if _, err = paperColor.Fprintf(w, "- %s (%s, %d citations)\n", p.Title, yearOf(p.PublicationDate), p.CitationCount); err != nil {
				return err
			}
		}
	case pipeline.RelevanceData:
		_, err = scoreColor.Fprintf(w, "  %s relevance %.0f\n", data.PaperID, data.Relevance)
	case pipeline.SummaryData:
		_, err = summaryColor.Fprintf(w, "  %s: %s\n", data.PaperID, data.Summary)
	default:
		_, err = fmt.Fprintf(w, "%s\n", ev.Type)
	}
	return err
}

func yearOf(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return "n.d."
}

func chatCmd() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Talk with the assistant; type /search to run the refined query, /quit to leave",
		Action: func(c *cli.Context) error {
			return withService(func(ctx context.Context, svc service.IResearchService) error {
				return runChat(ctx, svc, os.Stdin, os.Stdout)
			})
		},
	}
}

// runChat is a line-oriented loop over one chat.
func runChat(ctx context.Context, svc service.IResearchService, in io.Reader, out io.Writer) error {
	var chatID string
	var lastQuery string
	scanner := bufio.NewScanner(in)

	for {
		promptColor.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/search":
			if lastQuery == "" {
				fmt.Fprintln(out, "Nothing to search yet.")
				continue
			}
			if err := runSearch(ctx, svc, &dto.SearchRequest{Query: lastQuery, ChatId: chatID}, false, out); err != nil {
				fmt.Fprintln(out, err)
			}
			continue
		}

		resp, err := svc.Chat(ctx, &dto.ChatRequest{Message: line, ChatId: chatID})
		if err != nil {
			fmt.Fprintln(out, formatError(err))
			continue
		}
		chatID = resp.ChatId
		fmt.Fprintln(out, strings.ReplaceAll(resp.MostRecentResponse, "<br />", "\n"))
		if resp.ReadyToSearch && len(resp.Summary) > 0 {
			lastQuery = strings.Join(resp.Summary, " ")
			headerColor.Fprintln(out, "Ready to search. Type /search to continue.")
		}
	}
}

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the research tools over MCP stdio",
		Action: func(c *cli.Context) error {
			return withService(func(_ context.Context, svc service.IResearchService) error {
				return mcp.Run(svc, Version)
			})
		},
	}
}

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print research events from NATS as they happen",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Value: pktNats.SubjectPrefix + ".>", Usage: "Subject filter"},
			&cli.StringFlag{Name: "durable", Usage: "Durable consumer name (replays unacked events)"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			if cfg.App.NatsURL == "" {
				return outputError(apperror.NewInvalidRequest("NATS_URL is not set"))
			}
			log := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
			defer func() { _ = log.Sync() }()

			sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, log)
			if err != nil {
				return outputError(err)
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return sub.Subscribe(ctx, c.String("subject"), c.String("durable"), func(_ context.Context, ev events.Event) error {
				return printDomainEvent(os.Stdout, ev)
			})
		},
	}
}

func printDomainEvent(w io.Writer, ev events.Event) error {
	payload, err := json.Marshal(ev.Payload())
	if err != nil {
		return err
	}
	headerColor.Fprintf(w, "%s %s ", ev.Timestamp().Format("15:04:05"), ev.EventType())
	_, err = fmt.Fprintln(w, string(payload))
	return err
}

func formatError(err error) string {
	if appErr, ok := err.(*apperror.AppError); ok {
		return fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message)
	}
	return err.Error()
}

// outputError formats error for CLI.
func outputError(err error) error {
	return cli.Exit(formatError(err), 1)
}

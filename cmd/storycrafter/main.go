// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command storycrafter runs the story generation system: an interactive
// chat REPL, a WebSocket server, or the offline evaluation suites.
//
// Configuration comes from the environment:
//
//	OPENAI_API_KEY               LLM API key
//	OPENAI_MODEL                 default model name (default gpt-4o-mini)
//	PERSPECTIVE_API_KEY          toxicity scorer key (gate fails open without it)
//	PERSPECTIVE_THRESHOLD        toxicity threshold (default 0.7)
//	PERSPECTIVE_FAIL_CLOSED      block all turns when the scorer is unavailable
//	STORYCRAFTER_DB              session store: empty for in-memory, a
//	                             postgres:// URL, or a SQLite file path
//	STORYCRAFTER_REFINEMENT_CAP  critique-revise loop bound (default 3)
//	STORYCRAFTER_TRACING_DISABLED disable tracing entirely
//	TRACELOOP_API_KEY            export traces to Traceloop
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/nlpodyssey/storycrafter/agents"
	"github.com/nlpodyssey/storycrafter/chatserver"
	"github.com/nlpodyssey/storycrafter/engine"
	"github.com/nlpodyssey/storycrafter/evals"
	"github.com/nlpodyssey/storycrafter/memory"
	"github.com/nlpodyssey/storycrafter/safety"
	"github.com/nlpodyssey/storycrafter/tracing"
	"github.com/nlpodyssey/storycrafter/tracing/traceloop"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "chat":
		err = runChat(ctx, os.Args[2:])
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "evals":
		err = runEvals(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: storycrafter <command> [flags]

commands:
  chat    interactive story chat on the terminal
  serve   WebSocket chat server
  evals   run offline evaluation suites`)
}

func setupTracing(ctx context.Context) error {
	if v, _ := strconv.ParseBool(os.Getenv("STORYCRAFTER_TRACING_DISABLED")); v {
		tracing.SetTracingDisabled(true)
		return nil
	}
	if apiKey := os.Getenv("TRACELOOP_API_KEY"); apiKey != "" {
		processor, err := traceloop.NewTracingProcessor(ctx, traceloop.ProcessorParams{APIKey: apiKey})
		if err != nil {
			return fmt.Errorf("traceloop setup failed: %w", err)
		}
		tracing.AddTraceProcessor(processor)
	}
	return nil
}

func newSessionService(ctx context.Context) (memory.SessionService, error) {
	dsn := os.Getenv("STORYCRAFTER_DB")
	switch {
	case dsn == "":
		return memory.NewInMemorySessionService(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return memory.NewPostgresSessionService(ctx, memory.PostgresSessionServiceParams{ConnString: dsn})
	default:
		return memory.NewSQLiteSessionService(ctx, memory.SQLiteSessionServiceParams{DBDataSourceName: dsn})
	}
}

func refinementCap() int {
	if v := os.Getenv("STORYCRAFTER_REFINEMENT_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0 // engine falls back to its default
}

func newEngine(ctx context.Context) (*engine.Engine, error) {
	if err := setupTracing(ctx); err != nil {
		return nil, err
	}

	sessions, err := newSessionService(ctx)
	if err != nil {
		return nil, err
	}

	return engine.NewEngine(engine.EngineParams{
		Runner:        agents.Runner{Model: os.Getenv("OPENAI_MODEL")},
		Sessions:      sessions,
		Memories:      memory.NewInMemoryMemoryStore(),
		Gate:          safety.NewGateFromEnv(),
		RefinementCap: refinementCap(),
	})
}

func runChat(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("chat", flag.ExitOnError)
	userID := flags.String("user", "local", "user id for session and memory scoping")
	refine := flags.Bool("refine", false, "run the critique-revise loop on new stories")
	verbose := flags.Bool("verbose", false, "verbose logging")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *verbose {
		agents.EnableVerboseStdoutLogging()
	}

	e, err := newEngine(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Story Crafter. Type a story request, or \"exit\" to quit.")

	reader := bufio.NewReader(os.Stdin)
	sessionID := ""
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}

		prompt := strings.TrimSpace(line)
		if prompt == "" {
			continue
		}
		if v := strings.ToLower(prompt); v == "exit" || v == "quit" {
			return nil
		}

		stream := e.ProcessStoryRequest(ctx, engine.TurnRequest{
			Prompt:           prompt,
			UserID:           *userID,
			SessionID:        sessionID,
			EnableRefinement: *refine,
		})
		sessionID = stream.SessionID

		err = stream.StreamEvents(func(event engine.StoryStreamEvent) error {
			printEvent(os.Stdout, event)
			return nil
		})
		if err != nil {
			return err
		}
	}
}

func printEvent(w io.Writer, event engine.StoryStreamEvent) {
	switch e := event.(type) {
	case engine.StatusEvent:
		fmt.Fprintf(w, "[%s] %s\n", e.Author, e.Message)
	case engine.DraftEvent:
		fmt.Fprintf(w, "\n# %s\n\n%s\n\n", e.Draft.Title, e.Draft.Text)
	case engine.CritiqueEvent:
		if e.Approved {
			fmt.Fprintf(w, "[critic] iteration %d: approved\n", e.Iteration)
		} else {
			fmt.Fprintf(w, "[critic] iteration %d:\n%s\n", e.Iteration, e.Feedback)
		}
	case engine.RefinedEvent:
		fmt.Fprintf(w, "\n# %s (revision %d)\n\n%s\n\n", e.Draft.Title, e.Iteration, e.Draft.Text)
	case engine.EditedEvent:
		fmt.Fprintf(w, "\n%s\n\n", e.Text)
	case engine.AnswerEvent:
		fmt.Fprintf(w, "\n%s\n\n", e.Text)
	case engine.ErrorEvent:
		if e.IsSafetyViolation {
			fmt.Fprintf(w, "Request rejected by the safety check (score %.2f).\n", e.Score)
		} else {
			fmt.Fprintf(w, "Turn failed: %v\n", e.Err)
		}
	case engine.CompleteEvent:
		if e.Usage != nil {
			fmt.Fprintf(w, "[done] %d requests, %d tokens\n", e.Usage.Requests, e.Usage.TotalTokens)
		}
	}
}

func runServe(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", ":8080", "listen address")
	if err := flags.Parse(args); err != nil {
		return err
	}

	e, err := newEngine(ctx)
	if err != nil {
		return err
	}
	server, err := chatserver.NewServer(chatserver.ServerParams{Engine: e})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", server)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	slog.Info("listening", slog.String("addr", *addr))
	return http.ListenAndServe(*addr, mux)
}

func runEvals(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("evals", flag.ExitOnError)
	suite := flags.String("suite", "router", "evaluation suite: router, intent, safety or all")
	outDir := flags.String("out", "eval_results", "directory for JSON reports")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := setupTracing(ctx); err != nil {
		return err
	}
	runner := evals.Runner{Agents: agents.Runner{Model: os.Getenv("OPENAI_MODEL")}}

	var summaries []evals.Summary
	switch *suite {
	case "router":
		summaries = append(summaries, runner.RunRouterEvals(ctx))
	case "intent":
		summaries = append(summaries, runner.RunIntentEvals(ctx))
	case "safety":
		summaries = append(summaries, evals.RunSafetyEvals(ctx, safety.NewGateFromEnv()))
	case "all":
		summaries = append(summaries,
			runner.RunRouterEvals(ctx),
			runner.RunIntentEvals(ctx),
			evals.RunSafetyEvals(ctx, safety.NewGateFromEnv()),
		)
	default:
		return fmt.Errorf("unknown suite %q", *suite)
	}

	for _, summary := range summaries {
		summary.Print(os.Stdout)
		path, err := summary.Save(*outDir)
		if err != nil {
			return err
		}
		fmt.Printf("\nResults saved to %s\n", path)
	}
	return nil
}

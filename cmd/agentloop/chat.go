package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hupe1980/agentloop"
	"github.com/hupe1980/agentloop/agent"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		loop, err := openLoop(cmd)
		if err != nil {
			return err
		}
		defer loop.Close()

		out := cmd.OutOrStdout()
		printBanner(out, loop.Catalog().Names())

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		return chatLoop(cmd.Context(), cmd.InOrStdin(), out, sigChan, func(ctx context.Context, question string) error {
			return answer(ctx, out, loop, question)
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loop, err := openLoop(cmd)
		if err != nil {
			return err
		}
		defer loop.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return answer(ctx, cmd.OutOrStdout(), loop, strings.Join(args, " "))
	},
}

// answer runs one question and renders it, streaming when configured.
func answer(ctx context.Context, w io.Writer, loop *agentloop.AgentLoop, question string) error {
	if !loop.Config().Stream {
		res, err := loop.Run(ctx, question)
		if err != nil {
			return err
		}
		printResult(w, res)
		return nil
	}

	s := loop.RunStream(ctx, question)
	defer s.Close()

	p := &chunkPrinter{w: w}
	defer p.finish()
	for {
		c, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		p.print(c)
	}

	res, err := s.Result()
	if err != nil {
		return err
	}
	if res.Status == agent.StatusCapped {
		p.finish()
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("(stopped after %d iterations)", res.Iterations)))
	}
	return nil
}

// isExit reports whether the line ends the session.
func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit", "q":
		return true
	}
	return false
}

// chatLoop reads questions line by line until EOF, an exit word or an
// interrupt while idle. An interrupt during a run only cancels that run.
func chatLoop(
	ctx context.Context,
	in io.Reader,
	out io.Writer,
	sigs <-chan os.Signal,
	ask func(ctx context.Context, question string) error,
) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		printPrompt(out)

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sigs:
			fmt.Fprintln(out)
			fmt.Fprintln(out, dimStyle.Render("Goodbye!"))
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				fmt.Fprintln(out, dimStyle.Render("Goodbye!"))
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if isExit(line) {
			fmt.Fprintln(out, dimStyle.Render("Goodbye!"))
			return nil
		}

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- ask(runCtx, line) }()

		var err error
		select {
		case err = <-done:
		case <-sigs:
			cancel()
			err = <-done
		}
		cancel()

		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(out, warnStyle.Render("(cancelled)"))
		default:
			fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
		}
		fmt.Fprintln(out)
	}
}

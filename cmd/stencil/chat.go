package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/stencil/internal/core/resolve"
	"github.com/artpar/stencil/internal/shell/ai"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the template assistant",
	Long: `chat starts an interactive session with the configured AI provider.
Ask which template fits your project, how to configure parameters, or
"explain <template>" for a walkthrough of one template. Type "exit" to
leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cache := optionalAnalytics()
	if cache != nil {
		defer cache.Close()
	}
	router := newRouter(cache)
	session := ai.NewSession(router)
	assistant := ai.NewAssistant(router, logger)
	resolver := resolve.NewResolver(openStore())

	fmt.Fprintln(out, "stencil assistant - ask about templates (type \"exit\" to quit)")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "exit", line == "quit":
			return nil
		case line == "help":
			printChatHelp(out)
			continue
		}

		var reply string
		var err error
		if id, ok := strings.CutPrefix(line, "explain "); ok {
			reply, err = explainTemplate(cmd, assistant, resolver, strings.TrimSpace(id))
		} else {
			reply, err = session.Send(ctx, line)
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n\n", err)
			continue
		}
		fmt.Fprintf(out, "%s\n\n", reply)
	}
}

func explainTemplate(cmd *cobra.Command, assistant *ai.Assistant, resolver *resolve.Resolver, id string) (string, error) {
	resolved, err := resolver.Resolve(cmd.Context(), id)
	if err != nil {
		return "", err
	}
	return assistant.Explain(cmd.Context(), id, resolved.Definition)
}

func printChatHelp(out io.Writer) {
	fmt.Fprintln(out, `commands:
  help               show this message
  explain <template> walk through one template
  exit               leave the session

Anything else is sent to the assistant.`)
}

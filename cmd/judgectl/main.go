// Command judgectl is an interactive REPL for manual smoke-testing: it
// submits free-run code directly against an in-process Dispatcher, with no
// HTTP layer, sandbox network hop, or persisted state involved.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"codejudge/internal/dispatcher"
	"codejudge/internal/domain"
	"codejudge/internal/execution"
	"codejudge/internal/sandbox"
	"codejudge/pkg/utils/logger"

	"github.com/chzyer/readline"
)

func main() {
	root, err := os.MkdirTemp("", "judgectl-sandbox")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create sandbox dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(root)

	_ = logger.Init(logger.Config{Level: "warn", Format: "console"})

	transport, err := sandbox.NewLocalTransport(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init sandbox transport: %v\n", err)
		os.Exit(1)
	}
	gateway := sandbox.NewGateway(transport, sandbox.Config{})
	engine := execution.New(gateway, execution.Config{HostWorkRoot: root})
	disp := dispatcher.New(engine, nil, dispatcher.Config{PoolSize: 1})

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "judgectl> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("judgectl: free-run code against an in-process dispatcher.")
	fmt.Println(`commands: ":lang cpp|python|java", ":run", ":stdin", ":quit"`)

	lang := domain.LanguagePython
	var code, stdin strings.Builder

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return
			}
			fmt.Fprintf(os.Stderr, "readline error: %v\n", err)
			return
		}

		switch {
		case strings.HasPrefix(line, ":lang "):
			lang = domain.Language(strings.TrimSpace(strings.TrimPrefix(line, ":lang ")))
			fmt.Printf("language set to %q\n", lang)
		case line == ":stdin":
			fmt.Println("enter stdin, end with a line containing only \".\"")
			stdin.Reset()
			readMultiline(rl, &stdin)
		case line == ":run":
			fmt.Println("enter code, end with a line containing only \".\"")
			code.Reset()
			readMultiline(rl, &code)

			result, err := disp.SubmitFreeRun(context.Background(), code.String(), lang, stdin.String())
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("verdict=%s runtime=%s memory=%s\n--- stdout ---\n%s--- stderr ---\n%s\n",
				result.Verdict, result.Runtime, result.Memory, result.Stdout, result.Stderr)
		case line == ":quit", line == ":q":
			return
		default:
			fmt.Println(`unrecognized command; try ":lang", ":stdin", ":run", ":quit"`)
		}
	}
}

func readMultiline(rl *readline.Instance, into *strings.Builder) {
	for {
		line, err := rl.Readline()
		if err != nil || line == "." {
			return
		}
		into.WriteString(line)
		into.WriteByte('\n')
	}
}

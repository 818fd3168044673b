package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/misc"
	"github.com/baalimago/go_away_boilerplate/pkg/shutdown"
	"github.com/baalimago/worklog/internal/config"
)

const usage = `worklog - daily work-log generator

Interviews you about your day through a chat in the browser, then writes
a structured work-log you can copy or download.

Prerequisites:
  - Set the OPENAI_API_KEY environment variable to your OpenAI API key, or put it in the env file
  - (Optional) Set DEBUG=true for verbose output, or DEBUG_OPENAI, DEBUG_WEB, DEBUG_SESSION, DEBUG_CONVERSATION
  - (Optional) Set WORKLOG_CONFIG_HOME to use another config directory than '%v'

Usage: worklog [flags]

Flags:
  -a, -addr string             Address to serve the web ui on. (default is found in worklogConfig.json, '%v')
  -cm, -chat-model string      Set the chat model to use. (default is found in openai.json, '%v')
  -temp, -temperature float    Set the sampling temperature. (default is found in openai.json, '%v')
  -e, -env-file string         Dotenv file to load credentials from, if it exists. (default is found in worklogConfig.json, '%v')
  -v, -version bool            Print version and exit.
  -h, -help bool               Print this help and exit.

Examples:
  - worklog
  - worklog -a 127.0.0.1:3000
  - worklog -cm gpt-4o -temp 0.2
  - OPENAI_API_KEY=sk-... worklog -e ""
`

func main() {
	ancli.SetupSlog()
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	configDir, err := config.Dir()
	if err != nil {
		ancli.Errf("failed to find config dir path: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, err := setup(configDir, args)
	if err != nil {
		if errors.Is(err, errUserInitiatedExit) {
			return 0
		}
		ancli.PrintErr(fmt.Sprintf("failed to setup: %v\n", err))
		return 1
	}
	go func() { shutdown.Monitor(cancel) }()
	err = a.run(ctx)
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("failed to run: %v\n", err))
		return 1
	}
	if misc.Truthy(os.Getenv("DEBUG")) {
		ancli.PrintOK("things seems to have worked out. Bye bye! 🚀\n")
	}
	return 0
}

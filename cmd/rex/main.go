// REX CLI — запуск и проверка workflow локально, работа с runs через HTTP API.
//
// Использование:
//
//	rex [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	run       Выполнить workflow-файл локально
//	validate  Проверить workflow-файл
//	nodes     Каталог subtype'ов
//	runs      Runs на сервере (list, show, submit)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeghVyas3132/REX/internal/cli"
	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/nodes"
	"github.com/MeghVyas3132/REX/internal/orchestrator"
	"github.com/MeghVyas3132/REX/internal/remote"
	"github.com/MeghVyas3132/REX/internal/repo"
	"github.com/MeghVyas3132/REX/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool
	var delegateKind string
	var delegateURL string

	rootCmd := &cobra.Command{
		Use:           "rex",
		Short:         "REX CLI — workflow graph execution engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&delegateKind, "delegate", "", "Remote executor for the run command: http or amqp")
	rootCmd.PersistentFlags().StringVar(&delegateURL, "delegate-url", "", "Base URL of the REX API used by the http delegate")

	// Логи в stderr: stdout занят выводом команд.
	logger := telemetry.SetupLoggerTo(os.Stderr)

	registry := nodes.DefaultRegistry()
	closeDelegate := func() {}

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	registryFn := func() *nodes.Registry { return registry }

	orchFn := func() *orchestrator.Orchestrator {
		kind := delegateKind
		if kind == "" && delegateURL != "" {
			kind = remote.KindHTTP
		}

		delegate, closeFn, err := remote.New(kind, delegateURL, os.Getenv("RABBITMQ_URL"), logger)
		if err != nil {
			logger.Warn("delegate unavailable, running locally", "error", err)
		}
		closeDelegate = closeFn

		return orchestrator.New(orchestrator.Config{
			Engine:   engine.New(engine.Config{Registry: registry, Logger: logger}),
			Delegate: delegate,
			Store:    repo.NewMemoryRunRepo(),
			Logger:   logger,
		})
	}

	rootCmd.AddCommand(
		cli.NewRunCmd(orchFn, outputFn),
		cli.NewValidateCmd(registryFn, outputFn),
		cli.NewNodesCmd(registryFn, clientFn, outputFn),
		cli.NewRunsCmd(clientFn, outputFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	closeDelegate()
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

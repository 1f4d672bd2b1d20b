// Package main provides the arkg binary entry point.
// arkg indexes Wikipedia records, retrieves their anti-recommendations and
// publishes them as an RDF knowledge graph.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/siherrmann/arkg"
	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
	"github.com/spf13/cobra"
)

const appName = "arkg"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the flags shared by all subcommands
type options struct {
	logLevel string
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Anti-recommendation knowledge graph builder",
		Long: `arkg builds a knowledge graph of anti-recommendations.

Records are embedded into a pgvector similarity index, their
anti-recommendations are retrieved, linked to Wikidata identifiers and
written as RDF.

Configuration is read from the environment (DB_* and ARKG_* variables),
a .env file in the working directory is loaded first.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		indexCmd(opts),
		retrieveCmd(opts),
		buildCmd(opts),
		runCmd(opts),
		queryCmd(opts),
		traverseCmd(opts),
		formatsCmd(),
	)

	return cmd
}

func (o *options) logger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(o.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := helper.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)
	return logger
}

// open returns an Arkg configured from the environment.
// With connect it also opens the database and sets up the default embedder.
func (o *options) open(connect bool) (*arkg.Arkg, error) {
	config, err := model.NewPipelineConfig()
	if err != nil {
		return nil, fmt.Errorf("load pipeline config: %w", err)
	}

	a, err := arkg.New(*config)
	if err != nil {
		return nil, err
	}
	a.SetLogger(o.logger())

	if !connect {
		return a, nil
	}

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	err = a.Connect(dbConfig)
	if err != nil {
		return nil, err
	}

	err = a.UseDefaultEmbedder()
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"photocull/aiscoring"
	"photocull/config"
	"photocull/database"
	"photocull/faces"
	"photocull/imageprocessor"
	"photocull/logging"
	"photocull/scanner"
	"photocull/signalhandler"
	"photocull/utils"

	"github.com/rs/zerolog/log"
)

func main() {
	// Set the optimal number of CPUs to use
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	// Parse command line arguments into a map
	args := utils.ParseArguments()

	command, hasCommand := args["command"]
	if utils.IsSet(args, "help") || !hasCommand {
		utils.PrintUsage()
		os.Exit(1)
	}

	verbose := utils.IsSet(args, "verbose") || utils.IsSet(args, "debug")
	logging.Init(verbose)

	switch command {
	case "cull":
		if args["folder"] == "" {
			utils.PrintUsage()
			os.Exit(1)
		}
		os.Exit(handleCullCommand(args, verbose))
	case "init-config":
		handleInitConfigCommand(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		utils.PrintUsage()
		os.Exit(1)
	}
}

func handleInitConfigCommand(args map[string]string) {
	path := args["config"]
	if path == "" {
		path = "photocull.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		log.Fatal().Str("path", path).Msg("config file already exists")
	}
	if err := config.Default().Save(path); err != nil {
		log.Fatal().Err(err).Msg("failed to write config")
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
}

func handleCullCommand(args map[string]string, verbose bool) int {
	folderPath := args["folder"]

	// Verify folder path exists and is accessible
	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("folder", folderPath).Msg("folder does not exist")
		} else {
			log.Error().Str("folder", folderPath).Err(err).Msg("cannot access folder")
		}
		return 1
	}
	if !folderInfo.IsDir() {
		log.Error().Str("folder", folderPath).Msg("path is not a directory")
		return 1
	}

	cfg, err := config.Load(args["config"])
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return 1
	}
	if err := applyFlags(cfg, args); err != nil {
		log.Error().Err(err).Msg("invalid arguments")
		return 1
	}

	logPath := cfg.LogFile
	if p, ok := args["logfile"]; ok && p != "" {
		logPath = p
	}
	if logPath != "" {
		if err := logging.SetupLogger(logPath); err != nil {
			log.Warn().Err(err).Msg("failed to set up log file")
		} else {
			defer logging.CloseLogger()
		}
	}

	ctx, cancel := signalhandler.NotifyContext(context.Background())
	defer cancel()

	processor := imageprocessor.NewProcessor(cfg)
	defer processor.Close()

	aiMode := utils.IsSet(args, "ai") || utils.IsSet(args, "ai-cull")

	var strategy scanner.Strategy
	if aiMode {
		client := aiscoring.NewOllamaClient(cfg.AI)
		log.Info().Str("model", client.Model()).Str("url", cfg.AI.URL).Msg("scoring with vision model")
		strategy = scanner.NewAIStrategy(cfg, aiscoring.NewScorer(client, cfg.AI), processor)
	} else {
		provider := faces.NewProvider(cfg.Faces)
		defer provider.Close()
		evaluator := faces.NewEvaluator(provider, cfg.Faces)
		if !evaluator.Available() {
			log.Warn().Msg("no face model loaded, face scores stay neutral")
		}
		strategy = scanner.NewAlgorithmicStrategy(cfg, processor, evaluator)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = signalhandler.GetOptimalProcs()
	}

	options := scanner.Options{
		FolderPath: folderPath,
		DryRun:     utils.IsSet(args, "dry-run"),
		Verbose:    verbose,
		MaxWorkers: workers,
		Out:        os.Stdout,
	}

	startTime := time.Now()
	pipeline := scanner.NewPipeline(cfg, processor, strategy)
	result, err := pipeline.Run(ctx, options)

	switch {
	case errors.Is(err, scanner.ErrNoPhotos):
		log.Error().Str("folder", folderPath).Msg("no photos found")
		return 1
	case errors.Is(err, context.Canceled):
		log.Warn().Msg("run interrupted, sidecars already written are complete")
		if result != nil && result.Summary.Analysed > 0 {
			scanner.PrintSummary(os.Stdout, result.Summary, options.DryRun)
		}
		return 130
	case err != nil:
		log.Error().Err(err).Msg("cull failed")
		return 1
	}

	scanner.PrintSummary(os.Stdout, result.Summary, options.DryRun)

	if dbPath, ok := args["audit-db"]; ok {
		if dbPath == "true" {
			dbPath = utils.GetDefaultDatabasePath()
		}
		exportAudit(dbPath, options, result, aiMode)
	}

	log.Debug().Dur("elapsed", time.Since(startTime)).Msg("done")

	if result.Summary.SidecarFailures > 0 {
		return 2
	}
	return 0
}

func applyFlags(cfg *config.Config, args map[string]string) error {
	if v, ok := args["ollama-model"]; ok && v != "" {
		cfg.AI.Model = v
	}
	if v, ok := args["ollama-url"]; ok && v != "" {
		cfg.AI.URL = v
	}
	if v, ok := args["workers"]; ok {
		n, err := utils.ParseWorkers(v)
		if err != nil {
			return err
		}
		cfg.Workers = n
	}
	if v, ok := args["threshold"]; ok {
		n, err := utils.ParseThreshold(v)
		if err != nil {
			return err
		}
		cfg.Duplicates.Threshold = n
	}
	if v, ok := args["gap"]; ok {
		g, err := utils.ParseGap(v)
		if err != nil {
			return err
		}
		cfg.Series.GapSeconds = g
	}
	if utils.IsSet(args, "no-faces") {
		cfg.Faces.Enabled = false
	}
	return nil
}

func exportAudit(dbPath string, options scanner.Options, result *scanner.Result, aiMode bool) {
	db, err := database.InitDatabase(dbPath)
	if err != nil {
		log.Warn().Err(err).Str("db", dbPath).Msg("audit export skipped")
		return
	}
	defer db.Close()

	runID, err := scanner.ExportAudit(db, options, result, aiMode)
	if err != nil {
		log.Warn().Err(err).Msg("audit export failed")
		return
	}
	fmt.Printf("Audit: run %s stored in %s\n", runID, dbPath)
}

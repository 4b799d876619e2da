package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/browser"
	"github.com/formbridge/formbridge/internal/config"
	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/internal/schema"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	godotenv.Load()

	// Flags
	targetURL := flag.String("url", "", "Form URL to scan")
	multi := flag.Bool("multi", false, "Scan a multi-page wizard form")
	maxPages := flag.Int("max-pages", 10, "Maximum wizard pages to walk")
	output := flag.String("output", "", "Write the schema JSON to this file")
	headless := flag.Bool("headless", true, "Run the browser headless")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	if *targetURL == "" {
		red.Println("❌ -url is required")
		flag.Usage()
		os.Exit(1)
	}

	// Setup logger
	var logger *zap.Logger
	if *verbose {
		logger, _ = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"/dev/null"}
		logger, _ = cfg.Build()
	}
	defer logger.Sync()

	cfg, err := config.LoadWithDefaults()
	if err != nil {
		red.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Browser.Headless = *headless

	cyan.Println("━━━ FormBridge scanner ━━━")
	fmt.Printf("🎯 Target: %s\n", *targetURL)
	fmt.Println()

	b, err := browser.New(cfg.Browser, logger)
	if err != nil {
		red.Printf("❌ Failed to launch browser: %v\n", err)
		os.Exit(1)
	}
	defer b.Close()

	scanner := browser.NewScanner(b, logger)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("   Scanning..."),
		progressbar.OptionSpinnerType(14),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(100 * time.Millisecond):
				bar.Add(1)
			}
		}
	}()

	ctx := context.Background()
	start := time.Now()

	var exitErr error
	if *multi {
		exitErr = scanWizard(ctx, scanner, *targetURL, *maxPages, *output)
	} else {
		exitErr = scanSingle(ctx, scanner, *targetURL, *output)
	}

	close(done)
	bar.Finish()
	fmt.Println()

	if exitErr != nil {
		red.Printf("❌ Scan failed: %v\n", exitErr)
		os.Exit(1)
	}

	dim.Printf("Done in %s\n", time.Since(start).Round(time.Millisecond))
}

func scanSingle(ctx context.Context, scanner *browser.Scanner, url, output string) error {
	extract, err := scanner.ScanPage(ctx, url)
	if err != nil {
		return err
	}

	normalizer := schema.NewNormalizer()
	builder := schema.NewBuilder()

	normalized := normalizer.Normalize(extract.Fields)
	formSchema := builder.BuildSchema(url, normalized, extract.Buttons, extract.StepIndicators)

	green.Printf("✓ Extracted %d DOM elements\n", len(extract.Fields))
	green.Printf("✓ Found %d buttons, %d step indicators\n",
		len(extract.Buttons), len(extract.StepIndicators))
	fmt.Println()

	printSchema(formSchema)

	return writeOutput(output, formSchema)
}

func scanWizard(ctx context.Context, scanner *browser.Scanner, url string, maxPages int, output string) error {
	snapshots, err := scanner.ScanWizard(ctx, url, maxPages)
	if err != nil {
		return err
	}

	normalizer := schema.NewNormalizer()
	builder := schema.NewBuilder()

	totalFields := 0
	for _, snap := range snapshots {
		normalized := normalizer.Normalize(snap.Result.Fields)
		pageSchema := builder.BuildSchema(snap.URL, normalized, snap.Result.Buttons, snap.Result.StepIndicators)
		totalFields += pageSchema.FieldCount()

		bold.Printf("━━━ Page %d: %s ━━━\n", snap.Page, snap.URL)
		printSchema(pageSchema)
		fmt.Println()
	}

	green.Printf("✓ Scanned %d pages with %d fields total\n", len(snapshots), totalFields)

	if output != "" {
		return writeOutput(output, snapshots)
	}
	return nil
}

func printSchema(s *domain.FormSchema) {
	fmt.Printf("   Fields (%d):\n", s.FieldCount())
	for _, key := range s.Fields.Keys() {
		fd, _ := s.Fields.Get(key)
		line := fmt.Sprintf("   • %-30s %-10s %q", key, fd.Type, fd.Label)
		if len(fd.Options) > 0 {
			line += fmt.Sprintf("  (%d options)", len(fd.Options))
		}
		fmt.Println(line)
	}
}

func writeOutput(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	dim.Printf("Schema written to %s\n", path)
	return nil
}

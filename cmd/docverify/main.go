package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/entity"
	"github.com/joseph-ayodele/docverify/internal/export"
	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/llm/providers"
	"github.com/joseph-ayodele/docverify/internal/ocr"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
	"github.com/joseph-ayodele/docverify/internal/server"
)

var errorLabel = color.New(color.FgRed, color.Bold).SprintFunc()

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		provider = flag.String("provider", "", "LLM provider override: openai, gemini or ollama")
		xlsxOut  = flag.String("xlsx", "", "write each run's verified results to this XLSX file")
		htmlOut  = flag.String("html", "", "write each run's verified results to this HTML file")
	)
	flag.Parse()

	cfg := common.LoadConfig()
	if *provider != "" {
		cfg.LLM.Provider = strings.ToLower(*provider)
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := providers.New(ctx, cfg.LLM, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	cache, err := server.ConnectCache(ctx, cfg.Cache, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer server.CloseCache(cache, logger)

	extractor := extract.NewOCRAdapter(ocr.NewExtractor(ocr.ConfigFromCommon(cfg.OCR), logger), logger)
	processor := pipeline.NewDefaultProcessor(pipeline.ConfigFromCommon(cfg), gw, extractor, cache, logger)
	exporter := export.NewService(logger)

	userLabel := color.New(color.FgCyan, color.Bold).SprintFunc()
	assistantLabel := color.New(color.FgGreen, color.Bold).SprintFunc()

	fmt.Println(`Ask about a PDF, e.g. "In ./report.pdf, what was the revenue growth?". Type quit to leave.`)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userLabel("User: "))
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if constants.IsExitCommand(line) {
			fmt.Println("Goodbye!")
			return
		}

		sess, err := processor.Run(ctx, line)
		if err != nil {
			fmt.Printf("%s %v\n", errorLabel("Error:"), err)
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if msg, ok := sess.LastAssistantMessage(); ok {
			fmt.Printf("%s %s\n", assistantLabel("Assistant:"), msg.Content)
		}
		writeReports(exporter, sess, *xlsxOut, *htmlOut)
	}
	if err := scanner.Err(); err != nil {
		printError("Error: reading input: %v\n", err)
		os.Exit(1)
	}
}

func writeReports(exporter *export.Service, sess entity.Session, xlsxPath, htmlPath string) {
	if xlsxPath != "" {
		data, err := exporter.VerifiedResultsXLSX(sess)
		if err == nil {
			err = os.WriteFile(xlsxPath, data, 0o644)
		}
		if err != nil {
			fmt.Printf("%s writing %s: %v\n", errorLabel("Error:"), xlsxPath, err)
		}
	}
	if htmlPath != "" {
		data, err := exporter.VerifiedResultsHTML(sess)
		if err == nil {
			err = os.WriteFile(htmlPath, data, 0o644)
		}
		if err != nil {
			fmt.Printf("%s writing %s: %v\n", errorLabel("Error:"), htmlPath, err)
		}
	}
}

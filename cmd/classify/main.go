// Command classify runs the offline description pipeline from the terminal.
//
//	classify "COMPRA TARJ 1234 MERCADONA VALENCIA"
//	cat descriptions.txt | classify
//	classify -statement march.csv
//	classify -receipt ticket.txt
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/garyjia/spendlens/internal/description"
	"github.com/garyjia/spendlens/internal/domain/entity"
	"github.com/garyjia/spendlens/internal/receipt"
	"github.com/garyjia/spendlens/internal/statement"
	"github.com/garyjia/spendlens/pkg/utils"
)

var (
	rulesPath     = flag.String("rules", "", "YAML rule table replacing the built-in one.")
	receiptPath   = flag.String("receipt", "", "Parse a receipt text file and print it as JSON.")
	statementPath = flag.String("statement", "", "Classify every row of a CSV or XLSX bank statement.")
	verbose       = flag.Bool("v", false, "Debug logging on stderr.")
)

var (
	labelColor = color.New(color.BgGreen, color.FgBlack).SprintfFunc()
	missColor  = color.New(color.BgRed, color.FgWhite).SprintfFunc()
	dimColor   = color.New(color.FgHiBlack).SprintfFunc()
	warnColor  = color.New(color.FgYellow).SprintfFunc()
)

func main() {
	flag.Parse()

	logger, err := utils.NewCLILogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *receiptPath != "" {
		if err := printReceipt(*receiptPath, os.Stdout); err != nil {
			logger.Fatal("Failed to parse receipt", zap.String("path", *receiptPath), zap.Error(err))
		}
		return
	}

	classifier := description.DefaultClassifier()
	if *rulesPath != "" {
		classifier, err = description.LoadClassifier(*rulesPath)
		if err != nil {
			logger.Fatal("Failed to load rules", zap.String("path", *rulesPath), zap.Error(err))
		}
		logger.Debug("Loaded rules", zap.Int("count", len(classifier.Rules())))
	}

	if *statementPath != "" {
		if err := classifyStatement(classifier, *statementPath, os.Stdout); err != nil {
			logger.Fatal("Failed to read statement", zap.String("path", *statementPath), zap.Error(err))
		}
		return
	}

	if flag.NArg() > 0 {
		for _, arg := range flag.Args() {
			printClassification(os.Stdout, classifier, arg)
		}
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			printClassification(os.Stdout, classifier, line)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Fatal("Failed to read stdin", zap.Error(err))
	}
}

func printClassification(w io.Writer, classifier *description.Classifier, raw string) {
	sanitized := description.SanitizeDescription(raw)
	tokens := description.ExtractMerchantTokens(sanitized)
	result := classifier.Simplify(sanitized)

	fmt.Fprintf(w, "%s\n", raw)
	fmt.Fprintf(w, "  %s %s\n", dimColor("sanitized:"), sanitized)
	fmt.Fprintf(w, "  %s %s\n", dimColor("tokens:   "), strings.Join(tokens, " "))
	fmt.Fprintf(w, "  %s %s\n\n", dimColor("result:   "), formatResult(result))
}

func formatResult(r entity.ClassificationResult) string {
	if !r.Matched() {
		return missColor(" no match ")
	}
	return fmt.Sprintf("%s %.2f %s", labelColor(" %s ", r.Simplified), r.Confidence, dimColor("%s", r.MatchedRule))
}

func classifyStatement(classifier *description.Classifier, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := statement.Read(path, f)
	if err != nil {
		return err
	}

	matched := 0
	for _, row := range rows {
		date := "          "
		if row.Date != nil {
			date = row.Date.Format("2006-01-02")
		}
		if row.Error != "" {
			fmt.Fprintf(w, "%4d %s %s\n", row.Number, date, warnColor("%s", row.Error))
			continue
		}
		result := classifier.Simplify(description.SanitizeDescription(row.Description))
		if result.Matched() {
			matched++
		}
		fmt.Fprintf(w, "%4d %s %10.2f  %-40.40s %s\n", row.Number, date, row.Amount, row.Description, formatResult(result))
	}
	fmt.Fprintf(w, "\n%d of %d rows classified\n", matched, len(rows))
	return nil
}

func printReceipt(path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	res, ok := receipt.DefaultRegistry().Parse(utils.SanitizeString(string(data)))
	if !ok || res == nil || res.Extracted == nil {
		return fmt.Errorf("no receipt parser recognises %s (known: %s)",
			path, strings.Join(receipt.DefaultRegistry().Names(), ", "))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Extracted); err != nil {
		return err
	}
	for _, warning := range res.Warnings {
		fmt.Fprintln(os.Stderr, warnColor("warning: %s", warning))
	}
	return nil
}

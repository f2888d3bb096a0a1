package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	serrors "github.com/Aman-CERP/sift/internal/errors"
	"github.com/Aman-CERP/sift/internal/schema"
	"github.com/Aman-CERP/sift/internal/ui"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	var stopOnError bool

	cmd := &cobra.Command{
		Use:   "index <name> [file|-]",
		Short: "Add documents to an index",
		Long: `Add one JSON document, or a JSON array of documents, to the named index.

The index is created by its first document, whose fields become the schema.
Later documents may omit fields but must not add new ones. Input is read
from the file argument, or from stdin when it is '-' or omitted.`,
		Example: `  sift index books book.json
  echo '{"title":"Dune","author":"Herbert"}' | sift index books
  sift index books catalogue.json --stop-on-error`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 2 {
				source = args[1]
			}
			return runIndex(cmd, root, args[0], source, stopOnError)
		},
	}

	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Stop at the first document that fails")

	return cmd
}

func runIndex(cmd *cobra.Command, root *rootOptions, name, source string, stopOnError bool) error {
	data, err := readInput(cmd.InOrStdin(), source)
	if err != nil {
		return err
	}
	docs, err := parseDocuments(data)
	if err != nil {
		return err
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	registry, release, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = release() }()

	out := cmd.OutOrStdout()
	reporter := ui.NewBatchReporter(out, ui.NoColorFor(out), len(docs))
	start := time.Now()

	var indexed, failed int
	var firstErr error
	for i, doc := range docs {
		msg, err := registry.CreateOrAppend(ctx, name, doc)
		if err != nil {
			failed++
			reporter.Failed(i+1, err)
			if firstErr == nil {
				firstErr = err
			}
			if stopOnError {
				break
			}
			continue
		}
		indexed++
		reporter.Indexed(i+1, msg)
	}

	reporter.Complete(ui.BatchSummary{
		Index:    name,
		Indexed:  indexed,
		Failed:   failed,
		Duration: time.Since(start),
	})
	return firstErr
}

func readInput(stdin io.Reader, source string) ([]byte, error) {
	if source == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return data, nil
}

// parseDocuments accepts a single JSON object or an array of objects.
func parseDocuments(data []byte) ([]schema.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, serrors.ValidationError("no document given", nil)
	}

	if trimmed[0] != '[' {
		doc, err := schema.ParseDocument(trimmed)
		if err != nil {
			return nil, err
		}
		return []schema.Document{doc}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, serrors.ValidationError("document array is not valid JSON", err)
	}
	docs := make([]schema.Document, 0, len(raws))
	for i, raw := range raws {
		doc, err := schema.ParseDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

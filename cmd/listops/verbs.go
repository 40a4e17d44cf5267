package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dan-solli/listops/pkg/listops"
)

var (
	goal       string
	inputPath  string
	categories []string
	verify     bool
	initial    string
	shape      string
	schemaPath string
	template   string
	rolling    bool
	chunkSize  int
	contextDoc string
)

var classifyCmd = &cobra.Command{
	Use:     "classify",
	Short:   "Assign one of --categories to every item",
	Example: `  listops classify --goal "classify by sentiment" --categories positive,negative,neutral --input reviews.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withList(cmd, func(s *session, list []any) error {
			return emit(cmd.OutOrStdout(), listops.ClassifyList(cmd.Context(), s.engine, listops.ClassifyArgs[any]{
				Goal: goal, List: list, Categories: categories, Options: s.options(),
			}))
		})
	},
}

var binaryClassifyCmd = &cobra.Command{
	Use:   "binary-classify",
	Short: "Decide for every item whether it matches the goal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withList(cmd, func(s *session, list []any) error {
			return emit(cmd.OutOrStdout(), listops.BinaryClassifyList(cmd.Context(), s.engine, listops.BinaryClassifyArgs[any]{
				Goal: goal, List: list, Options: s.options(),
			}))
		})
	},
}

var filterCmd = &cobra.Command{
	Use:     "filter",
	Short:   "Remove the items the goal excludes",
	Example: `  echo '[1,2,3,4]' | listops filter --goal "remove odd numbers" --input -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withList(cmd, func(s *session, list []any) error {
			return emit(cmd.OutOrStdout(), listops.FilterList(cmd.Context(), s.engine, listops.FilterArgs[any]{
				Goal: goal, List: list, Options: s.options(),
			}))
		})
	},
}

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Order the items by pairwise comparison",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withList(cmd, func(s *session, list []any) error {
			return emit(cmd.OutOrStdout(), listops.SortList(cmd.Context(), s.engine, listops.SortArgs[any]{
				Goal: goal, List: list, VerifyOrder: verify, Options: s.options(),
			}))
		})
	},
}

var reduceCmd = &cobra.Command{
	Use:     "reduce",
	Short:   "Fold the items into a single JSON object",
	Example: `  echo '[1,2,3]' | listops reduce --goal "count the numbers" --initial '{"count": 0}' --input -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var seed map[string]any
		if err := json.Unmarshal([]byte(initial), &seed); err != nil {
			return fmt.Errorf("--initial must be a JSON object: %w", err)
		}
		schema, err := readSchema()
		if err != nil {
			return err
		}
		return withList(cmd, func(s *session, list []any) error {
			return emit(cmd.OutOrStdout(), listops.ReduceList(cmd.Context(), s.engine, listops.ReduceArgs[any, map[string]any]{
				Goal: goal, List: list, InitialValue: seed, JSONSchema: schema, Options: s.options(),
			}))
		})
	},
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Map every item to a JSON object given by --shape or --schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := readSchema()
		if err != nil {
			return err
		}
		var sketch any
		if shape != "" {
			if err := json.Unmarshal([]byte(shape), &sketch); err != nil {
				return fmt.Errorf("--shape must be JSON: %w", err)
			}
		}
		return withList(cmd, func(s *session, list []any) error {
			return emit(cmd.OutOrStdout(), listops.MapList(cmd.Context(), s.engine, listops.MapArgs[any]{
				Goal: goal, List: list, JSONShape: sketch, JSONSchema: schema, Options: s.options(),
			}))
		})
	},
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Render every item as text following --template",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withList(cmd, func(s *session, list []any) error {
			return emit(cmd.OutOrStdout(), listops.ProjectList(cmd.Context(), s.engine, listops.ProjectArgs[any]{
				Goal: goal, List: list, Template: template, Options: s.options(),
			}))
		})
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize every item",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withList(cmd, func(s *session, list []any) error {
			return emit(cmd.OutOrStdout(), listops.SummarizeList(cmd.Context(), s.engine, listops.SummarizeArgs[any]{
				Goal: goal, List: list, Rolling: rolling, MaxChunkTokens: chunkSize, Options: s.options(),
			}))
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question, reasoning step by step",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			return emit(cmd.OutOrStdout(), listops.ChainOfThought(cmd.Context(), s.engine, listops.ChainOfThoughtArgs{
				Question: strings.Join(args, " "), Options: s.options(),
			}))
		})
	},
}

var groundedCmd = &cobra.Command{
	Use:   "grounded [question]",
	Short: "Answer a question from --context-file alone",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readInput(cmd.InOrStdin(), contextDoc)
		if err != nil {
			return fmt.Errorf("failed to read context: %w", err)
		}
		return withSession(cmd, func(s *session) error {
			return emit(cmd.OutOrStdout(), listops.GroundedAnswer(cmd.Context(), s.engine, listops.GroundedAnswerArgs{
				Question: strings.Join(args, " "), Context: string(doc), Options: s.options(),
			}))
		})
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one JSON object matching --schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := readSchema()
		if err != nil {
			return err
		}
		return withSession(cmd, func(s *session) error {
			return emit(cmd.OutOrStdout(), listops.GenerateObject(cmd.Context(), s.engine, listops.GenerateObjectArgs{
				Goal: goal, Schema: schema, Strict: true, Options: s.options(),
			}))
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{classifyCmd, binaryClassifyCmd, filterCmd, sortCmd, reduceCmd, mapCmd, projectCmd, summarizeCmd} {
		cmd.Flags().StringVarP(&goal, "goal", "g", "", "What the operation should achieve")
		cmd.Flags().StringVarP(&inputPath, "input", "i", "-", `JSON array of items ("-" for stdin)`)
		_ = cmd.MarkFlagRequired("goal")
	}
	generateCmd.Flags().StringVarP(&goal, "goal", "g", "", "What object to produce")
	_ = generateCmd.MarkFlagRequired("goal")

	classifyCmd.Flags().StringSliceVar(&categories, "categories", nil, "Comma-separated categories")
	_ = classifyCmd.MarkFlagRequired("categories")

	sortCmd.Flags().BoolVar(&verify, "verify", false, "Re-check adjacent pairs of the sorted result")

	reduceCmd.Flags().StringVar(&initial, "initial", "{}", "Initial JSON object")
	reduceCmd.Flags().StringVar(&schemaPath, "schema", "", "JSON schema file constraining each step")

	mapCmd.Flags().StringVar(&shape, "shape", "", `Example JSON object, e.g. '{"name": "<artist name>"}'`)
	mapCmd.Flags().StringVar(&schemaPath, "schema", "", "JSON schema file for the mapped objects")
	mapCmd.MarkFlagsOneRequired("shape", "schema")
	mapCmd.MarkFlagsMutuallyExclusive("shape", "schema")

	generateCmd.Flags().StringVar(&schemaPath, "schema", "", "JSON schema file for the object")
	_ = generateCmd.MarkFlagRequired("schema")

	projectCmd.Flags().StringVar(&template, "template", "", "Text template, e.g. '<name> is <age> years old'")
	_ = projectCmd.MarkFlagRequired("template")

	summarizeCmd.Flags().BoolVar(&rolling, "rolling", false, "Each summary also covers the items before it")
	summarizeCmd.Flags().IntVar(&chunkSize, "chunk-tokens", 0, "Split items longer than this many tokens")

	groundedCmd.Flags().StringVar(&contextDoc, "context-file", "", "File holding the context")
	_ = groundedCmd.MarkFlagRequired("context-file")
}

func withSession(cmd *cobra.Command, fn func(s *session) error) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func withList(cmd *cobra.Command, fn func(s *session, list []any) error) error {
	data, err := readInput(cmd.InOrStdin(), inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	list, err := parseList(data)
	if err != nil {
		return err
	}
	return withSession(cmd, func(s *session) error {
		return fn(s, list)
	})
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func readSchema() (json.RawMessage, error) {
	if schemaPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("schema %s is not valid JSON", schemaPath)
	}
	return data, nil
}

// parseList decodes a JSON array of items.
func parseList(data []byte) ([]any, error) {
	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("input must be a JSON array: %w", err)
	}
	if list == nil {
		return nil, fmt.Errorf("input must be a JSON array, got null")
	}
	return list, nil
}

// emit prints the result envelope and reports whether it completed.
func emit[T any](w io.Writer, res listops.Result[T]) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	if !res.Completed {
		return errIncomplete
	}
	return nil
}

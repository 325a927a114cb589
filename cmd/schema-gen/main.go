// Schema Generator
//
// Generates JSON Schema documents for this module's three run output
// artifacts (spec.md §4.9/§6), grounded on internal/verifier's
// reflection-only Schemas() map. Go is the source of truth; these
// files are documentation/tooling artifacts, not runtime validators.
//
// Usage:
//
//	go run cmd/schema-gen/main.go
//
// Output:
//
//	./schemas/cached_products.json
//	./schemas/ai_category_cache.json
//	./schemas/linking_map.json
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/chri75252/simpler-fba-sub003/internal/verifier"
)

func main() {
	outputDir := "./schemas"

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for artifact, schema := range verifier.Schemas() {
		schema.Title = fmt.Sprintf("%s schema", titleCase(strings.TrimSuffix(artifact, ".json")))
		schema.Description = fmt.Sprintf("JSON Schema for %s, generated from Go structs", artifact)

		outputPath := filepath.Join(outputDir, artifact)
		if err := writeSchema(schema, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", artifact, err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", outputPath)
	}

	fmt.Println("Schema generation complete!")
}

func writeSchema(schema *jsonschema.Schema, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func titleCase(s string) string {
	if len(s) == 0 {
		return s
	}
	s = strings.ReplaceAll(s, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

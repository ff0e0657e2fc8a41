package ingest

import (
	"bufio"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/biograph-io/nodenorm/pkg/errors"
)

//go:embed schema.json
var defaultSchema []byte

// validationSampleLines is how many lines of each compendium file are checked
// against the schema before loading. Compendia are machine-generated; if the
// head of the file conforms, the rest does too.
const validationSampleLines = 5

// maxLineBytes bounds a single compendium line. Large cliques (some UMLS
// chemicals) run past bufio's default token size.
const maxLineBytes = 16 * 1024 * 1024

// LoadSchema compiles the compendium line schema. An empty path selects the
// embedded default.
func LoadSchema(path string) (*gojsonschema.Schema, error) {
	raw := defaultSchema
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfiguration,
				fmt.Sprintf("failed to read schema %q", path))
		}
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "failed to compile schema")
	}
	return schema, nil
}

// ValidateCompendium samples the head of the file and validates each line
// against the schema.
func ValidateCompendium(path string, schema *gojsonschema.Schema) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCompendiumRead,
			fmt.Sprintf("failed to open compendium %q", path))
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() && lineNo < validationSampleLines {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result, err := schema.Validate(gojsonschema.NewStringLoader(line))
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSchemaValidation,
				fmt.Sprintf("%s line %d is not parseable", path, lineNo))
		}
		if !result.Valid() {
			violations := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				violations = append(violations, desc.String())
			}
			return errors.Newf(errors.ErrCodeSchemaValidation,
				"%s line %d: %s", path, lineNo, strings.Join(violations, "; "))
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCompendiumRead,
			fmt.Sprintf("failed to read compendium %q", path))
	}
	return nil
}

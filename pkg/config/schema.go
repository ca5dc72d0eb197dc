package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrSchemaViolation is returned when the config file does not match the
// embedded JSON schema.
var ErrSchemaViolation = errors.New("config does not match schema")

//go:embed schema.json
var schemaJSON []byte

// rawFile is the config file decoded without viper's key folding.
type rawFile map[string]any

func readRaw(path string) (rawFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	raw := rawFile{}

	unmarshalErr := yaml.Unmarshal(data, &raw)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("parse config: %w", unmarshalErr)
	}

	return raw, nil
}

func validateSchema(raw rawFile) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(map[string]any(raw)),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}

// mergeAuthors returns merge_authors with its keys as written.
func (raw rawFile) mergeAuthors() map[string]string {
	out := map[string]string{}

	section, ok := raw["merge_authors"].(map[string]any)
	if !ok {
		return out
	}

	for alias, canonical := range section {
		if name, isString := canonical.(string); isString {
			out[alias] = name
		}
	}

	return out
}

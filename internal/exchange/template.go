package exchange

import (
	"context"
	"fmt"
	"log/slog"
)

// CreateTemplate builds an import template for schema: the header row plus
// optional sample rows. The finished artifact is imported back before it is
// returned; a template that would fail its own import is never produced.
func CreateTemplate(schema Schema, samples []Record, opts ExportOptions) (*Artifact, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if opts.Filename == "" {
		opts.Filename = "import_template"
	}
	opts.MarkRequired = true

	art, err := Serialize(samples, schema, opts)
	if err != nil {
		return nil, err
	}
	if len(samples) > 0 {
		if err := checkArtifact(art, schema); err != nil {
			return nil, err
		}
	}
	return art, nil
}

// ValidateSamples serializes samples in format, parses them back and
// validates the result, returning a *TemplateError listing every failure.
func ValidateSamples(schema Schema, samples []Record, format Format) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	art, err := Serialize(samples, schema, ExportOptions{Format: format, Filename: "samples"})
	if err != nil {
		return fmt.Errorf("serialize samples: %w", err)
	}
	return checkArtifact(art, schema)
}

func checkArtifact(art *Artifact, schema Schema) error {
	im := Importer{Logger: slog.New(slog.DiscardHandler)}
	result := im.ImportFromFile(context.Background(), File{Name: art.Filename, Data: art.Data}, schema)
	if len(result.Errors) > 0 {
		return &TemplateError{Errors: result.Errors}
	}
	return nil
}

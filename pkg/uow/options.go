package uow

import (
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Mindburn-Labs/uow/pkg/config"
	"github.com/Mindburn-Labs/uow/pkg/retry"
	"github.com/Mindburn-Labs/uow/pkg/txn"
)

// RetryPolicy bounds re-execution after a stale record.
type RetryPolicy = retry.Policy

// Options tune one bound unit of work.
type Options struct {
	// Propagation selects how the execution attaches to a transaction.
	// The zero value is txn.RequireNew.
	Propagation txn.Propagation
	// ValidateParams calls Validate on params implementing Validator.
	ValidateParams bool
	// ParamsSchema, when set, must accept the JSON form of the params.
	ParamsSchema *jsonschema.Schema
	// Timeout bounds the whole execution, retries included.
	Timeout time.Duration
	// Retry re-runs the unit of work from scratch when a repository reports
	// a stale record. Executions joining a caller's transaction never retry.
	Retry RetryPolicy
}

// CompileParamsSchema compiles a JSON Schema document for Options.ParamsSchema.
func CompileParamsSchema(name, doc string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://uow.schemas.local/params/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("params schema load failed: %w", err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("params schema compile failed: %w", err)
	}
	return schema, nil
}

// OptionsFromConfig converts the file form of a unit's options.
func OptionsFromConfig(name string, c config.UnitOptions) (Options, error) {
	prop, err := txn.ParsePropagation(c.Propagation)
	if err != nil {
		return Options{}, fmt.Errorf("unit %s: %w", name, err)
	}
	opts := Options{
		Propagation:    prop,
		ValidateParams: c.ValidateParams,
		Timeout:        c.Timeout,
		Retry: RetryPolicy{
			MaxAttempts: c.Retry.MaxAttempts,
			BaseDelay:   c.Retry.BaseDelay,
			MaxDelay:    c.Retry.MaxDelay,
			MaxJitter:   c.Retry.MaxJitter,
		},
	}
	if c.ParamsSchema != "" {
		schema, err := CompileParamsSchema(name, c.ParamsSchema)
		if err != nil {
			return Options{}, fmt.Errorf("unit %s: %w", name, err)
		}
		opts.ParamsSchema = schema
	}
	return opts, nil
}

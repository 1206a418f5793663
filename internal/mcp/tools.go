package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/biomed-dq-validator/internal/service"
)

// Tool names
const (
	TOOL_VALIDATE_DATASET = "validate_dataset"
	TOOL_QUICK_VALIDATE   = "quick_validate"
	TOOL_LIST_RANGE_SPECS = "list_range_specs"
)

// ValidateDatasetArgs are the validate_dataset arguments: the API request
// body plus the summary format.
type ValidateDatasetArgs struct {
	service.ValidateRequest
	// Format selects the summary rendering: text (default) or markdown.
	Format string `json:"format,omitempty"`
}

// ListRangeSpecsArgs filters the range spec listing.
type ListRangeSpecsArgs struct {
	Category string `json:"category,omitempty"`
}

func stringList(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: description,
		Items:       &jsonschema.Schema{Type: "string"},
	}
}

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

// datasetProperties describes the dataset fields shared by the validation
// tools.
func datasetProperties() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		"dataset_name": stringProp("Name recorded in the report"),
		"columns":      stringList("Column order; derived from the rows when omitted"),
		"rows": {
			Type:        "array",
			Description: "Dataset rows as objects keyed by column name",
			Items:       &jsonschema.Schema{Type: "object"},
		},
		"patient_id_column": stringProp("Column holding the patient identifier"),
		"visit_date_column": stringProp("Column holding the visit date"),
		"date_columns":      stringList("Additional columns to parse as dates"),
		"quasi_identifiers": stringList("Columns used for k-anonymity grouping"),
		"fuzzy_columns":     stringList("Columns compared for near-duplicate rows"),
		"trend_column":      stringProp("Column checked for a monotonic trend per patient"),
		"trend_direction": {
			Type:        "string",
			Description: "Expected trend direction",
			Enum:        []any{"increasing", "decreasing"},
		},
	}
}

// toolDefinitions returns every tool exposed by the server.
func toolDefinitions() []*mcp.Tool {
	validateProps := datasetProperties()
	validateProps["format"] = &jsonschema.Schema{
		Type:        "string",
		Description: "Summary rendering",
		Enum:        []any{"text", "markdown"},
	}

	return []*mcp.Tool{
		{
			Name: TOOL_VALIDATE_DATASET,
			Description: "Run the full data quality and de-identification validation " +
				"over a tabular dataset and return the scored report.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: validateProps,
				Required:   []string{"rows"},
			},
		},
		{
			Name: TOOL_QUICK_VALIDATE,
			Description: "Pre-screen a dataset for PHI, completeness and exact duplicate rows " +
				"without scoring it.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: datasetProperties(),
				Required:   []string{"rows"},
			},
		},
		{
			Name:        TOOL_LIST_RANGE_SPECS,
			Description: "List the clinical range specifications used by the range validator.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"category": stringProp("Only return specs in this category"),
				},
			},
		},
	}
}

package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/linctl/internal/constants"
)

// writeStructured encodes value as JSON or YAML per format.
func writeStructured(out io.Writer, format string, value any) error {
	switch format {
	case constants.FormatYAML:
		err := yaml.NewEncoder(out).Encode(value)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
	default:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	}

	return nil
}

// renderTable writes rows under header.
func renderTable(out io.Writer, header []string, rows [][]string) error {
	cells := make([]any, len(header))
	for index, name := range header {
		cells[index] = name
	}

	table := tablewriter.NewWriter(out)
	table.Header(cells...)

	for _, row := range rows {
		err := table.Append(row)
		if err != nil {
			return fmt.Errorf("failed to append table row: %w", err)
		}
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// nodeString renders a scalar node field for a table cell.
func nodeString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64, bool:
		return fmt.Sprint(typed)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return constants.NotAvailable
		}

		return string(encoded)
	}
}

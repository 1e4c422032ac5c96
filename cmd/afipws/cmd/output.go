package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rezonia/afipws/internal/model"
)

// printResult writes v to stdout in the selected output format
func printResult(v any) error {
	return writeResult(os.Stdout, v)
}

func writeResult(w io.Writer, v any) error {
	switch outputFormat {
	case "json":
		return outputJSON(w, v)
	case "table":
		return outputTable(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputTable renders objects as KEY/VALUE rows and lists of objects as
// one row each, with the keys of the first element as columns
func outputTable(w io.Writer, v any) error {
	if params, ok := v.([]model.Parameter); ok {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tDESCRIPTION")
		fmt.Fprintln(tw, "----\t-----------")
		for _, p := range params {
			fmt.Fprintf(tw, "%s\t%s\n", p.Code, p.Description)
		}
		return tw.Flush()
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	switch val := generic.(type) {
	case map[string]any:
		fmt.Fprintln(tw, "KEY\tVALUE")
		fmt.Fprintln(tw, "---\t-----")
		for _, k := range sortedKeys(val) {
			fmt.Fprintf(tw, "%s\t%s\n", k, cell(val[k]))
		}
	case []any:
		if len(val) == 0 {
			fmt.Fprintln(tw, "(no results)")
			break
		}
		first, ok := val[0].(map[string]any)
		if !ok {
			for _, item := range val {
				fmt.Fprintln(tw, cell(item))
			}
			break
		}
		keys := sortedKeys(first)
		fmt.Fprintln(tw, strings.ToUpper(strings.Join(keys, "\t")))
		for _, item := range val {
			row, _ := item.(map[string]any)
			cells := make([]string, len(keys))
			for i, k := range keys {
				cells[i] = cell(row[k])
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	default:
		fmt.Fprintln(tw, cell(val))
	}
	return tw.Flush()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]any, []any:
		data, _ := json.Marshal(val)
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

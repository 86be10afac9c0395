package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/mirrors/pkg/types"
)

type outputFormat int

const (
	formatText outputFormat = iota
	formatJSON
	formatYAML
)

// recordView is the JSON and YAML shape of a record.
type recordView struct {
	Namespace string      `json:"namespace" yaml:"namespace"`
	ID        string      `json:"id" yaml:"id"`
	Version   int64       `json:"version" yaml:"version"`
	CreatedAt string      `json:"created_at" yaml:"created_at"`
	UpdatedAt string      `json:"updated_at" yaml:"updated_at"`
	Value     types.Value `json:"value" yaml:"value"`
}

func newRecordView(rec types.Record) recordView {
	v := rec.Value
	if v == nil {
		v = types.Value{}
	}
	return recordView{
		Namespace: rec.Namespace,
		ID:        rec.ID,
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Value:     v,
	}
}

// renderer writes records in the selected output format. Text output shows
// times relative to now.
type renderer struct {
	w      io.Writer
	format outputFormat
	now    time.Time
}

func (a *app) renderer(cmd *cobra.Command) renderer {
	f := formatText
	switch {
	case a.flags.jsonMode:
		f = formatJSON
	case a.flags.yamlMode:
		f = formatYAML
	}
	return renderer{w: cmd.OutOrStdout(), format: f, now: a.now()}
}

func (r renderer) record(rec types.Record) error {
	switch r.format {
	case formatJSON:
		return r.json(newRecordView(rec))
	case formatYAML:
		return r.yaml(newRecordView(rec))
	}

	fmt.Fprintf(r.w, "%s/%s (version %d, updated %s, %s)\n",
		rec.Namespace, rec.ID, rec.Version, r.since(rec.UpdatedAt), valueSize(rec.Value))
	if len(rec.Value) == 0 {
		fmt.Fprintln(r.w, "  (no fields)")
		return nil
	}
	fields := make([]string, 0, len(rec.Value))
	for k := range rec.Value {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, k := range fields {
		fmt.Fprintf(r.w, "  %s = %s\n", k, compactJSON(rec.Value[k]))
	}
	return nil
}

func (r renderer) records(namespace string, recs []types.Record) error {
	switch r.format {
	case formatJSON, formatYAML:
		views := make([]recordView, 0, len(recs))
		for _, rec := range recs {
			views = append(views, newRecordView(rec))
		}
		if r.format == formatJSON {
			return r.json(views)
		}
		return r.yaml(views)
	}

	if len(recs) == 0 {
		fmt.Fprintf(r.w, "no records in %s\n", namespace)
		return nil
	}
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tUPDATED\tSIZE")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", rec.ID, rec.Version, r.since(rec.UpdatedAt), valueSize(rec.Value))
	}
	return tw.Flush()
}

func (r renderer) json(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(r.w, string(data))
	return err
}

func (r renderer) yaml(v any) error {
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	return enc.Close()
}

func (r renderer) since(t time.Time) string {
	return humanize.RelTime(t, r.now, "ago", "from now")
}

// valueSize is the size of the value's JSON encoding.
func valueSize(v types.Value) string {
	if v == nil {
		v = types.Value{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(len(data)))
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

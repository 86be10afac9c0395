package cli

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mirrors/pkg/mirror"
	"github.com/mesh-intelligence/mirrors/pkg/types"
)

func (a *app) newPatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patch <namespace> <id> <json-object>",
		Short: "Merge a JSON object into a record with one write-back",
		Long: `Patch merges the top-level keys of a JSON object into the record in a
single batched mutation, so the store sees exactly one write. A null value
removes the field.`,
		Example: `  mirror patch counters c1 '{"count": 10, "label": null}'`,
		Args:    cobra.ExactArgs(3),
		RunE:    a.runPatch,
	}
}

func (a *app) runPatch(cmd *cobra.Command, args []string) (err error) {
	namespace, id := args[0], args[1]

	var changes map[string]any
	if err := json.Unmarshal([]byte(args[2]), &changes); err != nil || changes == nil {
		return userError("patch must be a JSON object")
	}

	s, err := a.openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close()) }()

	ctx := cmd.Context()
	err = s.withHandle(ctx, namespace, id, func(h *mirror.Handle) error {
		return h.Patch(ctx, func(_ context.Context, raw types.Value) error {
			for k, v := range changes {
				if v == nil {
					delete(raw, k)
					continue
				}
				raw[k] = v
			}
			return nil
		})
	})
	if err != nil {
		return classify(err)
	}
	return a.show(cmd, s, namespace, id)
}

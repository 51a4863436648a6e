package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/scorecard/internal/model"
	"github.com/sells-group/scorecard/internal/store"
)

var (
	setNodeID       string
	setLevel        string
	setName         string
	setCurrent      float64
	setTarget       float64
	setFormula      string
	setClearValues  bool
	setClearFormula bool
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Update a node's measurement or formula",
	Long:  "Addresses a node by --id, or by --level and --name for the common case of editing from a report. Only the flags you pass change; the rest of the node is left alone.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		node, err := resolveTargetNode(ctx, st, setNodeID, setLevel, setName)
		if err != nil {
			return err
		}

		upd := nodeUpdate{
			clearValues:  setClearValues,
			clearFormula: setClearFormula,
		}
		if cmd.Flags().Changed("current") {
			upd.current = &setCurrent
		}
		if cmd.Flags().Changed("target") {
			upd.target = &setTarget
		}
		if cmd.Flags().Changed("formula") {
			upd.formula = &setFormula
		}

		if err := applyNodeUpdate(ctx, st, node, upd); err != nil {
			return err
		}

		zap.L().Info("node updated",
			zap.String("id", node.ID),
			zap.String("level", string(node.Level)),
			zap.String("name", node.Name),
		)
		return nil
	},
}

// resolveTargetNode picks the node a set invocation addresses: id directly,
// or level plus name through the store's name lookup.
func resolveTargetNode(ctx context.Context, st store.Store, id, levelArg, name string) (*model.Node, error) {
	if id != "" {
		node, err := st.GetNode(ctx, id)
		if err != nil {
			return nil, eris.Wrap(err, "set")
		}
		return node, nil
	}

	if levelArg == "" || name == "" {
		return nil, eris.New("either --id, or both --level and --name, are required")
	}
	level, ok := model.ParseLevel(levelArg)
	if !ok {
		return nil, eris.Errorf("unknown level %q", levelArg)
	}
	node, err := st.GetNodeByName(ctx, level, name)
	if err != nil {
		return nil, eris.Wrap(err, "set")
	}
	if node == nil {
		return nil, eris.Errorf("no %s named %q", level, name)
	}
	return node, nil
}

// nodeUpdate captures what a set invocation changes. Nil pointer fields are
// left alone; the clear flags win over the pointers.
type nodeUpdate struct {
	current      *float64
	target       *float64
	clearValues  bool
	formula      *string
	clearFormula bool
}

func (u nodeUpdate) empty() bool {
	return u.current == nil && u.target == nil && !u.clearValues &&
		u.formula == nil && !u.clearFormula
}

// applyNodeUpdate writes the requested changes. The unchanged half of the
// measurement pair is preserved from the node as loaded.
func applyNodeUpdate(ctx context.Context, st store.Store, node *model.Node, u nodeUpdate) error {
	if u.empty() {
		return eris.New("nothing to do: pass --current, --target, --formula, --clear-values, or --clear-formula")
	}

	if u.clearValues || u.current != nil || u.target != nil {
		current, target := node.CurrentValue, node.TargetValue
		if u.clearValues {
			current, target = nil, nil
		} else {
			if u.current != nil {
				current = u.current
			}
			if u.target != nil {
				target = u.target
			}
		}
		if err := st.UpdateValues(ctx, node.ID, current, target); err != nil {
			return eris.Wrap(err, "set values")
		}
	}

	if u.clearFormula {
		if err := st.UpdateFormula(ctx, node.ID, nil); err != nil {
			return eris.Wrap(err, "set formula")
		}
	} else if u.formula != nil {
		if err := st.UpdateFormula(ctx, node.ID, u.formula); err != nil {
			return eris.Wrap(err, "set formula")
		}
	}

	return nil
}

func init() {
	setCmd.Flags().StringVar(&setNodeID, "id", "", "node id")
	setCmd.Flags().StringVar(&setLevel, "level", "", "node level (used with --name)")
	setCmd.Flags().StringVar(&setName, "name", "", "node name (used with --level)")
	setCmd.Flags().Float64Var(&setCurrent, "current", 0, "current measurement value")
	setCmd.Flags().Float64Var(&setTarget, "target", 0, "target value")
	setCmd.Flags().StringVar(&setFormula, "formula", "", "aggregation formula text (e.g. SUM, MIN, WEIGHTED_AVG)")
	setCmd.Flags().BoolVar(&setClearValues, "clear-values", false, "remove the measurement pair")
	setCmd.Flags().BoolVar(&setClearFormula, "clear-formula", false, "remove the formula")
	rootCmd.AddCommand(setCmd)
}

package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grafeo-db/grafeo/src/cli"
	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
)

func initData() {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Dump live nodes and edges for inspection",
	}

	dataCmd.AddCommand(&cobra.Command{
		Use:   "nodes",
		Short: "List every live node with its labels and properties",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase()
			if err != nil {
				return cli.OperationalFailure(err)
			}
			defer db.Close()

			store := db.Store()
			for _, id := range store.AllNodeIDs() {
				rec, ok := store.VisibleNode(id, db.SnapshotEpoch())
				if !ok {
					continue
				}
				labels := labelNames(store, store.NodeLabels(rec))
				props := propertyStrings(store, store.VisibleNodeProperties(id, db.SnapshotEpoch()))
				fmt.Printf("node %d labels=%s properties={%s}\n", id, strings.Join(labels, ","), strings.Join(props, ", "))
			}
			return nil
		},
	})

	dataCmd.AddCommand(&cobra.Command{
		Use:   "edges",
		Short: "List every live edge with its type and properties",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase()
			if err != nil {
				return cli.OperationalFailure(err)
			}
			defer db.Close()

			store := db.Store()
			for _, id := range store.AllEdgeIDs() {
				rec, ok := store.VisibleEdge(id, db.SnapshotEpoch())
				if !ok {
					continue
				}
				typeName, _ := store.Catalog.EdgeTypeName(rec.Type)
				props := propertyStrings(store, store.VisibleEdgeProperties(id, db.SnapshotEpoch()))
				fmt.Printf("edge %d type=%s src=%d dst=%d properties={%s}\n", id, typeName, rec.Src, rec.Dst, strings.Join(props, ", "))
			}
			return nil
		},
	})

	rootCmd.AddCommand(dataCmd)
}

func labelNames(store *storage.Store, ids []common.LabelID) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := store.Catalog.LabelName(id); ok {
			names = append(names, name)
		}
	}
	return names
}

func propertyStrings(store *storage.Store, props map[common.PropertyKey]storage.Value) []string {
	out := make([]string, 0, len(props))
	for key, v := range props {
		name, ok := store.Catalog.PropertyKeyName(key)
		if !ok {
			name = fmt.Sprintf("key#%d", key)
		}
		out = append(out, fmt.Sprintf("%s=%s", name, formatValue(v)))
	}
	return out
}

func formatValue(v storage.Value) string {
	switch v.Kind() {
	case storage.KindNull:
		return "null"
	case storage.KindBool:
		return fmt.Sprintf("%v", v.AsBool())
	case storage.KindI64:
		return fmt.Sprintf("%d", v.AsI64())
	case storage.KindF64:
		return fmt.Sprintf("%g", v.AsF64())
	case storage.KindString:
		return v.AsString()
	case storage.KindBytes:
		return fmt.Sprintf("0x%x", v.AsBytes())
	case storage.KindTemporal:
		return v.AsTemporal().String()
	default:
		return v.Kind().String()
	}
}

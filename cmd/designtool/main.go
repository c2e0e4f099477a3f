// designtool inspects and manages saved designs and the asset catalog from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"

	"github.com/Faultbox/van-studio/internal/assets"
	"github.com/Faultbox/van-studio/internal/config"
	"github.com/Faultbox/van-studio/internal/design"
	"github.com/Faultbox/van-studio/internal/scene"
)

type options struct {
	config.Overrides
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "designtool",
		Short: "Van Studio design and catalog utility",
		Long: `designtool - Van Studio design and catalog utility

Examples:
  designtool list --user alice
  designtool show 3
  designtool export 3 -o weekend.json
  designtool import weekend.json --name "Weekend"
  designtool catalog
  designtool model table`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	f := root.PersistentFlags()
	f.StringVar(&o.ConfigPath, "config", "", "Path to config file")
	f.StringVar(&o.DesignsDir, "designs", "", "Directory holding saved designs")
	f.StringVar(&o.User, "user", "", "User the designs belong to")
	f.StringVar(&o.Catalog, "catalog", "", "Path to the asset catalog")
	f.StringSliceVar(&o.Roots, "root", nil, "Asset root directory (repeatable)")

	root.AddCommand(
		listCmd(o), showCmd(o), deleteCmd(o), exportCmd(o), importCmd(o),
		catalogCmd(o), modelCmd(o),
	)
	return root
}

// settings resolves defaults < config file < flags, the same way the editor does.
func (o *options) settings() (*config.Config, error) {
	return config.Load(&o.Overrides)
}

func (o *options) store() (*design.FileStore, string, error) {
	cfg, err := o.settings()
	if err != nil {
		return nil, "", err
	}
	return design.NewFileStore(cfg.Store.DesignsDir), cfg.Store.User, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid design id %q", s)
	}
	return id, nil
}

func listCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved designs, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, user, err := o.store()
			if err != nil {
				return err
			}
			list, err := st.List(cmd.Context(), user)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tOBJECTS\tUPDATED")
			for _, d := range list {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", d.ID, d.Name, d.Objects, d.Updated.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func showCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the objects of a design",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, user, err := o.store()
			if err != nil {
				return err
			}
			rec, err := st.Load(cmd.Context(), user, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Design %d: %s\n", rec.ID, rec.Name)
			fmt.Fprintf(out, "Camera:   (%.2f, %.2f, %.2f) -> (%.2f, %.2f, %.2f)\n",
				rec.Design.CameraPosition.X, rec.Design.CameraPosition.Y, rec.Design.CameraPosition.Z,
				rec.Design.CameraTarget.X, rec.Design.CameraTarget.Y, rec.Design.CameraTarget.Z)
			fmt.Fprintf(out, "Grid: %v  Measurements: %v\n\n", rec.Design.ShowGrid, rec.Design.ShowMeasurements)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tMODEL\tPOSITION\tSCALE\tMESHES")
			for _, obj := range rec.Design.Objects {
				fmt.Fprintf(w, "%d\t%s\t%s\t(%.2f, %.2f, %.2f)\t(%.2f, %.2f, %.2f)\t%d\n",
					obj.ID, obj.Type, obj.ModelID,
					obj.Position.X, obj.Position.Y, obj.Position.Z,
					obj.Scale.X, obj.Scale.Y, obj.Scale.Z, len(obj.Meshes))
			}
			return w.Flush()
		},
	}
}

func deleteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved design",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, user, err := o.store()
			if err != nil {
				return err
			}
			if err := st.Delete(cmd.Context(), user, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted design %d\n", id)
			return nil
		},
	}
}

func exportCmd(o *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write the design blob as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, user, err := o.store()
			if err != nil {
				return err
			}
			rec, err := st.Load(cmd.Context(), user, id)
			if err != nil {
				return err
			}
			data, err := design.Marshal(rec.Design)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func importCmd(o *options) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Save a design blob as a new design",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			state, err := design.Parse(data)
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
			st, user, err := o.store()
			if err != nil {
				return err
			}
			id, err := st.Save(cmd.Context(), user, name, 0, state)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported design %d (%d objects)\n", id, len(state.Objects))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Design name (default file name)")
	return cmd
}

func catalogCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Validate the catalog and list its entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.settings()
			if err != nil {
				return err
			}
			cat, err := assets.LoadCatalog(cfg.Assets.Catalog)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SECTION\tID\tNAME\tFILE")
			for _, v := range cat.Vehicles {
				fmt.Fprintf(w, "vehicle\t%s\t%s\t%s\n", v.ID, v.Name, v.File)
			}
			for _, c := range cat.Categories() {
				for _, f := range cat.FurnitureIn(c) {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c, f.ID, f.Name, f.File)
				}
			}
			for _, m := range cat.Materials {
				fmt.Fprintf(w, "material\t%s\t%s\t%s\n", m.ID, m.Name, m.Texture)
			}
			return w.Flush()
		},
	}
}

func modelCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "model <id>",
		Short: "Load a catalog model and print its meshes and bounds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.settings()
			if err != nil {
				return err
			}
			cat, err := assets.LoadCatalog(cfg.Assets.Catalog)
			if err != nil {
				return err
			}
			kind := scene.KindFurniture
			if _, ok := cat.Vehicle(args[0]); ok {
				kind = scene.KindVehicle
			}
			mgr := assets.NewManager(cat, assets.Options{Roots: cfg.Assets.Roots, FetchTimeout: cfg.Assets.FetchTimeout})
			defer mgr.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			n, err := mgr.LoadModel(ctx, kind, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			b := n.WorldBounds()
			fmt.Fprintf(out, "%s (%s)\n", n.Name, n.Kind)
			fmt.Fprintf(out, "Bounds: %s  size %s\n", vec(b.Min), vec(b.Size()))
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MESH\tCOLOR\tMIN\tMAX")
			for _, m := range n.AllMeshes() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Material.Color, vec(m.Bounds.Min), vec(m.Bounds.Max))
			}
			return w.Flush()
		},
	}
}

func vec(v mgl64.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v[0], v[1], v[2])
}

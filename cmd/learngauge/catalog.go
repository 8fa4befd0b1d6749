package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/learngauge/learngauge/internal/model"
	"github.com/learngauge/learngauge/internal/store"
)

// catalogCmd manages the reference data an upload is checked against.
func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage courses, course classes and CLO types",
	}
	cmd.AddCommand(courseCmd(), classCmd(), cloCmd())
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(fn func(cmd *cobra.Command, v *viper.Viper, db *store.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		v := viperForCmd(cmd)
		db, err := openStore(cmd.Context(), v)
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(cmd, v, db)
	}
}

func courseCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "course", Short: "Manage courses"}

	add := &cobra.Command{
		Use:   "add",
		Short: "Create a course",
		RunE: withStore(func(cmd *cobra.Command, v *viper.Viper, db *store.Store) error {
			c, err := db.CreateCourse(cmd.Context(), v.GetString("code"), v.GetString("name"))
			if err != nil {
				return fmt.Errorf("create course: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "course %d %s\n", c.ID, c.Code)
			return nil
		}),
	}
	add.Flags().String("code", "", "Course code, e.g. MATH101")
	add.Flags().String("name", "", "Course name")
	_ = add.MarkFlagRequired("code")
	_ = add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List active courses",
		RunE: withStore(func(cmd *cobra.Command, _ *viper.Viper, db *store.Store) error {
			courses, err := db.ListCourses(cmd.Context())
			if err != nil {
				return fmt.Errorf("list courses: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCODE\tNAME")
			for _, c := range courses {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Code, c.Name)
			}
			return tw.Flush()
		}),
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Soft-delete a course",
		RunE: withStore(func(cmd *cobra.Command, v *viper.Viper, db *store.Store) error {
			if err := db.DeleteCourse(cmd.Context(), v.GetInt64("id")); err != nil {
				return fmt.Errorf("delete course: %w", err)
			}
			return nil
		}),
	}
	del.Flags().Int64("id", 0, "Course ID")
	_ = del.MarkFlagRequired("id")

	cmd.AddCommand(add, list, del)
	return cmd
}

func classCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "class", Short: "Manage course classes"}

	add := &cobra.Command{
		Use:   "add",
		Short: "Create a class of an active course",
		RunE: withStore(func(cmd *cobra.Command, v *viper.Viper, db *store.Store) error {
			c, err := db.CreateCourseClass(cmd.Context(), v.GetInt64("course-id"), v.GetString("code"), v.GetString("name"))
			if err != nil {
				return fmt.Errorf("create class: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "class %d %s\n", c.ID, c.Code)
			return nil
		}),
	}
	add.Flags().Int64("course-id", 0, "Course ID")
	add.Flags().String("code", "", "Class code")
	add.Flags().String("name", "", "Class name")
	_ = add.MarkFlagRequired("course-id")
	_ = add.MarkFlagRequired("code")

	list := &cobra.Command{
		Use:   "list",
		Short: "List active classes",
		RunE: withStore(func(cmd *cobra.Command, v *viper.Viper, db *store.Store) error {
			classes, err := db.ListCourseClasses(cmd.Context(), v.GetInt64("course-id"))
			if err != nil {
				return fmt.Errorf("list classes: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCOURSE\tCODE\tNAME")
			for _, c := range classes {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", c.ID, c.CourseID, c.Code, c.Name)
			}
			return tw.Flush()
		}),
	}
	list.Flags().Int64("course-id", 0, "Only classes of this course (0 = all)")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Soft-delete a class",
		RunE: withStore(func(cmd *cobra.Command, v *viper.Viper, db *store.Store) error {
			if err := db.DeleteCourseClass(cmd.Context(), v.GetInt64("id")); err != nil {
				return fmt.Errorf("delete class: %w", err)
			}
			return nil
		}),
	}
	del.Flags().Int64("id", 0, "Class ID")
	_ = del.MarkFlagRequired("id")

	cmd.AddCommand(add, list, del)
	return cmd
}

func cloCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "clo", Short: "Manage CLO types"}

	add := &cobra.Command{
		Use:   "add",
		Short: "Create or update a CLO type",
		RunE: withStore(func(cmd *cobra.Command, v *viper.Viper, db *store.Store) error {
			t, err := db.UpsertCLOType(cmd.Context(), model.CLOType{
				Code:        v.GetString("code"),
				Name:        v.GetString("name"),
				Description: v.GetString("description"),
				Weight:      v.GetFloat64("weight"),
			})
			if err != nil {
				return fmt.Errorf("save CLO type: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "clo %s weight %g\n", t.Code, t.Weight)
			return nil
		}),
	}
	add.Flags().String("code", "", "CLO type code")
	add.Flags().String("name", "", "CLO type name")
	add.Flags().String("description", "", "Description")
	add.Flags().Float64("weight", 0, "Share of the course grade in percent (0-100)")
	_ = add.MarkFlagRequired("code")
	_ = add.MarkFlagRequired("weight")

	list := &cobra.Command{
		Use:   "list",
		Short: "List active CLO types",
		RunE: withStore(func(cmd *cobra.Command, _ *viper.Viper, db *store.Store) error {
			types, err := db.ListCLOTypes(cmd.Context())
			if err != nil {
				return fmt.Errorf("list CLO types: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tWEIGHT\tNAME")
			for _, t := range types {
				fmt.Fprintf(tw, "%s\t%g\t%s\n", t.Code, t.Weight, t.Name)
			}
			return tw.Flush()
		}),
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Soft-delete a CLO type",
		RunE: withStore(func(cmd *cobra.Command, v *viper.Viper, db *store.Store) error {
			if err := db.DeleteCLOType(cmd.Context(), v.GetString("code")); err != nil {
				return fmt.Errorf("delete CLO type: %w", err)
			}
			return nil
		}),
	}
	del.Flags().String("code", "", "CLO type code")
	_ = del.MarkFlagRequired("code")

	cmd.AddCommand(add, list, del)
	return cmd
}

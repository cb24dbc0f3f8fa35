package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/impulsenest/teacherpanel/internal/api"
)

// listFilter narrows `list` to the records under one parent.
type listFilter struct {
	flag  string
	usage string
	list  func(ctx context.Context, c *api.Client, id string) ([]api.Entity, error)
}

// resourceDef describes one CRUD command group.
type resourceDef struct {
	name     string
	aliases  []string
	short    string
	columns  []string
	resource func(c *api.Client) *api.Resource
	filters  []listFilter
	extra    func(parent *cobra.Command, def resourceDef)
}

func byParent(resource func(*api.Client) *api.Resource, parent string) func(context.Context, *api.Client, string) ([]api.Entity, error) {
	return func(ctx context.Context, c *api.Client, id string) ([]api.Entity, error) {
		return resource(c).ListBy(ctx, parent, id)
	}
}

func resourceDefs() []resourceDef {
	courses := (*api.Client).Courses
	units := (*api.Client).Units
	lessons := (*api.Client).Lessons
	contents := (*api.Client).LessonContents
	exercises := (*api.Client).Exercises
	sets := (*api.Client).VocabularySets
	trials := (*api.Client).TrialLessons
	items := func(c *api.Client) *api.Resource { return c.VocabularyItems().Resource }
	groups := func(c *api.Client) *api.Resource { return c.Groups().Resource }
	students := func(c *api.Client) *api.Resource { return c.Students().Resource }

	return []resourceDef{
		{
			name:     "courses",
			aliases:  []string{"course"},
			short:    "Manage courses",
			columns:  []string{"title", "level"},
			resource: courses,
		},
		{
			name:     "units",
			aliases:  []string{"unit"},
			short:    "Manage course units",
			columns:  []string{"title", "order"},
			resource: units,
			filters: []listFilter{
				{flag: "course", usage: "list the units of a course", list: byParent(units, "course")},
			},
		},
		{
			name:     "lessons",
			aliases:  []string{"lesson"},
			short:    "Manage unit lessons",
			columns:  []string{"title", "order"},
			resource: lessons,
			filters: []listFilter{
				{flag: "unit", usage: "list the lessons of a unit", list: byParent(lessons, "unit")},
			},
		},
		{
			name:     "lesson-contents",
			aliases:  []string{"lesson-content"},
			short:    "Manage lesson content blocks",
			columns:  []string{"type", "title"},
			resource: contents,
			filters: []listFilter{
				{flag: "lesson", usage: "list the content of a lesson", list: byParent(contents, "lesson")},
			},
		},
		{
			name:     "exercises",
			aliases:  []string{"exercise"},
			short:    "Manage lesson exercises",
			columns:  []string{"type", "title"},
			resource: exercises,
			filters: []listFilter{
				{flag: "lesson", usage: "list the exercises of a lesson", list: byParent(exercises, "lesson")},
			},
		},
		{
			name:     "vocabulary-sets",
			aliases:  []string{"vocabulary-set"},
			short:    "Manage vocabulary sets",
			columns:  []string{"title"},
			resource: sets,
		},
		{
			name:     "vocabulary-items",
			aliases:  []string{"vocabulary-item"},
			short:    "Manage vocabulary items",
			columns:  []string{"word", "translation"},
			resource: items,
			filters: []listFilter{
				{flag: "set", usage: "list the items of a vocabulary set", list: func(ctx context.Context, c *api.Client, id string) ([]api.Entity, error) {
					return c.VocabularyItems().ListBySet(ctx, id)
				}},
			},
			extra: addVocabularyItemCommands,
		},
		{
			name:     "groups",
			aliases:  []string{"group"},
			short:    "Manage student groups",
			columns:  []string{"name", "level"},
			resource: groups,
			filters: []listFilter{
				{flag: "teacher", usage: "list the groups of a teacher", list: func(ctx context.Context, c *api.Client, id string) ([]api.Entity, error) {
					return c.Groups().ListByTeacher(ctx, id)
				}},
			},
			extra: addGroupCommands,
		},
		{
			name:     "trial-lessons",
			aliases:  []string{"trial-lesson"},
			short:    "Manage trial lessons with leads",
			columns:  []string{"date", "status"},
			resource: trials,
			filters: []listFilter{
				{flag: "teacher", usage: "list the trial lessons of a teacher", list: func(ctx context.Context, c *api.Client, id string) ([]api.Entity, error) {
					return c.TrialLessons().ListByTeacher(ctx, id)
				}},
			},
		},
		{
			name:     "students",
			aliases:  []string{"student"},
			short:    "Manage students",
			columns:  []string{"first_name", "last_name", "phone"},
			resource: students,
			filters: []listFilter{
				{flag: "group", usage: "list the students of a group", list: func(ctx context.Context, c *api.Client, id string) ([]api.Entity, error) {
					return c.Students().ListByGroup(ctx, id)
				}},
			},
			extra: addStudentCommands,
		},
	}
}

func newResourceCmd(def resourceDef) *cobra.Command {
	parent := &cobra.Command{
		Use:         def.name,
		Aliases:     def.aliases,
		Short:       def.short,
		Annotations: protected(),
	}

	parent.AddCommand(
		newListCmd(def),
		newGetCmd(def),
		newCreateCmd(def),
		newUpdateCmd(def),
		newDeleteCmd(def),
	)
	if def.extra != nil {
		def.extra(parent, def)
	}
	return parent
}

func newListCmd(def resourceDef) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", def.name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			var filter *listFilter
			var filterID string
			for i := range def.filters {
				f := &def.filters[i]
				if v, _ := cmd.Flags().GetString(f.flag); v != "" {
					if filter != nil {
						return fmt.Errorf("--%s and --%s cannot be combined", filter.flag, f.flag)
					}
					filter, filterID = f, v
				}
			}

			var entities []api.Entity
			if filter != nil {
				entities, err = filter.list(cmd.Context(), app.Client, filterID)
			} else {
				entities, err = def.resource(app.Client).List(cmd.Context(), nil)
			}
			if err != nil {
				return err
			}
			return app.Print(entityTable(entities, def.columns...))
		},
	}
	for _, f := range def.filters {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	return cmd
}

func newGetCmd(def resourceDef) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			entity, err := def.resource(app.Client).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Print(entity)
		},
	}
}

func newCreateCmd(def resourceDef) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			payload, err := payloadFlag(cmd)
			if err != nil {
				return err
			}
			entity, err := def.resource(app.Client).Create(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return app.Print(entity)
		},
	}
	addDataFlag(cmd, "record to create")
	return cmd
}

func newUpdateCmd(def resourceDef) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			payload, err := payloadFlag(cmd)
			if err != nil {
				return err
			}
			entity, err := def.resource(app.Client).Update(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}
			return app.Print(entity)
		},
	}
	addDataFlag(cmd, "fields to change")
	return cmd
}

func newDeleteCmd(def resourceDef) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			ok, err := confirmDelete(cmd, def.name+" "+args[0])
			if err != nil || !ok {
				return err
			}
			if err := def.resource(app.Client).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.Print(deleted{Deleted: args[0]})
		},
	}
	addYesFlag(cmd)
	return cmd
}

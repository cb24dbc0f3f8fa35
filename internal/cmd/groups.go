package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/impulsenest/teacherpanel/internal/api"
	"github.com/impulsenest/teacherpanel/internal/errors"
)

func addGroupCommands(parent *cobra.Command, def resourceDef) {
	parent.AddCommand(
		&cobra.Command{
			Use:   "students <group-id>",
			Short: "List the members of a group",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := appFrom(cmd)
				if err != nil {
					return err
				}
				entities, err := app.Client.Groups().Students(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return app.Print(entityTable(entities, "first_name", "last_name", "phone"))
			},
		},
		withData(&cobra.Command{
			Use:   "add-student <group-id>",
			Short: "Add a student to a group",
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
				entity, err := app.Client.Groups().AddStudent(cmd.Context(), args[0], payload)
				if err != nil {
					return err
				}
				return app.Print(entity)
			},
		}, "student to add, e.g. {\"studentId\": 12}"),
		&cobra.Command{
			Use:   "remove-student <group-id> <student-id>",
			Short: "Remove a student from a group",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := appFrom(cmd)
				if err != nil {
					return err
				}
				if err := app.Client.Groups().RemoveStudent(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				return app.Print(deleted{Deleted: fmt.Sprintf("student %s from group %s", args[1], args[0])})
			},
		},
		&cobra.Command{
			Use:   "stats <group-id>",
			Short: "Show progress statistics of a group",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := appFrom(cmd)
				if err != nil {
					return err
				}
				stats, err := app.Client.Groups().Stats(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return app.Print(stats)
			},
		},
		assignmentListCmd("assigned-units", "List the units assigned to a group", (*api.Client).GroupAssignedUnits),
		assignmentListCmd("assigned-lessons", "List the lessons assigned to a group", (*api.Client).GroupAssignedLessons),
		withData(&cobra.Command{
			Use:   "assign-units",
			Short: "Assign units to a group",
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
				entity, err := app.Client.Groups().AssignUnits(cmd.Context(), payload)
				if err != nil {
					return err
				}
				return app.Print(entity)
			},
		}, "assignment, e.g. {\"groupId\": 3, \"unitIds\": [1, 2]}"),
		withData(&cobra.Command{
			Use:   "update-assigned-lessons <assignment-id>",
			Short: "Update a lesson assignment",
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
				entity, err := app.Client.GroupAssignedLessons().Update(cmd.Context(), args[0], payload)
				if err != nil {
					return err
				}
				return app.Print(entity)
			},
		}, "fields to change"),
		&cobra.Command{
			Use:   "remove-assignment <group-id> <assignment-id>",
			Short: "Remove a content assignment from a group",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := appFrom(cmd)
				if err != nil {
					return err
				}
				if err := app.Client.Groups().RemoveAssignment(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				return app.Print(deleted{Deleted: "assignment " + args[1]})
			},
		},
	)
}

func assignmentListCmd(use, short string, assignments func(*api.Client) *api.AssignmentsAPI) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <group-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			entities, err := assignments(app.Client).ListByGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Print(entityTable(entities, "title", "assignedAt"))
		},
	}
}

func addStudentCommands(parent *cobra.Command, def resourceDef) {
	parent.AddCommand(
		&cobra.Command{
			Use:   "add-to-group <student-id> <group-id>",
			Short: "Enroll a student in a group",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := appFrom(cmd)
				if err != nil {
					return err
				}
				entity, err := app.Client.Students().AddToGroup(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return app.Print(entity)
			},
		},
		&cobra.Command{
			Use:   "remove-from-group <student-id> <group-id>",
			Short: "Withdraw a student from a group",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := appFrom(cmd)
				if err != nil {
					return err
				}
				if err := app.Client.Students().RemoveFromGroup(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				return app.Print(deleted{Deleted: fmt.Sprintf("student %s from group %s", args[0], args[1])})
			},
		},
	)
}

func addVocabularyItemCommands(parent *cobra.Command, def resourceDef) {
	cmd := &cobra.Command{
		Use:   "bulk-import",
		Short: "Create many items in one vocabulary set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			setID, _ := cmd.Flags().GetString("set")
			payload, err := payloadFlag(cmd)
			if err != nil {
				return err
			}
			items, err := toEntities(payload)
			if err != nil {
				return err
			}
			result, err := app.Client.VocabularyItems().BulkImport(cmd.Context(), setID, items)
			if err != nil {
				return err
			}
			return app.Print(result)
		},
	}
	cmd.Flags().String("set", "", "vocabulary set receiving the items")
	_ = cmd.MarkFlagRequired("set")
	parent.AddCommand(withData(cmd, `items, e.g. [{"word": "apple", "translation": "olma"}]`))
}

func withData(cmd *cobra.Command, usage string) *cobra.Command {
	addDataFlag(cmd, usage)
	return cmd
}

// toEntities accepts a JSON array of objects, or an object with an "items"
// array.
func toEntities(payload any) ([]api.Entity, error) {
	if obj, ok := payload.(map[string]any); ok {
		payload = obj["items"]
	}
	list, ok := payload.([]any)
	if !ok {
		return nil, errors.NewInvalidPayloadError(fmt.Errorf("expected a JSON array of items"))
	}
	items := make([]api.Entity, 0, len(list))
	for i, v := range list {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, errors.NewInvalidPayloadError(fmt.Errorf("item %d is not an object", i))
		}
		items = append(items, api.Entity(obj))
	}
	return items, nil
}

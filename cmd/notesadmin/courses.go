package main

import (
	"studynotes/config"
	"studynotes/internal/repository"
	"studynotes/internal/services"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type courseOutput struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Professor string `json:"professor,omitempty"`
	School    string `json:"school,omitempty"`
}

func newCoursesCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Manage the course catalog",
	}
	cmd.AddCommand(newCoursesAddCmd(cfg, jsonOutput), newCoursesListCmd(cfg, jsonOutput))
	return cmd
}

func newCoursesAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var professor, school string

	cmd := &cobra.Command{
		Use:   "add <code>",
		Short: "Add a course; the code is stored in canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := cliLogger(cfg)
			cache, closeCache := openCatalogCache(cmd.Context(), cfg, l)
			defer closeCache()

			return withDB(cfg, func(db *gorm.DB) error {
				repo := repository.NewCourseRepository(db)
				svc := services.NewCourseService(repo, services.NewCourseResolver(repo, cache, l), l)
				c, err := svc.Create(cmd.Context(), services.CreateCourseInput{
					Code:      args[0],
					Professor: professor,
					School:    school,
				})
				if err != nil {
					return err
				}
				out := courseOutput{ID: c.ID.String(), Code: c.Code, Professor: c.Professor.String, School: c.School.String}
				if *jsonOutput {
					return writeJSON(cmd.OutOrStdout(), out)
				}
				return writePlain(cmd.OutOrStdout(), "created %s %s\n", out.Code, out.ID)
			})
		},
	}
	cmd.Flags().StringVar(&professor, "professor", "", "instructor name")
	cmd.Flags().StringVar(&school, "school", "", "school or department")
	return cmd
}

func newCoursesListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List courses, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cfg, func(db *gorm.DB) error {
				courses, err := repository.NewCourseRepository(db).ListCatalog(cmd.Context())
				if err != nil {
					return err
				}
				out := make([]courseOutput, 0, len(courses))
				for _, c := range courses {
					out = append(out, courseOutput{ID: c.ID.String(), Code: c.Code, Professor: c.Professor.String, School: c.School.String})
				}
				if *jsonOutput {
					return writeJSON(cmd.OutOrStdout(), out)
				}
				for _, c := range out {
					if err := writePlain(cmd.OutOrStdout(), "%-12s %-24s %s\n", c.Code, c.Professor, c.School); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

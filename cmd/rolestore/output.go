package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nebari-dev/rolestore/internal/models"
	"gopkg.in/yaml.v3"
)

var outputFormat string

// roleView is the printable form of a role.
type roleView struct {
	ID                 uint      `json:"id" yaml:"id"`
	Name               string    `json:"name" yaml:"name"`
	Description        *string   `json:"description" yaml:"description"`
	CustomInstructions *string   `json:"custom_instructions" yaml:"custom_instructions"`
	CreatedBy          *string   `json:"created_by" yaml:"created_by"`
	CreatedAt          time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" yaml:"updated_at"`
}

// userView is the printable form of a user.
type userView struct {
	ID       string `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email" yaml:"email"`
	RoleID   *uint  `json:"role_id" yaml:"role_id"`
	Role     string `json:"role,omitempty" yaml:"role,omitempty"`
}

func toRoleView(r models.Role) roleView {
	return roleView{
		ID:                 r.ID,
		Name:               r.Name,
		Description:        r.Description,
		CustomInstructions: r.CustomInstructions,
		CreatedBy:          r.CreatedBy,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func toUserView(u models.User) userView {
	v := userView{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
		RoleID:   u.RoleID,
	}
	if u.Role != nil {
		v.Role = u.Role.Name
	}
	return v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// writeStructured prints v as json or yaml. It reports false for table output.
func writeStructured(w io.Writer, format string, v interface{}) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	case "table", "":
		return false, nil
	default:
		return true, fmt.Errorf("unsupported output format %q (supported: table, json, yaml)", format)
	}
}

func printRoles(w io.Writer, format string, roles []models.Role) error {
	views := make([]roleView, len(roles))
	for i, r := range roles {
		views[i] = toRoleView(r)
	}
	if done, err := writeStructured(w, format, views); done {
		return err
	}

	if len(roles) == 0 {
		fmt.Fprintln(w, "No roles found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION\tCREATED BY\tCREATED")
	for _, r := range roles {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Name,
			deref(r.Description),
			deref(r.CreatedBy),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return tw.Flush()
}

func printRole(w io.Writer, format string, role *models.Role) error {
	if done, err := writeStructured(w, format, toRoleView(*role)); done {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", role.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", role.Name)
	fmt.Fprintf(tw, "Description:\t%s\n", deref(role.Description))
	fmt.Fprintf(tw, "Custom instructions:\t%s\n", deref(role.CustomInstructions))
	fmt.Fprintf(tw, "Created by:\t%s\n", deref(role.CreatedBy))
	fmt.Fprintf(tw, "Created:\t%s\n", role.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Updated:\t%s\n", role.UpdatedAt.Format(time.RFC3339))
	return tw.Flush()
}

func printUsers(w io.Writer, format string, users []models.User) error {
	views := make([]userView, len(users))
	for i, u := range users {
		views[i] = toUserView(u)
	}
	if done, err := writeStructured(w, format, views); done {
		return err
	}

	if len(users) == 0 {
		fmt.Fprintln(w, "No users found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE")
	for _, u := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role)
	}
	return tw.Flush()
}

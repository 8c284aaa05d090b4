package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nebari-dev/rolestore/internal/models"
	"github.com/nebari-dev/rolestore/internal/rbac"
	"github.com/nebari-dev/rolestore/internal/store"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Manage roles",
	Long:  `Create, list, update, delete and attach roles.`,
}

var (
	roleDescription  string
	roleInstructions string
	roleCreatedBy    string
	roleName         string
	roleListSearch   string
	roleListByTime   bool
	roleGetByName    bool
)

var roleCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a role",
	Long: `Create a role. If the name is taken, the smallest free numeric suffix
is appended ("Support" becomes "Support 2").

Example:
  rolestore role create Support --description "Answers tickets" --created-by alice`,
	Args: cobra.ExactArgs(1),
	RunE: runRoleCreate,
}

var roleListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List roles",
	Long: `List roles.

Examples:
  # All roles, oldest first
  rolestore role list --by-created

  # Case-insensitive name search
  rolestore role list --search sup -o json`,
	Args: cobra.NoArgs,
	RunE: runRoleList,
}

var roleGetCmd = &cobra.Command{
	Use:   "get <id|name>",
	Short: "Show a role",
	Long: `Show a role by id, or by exact name with --name.

Examples:
  rolestore role get 3
  rolestore role get Support --name`,
	Args: cobra.ExactArgs(1),
	RunE: runRoleGet,
}

var roleUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a role",
	Long: `Update the fields given as flags; others are left unchanged.

Example:
  rolestore role update 3 --instructions "Reply within a day"`,
	Args: cobra.ExactArgs(1),
	RunE: runRoleUpdate,
}

var roleDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a role",
	Long:    `Delete a role. Deleting an id that does not exist is not an error.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRoleDelete,
}

var roleAttachCmd = &cobra.Command{
	Use:   "attach <role-id> <username>",
	Short: "Attach a role to a user",
	Long: `Attach a role to a user, replacing the user's current role.

Example:
  rolestore role attach 3 alice`,
	Args: cobra.ExactArgs(2),
	RunE: runRoleAttach,
}

var roleSuggestCmd = &cobra.Command{
	Use:   "suggest-name <candidate>",
	Short: "Print the name a new role with this candidate would get",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleSuggest,
}

func init() {
	roleCmd.AddCommand(roleCreateCmd)
	roleCmd.AddCommand(roleListCmd)
	roleCmd.AddCommand(roleGetCmd)
	roleCmd.AddCommand(roleUpdateCmd)
	roleCmd.AddCommand(roleDeleteCmd)
	roleCmd.AddCommand(roleAttachCmd)
	roleCmd.AddCommand(roleSuggestCmd)

	roleCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")

	for _, cmd := range []*cobra.Command{roleCreateCmd, roleUpdateCmd} {
		cmd.Flags().StringVar(&roleDescription, "description", "", "Role description")
		cmd.Flags().StringVar(&roleInstructions, "instructions", "", "Custom instructions")
		cmd.Flags().StringVar(&roleCreatedBy, "created-by", "", "Creator of the role")
	}
	roleUpdateCmd.Flags().StringVar(&roleName, "name", "", "New role name")

	roleListCmd.Flags().StringVar(&roleListSearch, "search", "", "Case-insensitive name substring")
	roleListCmd.Flags().BoolVar(&roleListByTime, "by-created", false, "Order by creation time")
	roleListCmd.MarkFlagsMutuallyExclusive("search", "by-created")

	roleGetCmd.Flags().BoolVar(&roleGetByName, "name", false, "Treat the argument as an exact role name")
}

func roleStore() (*store.RoleStore, error) {
	database, err := openDatabase()
	if err != nil {
		return nil, err
	}
	return store.NewRoleStore(database), nil
}

// mirrorRBAC applies fn to a casbin enforcer when rbac is enabled.
func mirrorRBAC(database *gorm.DB, fn func(*rbac.Enforcer) error) error {
	if !rbacEnabled() {
		return nil
	}
	enforcer, err := rbac.NewEnforcer(database, slog.Default())
	if err != nil {
		return err
	}
	return fn(enforcer)
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid role id %q", arg)
	}
	return uint(id), nil
}

// changedString returns a pointer to value when the flag was given.
func changedString(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}

func runRoleCreate(cmd *cobra.Command, args []string) error {
	roles, err := roleStore()
	if err != nil {
		return err
	}

	role, err := roles.CreateRole(cmd.Context(), store.CreateRoleParams{
		Name:               args[0],
		Description:        changedString(cmd, "description", roleDescription),
		CustomInstructions: changedString(cmd, "instructions", roleInstructions),
		CreatedBy:          changedString(cmd, "created-by", roleCreatedBy),
	})
	if err != nil {
		return err
	}
	return printRole(cmd.OutOrStdout(), outputFormat, role)
}

func runRoleList(cmd *cobra.Command, args []string) error {
	roles, err := roleStore()
	if err != nil {
		return err
	}

	var list []models.Role
	if roleListByTime {
		list, err = roles.GetAllRoles(cmd.Context())
	} else {
		list, err = roles.GetAll(cmd.Context(), roleListSearch)
	}
	if err != nil {
		return err
	}
	return printRoles(cmd.OutOrStdout(), outputFormat, list)
}

func runRoleGet(cmd *cobra.Command, args []string) error {
	roles, err := roleStore()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if roleGetByName {
		role, err := roles.GetByName(ctx, args[0])
		if err != nil {
			return err
		}
		if role == nil {
			return fmt.Errorf("role %q not found", args[0])
		}
		return printRole(cmd.OutOrStdout(), outputFormat, role)
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	role, err := roles.GetRoleByID(ctx, id)
	if err != nil {
		return err
	}
	if role == nil {
		return fmt.Errorf("role %d not found", id)
	}
	return printRole(cmd.OutOrStdout(), outputFormat, role)
}

func runRoleUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	roles, err := roleStore()
	if err != nil {
		return err
	}

	role, err := roles.Update(cmd.Context(), id, store.RoleUpdate{
		Name:               changedString(cmd, "name", roleName),
		Description:        changedString(cmd, "description", roleDescription),
		CustomInstructions: changedString(cmd, "instructions", roleInstructions),
		CreatedBy:          changedString(cmd, "created-by", roleCreatedBy),
	})
	if err != nil {
		return err
	}
	if role == nil {
		return fmt.Errorf("role %d not found", id)
	}
	return printRole(cmd.OutOrStdout(), outputFormat, role)
}

func runRoleDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	database, err := openDatabase()
	if err != nil {
		return err
	}

	if err := store.NewRoleStore(database).Delete(cmd.Context(), id); err != nil {
		return err
	}
	if err := mirrorRBAC(database, func(e *rbac.Enforcer) error {
		return e.RemoveRole(id)
	}); err != nil {
		return fmt.Errorf("role deleted but casbin mirror failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted role %d\n", id)
	return nil
}

func runRoleAttach(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	database, err := openDatabase()
	if err != nil {
		return err
	}
	roles := store.NewRoleStore(database)
	users := store.NewUserStore(database)
	ctx := cmd.Context()

	role, err := roles.GetRoleByID(ctx, id)
	if err != nil {
		return err
	}
	if role == nil {
		return fmt.Errorf("role %d not found", id)
	}
	user, err := users.GetByUsername(ctx, args[1])
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %q not found", args[1])
	}

	if err := roles.AttachRoleToUser(ctx, role, user); err != nil {
		return err
	}
	if err := mirrorRBAC(database, func(e *rbac.Enforcer) error {
		return e.AssignRole(user.ID, role.ID)
	}); err != nil {
		return fmt.Errorf("role attached but casbin mirror failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Attached role %q to %s\n", role.Name, user.Username)
	return nil
}

func runRoleSuggest(cmd *cobra.Command, args []string) error {
	roles, err := roleStore()
	if err != nil {
		return err
	}

	name, err := roles.ChooseName(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), name)
	return nil
}

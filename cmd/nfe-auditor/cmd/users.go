package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-auditor/internal/auth"
)

var (
	userPassword string
	userRole     string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage application users",
}

var usersAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersAdd,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE:  runUsersList,
}

var usersEnableCmd = &cobra.Command{
	Use:   "enable <username>",
	Short: "Reactivate a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return auth.NewStore(dataDir).SetActive(args[0], true)
	},
}

var usersDisableCmd = &cobra.Command{
	Use:   "disable <username>",
	Short: "Deactivate a user without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return auth.NewStore(dataDir).SetActive(args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersAddCmd, usersListCmd, usersEnableCmd, usersDisableCmd)

	usersAddCmd.Flags().StringVar(&userPassword, "password", "", "Password (env: NFE_AUDITOR_USER_PASSWORD)")
	usersAddCmd.Flags().StringVar(&userRole, "role", auth.RoleUser, "Role (admin, user)")
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
	password := userPassword
	if password == "" {
		password = os.Getenv("NFE_AUDITOR_USER_PASSWORD")
	}
	if password == "" {
		return fmt.Errorf("a password is required (--password or NFE_AUDITOR_USER_PASSWORD)")
	}

	if err := auth.NewStore(dataDir).AddUser(args[0], password, userRole, true); err != nil {
		return err
	}
	fmt.Printf("User %s created\n", args[0])
	return nil
}

func runUsersList(cmd *cobra.Command, args []string) error {
	users, err := auth.NewStore(dataDir).List()
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tROLE\tACTIVE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", u.Username, u.Role, u.Active, u.CreatedAt)
	}
	return tw.Flush()
}

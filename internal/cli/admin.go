package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tessro/cadence/internal/api"
	cerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/wizard"
)

var (
	usersSearch string
	usersRole   string
	usersStatus string
	usersPage   int
	usersLimit  int

	pendingPage  int
	rejectReason string
	adminYes     bool
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Moderate users and uploads (admin only)",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users",
	RunE:  runAdminUsers,
}

var adminRoleCmd = &cobra.Command{
	Use:       "role <user-id> <user|admin>",
	Short:     "Change a user's role",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"user", "admin"},
	RunE:      runAdminRole,
}

var adminStatusCmd = &cobra.Command{
	Use:   "status <user-id> <active|inactive>",
	Short: "Activate or deactivate a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runAdminStatus,
}

var adminDeleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminDelete,
}

var adminPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List uploads awaiting approval",
	RunE:  runAdminPending,
}

var adminApproveCmd = &cobra.Command{
	Use:   "approve <track-id>...",
	Short: "Approve pending uploads",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdminApprove,
}

var adminRejectCmd = &cobra.Command{
	Use:   "reject <track-id>",
	Short: "Reject a pending upload",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminReject,
}

func init() {
	adminUsersCmd.Flags().StringVarP(&usersSearch, "search", "s", "", "search name or email")
	adminUsersCmd.Flags().StringVar(&usersRole, "role", "", "filter by role")
	adminUsersCmd.Flags().StringVar(&usersStatus, "status", "", "filter by status (active, inactive)")
	adminUsersCmd.Flags().IntVarP(&usersPage, "page", "p", 1, "page number")
	adminUsersCmd.Flags().IntVarP(&usersLimit, "limit", "n", 20, "users per page")
	adminPendingCmd.Flags().IntVarP(&pendingPage, "page", "p", 1, "page number")
	adminRejectCmd.Flags().StringVarP(&rejectReason, "reason", "r", "", "reason shown to the uploader")
	adminDeleteCmd.Flags().BoolVarP(&adminYes, "yes", "y", false, "skip confirmation")

	adminCmd.AddCommand(adminUsersCmd)
	adminCmd.AddCommand(adminRoleCmd)
	adminCmd.AddCommand(adminStatusCmd)
	adminCmd.AddCommand(adminDeleteCmd)
	adminCmd.AddCommand(adminPendingCmd)
	adminCmd.AddCommand(adminApproveCmd)
	adminCmd.AddCommand(adminRejectCmd)
	rootCmd.AddCommand(adminCmd)
}

// openAdmin opens the app and checks the stored profile's role. The server
// enforces the role too; this only saves a round trip.
func openAdmin(cmd *cobra.Command) (*app, error) {
	a, err := openApp(cmd.Context())
	if err != nil {
		return nil, err
	}
	if err := a.requireAuth(); err != nil {
		a.Close()
		return nil, err
	}
	if !a.session.CurrentUser().IsAdmin() {
		a.Close()
		return nil, cerrors.ErrForbidden
	}
	return a, nil
}

func parseActive(s string) (bool, error) {
	switch s {
	case "active", "enable", "enabled":
		return true, nil
	case "inactive", "disable", "disabled":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("status must be active or inactive, got %q", s)
	}
	return b, nil
}

func runAdminUsers(cmd *cobra.Command, args []string) error {
	a, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	page, err := a.client.Users(cmd.Context(), api.UserQuery{
		Search: usersSearch,
		Role:   usersRole,
		Status: usersStatus,
		Page:   usersPage,
		Limit:  usersLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if JSONOutput() {
		return printJSON(page)
	}

	t := NewTable("", "ID", "NAME", "EMAIL", "ROLE", "JOINED")
	for _, u := range page.Users {
		t.Row(StatusIcon(u.IsActive), u.ID, TruncateString(u.DisplayName(), 28), u.Email, u.Role, ago(u.CreatedAt))
	}
	t.Flush()
	if page.TotalPages > 1 {
		fmt.Printf("\nPage %d of %d (%d users)\n", page.Page, page.TotalPages, page.Total)
	}
	return nil
}

func runAdminRole(cmd *cobra.Command, args []string) error {
	role := args[1]
	if role != "user" && role != "admin" {
		return fmt.Errorf("role must be user or admin, got %q", role)
	}

	a, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.client.SetUserRole(cmd.Context(), args[0], role); err != nil {
		return fmt.Errorf("failed to change role: %w", err)
	}
	if !JSONOutput() {
		fmt.Printf("User %s is now %s\n", args[0], role)
	}
	return nil
}

func runAdminStatus(cmd *cobra.Command, args []string) error {
	active, err := parseActive(args[1])
	if err != nil {
		return err
	}

	a, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.client.SetUserStatus(cmd.Context(), args[0], active); err != nil {
		return fmt.Errorf("failed to change status: %w", err)
	}
	if !JSONOutput() {
		state := "deactivated"
		if active {
			state = "activated"
		}
		fmt.Printf("User %s %s\n", args[0], state)
	}
	return nil
}

func runAdminDelete(cmd *cobra.Command, args []string) error {
	a, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if !adminYes && wizard.IsTerminal() {
		ok, err := wizard.Confirm(fmt.Sprintf("Delete user %s and their uploads?", args[0]))
		if err != nil || !ok {
			return err
		}
	}

	if err := a.client.DeleteUser(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if !JSONOutput() {
		fmt.Println("User deleted")
	}
	return nil
}

func runAdminPending(cmd *cobra.Command, args []string) error {
	a, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	page, err := a.client.PendingTracks(cmd.Context(), pendingPage)
	if err != nil {
		return fmt.Errorf("failed to list pending uploads: %w", err)
	}
	if JSONOutput() {
		return printJSON(page)
	}
	if len(page.Tracks) == 0 {
		fmt.Println("Nothing awaiting approval")
		return nil
	}
	writeTracks(os.Stdout, page.Tracks)
	writePageFooter(os.Stdout, page)
	return nil
}

func runAdminApprove(cmd *cobra.Command, args []string) error {
	a, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res := &cerrors.PartialResult[[]string]{}
	for _, id := range args {
		if err := a.client.ApproveTrack(cmd.Context(), id); err != nil {
			res.AddError(fmt.Errorf("%s: %w", id, err))
			continue
		}
		res.Data = append(res.Data, id)
	}

	if JSONOutput() {
		if err := printJSON(map[string]any{"approved": res.Data}); err != nil {
			return err
		}
	} else {
		for _, id := range res.Data {
			fmt.Printf("Approved %s\n", id)
		}
	}
	if res.HasErrors() {
		return fmt.Errorf("%s", res.ErrorSummary())
	}
	return nil
}

func runAdminReject(cmd *cobra.Command, args []string) error {
	a, err := openAdmin(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.client.RejectTrack(cmd.Context(), args[0], rejectReason); err != nil {
		return fmt.Errorf("failed to reject track: %w", err)
	}
	if !JSONOutput() {
		fmt.Printf("Rejected %s\n", args[0])
	}
	return nil
}

// ABOUTME: Contact CLI commands
// ABOUTME: Lists synchronized directory contacts for a user
package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
)

// ContactsListCommand lists a user's synced contacts.
func ContactsListCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	userID := fs.String("user", "", "User ID (required)")
	query := fs.String("query", "", "Search by name, company or email")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	if *userID == "" {
		return fmt.Errorf("--user is required")
	}

	contacts, err := env.Contacts.ListContacts(context.Background(), *userID, *query, *limit)
	if err != nil {
		return fmt.Errorf("failed to find contacts: %w", err)
	}

	if len(contacts) == 0 {
		fmt.Fprintln(env.Out, "No contacts found")
		return nil
	}

	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tEMAIL\tPHONE\tCOMPANY\tID")
	_, _ = fmt.Fprintln(w, "----\t-----\t-----\t-------\t--")

	for _, contact := range contacts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			contact.Name, orDash(contact.PrimaryEmail()), orDash(contact.PrimaryPhone()),
			orDash(contact.Company), contact.ID)
	}
	_ = w.Flush()

	fmt.Fprintf(env.Out, "\nTotal: %d contact(s)\n", len(contacts))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

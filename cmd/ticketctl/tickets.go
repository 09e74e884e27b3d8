package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ticketdesk/internal/model"
)

func newCreateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Create a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.session(cmd)
			if err != nil {
				return err
			}
			t, err := cl.CreateTicket(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printTickets(cmd.OutOrStdout(), t)
		},
	}
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.session(cmd)
			if err != nil {
				return err
			}
			ts, err := cl.ListTickets(cmd.Context())
			if err != nil {
				return err
			}
			if c.v.GetBool(cfgKeyJSON) {
				return writeJSON(cmd.OutOrStdout(), ts)
			}
			return c.printTickets(cmd.OutOrStdout(), ts...)
		},
	}
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a ticket by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid ticket id %q", args[0])
			}
			cl, err := c.session(cmd)
			if err != nil {
				return err
			}
			t, err := cl.DeleteTicket(cmd.Context(), id)
			if err != nil {
				return err
			}
			return c.printTickets(cmd.OutOrStdout(), t)
		},
	}
}

func newHelloCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "hello [name]",
		Short: "Fetch the greeting page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.client(cmd)
			if err != nil {
				return err
			}
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			page, err := cl.Hello(cmd.Context(), name)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), page)
			return err
		},
	}
}

func (c *cli) printTickets(w io.Writer, ts ...model.Ticket) error {
	if c.v.GetBool(cfgKeyJSON) {
		if len(ts) == 1 {
			return writeJSON(w, ts[0])
		}
		return writeJSON(w, ts)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE")
	for _, t := range ts {
		fmt.Fprintf(tw, "%d\t%s\n", t.ID, t.Title)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

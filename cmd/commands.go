package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/evelens/internal/hotkeys"
	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/scanner"
	"github.com/Norgate-AV/evelens/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print full build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
	},
}

var hotkeyCmd = &cobra.Command{
	Use:   "hotkey",
	Short: "Hotkey utilities",
}

var hotkeyCheckCmd = &cobra.Command{
	Use:   "check <hotkey>",
	Short: "Validate a hotkey string and print its normalized form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := hotkeys.Parse(args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), h.String())
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "List or switch profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles; the active one is marked with *",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		profiles, err := st.Profiles(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, p := range profiles {
			marker := " "
			if p.Active {
				marker = "*"
			}

			fmt.Fprintf(tw, "%s %s\t%s\n", marker, p.Name, p.SwitchHotkey)
		}

		return tw.Flush()
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make a profile active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := st.ProfileByName(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("profile %q: %w", args[0], err)
		}

		if err := st.SetActiveProfile(cmd.Context(), p.ID); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Active profile: %s\n", p.Name)
		return nil
	},
}

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List client windows the active profile would mirror",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		api, err := newNative(logger.NewNoOpLogger())
		if err != nil {
			return err
		}

		p, err := st.ActiveProfile(cmd.Context())
		if err != nil {
			return err
		}

		names, err := st.WatchList(cmd.Context(), p.ID)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PID\tPROCESS\tTITLE")

		for _, name := range names {
			procs, err := api.Processes(name)
			if err != nil {
				return fmt.Errorf("list %s: %w", name, err)
			}

			for _, proc := range procs {
				if proc.Err != nil || proc.MainWindow == 0 || scanner.IsLauncherTitle(proc.Title) {
					continue
				}

				fmt.Fprintf(tw, "%d\t%s\t%s\n", proc.PID, proc.Name, proc.Title)
			}
		}

		return tw.Flush()
	},
}

func init() {
	hotkeyCmd.AddCommand(hotkeyCheckCmd)
	profileCmd.AddCommand(profileListCmd, profileUseCmd)
	RootCmd.AddCommand(versionCmd, hotkeyCmd, profileCmd, windowsCmd)
}

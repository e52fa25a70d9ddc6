package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitors or windows",
	Long:  `List the monitors or capturable top-level windows of the current desktop.`,
}

var listMonitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List monitors",
	Example: `  # List monitors in table format (default)
  screencap list monitors

  # List monitors in JSON format
  screencap list monitors --format json`,
	Args: cobra.NoArgs,
	RunE: runListMonitors,
}

var listWindowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List capturable windows",
	Long: `List top-level windows that can be captured.

Hidden, cloaked, tool and shell windows are filtered out, and window bounds
are the visible frame without invisible resize borders.`,
	Example: `  # List windows of every process, including this one
  screencap list windows --exclude-self=false

  # List windows as JSON
  screencap list windows -f json`,
	Args: cobra.NoArgs,
	RunE: runListWindows,
}

var (
	listFormat      string
	listExcludeSelf bool
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.AddCommand(listMonitorsCmd)
	listCmd.AddCommand(listWindowsCmd)

	listCmd.PersistentFlags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
	listWindowsCmd.Flags().BoolVar(&listExcludeSelf, "exclude-self", true, "exclude windows owned by this process")
}

func runListMonitors(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := openEngine(configMgr.Get())
	if err != nil {
		return err
	}
	defer engine.Close()

	monitors, err := engine.ListMonitors()
	if err != nil {
		return fmt.Errorf("failed to list monitors: %w", err)
	}
	return writeListing(os.Stdout, listFormat, monitors, func(w io.Writer) {
		printMonitorsTable(w, monitors)
	})
}

func runListWindows(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := openEngine(configMgr.Get())
	if err != nil {
		return err
	}
	defer engine.Close()

	windows, err := engine.ListWindows(listExcludeSelf)
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}
	engine.LocateWindows(windows)
	return writeListing(os.Stdout, listFormat, windows, func(w io.Writer) {
		printWindowsTable(w, windows)
	})
}

func writeListing(out io.Writer, format string, v any, table func(io.Writer)) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "table":
		table(out)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", format)
	}
}

func printMonitorsTable(out io.Writer, monitors []capture.Monitor) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "HANDLE\tNAME\tPOSITION\tSIZE\tSCALE\tPRIMARY")
	fmt.Fprintln(w, "------\t----\t--------\t----\t-----\t-------")

	for _, m := range monitors {
		primary := "No"
		if m.Primary {
			primary = "Yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%d,%d\t%dx%d\t%.2f\t%s\n",
			m.Handle, m.Name, m.Bounds.X, m.Bounds.Y, m.Bounds.Width, m.Bounds.Height, m.ScaleFactor, primary)
	}
}

func printWindowsTable(out io.Writer, windows []capture.Window) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "HANDLE\tZ\tPID\tAPP\tTITLE\tPOSITION\tSIZE\tMONITOR")
	fmt.Fprintln(w, "------\t-\t---\t---\t-----\t--------\t----\t-------")

	for _, win := range windows {
		monitor := "-"
		if win.Monitor != 0 {
			monitor = win.Monitor.String()
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%d,%d\t%dx%d\t%s\n",
			win.Handle, win.Z, win.PID, win.AppName, truncate(win.Title, 40),
			win.Bounds.X, win.Bounds.Y, win.Bounds.Width, win.Bounds.Height, monitor)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

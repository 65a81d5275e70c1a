package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vhslib/vaporwm/internal/cfg"
	"github.com/vhslib/vaporwm/internal/ctl"
	"github.com/vhslib/vaporwm/internal/wm"
)

//go:embed .version
var version string

var (
	profileName string
	sessionPath string

	titleColor  = color.New(color.FgCyan, color.Bold)
	activeColor = color.New(color.FgGreen, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "vaporwm",
	Short: "A reparenting X11 window manager",
	Long: `vaporwm is a reparenting X11 window manager with nine fixed workspaces,
framed windows and a built-in pair of panels.

Running vaporwm without a subcommand starts the window manager.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWm()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the window manager",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWm()
	},
}

var newCmd = &cobra.Command{
	Use:   "new [PROFILE]",
	Short: "Create a configuration profile with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "default"
		if len(args) > 0 {
			name = args[0]
		}
		if err := cfg.MakeProfile(name); err != nil {
			return fmt.Errorf("make profile: %w", err)
		}
		path, err := cfg.GetPath(name)
		if err != nil {
			return err
		}
		fmt.Println("Created", path)
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the contents of a saved session",
	Long: `Inspect reads the session file the window manager writes before a soft
restart and prints the saved workspaces, one table per workspace.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := sessionPath
		if path == "" {
			path = wm.SessionPath()
		}
		state, err := wm.ReadSession(path)
		if err != nil {
			return fmt.Errorf("read session: %w", err)
		}
		printSession(path, state)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vaporwm version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("vaporwm", strings.TrimSpace(version))
	},
}

func init() {
	rootCmd.Version = strings.TrimSpace(version)
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "default", "Configuration profile to use")
	inspectCmd.Flags().StringVar(&sessionPath, "session", "", "Session file to read (defaults to the current display's)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWm() error {
	profile, err := cfg.GetProfile(profileName)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	closeLog, err := setupLogging(&profile)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer closeLog()

	log.Info().Str("profile", profileName).Str("version", strings.TrimSpace(version)).Msg("starting")
	return ctl.Run(&profile, profileName)
}

// setupLogging points the global logger at both stderr and the log file.
// The file receives plain JSON lines; stderr gets the pretty rendering.
func setupLogging(profile *cfg.Profile) (func(), error) {
	level, err := zerolog.ParseLevel(profile.LogLevel)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)

	path := profile.LogPath
	if env, ok := os.LookupEnv("VAPORWM_LOG_PATH"); ok {
		path = env
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, file)).With().Timestamp().Logger()
	return func() { _ = file.Close() }, nil
}

func printSession(path string, state wm.SessionState) {
	fmt.Println("Session file:", path)
	empty := true
	for i, ws := range state.Workspaces {
		if len(ws.Stack) == 0 {
			continue
		}
		empty = false

		fmt.Println()
		titleColor.Printf("Workspace %d", i+1)
		if i == state.ActiveWorkspaceIndex {
			activeColor.Print("  (active)")
		}
		fmt.Println()

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Geometry", "Maximized", "Tasklist", "Focused")
		for j, client := range ws.Stack {
			maximized := ""
			if client.Maximized {
				maximized = "yes"
			}
			focused := ""
			if j == len(ws.Stack)-1 {
				focused = "*"
			}
			position := "-"
			if k := tasklistPosition(ws.Tasklist, client.ID); k >= 0 {
				position = fmt.Sprintf("%d", k+1)
			}
			table.Append(
				fmt.Sprintf("%d", client.ID),
				fmt.Sprintf("%dx%d%+d%+d", client.Width, client.Height, client.X, client.Y),
				maximized,
				position,
				focused,
			)
		}
		table.Render()
	}
	if empty {
		fmt.Println("Session is empty.")
	}
}

func tasklistPosition(tasklist []uint32, id uint32) int {
	for i, entry := range tasklist {
		if entry == id {
			return i
		}
	}
	return -1
}

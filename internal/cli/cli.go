package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Run     *RunCommand
	Status  *StatusCommand
	History *HistoryCommand
	Block   *BlockCommand
	Limit   *LimitCommand
	Track   *TrackCommand
	Prune   *PruneCommand
	Purge   *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "detox"
	parser.LongDescription = "Per-site daily time budgets for your browser."

	cmds := &commands{
		Run:     &RunCommand{globals: &globals, version: version},
		Status:  &StatusCommand{globals: &globals, version: version},
		History: &HistoryCommand{globals: &globals},
		Block:   &BlockCommand{globals: &globals},
		Limit:   &LimitCommand{globals: &globals},
		Track:   &TrackCommand{globals: &globals},
		Prune:   &PruneCommand{globals: &globals},
		Purge:   &PurgeCommand{globals: &globals},
	}

	parser.AddCommand("run", "Serve the browser extension", "Run the native messaging host that tracks browsing time. Started by the browser.", cmds.Run)
	parser.AddCommand("status", "Show today's time per site", "Show today's tracked time, limits and block state for every site.", cmds.Status)
	parser.AddCommand("history", "Show a site's daily history", "Show the per-day history kept for a site.", cmds.History)
	parser.AddCommand("block", "Block or unblock a site", "Block a site now, or unblock it with --off.", cmds.Block)
	parser.AddCommand("limit", "Set a site's daily limit", "Set a site's daily limit in minutes, or remove it with --clear.", cmds.Limit)
	parser.AddCommand("track", "Add a site or toggle tracking", "Add a new site, or enable/disable tracking for an existing one.", cmds.Track)
	parser.AddCommand("prune", "Drop old history", "Drop per-day history entries older than a cutoff.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL detox data", "Delete all sites and history and restore the default site list. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the detox CLI using os.Args. A launch by
// the browser is treated as "detox run".
func Run(version string) error {
	args := browserLaunchArgs(os.Args[1:])
	if len(args) == 0 {
		return RunWithArgs(version, nil)
	}
	return RunWithArgs(version, args)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("detox %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}

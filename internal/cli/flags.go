package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Also log to stderr"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// RunCommand serves the browser extension over native messaging.
type RunCommand struct {
	MetricsAddr string `long:"metrics-addr" description:"Serve Prometheus metrics on this address (overrides config)"`

	globals *GlobalFlags
	version string
}

// StatusCommand lists tracked sites with today's time.
type StatusCommand struct {
	Search string `long:"search" description:"Only sites whose domain contains this text"`
	Sort   string `long:"sort" description:"Sort order" choice:"time" choice:"time-reverse" choice:"alpha" choice:"alpha-reverse" default:"time"`

	globals *GlobalFlags
	version string
}

// HistoryCommand prints a site's per-day history.
type HistoryCommand struct {
	Domain string `long:"domain" description:"Site domain (required)"`

	globals *GlobalFlags
}

// BlockCommand blocks or unblocks a site.
type BlockCommand struct {
	Domain string `long:"domain" description:"Site domain (required)"`
	Off    bool   `long:"off" description:"Unblock instead of block"`

	globals *GlobalFlags
}

// LimitCommand sets or clears a site's daily limit.
type LimitCommand struct {
	Domain  string `long:"domain" description:"Site domain (required)"`
	Minutes int    `long:"minutes" description:"Daily limit in minutes"`
	Clear   bool   `long:"clear" description:"Remove the daily limit"`

	globals *GlobalFlags
}

// TrackCommand adds a site or toggles whether it is tracked.
type TrackCommand struct {
	Domain  string `long:"domain" description:"Site domain (required)"`
	Add     bool   `long:"add" description:"Add the domain as a new site"`
	Enable  bool   `long:"enable" description:"Resume tracking the site"`
	Disable bool   `long:"disable" description:"Stop tracking the site"`

	globals *GlobalFlags
}

// PruneCommand drops per-day history older than a cutoff.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Drop history older than this (e.g. 7d, 2w)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
}

// PurgeCommand deletes all sites and history and restores the default list.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	in      io.Reader // confirmation input; nil means stdin
}

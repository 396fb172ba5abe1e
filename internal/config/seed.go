package config

// DefaultSeedDomains returns the sites tracked on first install. All start
// tracking-allowed with no daily limit.
func DefaultSeedDomains() []string {
	return []string{
		// Video & social
		"youtube.com",
		"x.com",
		"twitter.com",
		"reddit.com",
		"instagram.com",
		"linkedin.com",
		"web.snapchat.com",
		"discord.com",

		// AI assistants
		"chatgpt.com",
		"claude.ai",

		// Work
		"mail.google.com",
		"meet.google.com",
		"github.com",
		"figma.com",
		"leetcode.com",
	}
}

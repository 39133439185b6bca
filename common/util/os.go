package util

import (
	"strings"
)

// FilterOSArgs returns args with masked values for all flags not on
// whitelist, so a command line can be logged without leaking secrets such
// as connection strings or encryption master keys.
func FilterOSArgs(args []string, whitelist []string) []string {
	var (
		sanitized           = make([]string, len(args))
		sanitizeNext        = false
		whitelistByFlagName = make(map[string]struct{}, len(whitelist))
	)
	for _, name := range whitelist {
		whitelistByFlagName[name] = struct{}{}
	}
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			name := strings.ToLower(strings.TrimLeft(arg, "-"))
			if _, ok := whitelistByFlagName[name]; !ok {
				sanitizeNext = true
			} else {
				sanitizeNext = false
			}
			sanitized[i] = arg
		} else {
			if sanitizeNext {
				sanitized[i] = strings.Repeat("*", len(arg))
				sanitizeNext = false
			} else {
				sanitized[i] = arg
			}
		}
	}
	return sanitized
}

package facts

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ParseOSRelease reads an os-release file (usually /etc/os-release) and
// extracts the distribution identity fields. The format is KEY=VALUE lines
// where values may be double- or single-quoted.
func ParseOSRelease(path string) (OS, error) {
	file, err := os.Open(path)
	if err != nil {
		return OS{}, fmt.Errorf("read os-release: %w", err)
	}
	defer file.Close()

	var info OS
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = unquote(value)

		switch key {
		case "ID":
			info.ID = value
		case "ID_LIKE":
			info.IDLike = strings.Fields(value)
		case "VERSION_ID":
			info.VersionID = value
		case "PRETTY_NAME":
			info.PrettyName = value
		}
	}
	if err := scanner.Err(); err != nil {
		return OS{}, fmt.Errorf("read os-release: %w", err)
	}

	if info.ID == "" {
		return OS{}, fmt.Errorf("os-release %s has no ID field", path)
	}
	return info, nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// MatchesDistro reports whether the host identifies as (or derives from) one
// of the given distro IDs.
func (o OS) MatchesDistro(ids []string) bool {
	for _, id := range ids {
		if strings.EqualFold(o.ID, id) {
			return true
		}
		for _, like := range o.IDLike {
			if strings.EqualFold(like, id) {
				return true
			}
		}
	}
	return false
}

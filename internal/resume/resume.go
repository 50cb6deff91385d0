// Package resume implements the resumption store of spec §6.4 and
// SPEC_FULL §4.9: a Java-.properties-compatible codec for the single
// remainingProjects key, persisted as resume.properties in a build's
// output root.
package resume

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/buildtool-accel/buildc/internal/proto"
)

const fileName = "resume.properties"
const remainingProjectsKey = "remainingProjects"

// Persist writes resume.properties under rootDir with the remaining
// project ids. An empty ids list still writes the file (an empty list is a
// legitimate "everything completed but one project failed post-hoc"
// record, distinct from "no file").
func Persist(rootDir string, ids []string) error {
	path := filePath(rootDir)
	escaped := make([]string, len(ids))
	for i, id := range ids {
		escaped[i] = escapeValue(id)
	}
	line := fmt.Sprintf("%s = %s\n", remainingProjectsKey, strings.Join(escaped, ", "))
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		return proto.WrapKind(proto.ErrResumptionPersistence, fmt.Errorf("resume: writing %s: %w", path, err))
	}
	return nil
}

// Remove deletes resume.properties; a missing file is not an error.
func Remove(rootDir string) error {
	if err := os.Remove(filePath(rootDir)); err != nil && !os.IsNotExist(err) {
		return proto.WrapKind(proto.ErrResumptionPersistence, fmt.Errorf("resume: removing %s: %w", filePath(rootDir), err))
	}
	return nil
}

// Read loads the remaining project ids from rootDir's resume.properties, if
// present. A missing file returns (nil, false, nil); a corrupt file
// degrades to (nil, false, nil) as well — the caller logs a warning rather
// than treating it as fatal, per spec §7.
func Read(rootDir string) (ids []string, present bool, err error) {
	f, openErr := os.Open(filePath(rootDir))
	if openErr != nil {
		if os.IsNotExist(openErr) {
			return nil, false, nil
		}
		return nil, false, proto.WrapKind(proto.ErrResumptionPersistence, fmt.Errorf("resume: opening %s: %w", filePath(rootDir), openErr))
	}
	defer f.Close()

	props, parseErr := parseProperties(f)
	if parseErr != nil {
		return nil, false, nil
	}
	raw, ok := props[remainingProjectsKey]
	if !ok {
		return nil, false, nil
	}
	if raw == "" {
		return []string{}, true, nil
	}
	parts := splitUnescapedComma(raw)
	ids = make([]string, len(parts))
	for i, p := range parts {
		ids[i] = unescapeValue(strings.TrimSpace(p))
	}
	return ids, true, nil
}

// Apply reads rootDir's resume state and, if present and args doesn't
// already carry a resume-from flag, rewrites args to add one seeded from
// the first remaining project id (SPEC_FULL §4.9).
func Apply(args []string, rootDir string) ([]string, error) {
	if hasResumeFromFlag(args) {
		return args, nil
	}
	ids, present, err := Read(rootDir)
	if err != nil {
		return args, err
	}
	if !present || len(ids) == 0 {
		return args, nil
	}
	return append(append([]string{}, args...), "--resume-from="+ids[0]), nil
}

func hasResumeFromFlag(args []string) bool {
	for _, a := range args {
		if strings.HasPrefix(a, "--resume-from") || a == "-rf" {
			return true
		}
	}
	return false
}

func filePath(rootDir string) string { return rootDir + string(os.PathSeparator) + fileName }

// parseProperties reads a minimal, single-line-value subset of the
// .properties format sufficient for this module's one recognized key:
// "key = value" or "key: value", skipping blank lines and lines starting
// with '#' or '!'.
func parseProperties(r *os.File) (map[string]string, error) {
	props := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		sep := strings.IndexAny(line, "=:")
		if sep < 0 {
			continue
		}
		key := strings.TrimSpace(line[:sep])
		val := strings.TrimSpace(line[sep+1:])
		props[key] = val
	}
	return props, scanner.Err()
}

// escapeValue escapes '=', ':', '#', '!' and '\' so a project id containing
// one of those characters round-trips through the comma-space-joined list
// without being misread as a delimiter.
func escapeValue(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '=', ':', '#', '!', ',':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitUnescapedComma splits on ',' while treating a backslash-escaped
// comma as a literal character rather than a delimiter.
func splitUnescapedComma(s string) []string {
	var parts []string
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteByte('\\')
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteByte('\\')
	}
	parts = append(parts, cur.String())
	return parts
}

func unescapeValue(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

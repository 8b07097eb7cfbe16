package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrAbsolutePath  = errors.New("absolute paths are not allowed")
	ErrReservedName  = errors.New("reserved filename not allowed")
	ErrHyphenPrefix  = errors.New("filename cannot start with hyphen")
	ErrEmptyPath     = errors.New("output path is empty")

	windowsReservedNames = map[string]bool{
		"con": true, "prn": true, "aux": true, "nul": true,
		"com1": true, "com2": true, "com3": true, "com4": true,
		"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
		"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
		"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
	}
)

// ValidateOutputPath checks a path an edited image or comparison is written
// to. Relative paths may not climb out of the working directory. Absolute
// paths are accepted only when allowAbs is set.
func ValidateOutputPath(path string, allowAbs bool) error {
	if strings.TrimSpace(path) == "" {
		return ErrEmptyPath
	}
	if filepath.IsAbs(path) {
		if !allowAbs {
			return ErrAbsolutePath
		}
	} else {
		cleaned := filepath.Clean(path)
		if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
			return ErrPathTraversal
		}
		for _, elem := range strings.Split(filepath.ToSlash(path), "/") {
			if elem == ".." {
				return ErrPathTraversal
			}
		}
	}

	base := filepath.Base(path)
	nameWithoutExt := strings.TrimSuffix(strings.ToLower(base), strings.ToLower(filepath.Ext(base)))
	if windowsReservedNames[nameWithoutExt] {
		return ErrReservedName
	}
	if strings.HasPrefix(base, "-") {
		return ErrHyphenPrefix
	}

	return nil
}

// SanitizeFilename strips characters that are unsafe in a file name.
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "",
		"<", "", ">", "", "|", "", "\x00", "",
	)
	sanitized := replacer.Replace(name)
	sanitized = strings.TrimLeft(sanitized, ".-")
	sanitized = strings.TrimRight(sanitized, ". ")

	nameWithoutExt := strings.TrimSuffix(strings.ToLower(sanitized), filepath.Ext(sanitized))
	if windowsReservedNames[nameWithoutExt] {
		sanitized = sanitized + "_"
	}

	if sanitized == "" {
		sanitized = "file"
	}

	return sanitized
}

const maxSlugLen = 40

// PromptFilename derives a default output name such as
// "cyberedit-2-neon-rain-at-night.png" from a batch index and prompt.
func PromptFilename(index int, prompt, ext string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(prompt) {
		if b.Len() >= maxSlugLen {
			break
		}
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")

	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "png"
	}
	if slug == "" {
		return SanitizeFilename(fmt.Sprintf("cyberedit-%d.%s", index+1, ext))
	}
	return SanitizeFilename(fmt.Sprintf("cyberedit-%d-%s.%s", index+1, slug, ext))
}

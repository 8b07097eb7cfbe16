package batch

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/manash/cyberedit/pkg/models"
)

var ErrNoPrompts = errors.New("no prompts found")

type jsonItem struct {
	Prompt string `json:"prompt"`
}

// SplitPrompts turns the user's prompt text into the prompts of one
// submission. Single mode keeps the text as one prompt. Batch mode yields
// one prompt per non-blank line, in order.
func SplitPrompts(text string, mode models.PromptMode) []string {
	if mode != models.PromptBatch {
		return []string{text}
	}

	var prompts []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		prompts = append(prompts, line)
	}
	return prompts
}

// ParseFile reads batch prompts from a .txt (one per line) or .json file
// and returns them joined as batch-mode prompt text.
func ParseFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var prompts []string
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		prompts, err = ParseJSON(file)
	case ".txt", "":
		prompts, err = ParseText(file)
	default:
		return "", fmt.Errorf("unsupported file format %q: use .txt or .json", ext)
	}
	if err != nil {
		return "", err
	}
	return strings.Join(prompts, "\n"), nil
}

func ParseText(r io.Reader) ([]string, error) {
	var prompts []string
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		prompts = append(prompts, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(prompts) == 0 {
		return nil, ErrNoPrompts
	}

	return prompts, nil
}

func ParseJSON(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var items []jsonItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(items) == 0 {
		return nil, ErrNoPrompts
	}

	prompts := make([]string, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.Prompt) == "" {
			return nil, fmt.Errorf("item %d has empty prompt", i+1)
		}
		if strings.ContainsAny(item.Prompt, "\r\n") {
			return nil, fmt.Errorf("item %d spans multiple lines", i+1)
		}
		prompts[i] = item.Prompt
	}

	return prompts, nil
}

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
)

var ErrNoPrompts = errors.New("no prompts found in file")

// Item is one shot of a batch. Empty fields fall back to the batch options.
type Item struct {
	Index       int
	Prompt      string
	Camera      string
	Lens        string
	FocalLength string
	AspectRatio string
	Strength    *float64
	References  []string
}

type jsonItem struct {
	Prompt      string   `json:"prompt"`
	Camera      string   `json:"camera,omitempty"`
	Lens        string   `json:"lens,omitempty"`
	FocalLength string   `json:"focal_length,omitempty"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
	Strength    *float64 `json:"image_strength,omitempty"`
	References  []string `json:"reference_images,omitempty"`
}

func ParseFile(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSON(file)
	case ".txt", "":
		return ParseText(file)
	default:
		return nil, fmt.Errorf("unsupported file format %q: use .txt or .json", ext)
	}
}

// ParseText reads one prompt per line. Blank lines and lines starting with
// "#" are skipped.
func ParseText(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	index := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		index++
		items = append(items, Item{
			Index:  index,
			Prompt: line,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(items) == 0 {
		return nil, ErrNoPrompts
	}

	return items, nil
}

// ParseJSON reads an array of shots. A shot needs a prompt or at least one
// reference image.
func ParseJSON(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var jsonItems []jsonItem
	if err := json.Unmarshal(data, &jsonItems); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(jsonItems) == 0 {
		return nil, ErrNoPrompts
	}

	items := make([]Item, len(jsonItems))
	for i, ji := range jsonItems {
		if strings.TrimSpace(ji.Prompt) == "" && len(ji.References) == 0 {
			return nil, fmt.Errorf("item %d has neither a prompt nor reference images", i+1)
		}
		items[i] = Item{
			Index:       i + 1,
			Prompt:      ji.Prompt,
			Camera:      ji.Camera,
			Lens:        ji.Lens,
			FocalLength: ji.FocalLength,
			AspectRatio: ji.AspectRatio,
			Strength:    ji.Strength,
			References:  ji.References,
		}
	}

	return items, nil
}

// Package loader bulk-loads quiz items from JSON files, the format used to seed
// a fresh catalog at start-up.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ruteri/driving-tests-backend/interfaces"
)

// JPEGQuality is the quality used when re-encoding .jpeg/.jpg images.
const JPEGQuality = 75

// Catalog is the part of the quiz engine the loader writes to.
type Catalog interface {
	InsertBatch(ctx context.Context, items []interfaces.QuizItem) ([]int64, error)
	Count(ctx context.Context) (int64, error)
}

// ItemForm is one entry of a quiz file.
type ItemForm struct {
	Description   string          `json:"description"`
	Answers       []string        `json:"answers"`
	RightAnswerID int             `json:"right_answer_id"`
	Level         json.RawMessage `json:"level,omitempty"`
	Difficulty    json.RawMessage `json:"difficulty,omitempty"`
	ImagePath     string          `json:"image_path,omitempty"`
}

type fileForm struct {
	Tests []ItemForm `json:"tests"`
}

// Loader bulk-loads quiz items from JSON files into a catalog.
type Loader struct {
	catalog Catalog
	log     *slog.Logger
}

func NewLoader(catalog Catalog, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{catalog: catalog, log: log}
}

// LoadFile parses the quiz file at path and inserts every item in one batch.
// Nothing is inserted if any item is invalid.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	items, err := ParseFile(path)
	if err != nil {
		return 0, err
	}

	ids, err := l.catalog.InsertBatch(ctx, items)
	if err != nil {
		return 0, err
	}

	l.log.Info("Loaded quiz items", slog.String("path", path), slog.Int("count", len(ids)))
	return len(ids), nil
}

// LoadIfEmpty loads the quiz file only if the catalog has no items yet.
func (l *Loader) LoadIfEmpty(ctx context.Context, path string) (int, error) {
	count, err := l.catalog.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		l.log.Debug("Catalog already seeded, skipping load", slog.Int64("count", count))
		return 0, nil
	}
	return l.LoadFile(ctx, path)
}

// ParseFile reads a quiz file. Image paths are resolved relative to the file's directory.
func ParseFile(path string) ([]interfaces.QuizItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open quiz file: %w", err)
	}
	defer f.Close()

	return Parse(f, filepath.Dir(path))
}

// Parse decodes a JSON array of items, or an object with a "tests" array.
func Parse(r io.Reader, baseDir string) ([]interfaces.QuizItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read quiz file: %w", err)
	}

	var forms []ItemForm
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped fileForm
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: malformed quiz file: %v", interfaces.ErrInvalidQuizItem, err)
		}
		forms = wrapped.Tests
	} else if err := json.Unmarshal(trimmed, &forms); err != nil {
		return nil, fmt.Errorf("%w: malformed quiz file: %v", interfaces.ErrInvalidQuizItem, err)
	}

	items := make([]interfaces.QuizItem, 0, len(forms))
	for i, form := range forms {
		item, err := form.QuizItem(baseDir)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// QuizItem converts the form, loading and re-encoding its image if any.
func (f ItemForm) QuizItem(baseDir string) (interfaces.QuizItem, error) {
	difficulty, err := f.difficulty()
	if err != nil {
		return interfaces.QuizItem{}, err
	}

	item := interfaces.QuizItem{
		Difficulty:    difficulty,
		Prompt:        f.Description,
		Choices:       f.Answers,
		CorrectChoice: f.RightAnswerID,
	}

	if f.ImagePath != "" {
		path := f.ImagePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		item.Media, err = LoadImage(path)
		if err != nil {
			return interfaces.QuizItem{}, err
		}
	}
	return item, nil
}

// difficulty reads "difficulty" or "level", as a name or a number. Items
// without either are low difficulty.
func (f ItemForm) difficulty() (interfaces.Difficulty, error) {
	raw := f.Difficulty
	if len(raw) == 0 {
		raw = f.Level
	}
	if len(raw) == 0 {
		return interfaces.DifficultyLow, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, fmt.Errorf("%w: difficulty must be a name or a number", interfaces.ErrInvalidQuizItem)
		}
		s = strconv.Itoa(n)
	}
	return interfaces.ParseDifficulty(s)
}

// LoadImage decodes the image at path and re-encodes it: JPEG at JPEGQuality
// for .jpeg/.jpg files, PNG for everything else.
func LoadImage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open image: %v", interfaces.ErrInvalidQuizItem, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image %s: %v", interfaces.ErrInvalidQuizItem, path, err)
	}

	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpeg", ".jpg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

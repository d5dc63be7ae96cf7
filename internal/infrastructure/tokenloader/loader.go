package tokenloader

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"token_portfolio/internal/app/port"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileLoader reads CoinGecko ids to import into the watchlist.
//
// Two formats are accepted: a .json file holding either an array of ids or an
// array of objects with an "id" field, and a plain text file with one id per
// line where blank lines and lines starting with # are ignored.
type FileLoader struct {
	logger port.Logger
}

// NewFileLoader creates a new FileLoader.
func NewFileLoader(logger port.Logger) *FileLoader {
	return &FileLoader{logger: logger}
}

type idRecord struct {
	ID string `json:"id"`
}

// LoadIDs returns the normalized ids in path, in file order, without duplicates.
func (l *FileLoader) LoadIDs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file %s: %w", path, err)
	}

	var raw []string
	if strings.EqualFold(filepath.Ext(path), ".json") {
		raw, err = parseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse token file %s: %w", path, err)
		}
	} else {
		raw, err = l.parseLines(path, data)
		if err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, id := range raw {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	l.logger.Info("Token ids loaded from file", "path", path, "count", len(ids))
	return ids, nil
}

func parseJSON(data []byte) ([]string, error) {
	var ids []string
	if err := json.Unmarshal(data, &ids); err == nil {
		return ids, nil
	}
	var records []idRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	ids = make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (l *FileLoader) parseLines(path string, data []byte) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.ContainsAny(line, " \t,") {
			l.logger.Warn("Skipping malformed token id", "path", path, "line_number", lineNum, "line", line)
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning token file %s: %w", path, err)
	}
	return ids, nil
}

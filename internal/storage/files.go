// Package storage keeps the bot's small line-oriented files under the data
// directory: the auto-join list, server notices, command stats and the
// channel greeting.
package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxEntries = 500

const (
	channelsFile = "channels.txt"
	logsFile     = "logs.txt"
	statsFile    = "stats.txt"
	greetingFile = "greeting.txt"
)

// LoadChannels reads the persisted auto-join list, one "name" or
// "name key" per line.
func LoadChannels(dataDir string) ([]string, error) {
	lines, err := readLines(filepath.Join(dataDir, channelsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to load channels: %w", err)
	}
	return lines, nil
}

// SaveChannels replaces the persisted auto-join list.
func SaveChannels(dataDir string, channels []string) error {
	if err := writeLines(filepath.Join(dataDir, channelsFile), channels); err != nil {
		return fmt.Errorf("failed to save channels: %w", err)
	}
	return nil
}

// LoadLogs reads server notices, newest first.
func LoadLogs(dataDir string) ([]string, error) {
	lines, err := readLines(filepath.Join(dataDir, logsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to load logs: %w", err)
	}
	// File is oldest first
	return reverse(lines), nil
}

// SaveLogs writes server notices given newest first.
func SaveLogs(dataDir string, logs []string) error {
	if err := writeLines(filepath.Join(dataDir, logsFile), reverse(logs)); err != nil {
		return fmt.Errorf("failed to save logs: %w", err)
	}
	return nil
}

// AddLog prepends entry, keeping at most 500.
func AddLog(logs []string, entry string) []string {
	logs = append([]string{entry}, logs...)
	if len(logs) > maxEntries {
		logs = logs[:maxEntries]
	}
	return logs
}

// LoadStats reads the command log, oldest first.
func LoadStats(dataDir string) ([]string, error) {
	lines, err := readLines(filepath.Join(dataDir, statsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return lines, nil
}

// SaveStats writes the newest 500 command log entries.
func SaveStats(dataDir string, stats []string) error {
	if len(stats) > maxEntries {
		stats = stats[len(stats)-maxEntries:]
	}
	if err := writeLines(filepath.Join(dataDir, statsFile), stats); err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// AddStat appends entry, dropping the oldest past 500.
func AddStat(stats []string, entry string) []string {
	stats = append(stats, entry)
	if len(stats) > maxEntries {
		stats = stats[1:]
	}
	return stats
}

// Greeting is the notice sent to users joining the bot's channels.
type Greeting struct {
	Setter  string
	Message string
}

// LoadGreeting reads the greeting. A missing file yields an empty one.
func LoadGreeting(dataDir string) (*Greeting, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, greetingFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &Greeting{}, nil
		}
		return nil, fmt.Errorf("failed to load greeting: %w", err)
	}
	line := strings.TrimSpace(string(data))
	setter, message, ok := strings.Cut(line, "%%")
	if !ok {
		return &Greeting{Message: line}, nil
	}
	return &Greeting{Setter: setter, Message: message}, nil
}

// SaveGreeting stores g as "setter%%message".
func SaveGreeting(dataDir string, g *Greeting) error {
	content := fmt.Sprintf("%s%%%%%s\n", g.Setter, g.Message)
	if err := os.WriteFile(filepath.Join(dataDir, greetingFile), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to save greeting: %w", err)
	}
	return nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// writeLines replaces path atomically.
func writeLines(path string, lines []string) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			file.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func reverse(s []string) []string {
	result := make([]string, len(s))
	for i, v := range s {
		result[len(s)-1-i] = v
	}
	return result
}

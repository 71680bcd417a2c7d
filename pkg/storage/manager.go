package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"igaggregator/pkg/models"
)

const reportExt = ".json"

// Manager writes finished profile reports to an output directory
type Manager struct {
	outputDir string
	pretty    bool
	saved     map[string]bool
	mu        sync.RWMutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string, pretty bool) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		pretty:    pretty,
		saved:     make(map[string]bool),
	}

	if err := manager.scanExistingReports(); err != nil {
		return nil, fmt.Errorf("failed to scan existing reports: %w", err)
	}

	return manager, nil
}

// scanExistingReports records reports already present in the output directory
func (m *Manager) scanExistingReports() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == reportExt {
			m.saved[strings.TrimSuffix(entry.Name(), reportExt)] = true
		}
	}

	return nil
}

// ReportPath returns where the report for username is stored
func (m *Manager) ReportPath(username string) string {
	return filepath.Join(m.outputDir, username+reportExt)
}

// HasReport checks if a report for username has already been written
func (m *Manager) HasReport(username string) bool {
	m.mu.RLock()
	known := m.saved[username]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(m.ReportPath(username)); err == nil {
		m.mu.Lock()
		m.saved[username] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// SaveReport writes report as <username>.json, replacing any previous one
func (m *Manager) SaveReport(username string, report models.ProfileReport) (string, error) {
	if username == "" || strings.ContainsAny(username, `/\`) {
		return "", fmt.Errorf("invalid report name %q", username)
	}

	var data []byte
	var err error
	if m.pretty {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	filename := m.ReportPath(username)
	tempFile := filename + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write temporary file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.saved[username] = true
	m.mu.Unlock()

	return filename, nil
}

// LoadReport reads a previously saved report
func (m *Manager) LoadReport(username string) (models.ProfileReport, error) {
	var report models.ProfileReport
	data, err := os.ReadFile(m.ReportPath(username))
	if err != nil {
		return report, fmt.Errorf("failed to read report: %w", err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("failed to decode report: %w", err)
	}
	return report, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetReportCount returns the number of reports known to be on disk
func (m *Manager) GetReportCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}

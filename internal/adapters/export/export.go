// Package export writes session history as JSON, CSV or YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xvierd/focusos/internal/domain"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV, FormatYAML:
		return Format(s), nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json, csv or yaml)", s)
	}
}

// SessionRecord is the exported shape of a session.
type SessionRecord struct {
	ID              string                     `json:"id" yaml:"id"`
	StartTime       time.Time                  `json:"start_time" yaml:"start_time"`
	EndTime         *time.Time                 `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	DurationSeconds int64                      `json:"duration_seconds" yaml:"duration_seconds"`
	FocusScore      float64                    `json:"focus_score" yaml:"focus_score"`
	Tag             string                     `json:"tag,omitempty" yaml:"tag,omitempty"`
	PlannedSeconds  int64                      `json:"planned_seconds,omitempty" yaml:"planned_seconds,omitempty"`
	Distractions    []domain.DistractionRecord `json:"distractions" yaml:"distractions"`
}

// Document is the full export written by the JSON and YAML formats.
type Document struct {
	UserID      string                  `json:"user_id" yaml:"user_id"`
	GeneratedAt time.Time               `json:"generated_at" yaml:"generated_at"`
	Sessions    []SessionRecord         `json:"sessions" yaml:"sessions"`
	Days        []domain.DailyStatistic `json:"days,omitempty" yaml:"days,omitempty"`
}

// NewDocument builds an export document. Active sessions are measured up to
// generatedAt.
func NewDocument(userID string, sessions []*domain.FocusSession, days []domain.DailyStatistic, generatedAt time.Time) Document {
	doc := Document{
		UserID:      userID,
		GeneratedAt: generatedAt,
		Sessions:    make([]SessionRecord, 0, len(sessions)),
		Days:        days,
	}
	for _, s := range sessions {
		rec := SessionRecord{
			ID:              s.ID,
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			DurationSeconds: s.DurationSeconds(generatedAt),
			FocusScore:      s.FocusScore,
			Tag:             s.TagLabel(),
			Distractions:    s.Distractions,
		}
		if rec.Distractions == nil {
			rec.Distractions = []domain.DistractionRecord{}
		}
		if s.PlannedDuration != nil {
			rec.PlannedSeconds = int64(*s.PlannedDuration / time.Second)
		}
		doc.Sessions = append(doc.Sessions, rec)
	}
	return doc
}

// Write encodes doc to w in the given format. CSV carries sessions only.
func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, doc.Sessions)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteFile writes doc to path, creating or truncating it.
func WriteFile(path string, format Format, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := Write(f, format, doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(out io.Writer, sessions []SessionRecord) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"ID", "Start", "End", "Duration (s)", "Focus Score", "Tag", "Planned (s)", "Distractions"}); err != nil {
		return err
	}

	for _, s := range sessions {
		end := ""
		if s.EndTime != nil {
			end = s.EndTime.Local().Format(time.RFC3339)
		}
		planned := ""
		if s.PlannedSeconds > 0 {
			planned = strconv.FormatInt(s.PlannedSeconds, 10)
		}
		row := []string{
			s.ID,
			s.StartTime.Local().Format(time.RFC3339),
			end,
			strconv.FormatInt(s.DurationSeconds, 10),
			strconv.FormatFloat(s.FocusScore, 'f', 2, 64),
			s.Tag,
			planned,
			strconv.Itoa(len(s.Distractions)),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

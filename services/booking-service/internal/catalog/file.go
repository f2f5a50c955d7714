package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
	"gopkg.in/yaml.v3"
)

// FileSource serves periods and settings from a yaml document, for
// deployments where the backend does not expose them.
//
//	periods:
//	  - period_id: 1
//	    start_time: "08:00"
//	    end_time: "09:40"
//	settings:
//	  1: "04:00:00"
type FileSource struct {
	periods  []period.Period
	settings map[int]string
}

type fileDoc struct {
	Periods []struct {
		ID    int    `yaml:"period_id"`
		Start string `yaml:"start_time"`
		End   string `yaml:"end_time"`
	} `yaml:"periods"`
	Settings map[int]string `yaml:"settings"`
}

func LoadFile(path string) (*FileSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFile(raw)
}

func ParseFile(raw []byte) (*FileSource, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	src := &FileSource{settings: doc.Settings}
	if src.settings == nil {
		src.settings = map[int]string{}
	}
	for _, row := range doc.Periods {
		start, err := period.ParseTimeOfDay(row.Start)
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", row.ID, err)
		}
		end, err := period.ParseTimeOfDay(row.End)
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", row.ID, err)
		}
		p := period.Period{ID: row.ID, Start: start, End: end}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		src.periods = append(src.periods, p)
	}
	for id, val := range src.settings {
		if _, err := period.ParseTimeOfDay(val); err != nil {
			return nil, fmt.Errorf("setting %d: %w", id, err)
		}
	}
	return src, nil
}

func (f *FileSource) ListPeriods(context.Context) ([]period.Period, error) {
	out := make([]period.Period, len(f.periods))
	copy(out, f.periods)
	return out, nil
}

func (f *FileSource) GetSetting(_ context.Context, id int) (string, error) {
	val, ok := f.settings[id]
	if !ok {
		return "", fmt.Errorf("setting %d: %w", id, ErrUnknownSetting)
	}
	return val, nil
}

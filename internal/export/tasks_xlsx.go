package export

import (
	_ "embed"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v2"

	"github.com/locvowork/tasktracker/internal/domain"
)

const (
	SourceTasks    = "tasks"
	SourceSubtasks = "subtasks"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

//go:embed layout.yaml
var defaultLayout []byte

// Layout lists the sheets of the workbook and the columns of each.
type Layout struct {
	Sheets []SheetConfig `yaml:"sheets"`
}

type SheetConfig struct {
	Name    string         `yaml:"name"`
	Source  string         `yaml:"source"`
	Columns []ColumnConfig `yaml:"columns"`
}

type ColumnConfig struct {
	Field  string  `yaml:"field"`
	Header string  `yaml:"header"`
	Width  float64 `yaml:"width"`
}

// ParseLayout decodes and checks a YAML layout.
func ParseLayout(data []byte) (Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	if len(l.Sheets) == 0 {
		return Layout{}, fmt.Errorf("layout has no sheets")
	}
	for _, sheet := range l.Sheets {
		if sheet.Name == "" {
			return Layout{}, fmt.Errorf("sheet name is required")
		}
		if sheet.Source != SourceTasks && sheet.Source != SourceSubtasks {
			return Layout{}, fmt.Errorf("sheet %s: unknown source %q", sheet.Name, sheet.Source)
		}
		if len(sheet.Columns) == 0 {
			return Layout{}, fmt.Errorf("sheet %s has no columns", sheet.Name)
		}
	}
	return l, nil
}

// TaskExporter renders a user's tasks into an XLSX workbook.
type TaskExporter struct {
	layout Layout
}

func NewTaskExporter(layout Layout) *TaskExporter {
	return &TaskExporter{layout: layout}
}

// NewDefaultTaskExporter uses the embedded layout.
func NewDefaultTaskExporter() (*TaskExporter, error) {
	layout, err := ParseLayout(defaultLayout)
	if err != nil {
		return nil, err
	}
	return NewTaskExporter(layout), nil
}

// Write streams the workbook to w.
func (e *TaskExporter) Write(w io.Writer, tasks []domain.Task) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#BBDEFB"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, sheet := range e.layout.Sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return err
		}
		if err := writeSheet(f, sheet, headerStyle, tasks); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet SheetConfig, headerStyle int, tasks []domain.Task) error {
	sw, err := f.NewStreamWriter(sheet.Name)
	if err != nil {
		return err
	}
	for i, col := range sheet.Columns {
		if col.Width > 0 {
			if err := sw.SetColWidth(i+1, i+1, col.Width); err != nil {
				return err
			}
		}
	}

	header := make([]interface{}, len(sheet.Columns))
	for i, col := range sheet.Columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: col.Header}
	}
	row := 1
	if err := setRow(sw, row, header); err != nil {
		return err
	}

	for _, task := range tasks {
		switch sheet.Source {
		case SourceTasks:
			row++
			if err := setRow(sw, row, taskRow(sheet.Columns, task)); err != nil {
				return err
			}
		case SourceSubtasks:
			for _, sub := range task.Subtasks {
				row++
				if err := setRow(sw, row, subtaskRow(sheet.Columns, task, sub)); err != nil {
					return err
				}
			}
		}
	}
	return sw.Flush()
}

func setRow(sw *excelize.StreamWriter, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return sw.SetRow(cell, values)
}

func taskRow(cols []ColumnConfig, t domain.Task) []interface{} {
	values := make([]interface{}, len(cols))
	for i, col := range cols {
		switch col.Field {
		case "id":
			values[i] = t.ID
		case "title":
			values[i] = t.Title
		case "completed":
			values[i] = t.Completed
		case "start_date":
			values[i] = formatTime(t.StartDate)
		case "end_date":
			values[i] = formatTime(t.EndDate)
		case "created_at":
			values[i] = formatTime(&t.CreatedAt)
		case "subtasks_total":
			values[i] = len(t.Subtasks)
		case "subtasks_done":
			done := 0
			for _, s := range t.Subtasks {
				if s.Completed {
					done++
				}
			}
			values[i] = done
		}
	}
	return values
}

func subtaskRow(cols []ColumnConfig, t domain.Task, s domain.Subtask) []interface{} {
	values := make([]interface{}, len(cols))
	for i, col := range cols {
		switch col.Field {
		case "task_id":
			values[i] = t.ID
		case "task_title":
			values[i] = t.Title
		case "id":
			values[i] = s.ID
		case "title":
			values[i] = s.Title
		case "completed":
			values[i] = s.Completed
		}
	}
	return values
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
